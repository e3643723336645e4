package relevance_test

import (
	"testing"
	"time"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/relevance"
)

func TestScoreImportGraphDirectAndReverse(t *testing.T) {
	imports := map[string][]string{
		"a.py": {"b.py"},
		"c.py": {"a.py"},
	}
	if got := relevance.ScoreImportGraph("a.py", "b.py", imports); got != 1.0 {
		t.Errorf("direct import = %v, want 1.0", got)
	}
	if got := relevance.ScoreImportGraph("a.py", "c.py", imports); got != 0.8 {
		t.Errorf("reverse import = %v, want 0.8", got)
	}
	if got := relevance.ScoreImportGraph("a.py", "a.py", imports); got != 0.0 {
		t.Errorf("self = %v, want 0.0", got)
	}
}

func TestScoreImportGraphTransitive(t *testing.T) {
	imports := map[string][]string{
		"a.py": {"mid.py"},
		"mid.py": {"c.py"},
	}
	if got := relevance.ScoreImportGraph("a.py", "c.py", imports); got != 0.5 {
		t.Errorf("transitive = %v, want 0.5", got)
	}
}

func TestScoreDirectoryProximity(t *testing.T) {
	if got := relevance.ScoreDirectoryProximity("pkg/a.py", "pkg/b.py"); got != 0.3 {
		t.Errorf("same dir = %v, want 0.3", got)
	}
	if got := relevance.ScoreDirectoryProximity("pkg/a.py", "pkg/sub/b.py"); got != 0.2 {
		t.Errorf("one level = %v, want 0.2", got)
	}
	if got := relevance.ScoreDirectoryProximity("pkg/a.py", "other/far/b.py"); got != 0.0 {
		t.Errorf("far = %v, want 0.0", got)
	}
}

func TestScoreNameSimilarityTestImplPair(t *testing.T) {
	if got := relevance.ScoreNameSimilarity("tests/test_foo.py", "src/foo.py"); got != 0.4 {
		t.Errorf("test/impl pair = %v, want 0.4", got)
	}
}

func TestScoreNameSimilarityPrefix(t *testing.T) {
	if got := relevance.ScoreNameSimilarity("widget_base.py", "widget_extra.py"); got != 0.2 {
		t.Errorf("shared prefix = %v, want 0.2", got)
	}
}

func TestScoreRecencyWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hourAgo := now.Add(-1 * time.Hour)
	got := relevance.ScoreRecency(&now, &hourAgo)
	if got <= 0 || got >= 0.3 {
		t.Errorf("recency = %v, want in (0, 0.3)", got)
	}
}

func TestScoreRecencyOutsideWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dayAgo := now.Add(-48 * time.Hour)
	if got := relevance.ScoreRecency(&now, &dayAgo); got != 0.0 {
		t.Errorf("recency outside window = %v, want 0.0", got)
	}
}

func TestFindRelatedRanksAndTrims(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	files := []contracts.FileMetadata{
		{Path: "pkg/a.py", LastModified: &now},
		{Path: "pkg/b.py", LastModified: &now},
		{Path: "unrelated/z.py"},
	}
	imports := map[string][]string{"pkg/a.py": {"pkg/b.py"}}

	results := relevance.FindRelated("pkg/a.py", files, imports, 1)
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Path != "pkg/b.py" {
		t.Errorf("top result = %+v, want pkg/b.py", results[0])
	}
	if len(results[0].Reasons) == 0 {
		t.Error("expected reasons populated")
	}
}

func TestFindRelatedExcludesZeroScore(t *testing.T) {
	files := []contracts.FileMetadata{
		{Path: "a.py"},
		{Path: "completely/unrelated/deep/thing.xyz"},
	}
	results := relevance.FindRelated("a.py", files, nil, 0)
	if len(results) != 0 {
		t.Fatalf("results = %+v, want none", results)
	}
}
