package searcher

import (
	"regexp"
	"testing"
)

func mustCompile(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("compile %q: %v", pattern, err)
	}
	return re
}

func TestGlobToRegexDoubleStarCrossesSlash(t *testing.T) {
	re := mustCompile(t, globToRegex("build/**/*.o"))
	if !re.MatchString("build/a/b/x.o") {
		t.Errorf("expected ** to cross slash boundaries for %q", re.String())
	}
}

func TestGlobToRegexDirectorySuffix(t *testing.T) {
	re := mustCompile(t, globToRegex("node_modules/"))
	if !re.MatchString("node_modules/pkg/index.js") {
		t.Errorf("expected directory pattern to match nested paths")
	}
	if re.MatchString("src/node_modules_backup/x") {
		t.Errorf("directory pattern should not match partial-name siblings")
	}
}
