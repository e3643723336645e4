// Package relevance ranks workspace files by relation to a target file,
// combining import-graph distance, directory proximity, filename
// similarity, and recency into a single aggregate score. Every function
// here is pure: in-memory data in, scored data out, no filesystem or
// subprocess access.
package relevance

import (
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/forgeide/forgeide/internal/ide/contracts"
)

// DefaultMaxResults matches the source's find_related default.
const DefaultMaxResults = 15

const recencyWindowHours = 24.0

// ScoreImportGraph scores candidate by import-graph proximity to target:
// a direct import scores 1.0, a reverse import 0.8, a two-hop transitive
// import 0.5, otherwise 0.0.
func ScoreImportGraph(target, candidate string, imports map[string][]string) float64 {
	if target == candidate {
		return 0.0
	}

	targetImports := toSet(imports[target])
	candidateImports := toSet(imports[candidate])

	if targetImports[candidate] {
		return 1.0
	}
	if candidateImports[target] {
		return 0.8
	}
	for mid := range targetImports {
		if toSet(imports[mid])[candidate] {
			return 0.5
		}
	}
	return 0.0
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

// ScoreDirectoryProximity scores candidate by directory closeness to
// target: same directory 0.3, one level apart 0.2, two levels apart 0.1,
// otherwise 0.0.
func ScoreDirectoryProximity(target, candidate string) float64 {
	tParts := dirParts(target)
	cParts := dirParts(candidate)

	if equalParts(tParts, cParts) {
		return 0.3
	}

	common := 0
	for common < len(tParts) && common < len(cParts) && tParts[common] == cParts[common] {
		common++
	}
	distance := (len(tParts) - common) + (len(cParts) - common)

	switch distance {
	case 1:
		return 0.2
	case 2:
		return 0.1
	default:
		return 0.0
	}
}

func dirParts(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

func equalParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ScoreNameSimilarity scores candidate by filename similarity to target: a
// test/implementation mirror (test_foo.py <-> foo.py) scores 0.4, a shared
// stem prefix of at least 4 characters scores 0.2, otherwise 0.0.
func ScoreNameSimilarity(target, candidate string) float64 {
	tStem := stem(target)
	cStem := stem(candidate)

	if isTestImplPair(tStem, cStem) {
		return 0.4
	}

	prefixLen := 0
	for prefixLen < len(tStem) && prefixLen < len(cStem) && tStem[prefixLen] == cStem[prefixLen] {
		prefixLen++
	}
	if prefixLen >= 4 && tStem != cStem {
		return 0.2
	}
	return 0.0
}

func stem(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	base := path.Base(p)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext)
}

func isTestImplPair(stemA, stemB string) bool {
	pairs := [][2]string{{stemA, stemB}, {stemB, stemA}}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if strings.HasPrefix(a, "test_") && a[5:] == b {
			return true
		}
		if strings.HasSuffix(a, "_test") && a[:len(a)-5] == b {
			return true
		}
	}
	return false
}

// ScoreRecency scores candidate by closeness of its modification time to
// target's, linearly scaled up to 0.3 within a 24-hour window. Returns 0.0
// if either time is nil, or they fall outside the window.
func ScoreRecency(targetMtime, candidateMtime *time.Time) float64 {
	if targetMtime == nil || candidateMtime == nil {
		return 0.0
	}
	windowSecs := recencyWindowHours * 3600.0
	deltaSecs := math.Abs(targetMtime.Sub(*candidateMtime).Seconds())
	if deltaSecs >= windowSecs {
		return 0.0
	}
	return round4(0.3 * (1.0 - deltaSecs/windowSecs))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// FindRelated aggregates every scoring factor for each file in allFiles
// against targetPath, and returns the top maxResults files with a nonzero
// total score, sorted descending by score. A maxResults <= 0 uses
// DefaultMaxResults.
func FindRelated(targetPath string, allFiles []contracts.FileMetadata, imports map[string][]string, maxResults int) []contracts.RelatedFile {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var targetMeta *contracts.FileMetadata
	for i := range allFiles {
		if allFiles[i].Path == targetPath {
			targetMeta = &allFiles[i]
			break
		}
	}

	var results []contracts.RelatedFile
	for _, fm := range allFiles {
		if fm.Path == targetPath {
			continue
		}

		var reasons []string
		var total float64

		if ig := ScoreImportGraph(targetPath, fm.Path, imports); ig > 0 {
			total += ig
			switch {
			case ig >= 1.0:
				reasons = append(reasons, "direct import")
			case ig >= 0.8:
				reasons = append(reasons, "reverse import")
			default:
				reasons = append(reasons, "transitive import")
			}
		}

		if dp := ScoreDirectoryProximity(targetPath, fm.Path); dp > 0 {
			total += dp
			reasons = append(reasons, "directory proximity")
		}

		if ns := ScoreNameSimilarity(targetPath, fm.Path); ns > 0 {
			total += ns
			reasons = append(reasons, "name similarity")
		}

		var targetMtime *time.Time
		if targetMeta != nil {
			targetMtime = targetMeta.LastModified
		}
		if rc := ScoreRecency(targetMtime, fm.LastModified); rc > 0 {
			total += rc
			reasons = append(reasons, "recent modification")
		}

		if total > 0 {
			results = append(results, contracts.RelatedFile{Path: fm.Path, Score: round4(total), Reasons: reasons})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
