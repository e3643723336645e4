// Package diffgen turns old/new string pairs into unified-diff records and
// renders them back to canonical text.
package diffgen

import (
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// DefaultContextLines matches the patch engine's default hunk context.
const DefaultContextLines = 3

// UnifiedDiff is the record form of a generated unified diff.
type UnifiedDiff struct {
	Path       string
	Hunks      []string
	Insertions int
	Deletions  int
}

func normaliseNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func normalisePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// GenerateDiff computes a standards-conformant unified diff between old and
// new, using go-udiff's Myers-based edit computation for the hunk bodies.
func GenerateDiff(old, new, path string, contextLines int) (UnifiedDiff, error) {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}
	oldN := normaliseNewlines(old)
	newN := normaliseNewlines(new)
	fwdPath := normalisePath(path)

	edits := udiff.Strings(oldN, newN)
	text, err := udiff.ToUnified("a/"+fwdPath, "b/"+fwdPath, oldN, edits, contextLines)
	if err != nil {
		return UnifiedDiff{}, err
	}

	hunks, ins, del := splitHunks(text)
	return UnifiedDiff{Path: fwdPath, Hunks: hunks, Insertions: ins, Deletions: del}, nil
}

// splitHunks breaks a rendered unified-diff text into per-hunk strings
// (each starting at its "@@" header line), skipping the "---"/"+++" file
// headers, and tallies insertion/deletion counts.
func splitHunks(text string) ([]string, int, int) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var hunks []string
	var current []string
	ins, del := 0, 0

	flush := func() {
		if len(current) > 0 {
			hunks = append(hunks, strings.Join(current, "\n"))
		}
		current = nil
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			continue
		case strings.HasPrefix(line, "@@"):
			flush()
			current = append(current, line)
		case current != nil:
			current = append(current, line)
			if strings.HasPrefix(line, "+") {
				ins++
			} else if strings.HasPrefix(line, "-") {
				del++
			}
		}
	}
	flush()
	return hunks, ins, del
}

// DiffToText renders a UnifiedDiff back to canonical text with "---"/"+++"
// headers, trailing whitespace stripped per line so the result is stable
// under the sanitiser.
func DiffToText(diff UnifiedDiff) string {
	var b strings.Builder
	b.WriteString("--- a/" + diff.Path + "\n")
	b.WriteString("+++ b/" + diff.Path + "\n")
	for _, hunk := range diff.Hunks {
		for _, line := range strings.Split(hunk, "\n") {
			b.WriteString(strings.TrimRight(line, " \t"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// MultiDiffInput is one file's old/new content pair to diff.
type MultiDiffInput struct {
	Path string
	Old  string
	New  string
}

// GenerateMultiDiff maps GenerateDiff across inputs.
func GenerateMultiDiff(inputs []MultiDiffInput, contextLines int) ([]UnifiedDiff, error) {
	results := make([]UnifiedDiff, 0, len(inputs))
	for _, in := range inputs {
		d, err := GenerateDiff(in.Old, in.New, in.Path, contextLines)
		if err != nil {
			return results, err
		}
		results = append(results, d)
	}
	return results, nil
}
