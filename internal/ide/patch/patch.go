// Package patch implements the unified-diff patch engine: parsing,
// fuzzy hunk matching, offset-tracked multi-hunk application, and precise
// conflict reporting.
package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/ideerrors"
)

// DefaultFuzz is the default maximum offset (in lines) a hunk's declared
// position may drift from its actual match.
const DefaultFuzz = 3

// Hunk is one contiguous unified-diff change block.
type Hunk struct {
	OldStart      int
	OldCount      int
	NewStart      int
	NewCount      int
	ContextBefore []string
	Removals      []string
	Additions     []string
	ContextAfter  []string
	OldLines      []string
	NewLines      []string
}

// PatchResult is the structured outcome of applying a patch to content.
type PatchResult struct {
	Success      bool
	Path         string
	HunksApplied int
	PreContent   string
	PostContent  string
	Insertions   int
	Deletions    int
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseUnifiedDiff parses a unified diff's hunks, ignoring file-header and
// "no newline at end of file" preamble/trailer lines.
func ParseUnifiedDiff(text string) ([]Hunk, error) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var hunks []Hunk
	var current *Hunk
	seenChange := false

	flush := func() {
		if current != nil {
			hunks = append(hunks, *current)
		}
		current = nil
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "diff --git"), strings.HasPrefix(line, "index "):
			continue
		case strings.HasPrefix(line, `\ No newline at end of file`):
			continue
		case strings.HasPrefix(line, "@@"):
			flush()
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				return nil, ideerrors.NewParseErr("unified_diff", text)
			}
			oldStart, _ := strconv.Atoi(m[1])
			oldCount := 1
			if m[2] != "" {
				oldCount, _ = strconv.Atoi(m[2])
			}
			newStart, _ := strconv.Atoi(m[3])
			newCount := 1
			if m[4] != "" {
				newCount, _ = strconv.Atoi(m[4])
			}
			current = &Hunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount}
			seenChange = false
		case current != nil && len(line) > 0 && line[0] == '-':
			text := line[1:]
			current.Removals = append(current.Removals, text)
			current.OldLines = append(current.OldLines, text)
			seenChange = true
		case current != nil && len(line) > 0 && line[0] == '+':
			text := line[1:]
			current.Additions = append(current.Additions, text)
			current.NewLines = append(current.NewLines, text)
			seenChange = true
		case current != nil:
			// space-prefixed or blank context line
			text := line
			if len(text) > 0 && text[0] == ' ' {
				text = text[1:]
			}
			current.OldLines = append(current.OldLines, text)
			current.NewLines = append(current.NewLines, text)
			if !seenChange {
				current.ContextBefore = append(current.ContextBefore, text)
			} else {
				current.ContextAfter = append(current.ContextAfter, text)
			}
		}
	}
	flush()
	return hunks, nil
}

// matchHunk finds the 0-based line index in lines where hunk's old-side
// sequence matches, searching exact position first then +-1..+-fuzz.
// Returns -1 if no match within fuzz.
func matchHunk(lines []string, hunk Hunk, fuzz int) int {
	pattern := hunk.OldLines
	if len(pattern) == 0 {
		pattern = append(append(append([]string{}, hunk.ContextBefore...), hunk.Removals...), hunk.ContextAfter...)
	}
	if len(pattern) == 0 {
		pos := hunk.OldStart - 1
		if pos > len(lines) {
			pos = len(lines)
		}
		if pos < 0 {
			pos = 0
		}
		return pos
	}

	exact := hunk.OldStart - 1
	if seqEqual(lines, exact, pattern) {
		return exact
	}
	for offset := 1; offset <= fuzz; offset++ {
		for _, delta := range []int{offset, -offset} {
			pos := exact + delta
			if pos < 0 {
				continue
			}
			if seqEqual(lines, pos, pattern) {
				return pos
			}
		}
	}
	return -1
}

func seqEqual(lines []string, start int, pattern []string) bool {
	if start < 0 || start+len(pattern) > len(lines) {
		return false
	}
	for i, p := range pattern {
		if lines[start+i] != p {
			return false
		}
	}
	return true
}

// ApplyPatch parses diffText and applies its hunks to content in order,
// tracking a cumulative line-count offset between the old and new sides so
// later hunks still match after earlier hunks shift line numbers.
func ApplyPatch(content, diffText, path string, fuzz int) (PatchResult, error) {
	if fuzz <= 0 {
		fuzz = DefaultFuzz
	}
	hunks, err := ParseUnifiedDiff(diffText)
	if err != nil {
		return PatchResult{}, err
	}

	var lines []string
	if content == "" {
		lines = []string{}
	} else {
		lines = strings.Split(content, "\n")
	}

	offset := 0
	insertions, deletions, applied := 0, 0, 0

	for i, hunk := range hunks {
		adjustedStart := hunk.OldStart + offset
		adjustedHunk := hunk
		adjustedHunk.OldStart = adjustedStart

		pos := matchHunk(lines, adjustedHunk, fuzz)
		if pos < 0 {
			expected := strings.Join(expectedPattern(hunk), "\n")
			actualEnd := adjustedStart - 1 + len(hunk.OldLines)
			if actualEnd > len(lines) {
				actualEnd = len(lines)
			}
			actualStart := adjustedStart - 1
			if actualStart < 0 {
				actualStart = 0
			}
			if actualStart > len(lines) {
				actualStart = len(lines)
			}
			actual := ""
			if actualStart <= actualEnd {
				actual = strings.Join(lines[actualStart:actualEnd], "\n")
			}
			return PatchResult{}, &ideerrors.PatchConflict{
				FilePath:  path,
				HunkIndex: i,
				Expected:  expected,
				Actual:    actual,
			}
		}

		oldSeqLen := len(hunk.OldLines)
		newSeq := hunk.NewLines

		newLines := make([]string, 0, len(lines)-oldSeqLen+len(newSeq))
		newLines = append(newLines, lines[:pos]...)
		newLines = append(newLines, newSeq...)
		newLines = append(newLines, lines[pos+oldSeqLen:]...)
		lines = newLines

		offset += len(newSeq) - oldSeqLen
		insertions += len(hunk.Additions)
		deletions += len(hunk.Removals)
		applied++
	}

	post := strings.Join(lines, "\n")
	return PatchResult{
		Success:      true,
		Path:         path,
		HunksApplied: applied,
		PreContent:   content,
		PostContent:  post,
		Insertions:   insertions,
		Deletions:    deletions,
	}, nil
}

func expectedPattern(hunk Hunk) []string {
	if len(hunk.OldLines) > 0 {
		return hunk.OldLines
	}
	return append(append(append([]string{}, hunk.ContextBefore...), hunk.Removals...), hunk.ContextAfter...)
}

// MultiPatchInput is one file's content plus the diff to apply to it.
type MultiPatchInput struct {
	Path    string
	Content string
	Diff    string
}

// ApplyMultiPatch applies each input in order. On the first conflict it
// stops and returns the error immediately — callers needing transactional
// semantics must snapshot the filesystem externally.
func ApplyMultiPatch(inputs []MultiPatchInput, fuzz int) ([]PatchResult, error) {
	results := make([]PatchResult, 0, len(inputs))
	for _, in := range inputs {
		result, err := ApplyPatch(in.Content, in.Diff, in.Path, fuzz)
		if err != nil {
			return results, fmt.Errorf("applying patch to %s: %w", in.Path, err)
		}
		results = append(results, result)
	}
	return results, nil
}
