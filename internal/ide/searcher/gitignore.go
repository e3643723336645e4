package searcher

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// parseGitignore reads workspaceRoot/.gitignore and compiles each
// non-comment, non-negated line into a regex. Negation ("!") is
// unsupported and silently skipped, matching ripgrep's basic-parser
// fallback mode rather than full gitignore semantics.
func parseGitignore(workspaceRoot string) []*regexp.Regexp {
	path := filepath.Join(workspaceRoot, ".gitignore")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var patterns []*regexp.Regexp
	for _, rawLine := range strings.Split(string(raw), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		re, err := regexp.Compile(globToRegex(line))
		if err != nil {
			continue
		}
		patterns = append(patterns, re)
	}
	return patterns
}

// globToRegex converts a gitignore glob line into a regex string.
// Supports "*" (not crossing "/"), "**" (crosses "/"), "?", and a
// trailing "/" directory marker.
func globToRegex(glob string) string {
	isDir := strings.HasSuffix(glob, "/")
	if isDir {
		glob = strings.TrimRight(glob, "/")
	}

	var b strings.Builder
	i := 0
	for i < len(glob) {
		ch := glob[i]
		switch {
		case ch == '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				b.WriteString(".*")
				i += 2
				if i < len(glob) && glob[i] == '/' {
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		case ch == '.':
			b.WriteString(`\.`)
		case strings.ContainsRune(`()[]{}+^$|`, rune(ch)):
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
		i++
	}

	regex := b.String()
	if !strings.Contains(glob, "/") {
		regex = "(?:^|/)" + regex
	}
	if isDir {
		regex += "(?:/|$)"
	} else {
		regex += "$"
	}
	return regex
}

// isGitignored reports whether relPath matches any compiled pattern.
func isGitignored(relPath string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(relPath) {
			return true
		}
	}
	return false
}
