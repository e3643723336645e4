// Package reader provides sandbox-safe, structured file reading: whole
// files, line ranges, and named symbols.
package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/lang/pyintel"
	"github.com/forgeide/forgeide/internal/ide/lang/tsintel"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

// DefaultMaxFileBytes bounds read_file/read_range input size.
const DefaultMaxFileBytes = 100_000

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".bmp": true, ".webp": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".otf": true, ".zip": true, ".tar": true, ".gz": true,
	".bz2": true, ".xz": true, ".7z": true, ".rar": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".pyc": true, ".pyo": true,
	".class": true, ".o": true, ".a": true, ".lib": true, ".bin": true,
	".dat": true, ".pdf": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".ppt": true, ".pptx": true, ".sqlite": true, ".db": true,
}

// DetectEncoding inspects raw bytes for a UTF-8 BOM, otherwise attempts a
// strict UTF-8 decode, falling back to latin-1 (ISO-8859-1, a direct
// byte-to-rune mapping) when the bytes are not valid UTF-8.
func DetectEncoding(raw []byte) string {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return "utf-8-sig"
	}
	if isValidUTF8(raw) {
		return "utf-8"
	}
	return "latin-1"
}

func isValidUTF8(raw []byte) bool {
	i := 0
	for i < len(raw) {
		b := raw[i]
		switch {
		case b < 0x80:
			i++
		case b&0xE0 == 0xC0:
			if i+1 >= len(raw) || raw[i+1]&0xC0 != 0x80 {
				return false
			}
			i += 2
		case b&0xF0 == 0xE0:
			if i+2 >= len(raw) || raw[i+1]&0xC0 != 0x80 || raw[i+2]&0xC0 != 0x80 {
				return false
			}
			i += 3
		case b&0xF8 == 0xF0:
			if i+3 >= len(raw) || raw[i+1]&0xC0 != 0x80 || raw[i+2]&0xC0 != 0x80 || raw[i+3]&0xC0 != 0x80 {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

// decode converts raw bytes to a string per the detected encoding,
// replacing invalid sequences the way Python's errors="replace" does.
func decode(raw []byte, encoding string) string {
	switch encoding {
	case "utf-8-sig":
		trimmed := raw
		if len(trimmed) >= 3 && trimmed[0] == 0xEF && trimmed[1] == 0xBB && trimmed[2] == 0xBF {
			trimmed = trimmed[3:]
		}
		return strings.ToValidUTF8(string(trimmed), "�")
	case "utf-8":
		return strings.ToValidUTF8(string(raw), "�")
	default: // latin-1: every byte maps directly to the identically-numbered rune
		runes := make([]rune, len(raw))
		for i, b := range raw {
			runes[i] = rune(b)
		}
		return string(runes)
	}
}

// IsBinary reports whether path looks binary by extension or by a null
// byte appearing in its first 512 bytes.
func IsBinary(path string) bool {
	if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

func resolveAndCheck(ws *workspace.Workspace, relPath string) (string, contracts.ToolResponse, bool) {
	target, err := ws.Resolve(relPath)
	if err != nil {
		return "", contracts.Fail(err.Error()), false
	}
	info, statErr := os.Stat(target)
	if statErr != nil {
		return "", contracts.Fail(fmt.Sprintf("File not found: '%s'", relPath)), false
	}
	if info.IsDir() {
		return "", contracts.Fail(fmt.Sprintf("Not a file: '%s'", relPath)), false
	}
	if IsBinary(target) {
		return "", contracts.Fail(fmt.Sprintf("Binary file cannot be read as text: '%s'", relPath)), false
	}
	return target, contracts.ToolResponse{}, true
}

// ReadFile reads an entire file and returns structured metadata.
func ReadFile(ws *workspace.Workspace, relPath string, maxBytes int) contracts.ToolResponse {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	target, failResp, ok := resolveAndCheck(ws, relPath)
	if !ok {
		return failResp
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		return contracts.Fail(fmt.Sprintf("Error reading '%s': %v", relPath, err))
	}
	if len(raw) > maxBytes {
		return contracts.Fail(fmt.Sprintf("File exceeds size limit: %d bytes > %d bytes", len(raw), maxBytes))
	}

	encoding := DetectEncoding(raw)
	content := decode(raw, encoding)
	lineCount := 0
	if content != "" {
		lineCount = strings.Count(content, "\n")
		if !strings.HasSuffix(content, "\n") {
			lineCount++
		}
	}

	return contracts.Ok(map[string]any{
		"path":       relPath,
		"content":    content,
		"line_count": lineCount,
		"size_bytes": len(raw),
		"language":   workspace.DetectLanguage(filepath.Base(target)),
		"encoding":   encoding,
	})
}

// ReadRange reads a 1-based inclusive line range, clamping endLine to the
// actual line count with no error.
func ReadRange(ws *workspace.Workspace, relPath string, startLine, endLine, maxBytes int) contracts.ToolResponse {
	if startLine < 1 {
		return contracts.Fail("start_line must be >= 1")
	}
	if endLine < startLine {
		return contracts.Fail("end_line must be >= start_line")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	target, failResp, ok := resolveAndCheck(ws, relPath)
	if !ok {
		return failResp
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		return contracts.Fail(fmt.Sprintf("Error reading '%s': %v", relPath, err))
	}
	if len(raw) > maxBytes {
		return contracts.Fail(fmt.Sprintf("File exceeds size limit: %d bytes > %d bytes", len(raw), maxBytes))
	}

	content := decode(raw, DetectEncoding(raw))
	allLines := splitLines(content)

	if len(allLines) == 0 {
		return contracts.Ok(map[string]any{
			"path":       relPath,
			"start_line": startLine,
			"end_line":   startLine,
			"content":    "",
			"lines":      []string{},
		})
	}

	actualEnd := endLine
	if actualEnd > len(allLines) {
		actualEnd = len(allLines)
	}
	start := startLine - 1
	if start > len(allLines) {
		start = len(allLines)
	}
	selected := allLines[start:actualEnd]

	return contracts.Ok(map[string]any{
		"path":       relPath,
		"start_line": startLine,
		"end_line":   actualEnd,
		"content":    strings.Join(selected, "\n"),
		"lines":      selected,
	})
}

// splitLines mirrors Python's str.splitlines(): no trailing empty element
// for a final newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(content, "\n")
	return strings.Split(trimmed, "\n")
}

var pythonLanguages = map[string]bool{"python": true}
var tsJsLanguages = map[string]bool{
	"typescript": true, "typescriptreact": true,
	"javascript": true, "javascriptreact": true,
}

// ReadSymbol extracts a named function/class/variable from a file,
// dispatching on detected language.
func ReadSymbol(ws *workspace.Workspace, relPath, symbolName string) contracts.ToolResponse {
	target, failResp, ok := resolveAndCheck(ws, relPath)
	if !ok {
		return failResp
	}

	language := workspace.DetectLanguage(filepath.Base(target))

	raw, err := os.ReadFile(target)
	if err != nil {
		return contracts.Fail(fmt.Sprintf("Error reading '%s': %v", relPath, err))
	}
	content := strings.ToValidUTF8(string(raw), "�")
	if strings.TrimSpace(content) == "" {
		return contracts.Fail(fmt.Sprintf("File is empty: '%s'", relPath))
	}

	switch {
	case pythonLanguages[language]:
		return readSymbolFrom(relPath, content, symbolName, pyintel.ExtractSymbols(content))
	case tsJsLanguages[language]:
		isTS := language == "typescript" || language == "typescriptreact"
		return readSymbolFrom(relPath, content, symbolName, tsintel.ExtractSymbols(content, isTS))
	default:
		return contracts.Fail(fmt.Sprintf("Unsupported language for symbol extraction: '%s'", language))
	}
}

func readSymbolFrom(relPath, content, symbolName string, symbols []contracts.Symbol) contracts.ToolResponse {
	lines := strings.Split(content, "\n")
	for _, s := range symbols {
		if s.Name != symbolName {
			continue
		}
		start, end := s.StartLine, s.EndLine
		if end > len(lines) {
			end = len(lines)
		}
		if start < 1 {
			start = 1
		}
		snippet := strings.Join(lines[start-1:end], "\n")
		kind := s.Kind
		if kind == "method" {
			kind = "function"
		}
		return contracts.Ok(map[string]any{
			"path":       relPath,
			"symbol":     symbolName,
			"kind":       kind,
			"start_line": start,
			"end_line":   end,
			"content":    snippet,
		})
	}
	return contracts.Fail(fmt.Sprintf("Symbol '%s' not found in '%s'", symbolName, relPath))
}
