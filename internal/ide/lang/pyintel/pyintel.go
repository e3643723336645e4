// Package pyintel provides Python-specific tool-output parsing, symbol
// extraction, and import resolution. Parsers are pure string/JSON in,
// structured data out — no subprocess execution and no filesystem access
// happen in this package.
package pyintel

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/ideerrors"
)

// StdlibModules holds the top-level Python 3.12 standard library module
// names used to classify imports as stdlib vs. third-party.
var StdlibModules = buildStdlibSet()

func buildStdlibSet() map[string]bool {
	names := []string{
		"__future__", "_thread", "abc", "argparse", "array", "ast", "asyncio",
		"atexit", "base64", "bisect", "builtins", "bz2", "calendar", "cmath",
		"cmd", "code", "codecs", "codeop", "collections", "colorsys",
		"compileall", "concurrent", "configparser", "contextlib", "contextvars",
		"copy", "copyreg", "cProfile", "csv", "ctypes", "curses", "dataclasses",
		"datetime", "dbm", "decimal", "difflib", "dis", "doctest", "email",
		"encodings", "enum", "errno", "faulthandler", "fcntl", "filecmp",
		"fileinput", "fnmatch", "fractions", "ftplib", "functools", "gc",
		"getopt", "getpass", "gettext", "glob", "graphlib", "grp", "gzip",
		"hashlib", "heapq", "hmac", "html", "http", "imaplib", "importlib",
		"inspect", "io", "ipaddress", "itertools", "json", "keyword",
		"linecache", "locale", "logging", "lzma", "mailbox", "mailcap",
		"marshal", "math", "mimetypes", "mmap", "multiprocessing", "netrc",
		"nntplib", "numbers", "operator", "optparse", "os", "pathlib", "pdb",
		"pickle", "pickletools", "pipes", "pkgutil", "platform", "plistlib",
		"poplib", "posix", "posixpath", "pprint", "profile", "pstats", "pty",
		"pwd", "py_compile", "pyclbr", "pydoc", "queue", "quopri", "random",
		"re", "readline", "reprlib", "resource", "rlcompleter", "runpy",
		"sched", "secrets", "select", "selectors", "shelve", "shlex", "shutil",
		"signal", "site", "smtplib", "sndhdr", "socket", "socketserver",
		"spwd", "sqlite3", "ssl", "stat", "statistics", "string", "stringprep",
		"struct", "subprocess", "symtable", "sys", "sysconfig", "syslog",
		"tabnanny", "tarfile", "telnetlib", "tempfile", "termios", "textwrap",
		"threading", "time", "timeit", "tkinter", "token", "tokenize",
		"tomllib", "trace", "traceback", "tracemalloc", "tty", "turtle",
		"types", "typing", "unicodedata", "unittest", "urllib", "uu", "uuid",
		"venv", "warnings", "wave", "weakref", "webbrowser", "winreg",
		"winsound", "wsgiref", "xdrlib", "xml", "xmlrpc", "zipapp", "zipfile",
		"zipimport", "zlib",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// ParseRuffJSON parses `ruff --output-format json` stdout into diagnostics.
func ParseRuffJSON(raw string) ([]contracts.Diagnostic, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, ideerrors.NewParseErr("ruff_json", raw)
	}

	out := make([]contracts.Diagnostic, 0, len(entries))
	for _, entry := range entries {
		loc, _ := entry["location"].(map[string]any)
		code := stringOrEmpty(entry["code"])
		if code == "" {
			code = stringOrEmpty(entry["rule"])
		}
		out = append(out, contracts.Diagnostic{
			File:     stringOrEmpty(entry["filename"]),
			Line:     intOrDefault(loc["row"], 1),
			Column:   intOrDefault(loc["column"], 0),
			Message:  stringOrEmpty(entry["message"]),
			Severity: ruffSeverity(code),
			Code:     code,
		})
	}
	return out, nil
}

func ruffSeverity(code string) string {
	if code == "" {
		return "warning"
	}
	switch strings.ToUpper(code[:1]) {
	case "F":
		return "error"
	case "I":
		return "info"
	default:
		return "warning"
	}
}

// ParsePyrightJSON parses `pyright --outputjson` stdout into diagnostics.
func ParsePyrightJSON(raw string) ([]contracts.Diagnostic, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, ideerrors.NewParseErr("pyright_json", raw)
	}

	entries, _ := data["generalDiagnostics"].([]any)
	out := make([]contracts.Diagnostic, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		rng, _ := entry["range"].(map[string]any)
		start, _ := rng["start"].(map[string]any)
		out = append(out, contracts.Diagnostic{
			File:     stringOrEmpty(entry["file"]),
			Line:     intOrDefault(start["line"], 0) + 1,
			Column:   intOrDefault(start["character"], 0),
			Message:  stringOrEmpty(entry["message"]),
			Severity: pyrightSeverity(stringOrEmpty(entry["severity"])),
			Code:     stringOrEmpty(entry["rule"]),
		})
	}
	return out, nil
}

func pyrightSeverity(raw string) string {
	switch strings.ToLower(raw) {
	case "error":
		return "error"
	case "warning":
		return "warning"
	case "information":
		return "info"
	case "hint":
		return "hint"
	default:
		return "warning"
	}
}

// ExtractSymbols extracts a Python symbol outline: module-level functions,
// classes, class methods (with Parent set), and module-level constants
// (UPPER_CASE) / variables. Uses the tree-sitter grammar when it parses
// cleanly; falls back to an indentation-based regex scan otherwise.
func ExtractSymbols(source string) []contracts.Symbol {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	if symbols, ok := extractSymbolsTreeSitter(source); ok {
		return symbols
	}
	return extractSymbolsRegex(source)
}

func extractSymbolsTreeSitter(source string) ([]contracts.Symbol, bool) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, false
	}

	var symbols []contracts.Symbol
	content := []byte(source)

	var walkTop func(n *sitter.Node)
	walkTop = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "function_definition":
				if name := child.ChildByFieldName("name"); name != nil {
					symbols = append(symbols, contracts.Symbol{
						Name:      name.Content(content),
						Kind:      "function",
						StartLine: int(child.StartPoint().Row) + 1,
						EndLine:   int(child.EndPoint().Row) + 1,
					})
				}
			case "class_definition":
				className := ""
				if name := child.ChildByFieldName("name"); name != nil {
					className = name.Content(content)
				}
				symbols = append(symbols, contracts.Symbol{
					Name:      className,
					Kind:      "class",
					StartLine: int(child.StartPoint().Row) + 1,
					EndLine:   int(child.EndPoint().Row) + 1,
				})
				if body := child.ChildByFieldName("body"); body != nil {
					for j := 0; j < int(body.ChildCount()); j++ {
						member := body.Child(j)
						if member.Type() != "function_definition" {
							continue
						}
						memberName := member.ChildByFieldName("name")
						if memberName == nil {
							continue
						}
						symbols = append(symbols, contracts.Symbol{
							Name:      memberName.Content(content),
							Kind:      "method",
							StartLine: int(member.StartPoint().Row) + 1,
							EndLine:   int(member.EndPoint().Row) + 1,
							Parent:    className,
						})
					}
				}
			case "expression_statement":
				if assign := child.Child(0); assign != nil && assign.Type() == "assignment" {
					left := assign.ChildByFieldName("left")
					if left != nil && left.Type() == "identifier" {
						name := left.Content(content)
						if !strings.HasPrefix(name, "_") {
							symbols = append(symbols, contracts.Symbol{
								Name:      name,
								Kind:      variableKind(name),
								StartLine: int(child.StartPoint().Row) + 1,
								EndLine:   int(child.EndPoint().Row) + 1,
							})
						}
					}
				}
			}
		}
	}
	walkTop(root)
	return symbols, true
}

func variableKind(name string) string {
	if strings.ToUpper(name) == name {
		return "constant"
	}
	return "variable"
}

func stringOrEmpty(v any) string {
	s, _ := v.(string)
	return s
}

func intOrDefault(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

// ResolveImports parses and classifies imports from Python source, matching
// module paths against workspaceFiles to populate ResolvedPath.
func ResolveImports(source, filePath string, workspaceFiles []string) []contracts.ImportInfo {
	if strings.TrimSpace(source) == "" {
		return nil
	}

	lookup := buildModuleLookup(workspaceFiles)
	fileDir := strings.ReplaceAll(path.Dir(filePath), "\\", "/")
	if fileDir == "." {
		fileDir = ""
	}

	var out []contracts.ImportInfo
	lines := strings.Split(source, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import "):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "import "))
			for _, part := range strings.Split(rest, ",") {
				module := strings.TrimSpace(strings.Fields(strings.TrimSpace(part))[0])
				if module == "" {
					continue
				}
				out = append(out, buildImport(module, nil, lookup))
			}
		case strings.HasPrefix(trimmed, "from "):
			out = append(out, parseFromImport(trimmed, fileDir, lookup)...)
		}
	}
	return out
}

func buildImport(module string, names []string, lookup map[string]string) contracts.ImportInfo {
	top := strings.SplitN(module, ".", 2)[0]
	isStd := StdlibModules[top] || StdlibModules[module]
	return contracts.ImportInfo{
		Module:       module,
		Names:        names,
		ResolvedPath: lookup[module],
		IsStdlib:     isStd,
	}
}

func parseFromImport(stmt, fileDir string, lookup map[string]string) []contracts.ImportInfo {
	rest := strings.TrimSpace(strings.TrimPrefix(stmt, "from "))
	idx := strings.Index(rest, " import ")
	if idx < 0 {
		return nil
	}
	modulePart := strings.TrimSpace(rest[:idx])
	namesPart := strings.TrimSpace(rest[idx+len(" import "):])
	names := splitImportNames(namesPart)

	level := 0
	for level < len(modulePart) && modulePart[level] == '.' {
		level++
	}
	module := modulePart[level:]

	if level == 0 {
		top := strings.SplitN(module, ".", 2)[0]
		isStd := StdlibModules[top] || StdlibModules[module]
		return []contracts.ImportInfo{{
			Module:       module,
			Names:        names,
			ResolvedPath: lookup[module],
			IsStdlib:     isStd,
		}}
	}

	parts := []string{}
	if fileDir != "" {
		parts = strings.Split(fileDir, "/")
	}
	baseParts := parts
	if level-1 > 0 && level-1 <= len(parts) {
		baseParts = parts[:len(parts)-(level-1)]
	} else if level-1 > len(parts) {
		baseParts = nil
	}

	var resolved string
	if module == "" {
		for _, name := range names {
			candidate := joinModule(baseParts, name)
			if p, ok := lookup[candidate]; ok {
				resolved = p
				break
			}
		}
	}
	if resolved == "" {
		absModule := module
		if module != "" {
			absModule = joinModule(baseParts, module)
		} else {
			absModule = strings.Join(baseParts, ".")
		}
		resolved = lookup[absModule]
	}

	return []contracts.ImportInfo{{
		Module:       strings.Repeat(".", level) + module,
		Names:        names,
		ResolvedPath: resolved,
		IsStdlib:     false,
	}}
}

func joinModule(baseParts []string, last string) string {
	if len(baseParts) == 0 {
		return last
	}
	return strings.Join(baseParts, ".") + "." + last
}

func splitImportNames(namesPart string) []string {
	namesPart = strings.Trim(namesPart, "()")
	var out []string
	for _, n := range strings.Split(namesPart, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		fields := strings.Fields(n)
		out = append(out, fields[0])
	}
	return out
}

func buildModuleLookup(workspaceFiles []string) map[string]string {
	lookup := make(map[string]string)
	for _, wsPath := range workspaceFiles {
		if !strings.HasSuffix(wsPath, ".py") {
			continue
		}
		modPath := strings.ReplaceAll(strings.TrimSuffix(wsPath, ".py"), "/", ".")
		lookup[modPath] = wsPath
		if strings.HasSuffix(modPath, ".__init__") {
			lookup[strings.TrimSuffix(modPath, ".__init__")] = wsPath
		}
	}
	return lookup
}

// extractSymbolsRegex is the fallback path used when tree-sitter cannot
// parse the source (syntax error mid-edit, unsupported dialect).
func extractSymbolsRegex(source string) []contracts.Symbol {
	lines := strings.Split(source, "\n")
	var symbols []contracts.Symbol

	type open struct {
		indent int
		idx    int // index into symbols
	}
	var stack []open

	closeUpTo := func(indent int, lastLine int) {
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			top := stack[len(stack)-1]
			symbols[top.idx].EndLine = lastLine
			stack = stack[:len(stack)-1]
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		closeUpTo(indent, i)

		var kind, name string
		switch {
		case strings.HasPrefix(trimmed, "def "):
			kind, name = "function", firstIdent(trimmed[len("def "):])
		case strings.HasPrefix(trimmed, "async def "):
			kind, name = "function", firstIdent(trimmed[len("async def "):])
		case strings.HasPrefix(trimmed, "class "):
			kind, name = "class", firstIdent(trimmed[len("class "):])
		}
		if name == "" {
			continue
		}

		if len(stack) > 0 && kind == "function" {
			kind = "method"
		}
		parent := ""
		if len(stack) > 0 {
			parent = symbols[stack[len(stack)-1].idx].Name
		}
		sym := contracts.Symbol{Name: name, Kind: kind, StartLine: i + 1, EndLine: i + 1, Parent: parent}
		symbols = append(symbols, sym)
		stack = append(stack, open{indent: indent, idx: len(symbols) - 1})
	}
	closeUpTo(-1, len(lines))

	sort.SliceStable(symbols, func(a, b int) bool { return symbols[a].StartLine < symbols[b].StartLine })
	return symbols
}

func firstIdent(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			end++
			continue
		}
		break
	}
	return s[:end]
}
