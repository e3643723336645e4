// Package tsintel provides TypeScript/JavaScript tool-output parsing and
// symbol extraction. Parsers are pure string/JSON in, structured data out.
package tsintel

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/ideerrors"
)

var tscLineRe = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\):\s+(error|warning|info)\s+(TS\d+):\s+(.+)$`)

// ParseTscOutput parses `tsc --noEmit --pretty false` output into diagnostics.
func ParseTscOutput(raw string) []contracts.Diagnostic {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []contracts.Diagnostic
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		m := tscLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		out = append(out, contracts.Diagnostic{
			File:     strings.TrimSpace(m[1]),
			Line:     lineNo,
			Column:   col,
			Message:  strings.TrimSpace(m[6]),
			Severity: mapTscSeverity(m[4]),
			Code:     m[5],
		})
	}
	return out
}

func mapTscSeverity(raw string) string {
	switch raw {
	case "error", "warning", "info":
		return raw
	default:
		return "error"
	}
}

// ParseEslintJSON parses `eslint --format json` output into diagnostics.
func ParseEslintJSON(raw string) ([]contracts.Diagnostic, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var data []map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, ideerrors.NewParseErr("eslint_json", raw)
	}

	var out []contracts.Diagnostic
	for _, fileEntry := range data {
		filePath, _ := fileEntry["filePath"].(string)
		messages, _ := fileEntry["messages"].([]any)
		for _, rawMsg := range messages {
			msg, ok := rawMsg.(map[string]any)
			if !ok {
				continue
			}
			sevNum := 1.0
			if v, ok := msg["severity"].(float64); ok {
				sevNum = v
			}
			severity := "warning"
			if sevNum >= 2 {
				severity = "error"
			}
			code, _ := msg["ruleId"].(string)
			out = append(out, contracts.Diagnostic{
				File:     filePath,
				Line:     intOr(msg["line"], 1),
				Column:   intOr(msg["column"], 0),
				Message:  stringOr(msg["message"]),
				Severity: severity,
				Code:     code,
			})
		}
	}
	return out, nil
}

func intOr(v any, def int) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}

var tsExportRe = regexp.MustCompile(`(?m)^(?:export\s+)?(?:default\s+)?(?:declare\s+)?(function\*?|class|interface|type|enum|const|let|var|abstract\s+class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

var tsKindMap = map[string]string{
	"function":       "function",
	"function*":      "function",
	"class":          "class",
	"abstract class": "class",
	"interface":      "interface",
	"type":           "type_alias",
	"enum":           "enum",
	"const":          "constant",
	"let":            "variable",
	"var":            "variable",
}

// ExtractSymbols extracts top-level TS/JS symbols. Uses the tree-sitter
// grammar when it parses cleanly; falls back to a regex scan (does not
// extract nested class members) otherwise.
func ExtractSymbols(source string, isTypescript bool) []contracts.Symbol {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	if symbols, ok := extractSymbolsTreeSitter(source, isTypescript); ok {
		return symbols
	}
	return extractSymbolsRegex(source)
}

func extractSymbolsTreeSitter(source string, isTypescript bool) ([]contracts.Symbol, bool) {
	parser := sitter.NewParser()
	defer parser.Close()
	if isTypescript {
		parser.SetLanguage(typescript.GetLanguage())
	} else {
		parser.SetLanguage(javascript.GetLanguage())
	}

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, false
	}

	content := []byte(source)
	var symbols []contracts.Symbol
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		node, kind := unwrapExport(child)
		if node == nil {
			continue
		}
		switch kind {
		case "function_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				symbols = append(symbols, sym(name.Content(content), "function", node))
			}
		case "class_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				symbols = append(symbols, sym(name.Content(content), "class", node))
			}
		case "interface_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				symbols = append(symbols, sym(name.Content(content), "interface", node))
			}
		case "enum_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				symbols = append(symbols, sym(name.Content(content), "enum", node))
			}
		case "type_alias_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				symbols = append(symbols, sym(name.Content(content), "type_alias", node))
			}
		case "lexical_declaration", "variable_declaration":
			kindWord := "variable"
			if node.Type() == "lexical_declaration" && strings.HasPrefix(node.Content(content), "const") {
				kindWord = "constant"
			}
			for j := 0; j < int(node.ChildCount()); j++ {
				decl := node.Child(j)
				if decl.Type() != "variable_declarator" {
					continue
				}
				if name := decl.ChildByFieldName("name"); name != nil {
					symbols = append(symbols, sym(name.Content(content), kindWord, node))
				}
			}
		}
	}
	return symbols, true
}

func sym(name, kind string, node *sitter.Node) contracts.Symbol {
	return contracts.Symbol{
		Name:      name,
		Kind:      kind,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}

func unwrapExport(n *sitter.Node) (*sitter.Node, string) {
	if n.Type() == "export_statement" {
		decl := n.ChildByFieldName("declaration")
		if decl == nil {
			return nil, ""
		}
		return decl, decl.Type()
	}
	return n, n.Type()
}

func extractSymbolsRegex(source string) []contracts.Symbol {
	var symbols []contracts.Symbol
	lines := strings.Split(source, "\n")

	for _, match := range tsExportRe.FindAllStringSubmatchIndex(source, -1) {
		kindRaw := strings.TrimSpace(source[match[2]:match[3]])
		name := source[match[4]:match[5]]
		kind, ok := tsKindMap[kindRaw]
		if !ok {
			kind = "variable"
		}

		startLine := strings.Count(source[:match[0]], "\n") + 1

		endLine := startLine
		switch kind {
		case "class", "interface", "enum", "function":
			endLine = findBlockEnd(lines, startLine-1)
		}

		symbols = append(symbols, contracts.Symbol{
			Name:      name,
			Kind:      kind,
			StartLine: startLine,
			EndLine:   endLine,
		})
	}
	return symbols
}

func findBlockEnd(lines []string, startIdx int) int {
	depth := 0
	foundOpen := false
	for i := startIdx; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				foundOpen = true
			case '}':
				depth--
				if foundOpen && depth == 0 {
					return i + 1
				}
			}
		}
	}
	return startIdx + 1
}
