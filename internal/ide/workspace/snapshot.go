package workspace

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/lang/pyintel"
)

var (
	testFilePatternRe = regexp.MustCompile(`(^|/)tests?/|test_[^/]+\.py$|_test\.py$|\.test\.[jt]sx?$|\.spec\.[jt]sx?$|/__tests__/`)
	testFuncPatternRe = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(test_\w+)`)
	sqlTablePatternRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(\w+)`)
	sqlColumnPatternRe = regexp.MustCompile(`(?im)^\s+(\w+)\s+(TEXT|VARCHAR|INTEGER|BIGINT|SERIAL|UUID|BOOLEAN|TIMESTAMP|JSONB|REAL|FLOAT|NUMERIC|INT|SMALLINT|BYTEA)`)
	tsExportRe        = regexp.MustCompile(`export\s+(?:default\s+)?(?:async\s+)?(?:function|class|const|let|var|interface|type|enum)\s+(\w+)`)
	alembicCreateRe   = regexp.MustCompile(`op\.create_table\(\s*['"](\w+)['"]`)

	tsLanguages = map[string]bool{"typescript": true, "typescriptreact": true, "javascript": true, "javascriptreact": true}
)

// BuildStructureTree renders an indented directory listing from entries,
// showing directories up to maxDepth with up to 8 files listed per
// directory (an "... and N more" line beyond that).
func BuildStructureTree(entries []contracts.FileEntry, maxDepth int) string {
	dirFiles := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		parts := strings.Split(strings.ReplaceAll(e.Path, "\\", "/"), "/")
		if len(parts) == 1 {
			dirFiles["."] = append(dirFiles["."], parts[0])
		} else {
			dirKey := strings.Join(parts[:len(parts)-1], "/")
			dirFiles[dirKey] = append(dirFiles[dirKey], parts[len(parts)-1])
		}
	}

	dirs := make([]string, 0, len(dirFiles))
	for d := range dirFiles {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var lines []string
	for _, d := range dirs {
		fnames := dirFiles[d]
		depth := 0
		if d != "." {
			depth = strings.Count(d, "/") + 1
		}
		if depth > maxDepth {
			continue
		}
		indent := strings.Repeat("  ", depth)
		if d != "." {
			base := d
			if idx := strings.LastIndex(d, "/"); idx >= 0 {
				base = d[idx+1:]
			}
			lines = append(lines, indent+base+"/ ("+itoa(len(fnames))+" files)")
		}
		if depth >= maxDepth {
			continue
		}
		fileIndent := indent
		if d != "." {
			fileIndent = strings.Repeat("  ", depth+1)
		}
		sorted := append([]string{}, fnames...)
		sort.Strings(sorted)
		shown := sorted
		if len(shown) > 8 {
			shown = shown[:8]
		}
		for _, fn := range shown {
			lines = append(lines, fileIndent+fn)
		}
		if len(fnames) > 8 {
			lines = append(lines, fileIndent+"... and "+itoa(len(fnames)-8)+" more")
		}
	}
	return strings.Join(lines, "\n")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// CaptureSnapshot performs a single pass over w's file tree, extracting
// Python/TS symbols and imports, counting test functions, lines, detecting
// test frameworks, and parsing SQL migration schema.
func CaptureSnapshot(w *Workspace) (contracts.WorkspaceSnapshot, error) {
	tree, err := w.FileTree(nil)
	if err != nil {
		return contracts.WorkspaceSnapshot{}, err
	}

	symbolTable := make(map[string]string)
	dependencyGraph := make(map[string][]string)
	lineCounts := make(map[string]int)
	languageCounts := make(map[string]int)
	totalLines := 0

	var testFiles []string
	testCount := 0
	frameworks := make(map[string]bool)

	var tables []string
	columns := make(map[string][]string)
	var migrationFiles []string

	treeText := BuildStructureTree(tree, 3)

	var filesOnly []contracts.FileEntry
	for _, e := range tree {
		if !e.IsDir {
			filesOnly = append(filesOnly, e)
		}
	}

	for _, entry := range filesOnly {
		lang := entry.Language
		languageCounts[lang]++

		source := readSource(w, entry.Path)
		lineCount := countLines(source)
		totalLines += lineCount
		lineCounts[lang] += lineCount

		if testFilePatternRe.MatchString(entry.Path) {
			testFiles = append(testFiles, entry.Path)
			testCount += len(testFuncPatternRe.FindAllString(source, -1))
			if strings.Contains(source, "pytest") {
				frameworks["pytest"] = true
			}
			if strings.Contains(source, "vitest") {
				frameworks["vitest"] = true
			}
			if strings.Contains(source, "from jest") || strings.Contains(source, "describe(") {
				frameworks["jest"] = true
			}
		}

		if lang == "python" && source != "" {
			modulePath := strings.TrimSuffix(strings.ReplaceAll(entry.Path, "/", "."), ".py")
			imports := pyintel.ResolveImports(source, "", nil)
			if len(imports) > 0 {
				modules := make([]string, len(imports))
				for i, imp := range imports {
					modules[i] = imp.Module
				}
				dependencyGraph[entry.Path] = modules
			}
			for _, sym := range pyintel.ExtractSymbols(source) {
				if sym.Parent != "" || strings.HasPrefix(sym.Name, "_") {
					continue
				}
				switch sym.Kind {
				case "function":
					symbolTable[modulePath+"."+sym.Name] = "function"
				case "class":
					symbolTable[modulePath+"."+sym.Name] = "class"
				case "constant":
					symbolTable[modulePath+"."+sym.Name] = "constant"
				}
			}
		} else if tsLanguages[lang] && source != "" {
			modulePath := tsModulePath(entry.Path)
			for _, m := range tsExportRe.FindAllStringSubmatch(source, -1) {
				symbolTable[modulePath+"."+m[1]] = tsExportKind(m[0])
			}
		}

		if lang == "sql" && (strings.Contains(strings.ToLower(entry.Path), "migration") || strings.Contains(strings.ToLower(entry.Path), "alembic")) {
			migrationFiles = append(migrationFiles, entry.Path)
			extractSQLSchema(source, &tables, columns)
		}
	}

	for _, entry := range filesOnly {
		lowerPath := strings.ToLower(entry.Path)
		if entry.Language == "python" && strings.Contains(lowerPath, "alembic") && !containsStr(migrationFiles, entry.Path) {
			migrationFiles = append(migrationFiles, entry.Path)
			source := readSource(w, entry.Path)
			for _, m := range alembicCreateRe.FindAllStringSubmatch(source, -1) {
				if !containsStr(tables, m[1]) {
					tables = append(tables, m[1])
				}
			}
		}
	}

	return contracts.WorkspaceSnapshot{
		Tree:            treeText,
		SymbolTable:     symbolTable,
		DependencyGraph: dependencyGraph,
		TestInventory: contracts.TestInventory{
			TestFiles:  sortedCopy(testFiles),
			TestCount:  testCount,
			Frameworks: sortedKeys(frameworks),
		},
		SchemaInventory: contracts.SchemaInventory{
			Tables:         tables,
			Columns:        columns,
			MigrationFiles: sortedCopy(migrationFiles),
		},
		TotalFiles:     len(filesOnly),
		TotalLines:     totalLines,
		LineCounts:     lineCounts,
		LanguageCounts: languageCounts,
		CapturedAt:     time.Now().UTC(),
	}, nil
}

// UpdateSnapshot incrementally updates snapshot by re-scanning only
// changedFiles: stale symbol-table entries and dependency-graph rows for
// those files are dropped and replaced with freshly extracted data, while
// every other file's entries are preserved. Schema inventory is preserved
// unchanged (it rarely changes mid-build). The file tree is always
// rebuilt from the workspace's current state.
func UpdateSnapshot(snapshot contracts.WorkspaceSnapshot, changedFiles []string, w *Workspace) (contracts.WorkspaceSnapshot, error) {
	if len(changedFiles) == 0 {
		return snapshot, nil
	}

	symbolTable := make(map[string]string, len(snapshot.SymbolTable))
	for k, v := range snapshot.SymbolTable {
		symbolTable[k] = v
	}
	depGraph := make(map[string][]string, len(snapshot.DependencyGraph))
	for k, v := range snapshot.DependencyGraph {
		depGraph[k] = v
	}
	languages := make(map[string]int, len(snapshot.LineCounts))
	for k, v := range snapshot.LineCounts {
		languages[k] = v
	}
	totalLines := snapshot.TotalLines
	testFiles := append([]string{}, snapshot.TestInventory.TestFiles...)
	testCount := snapshot.TestInventory.TestCount
	frameworks := make(map[string]bool)
	for _, f := range snapshot.TestInventory.Frameworks {
		frameworks[f] = true
	}

	changedSet := make(map[string]bool, len(changedFiles))
	for _, cf := range changedFiles {
		changedSet[cf] = true
	}

	for cf := range changedSet {
		modulePath := tsModulePath(strings.TrimSuffix(cf, ".py"))
		prefix := modulePath + "."
		for k := range symbolTable {
			if strings.HasPrefix(k, prefix) {
				delete(symbolTable, k)
			}
		}
		delete(depGraph, cf)
		testFiles = removeStr(testFiles, cf)
	}

	for cf := range changedSet {
		abs, err := w.Resolve(cf)
		if err != nil {
			continue
		}
		info, statErr := os.Stat(abs)
		if statErr != nil || info.IsDir() {
			continue
		}
		lang := DetectLanguage(info.Name())

		source := readSource(w, cf)
		if source == "" {
			continue
		}
		lineCount := countLines(source)
		languages[lang] += lineCount

		if testFilePatternRe.MatchString(cf) {
			if !containsStr(testFiles, cf) {
				testFiles = append(testFiles, cf)
			}
			testCount += len(testFuncPatternRe.FindAllString(source, -1))
			if strings.Contains(source, "pytest") {
				frameworks["pytest"] = true
			}
			if strings.Contains(source, "vitest") {
				frameworks["vitest"] = true
			}
		}

		if lang == "python" {
			modulePath := strings.TrimSuffix(strings.ReplaceAll(cf, "/", "."), ".py")
			imports := pyintel.ResolveImports(source, "", nil)
			if len(imports) > 0 {
				modules := make([]string, len(imports))
				for i, imp := range imports {
					modules[i] = imp.Module
				}
				depGraph[cf] = modules
			}
			for _, sym := range pyintel.ExtractSymbols(source) {
				if sym.Parent != "" || strings.HasPrefix(sym.Name, "_") {
					continue
				}
				switch sym.Kind {
				case "function":
					symbolTable[modulePath+"."+sym.Name] = "function"
				case "class":
					symbolTable[modulePath+"."+sym.Name] = "class"
				case "constant":
					symbolTable[modulePath+"."+sym.Name] = "constant"
				}
			}
		}
	}

	tree, err := w.FileTree(nil)
	if err != nil {
		return contracts.WorkspaceSnapshot{}, err
	}
	treeText := BuildStructureTree(tree, 3)
	filesOnly := 0
	for _, e := range tree {
		if !e.IsDir {
			filesOnly++
		}
	}

	return contracts.WorkspaceSnapshot{
		Tree:            treeText,
		SymbolTable:     symbolTable,
		DependencyGraph: depGraph,
		TestInventory: contracts.TestInventory{
			TestFiles:  sortedCopy(testFiles),
			TestCount:  testCount,
			Frameworks: sortedKeys(frameworks),
		},
		SchemaInventory: snapshot.SchemaInventory,
		TotalFiles:      filesOnly,
		TotalLines:      totalLines,
		LineCounts:      languages,
		LanguageCounts:  snapshot.LanguageCounts,
		CapturedAt:      time.Now().UTC(),
	}, nil
}

// SnapshotToWorkspaceInfo renders a compact workspace brief: indented
// tree, aggregate stats line, symbol counts, test inventory, and database
// table summary.
func SnapshotToWorkspaceInfo(snapshot contracts.WorkspaceSnapshot) string {
	var sections []string

	if snapshot.Tree != "" {
		sections = append(sections, snapshot.Tree)
	}

	type langCount struct {
		lang  string
		count int
	}
	var langs []langCount
	for l, c := range snapshot.LineCounts {
		langs = append(langs, langCount{l, c})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].count > langs[j].count })
	if len(langs) > 8 {
		langs = langs[:8]
	}
	var langParts []string
	for _, lc := range langs {
		langParts = append(langParts, lc.lang+": "+itoa(lc.count))
	}
	langStr := ""
	if len(langParts) > 0 {
		langStr = " (" + strings.Join(langParts, ", ") + ")"
	}
	sections = append(sections, "\nTotal: "+itoa(snapshot.TotalFiles)+" files, "+itoa(snapshot.TotalLines)+" lines"+langStr)

	if len(snapshot.SymbolTable) > 0 {
		classes, functions := 0, 0
		for _, kind := range snapshot.SymbolTable {
			switch kind {
			case "class":
				classes++
			case "function":
				functions++
			}
		}
		others := len(snapshot.SymbolTable) - classes - functions
		line := "Symbols: " + itoa(classes) + " classes, " + itoa(functions) + " functions"
		if others > 0 {
			line += ", " + itoa(others) + " other"
		}
		sections = append(sections, line)
	}

	ti := snapshot.TestInventory
	if len(ti.TestFiles) > 0 {
		fw := ""
		if len(ti.Frameworks) > 0 {
			fw = " (" + strings.Join(ti.Frameworks, ", ") + ")"
		}
		sections = append(sections, "Tests: "+itoa(ti.TestCount)+" test functions in "+itoa(len(ti.TestFiles))+" files"+fw)
	}

	si := snapshot.SchemaInventory
	if len(si.Tables) > 0 {
		shown := si.Tables
		suffix := ""
		if len(shown) > 10 {
			shown = shown[:10]
			suffix = "..."
		}
		sections = append(sections, "Database: "+itoa(len(si.Tables))+" tables ("+strings.Join(shown, ", ")+suffix+"), "+itoa(len(si.MigrationFiles))+" migrations")
	}

	return strings.Join(sections, "\n")
}

func tsModulePath(relPath string) string {
	p := relPath
	for _, suffix := range []string{".tsx", ".ts", ".jsx", ".js"} {
		p = strings.TrimSuffix(p, suffix)
	}
	return strings.ReplaceAll(p, "/", ".")
}

func tsExportKind(matchedText string) string {
	switch {
	case strings.Contains(matchedText, "class "):
		return "class"
	case strings.Contains(matchedText, "function "):
		return "function"
	case strings.Contains(matchedText, "interface ") || strings.Contains(matchedText, "type "):
		return "type"
	case strings.Contains(matchedText, "enum "):
		return "enum"
	default:
		return "variable"
	}
}

func extractSQLSchema(source string, tables *[]string, columns map[string][]string) {
	for _, m := range sqlTablePatternRe.FindAllStringSubmatchIndex(source, -1) {
		name := source[m[2]:m[3]]
		if !containsStr(*tables, name) {
			*tables = append(*tables, name)
		}
		blockEnd := findMatchingParen(source, m[1])
		block := source[m[1]:blockEnd]
		var cols []string
		for _, cm := range sqlColumnPatternRe.FindAllStringSubmatch(block, -1) {
			cols = append(cols, cm[1])
		}
		if len(cols) > 0 {
			columns[name] = cols
		}
	}
}

func findMatchingParen(source string, start int) int {
	depth := 0
	for i := start; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return len(source)
}

func countLines(source string) int {
	if source == "" {
		return 0
	}
	n := strings.Count(source, "\n")
	if !strings.HasSuffix(source, "\n") {
		n++
	}
	return n
}

func readSource(w *Workspace, relPath string) string {
	abs, err := w.Resolve(relPath)
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func sortedCopy(items []string) []string {
	out := append([]string{}, items...)
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func containsStr(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func removeStr(items []string, s string) []string {
	out := items[:0:0]
	for _, it := range items {
		if it != s {
			out = append(out, it)
		}
	}
	return out
}
