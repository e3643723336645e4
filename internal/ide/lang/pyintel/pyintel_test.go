package pyintel_test

import (
	"testing"

	"github.com/forgeide/forgeide/internal/ide/lang/pyintel"
)

func TestParseRuffJSON(t *testing.T) {
	raw := `[{"code":"F401","message":"unused import","filename":"a.py","location":{"row":1,"column":1}}]`
	diags, err := pyintel.ParseRuffJSON(raw)
	if err != nil {
		t.Fatalf("ParseRuffJSON: %v", err)
	}
	if len(diags) != 1 || diags[0].Severity != "error" {
		t.Fatalf("diags = %+v", diags)
	}
}

func TestParseRuffJSONEmpty(t *testing.T) {
	diags, err := pyintel.ParseRuffJSON("   ")
	if err != nil || diags != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", diags, err)
	}
}

func TestParseRuffJSONInvalid(t *testing.T) {
	if _, err := pyintel.ParseRuffJSON("not json"); err == nil {
		t.Fatal("expected ParseErr")
	}
}

func TestParsePyrightJSON(t *testing.T) {
	raw := `{"generalDiagnostics":[{"file":"a.py","severity":"error","message":"bad","range":{"start":{"line":4,"character":2}},"rule":"reportMissingImports"}]}`
	diags, err := pyintel.ParsePyrightJSON(raw)
	if err != nil {
		t.Fatalf("ParsePyrightJSON: %v", err)
	}
	if len(diags) != 1 || diags[0].Line != 5 {
		t.Fatalf("diags = %+v", diags)
	}
}

func TestExtractSymbolsTopLevel(t *testing.T) {
	source := "def foo():\n    pass\n\nclass Bar:\n    def baz(self):\n        pass\n"
	symbols := pyintel.ExtractSymbols(source)
	names := map[string]string{}
	for _, s := range symbols {
		names[s.Name] = s.Kind
	}
	if names["foo"] != "function" || names["Bar"] != "class" || names["baz"] != "method" {
		t.Fatalf("symbols = %+v", symbols)
	}
}

func TestResolveImportsRelative(t *testing.T) {
	source := "from . import helpers\nfrom ..pkg import util\nimport os\n"
	imports := pyintel.ResolveImports(source, "app/sub/mod.py", []string{"app/sub/helpers.py", "app/pkg/util.py"})
	if len(imports) != 3 {
		t.Fatalf("imports = %+v", imports)
	}
	byModule := map[string]string{}
	for _, imp := range imports {
		byModule[imp.Module] = imp.ResolvedPath
	}
	if byModule["os"] != "" {
		t.Errorf("os should not resolve to a workspace path")
	}
}
