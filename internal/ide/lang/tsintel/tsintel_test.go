package tsintel_test

import (
	"testing"

	"github.com/forgeide/forgeide/internal/ide/lang/tsintel"
)

func TestParseTscOutput(t *testing.T) {
	raw := "src/a.ts(10,5): error TS2304: Cannot find name 'foo'.\nnot a match line\n"
	diags := tsintel.ParseTscOutput(raw)
	if len(diags) != 1 || diags[0].Line != 10 || diags[0].Code != "TS2304" {
		t.Fatalf("diags = %+v", diags)
	}
}

func TestParseEslintJSON(t *testing.T) {
	raw := `[{"filePath":"a.ts","messages":[{"ruleId":"no-unused-vars","severity":2,"message":"bad","line":3,"column":1}]}]`
	diags, err := tsintel.ParseEslintJSON(raw)
	if err != nil {
		t.Fatalf("ParseEslintJSON: %v", err)
	}
	if len(diags) != 1 || diags[0].Severity != "error" {
		t.Fatalf("diags = %+v", diags)
	}
}

func TestParseEslintJSONInvalid(t *testing.T) {
	if _, err := tsintel.ParseEslintJSON("{not valid"); err == nil {
		t.Fatal("expected ParseErr")
	}
}

func TestExtractSymbolsTopLevel(t *testing.T) {
	source := "export function foo() {\n  return 1\n}\n\nexport class Bar {\n  method() {}\n}\n\nexport const X = 1\n"
	symbols := tsintel.ExtractSymbols(source, false)
	kinds := map[string]string{}
	for _, s := range symbols {
		kinds[s.Name] = s.Kind
	}
	if kinds["foo"] != "function" || kinds["Bar"] != "class" || kinds["X"] != "constant" {
		t.Fatalf("symbols = %+v", symbols)
	}
}
