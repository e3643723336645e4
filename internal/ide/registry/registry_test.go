package registry_test

import (
	"strings"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/registry"
)

func echoHandler(rawParams map[string]any, workingDir string) contracts.ToolResponse {
	return contracts.Ok(map[string]any{"echo": rawParams["text"], "cwd": workingDir})
}

func TestDispatchUnknownTool(t *testing.T) {
	r := registry.New()
	resp := r.Dispatch("nope", nil, ".")
	if resp.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(resp.Error.Message, "nope") {
		t.Errorf("error message = %q, want it to mention tool name", resp.Error.Message)
	}
}

func TestDispatchSuccess(t *testing.T) {
	r := registry.New()
	if err := r.Register("echo", echoHandler, "echoes text back", nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp := r.Dispatch("echo", map[string]any{"text": "hi"}, "/work")
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp.Error)
	}
}

func TestDispatchSchemaValidation(t *testing.T) {
	r := registry.New()
	schema := map[string]any{
		"type":     "object",
		"required": []any{"text"},
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	}
	if err := r.Register("echo", echoHandler, "echoes text back", schema); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp := r.Dispatch("echo", map[string]any{}, ".")
	if resp.Success {
		t.Fatal("expected schema validation failure")
	}
	if resp.Error.Kind != "parse_error" {
		t.Errorf("Error.Kind = %q, want parse_error", resp.Error.Kind)
	}

	ok := r.Dispatch("echo", map[string]any{"text": "hi"}, ".")
	if !ok.Success {
		t.Fatalf("expected success with valid params, got %+v", ok.Error)
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	r := registry.New()
	panicky := func(rawParams map[string]any, workingDir string) contracts.ToolResponse {
		panic("boom")
	}
	if err := r.Register("boom", panicky, "always panics", nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp := r.Dispatch("boom", nil, ".")
	if resp.Success {
		t.Fatal("expected failure from recovered panic")
	}
	if !strings.Contains(resp.Error.Message, "boom") {
		t.Errorf("error message = %q, want it to mention panic value", resp.Error.Message)
	}
}

func TestListToolsPreservesRegistrationOrder(t *testing.T) {
	r := registry.New()
	_ = r.Register("b_tool", echoHandler, "", nil)
	_ = r.Register("a_tool", echoHandler, "", nil)
	tools := r.ListTools()
	if len(tools) != 2 || tools[0].Name != "b_tool" || tools[1].Name != "a_tool" {
		t.Errorf("ListTools() = %+v, want registration order preserved", tools)
	}
}
