// Package registry provides the name-to-handler tool map the rest of the
// runtime dispatches into: register a handler once with its JSON input
// schema, then invoke it by name with raw, untyped parameters.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/ideerrors"
)

// Handler is invoked with the decoded raw parameter map and the working
// directory the call should be scoped to. It returns a ToolResponse rather
// than an error so handlers can report partial/structured failures without
// relying on panic/recover for ordinary control flow.
type Handler func(rawParams map[string]any, workingDir string) contracts.ToolResponse

type entry struct {
	handler     Handler
	description string
	schema      gojsonschema.JSONLoader
	schemaRaw   map[string]any
}

// Registry is a name -> handler map with JSON-schema validated dispatch.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a named tool. inputSchema is a JSON Schema object (as a
// decoded map, matching the shape callers already build their config/
// request structs from); a nil schema skips validation for that tool.
// Registering the same name twice replaces the previous entry but keeps
// its original position in ListTools order.
func (r *Registry) Register(name string, handler Handler, description string, inputSchema map[string]any) error {
	if name == "" {
		return fmt.Errorf("registry: tool name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var loader gojsonschema.JSONLoader
	if inputSchema != nil {
		loader = gojsonschema.NewGoLoader(inputSchema)
	}
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = entry{handler: handler, description: description, schema: loader, schemaRaw: inputSchema}
	return nil
}

// ToolInfo describes a registered tool for introspection purposes.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ListTools returns {name, description, input_schema} entries in
// registration order.
func (r *Registry) ListTools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		out = append(out, ToolInfo{
			Name:        name,
			Description: e.description,
			InputSchema: e.schemaRaw,
		})
	}
	return out
}

// Names returns the registered tool names, sorted, for error reporting.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch looks up name, validates rawParams against its declared schema
// (if any), and invokes its handler. A handler panic is recovered and
// turned into a failed ToolResponse rather than crashing the dispatch
// loop — the only place in this runtime that recovers from panics, by
// design: everywhere else errors are returned explicitly.
func (r *Registry) Dispatch(name string, rawParams map[string]any, workingDir string) (resp contracts.ToolResponse) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		err := &ideerrors.ToolNotFound{ToolName: name, AvailableTools: r.Names()}
		return contracts.Fail(err.Error())
	}

	if e.schema != nil {
		result, verr := gojsonschema.Validate(e.schema, gojsonschema.NewGoLoader(rawParams))
		if verr != nil {
			return contracts.FailDetail("parse_error", fmt.Sprintf("schema validation error: %v", verr), nil)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, re := range result.Errors() {
				msgs = append(msgs, re.String())
			}
			return contracts.FailDetail("parse_error", "invalid parameters", map[string]any{
				"tool_name": name,
				"errors":    msgs,
			})
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = contracts.FailDetail("internal_error", fmt.Sprintf("handler panic: %v", rec), map[string]any{
				"tool_name": name,
			})
		}
	}()

	return e.handler(rawParams, workingDir)
}

// DecodeParams re-marshals rawParams into dst, a pointer to a concrete
// request struct, for handlers that want typed access after schema
// validation has already screened out gross shape mismatches.
func DecodeParams(rawParams map[string]any, dst any) error {
	buf, err := json.Marshal(rawParams)
	if err != nil {
		return fmt.Errorf("registry: marshal raw params: %w", err)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("registry: decode params: %w", err)
	}
	return nil
}
