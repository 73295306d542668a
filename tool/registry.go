package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/voxline/realtime-go/events"
)

// Registry is an explicit name-to-handler table. Tools are registered by
// the host application; nothing is discovered via reflection. Arguments
// are validated against each tool's compiled JSON Schema before the
// handler runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registered
}

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registered)}
}

// Register adds a tool. Registering an invalid schema or a duplicate name
// is an error.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool: missing name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s: missing handler", t.Name)
	}

	var schema *jsonschema.Schema
	if t.Parameters != nil {
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return fmt.Errorf("tool %s: marshal parameters: %w", t.Name, err)
		}
		compiler := jsonschema.NewCompiler()
		resource := fmt.Sprintf("tool://%s/parameters.json", t.Name)
		if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
			return fmt.Errorf("tool %s: invalid parameter schema: %w", t.Name, err)
		}
		schema, err = compiler.Compile(resource)
		if err != nil {
			return fmt.Errorf("tool %s: invalid parameter schema: %w", t.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s: already registered", t.Name)
	}
	r.tools[t.Name] = &registered{tool: t, schema: schema}
	return nil
}

// MustRegister is Register for static tool tables.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Definitions returns the wire representation of every registered tool,
// ordered by name.
func (r *Registry) Definitions() []events.SessionTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]events.SessionTool, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.tools[name].tool.Definition())
	}
	return defs
}

// Invoke parses rawArgs, validates them against the tool's schema and
// runs the handler. Models emit sloppy JSON now and then, so a syntax
// error triggers a jsonrepair pass before giving up.
func (r *Registry) Invoke(ctx context.Context, name, rawArgs string) (any, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tool %s: not registered", name)
	}

	args, err := parseArguments(rawArgs)
	if err != nil {
		return nil, fmt.Errorf("tool %s: bad arguments: %w", name, err)
	}

	if reg.schema != nil {
		if err := reg.schema.Validate(args); err != nil {
			return nil, fmt.Errorf("tool %s: arguments rejected: %w", name, err)
		}
	}

	return reg.tool.Handler(ctx, args)
}

// InvokeRaw runs Invoke and flattens the outcome into the JSON string
// sent back as the function call output.
func (r *Registry) InvokeRaw(ctx context.Context, name, rawArgs string) string {
	res, err := r.Invoke(ctx, name, rawArgs)
	switch {
	case err != nil:
		d, _ := json.Marshal(map[string]any{"error": err.Error()})
		return string(d)
	case res != nil:
		d, merr := json.Marshal(res)
		if merr != nil {
			d, _ = json.Marshal(map[string]any{"error": merr.Error()})
		}
		return string(d)
	default:
		d, _ := json.Marshal(map[string]any{"success": true})
		return string(d)
	}
}

func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	err := json.Unmarshal([]byte(raw), &args)
	if err == nil {
		return args, nil
	}
	if _, ok := err.(*json.SyntaxError); !ok {
		return nil, err
	}
	fixed, rerr := jsonrepair.JSONRepair(raw)
	if rerr != nil {
		return nil, err
	}
	if uerr := json.Unmarshal([]byte(fixed), &args); uerr != nil {
		return nil, err
	}
	return args, nil
}
