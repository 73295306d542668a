package tool

import (
	"context"

	"github.com/voxline/realtime-go/events"
)

// Handler executes a tool call with its decoded arguments. The returned
// value is serialized into the function_call_output item.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a function the model may call. Parameters is a JSON Schema
// object describing the argument shape.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// Definition is the wire representation advertised to the server.
func (t Tool) Definition() events.SessionTool {
	return events.SessionTool{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Object is shorthand for a JSON-Schema object with the given properties.
func Object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// String is shorthand for a JSON-Schema string property.
func String(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// Number is shorthand for a JSON-Schema number property.
func Number(description string) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
	}
}
