// Package common holds configuration shared by the writer plugins.
package common

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Batch is the buffering configuration every writer plugin accepts.
type Batch struct {
	BatchSize     int `json:"batchSize,omitempty"`
	FlushInterval int `json:"flushInterval,omitempty"` // in seconds
}

// Interval returns FlushInterval as a duration. Zero selects the writer default.
func (b Batch) Interval() time.Duration {
	return time.Duration(b.FlushInterval) * time.Second
}

// Decode unmarshals plugin config, treating empty input as an empty object.
func Decode(name string, data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s config: %w", name, err)
	}
	return nil
}

// Schema builds an object JSON schema from props plus the batching properties.
func Schema(props map[string]any, required ...string) map[string]any {
	all := map[string]any{
		"batchSize": map[string]any{
			"type":        "integer",
			"description": "Number of records to buffer before writing (default: 50)",
			"default":     50,
		},
		"flushInterval": map[string]any{
			"type":        "integer",
			"description": "Interval in seconds between automatic flushes (default: 30)",
			"default":     30,
		},
	}
	maps.Copy(all, props)

	schema := map[string]any{
		"type":       "object",
		"properties": all,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProp is a string schema property.
func StringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
