// File: internal/script/parser.go
package script

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseOption adjusts validation behaviour.
type ParseOption func(*parseOptions)

type parseOptions struct {
	strictTypes bool
}

// WithStrictTypes rejects steps whose type is neither agent nor require_user.
// Without it unknown types are accepted here and skipped by the runner.
func WithStrictTypes() ParseOption {
	return func(o *parseOptions) { o.strictTypes = true }
}

// Parse decodes a YAML script document and validates it. It has no side effects.
// Only the top-level "steps" key is interpreted.
func Parse(document []byte, opts ...ParseOption) (*Script, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	var raw any
	if err := yaml.Unmarshal(document, &raw); err != nil {
		return nil, &ValidationError{Kind: KindMalformedDocument, Err: err, Detail: err.Error()}
	}

	var doc map[string]any
	switch v := raw.(type) {
	case nil:
		doc = map[string]any{}
	case map[string]any:
		doc = v
	default:
		return nil, &ValidationError{
			Kind:   KindMalformedDocument,
			Detail: fmt.Sprintf("top level must be a mapping, got %T", raw),
		}
	}

	rawSteps, ok := doc["steps"].([]any)
	if !ok || len(rawSteps) == 0 {
		return nil, &ValidationError{Kind: KindMissingStepsList}
	}

	s := &Script{Steps: make([]Step, 0, len(rawSteps))}
	for i, item := range rawSteps {
		step, err := parseStep(i+1, item, o)
		if err != nil {
			return nil, err
		}
		s.Steps = append(s.Steps, step)
	}
	return s, nil
}

func parseStep(position int, item any, o parseOptions) (Step, error) {
	fields, _ := item.(map[string]any)

	typ := stringField(fields, "type")
	if strings.TrimSpace(typ) == "" {
		return Step{}, &ValidationError{Kind: KindMissingType, Step: position}
	}

	step := Step{
		Name:    stringField(fields, "name"),
		Type:    StepType(typ),
		Task:    stringField(fields, "task"),
		Message: stringField(fields, "message"),
	}
	if step.Name == "" {
		step.Name = DefaultStepName(position)
	}

	if step.Type == StepAgent && strings.TrimSpace(step.Task) == "" {
		return Step{}, &ValidationError{Kind: KindMissingTask, Step: position, Detail: step.Name}
	}
	if o.strictTypes && !step.Type.Known() {
		return Step{}, &ValidationError{Kind: KindUnknownType, Step: position, Detail: typ}
	}

	// A malformed or empty condition is ignored rather than rejected.
	if cond, ok := fields["wait_for_user_if"].(map[string]any); ok {
		contains := stringField(cond, "contains")
		if contains != "" {
			step.WaitForUserIf = &WaitCondition{
				Contains: contains,
				Message:  stringField(cond, "message"),
			}
		}
	}
	return step, nil
}

// stringField reads a scalar field, rendering non-string scalars as text.
func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
