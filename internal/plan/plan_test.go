package plan

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromMap(t *testing.T) {
	doc := map[string]any{
		"explanation": "add then divide",
		"steps": []any{
			map[string]any{"operation": "Sum", "arguments": []any{20.0, 30}, "rationale": "sum first"},
			map[string]any{"operation": "Divide", "arguments": []any{json.Number("50"), int64(10)}},
		},
	}

	p, err := FromMap(doc)
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}

	want := New("add then divide",
		Step{Operation: "Sum", Arguments: []Argument{20, 30}, Rationale: "sum first"},
		Call("Divide", 50, 10),
	)
	if !p.Equal(*want) {
		t.Errorf("Expected %+v, got %+v", want, p)
	}
	if _, ok := p.Steps[1].Arguments[0].(float64); !ok {
		t.Errorf("Expected arguments normalised to float64, got %T", p.Steps[1].Arguments[0])
	}
}

func TestFromMap_EmptySteps(t *testing.T) {
	p, err := FromMap(map[string]any{"steps": []any{}})
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if p.Steps == nil || len(p.Steps) != 0 {
		t.Errorf("Expected empty steps, got %#v", p.Steps)
	}
}

func TestFromMap_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		path string
	}{
		{"nil document", nil, ""},
		{"missing steps", map[string]any{"explanation": "x"}, "steps"},
		{"steps not a list", map[string]any{"steps": "Sum"}, "steps"},
		{"step not an object", map[string]any{"steps": []any{"Sum"}}, "steps[0]"},
		{"missing operation", map[string]any{"steps": []any{map[string]any{"arguments": []any{}}}}, "steps[0].operation"},
		{"empty operation", map[string]any{"steps": []any{map[string]any{"operation": "", "arguments": []any{}}}}, "steps[0].operation"},
		{"operation not a string", map[string]any{"steps": []any{map[string]any{"operation": 3.0, "arguments": []any{}}}}, "steps[0].operation"},
		{"missing arguments", map[string]any{"steps": []any{map[string]any{"operation": "Sum"}}}, "steps[0].arguments"},
		{"arguments not a list", map[string]any{"steps": []any{map[string]any{"operation": "Sum", "arguments": 2.0}}}, "steps[0].arguments"},
		{"explanation not a string", map[string]any{"explanation": 1.0, "steps": []any{}}, "explanation"},
		{"rationale not a string", map[string]any{"steps": []any{map[string]any{"operation": "Sum", "arguments": []any{}, "rationale": true}}}, "steps[0].rationale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.doc)
			if !errors.Is(err, ErrMalformedPlan) {
				t.Fatalf("Expected ErrMalformedPlan, got %v", err)
			}
			var mpe *MalformedPlanError
			if !errors.As(err, &mpe) {
				t.Fatalf("Expected *MalformedPlanError, got %T", err)
			}
			if mpe.Path != tt.path {
				t.Errorf("Expected path %q, got %q", tt.path, mpe.Path)
			}
		})
	}
}

func TestFromMap_ArityNotChecked(t *testing.T) {
	p, err := FromMap(map[string]any{"steps": []any{
		map[string]any{"operation": "Sum", "arguments": []any{}},
		map[string]any{"operation": "Sum", "arguments": []any{1.0, 2.0, 3.0}},
	}})
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if len(p.Steps[0].Arguments) != 0 || len(p.Steps[1].Arguments) != 3 {
		t.Errorf("Arguments were altered: %+v", p.Steps)
	}
}

func TestParse_JSONAndYAMLAgree(t *testing.T) {
	jsonDoc := `{
		"explanation": "sum then divide",
		"steps": [
			{"operation": "Sum", "arguments": [20, 30], "rationale": "add"},
			{"operation": "Divide", "arguments": [50, 10], "rationale": "divide"}
		]
	}`
	yamlDoc := `
explanation: sum then divide
steps:
  - operation: Sum
    arguments: [20, 30]
    rationale: add
  - operation: Divide
    arguments: [50, 10]
    rationale: divide
`
	fromJSON, err := Parse([]byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatalf("Parse json failed: %v", err)
	}
	fromYAML, err := Parse([]byte(yamlDoc), FormatYAML)
	if err != nil {
		t.Fatalf("Parse yaml failed: %v", err)
	}
	if !fromJSON.Equal(*fromYAML) {
		t.Errorf("JSON and YAML plans differ:\n%+v\n%+v", fromJSON, fromYAML)
	}
}

func TestParse_Malformed(t *testing.T) {
	docs := map[string]string{
		"not json":        `{"steps": [`,
		"top level list":  `[]`,
		"missing steps":   `{"explanation": "none"}`,
		"missing args":    `{"steps": [{"operation": "Sum"}]}`,
		"empty operation": `{"steps": [{"operation": "", "arguments": []}]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc), FormatJSON); !errors.Is(err, ErrMalformedPlan) {
				t.Errorf("Expected ErrMalformedPlan, got %v", err)
			}
		})
	}
}

func TestParse_AllowsExtraFields(t *testing.T) {
	p, err := Parse([]byte(`{"steps": [{"id": 1, "operation": "Sum", "arguments": [1, 2]}], "model": "x"}`), FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Steps[0].Operation != "Sum" {
		t.Errorf("Expected Sum, got %s", p.Steps[0].Operation)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p := New("empty", Step{Operation: "Noop"})
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"arguments":[]`) {
		t.Errorf("Expected arguments to marshal as a list, got %s", data)
	}

	back, err := Parse(data, FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !p.Equal(*back) {
		t.Errorf("Round trip changed the plan: %+v", back)
	}

	empty, err := json.Marshal(Plan{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(empty, FormatJSON); err != nil {
		t.Errorf("Empty plan did not survive a round trip: %v (%s)", err, empty)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yml")
	if err := os.WriteFile(path, []byte("steps:\n  - operation: Sum\n    arguments: [1, 2]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !p.Equal(*New("", Call("Sum", 1, 2))) {
		t.Errorf("Unexpected plan %+v", p)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}
	if m["$id"] != schemaURL {
		t.Errorf("Expected $id %s, got %v", schemaURL, m["$id"])
	}
	if !strings.Contains(string(data), `"operation"`) {
		t.Error("Schema does not describe the operation field")
	}
}

func TestEqual(t *testing.T) {
	a := New("x", Call("Sum", 1, 2))
	if !a.Equal(*New("x", Call("Sum", 1.0, 2.0))) {
		t.Error("Expected int and float arguments to compare equal")
	}
	if a.Equal(*New("y", Call("Sum", 1, 2))) {
		t.Error("Expected different explanations to differ")
	}
	if a.Equal(*New("x", Call("Sum", 2, 1))) {
		t.Error("Expected argument order to matter")
	}
}

func TestEncodable(t *testing.T) {
	v := Encodable([]any{math.Inf(1), map[string]any{"low": math.Inf(-1), "bad": math.NaN()}, 1.5, "text"})
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Encodable value did not marshal: %v", err)
	}
	if string(data) != `["+Inf",{"bad":"NaN","low":"-Inf"},1.5,"text"]` {
		t.Errorf("Unexpected encoding %s", data)
	}

	step := Call("Multiply", math.Inf(1), 2)
	if _, err := json.Marshal(step); err != nil {
		t.Errorf("Step with a non-finite argument did not marshal: %v", err)
	}
	if step.Arguments[0] != math.Inf(1) {
		t.Error("Marshalling must not change the step")
	}
}
