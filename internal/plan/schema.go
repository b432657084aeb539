package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "https://github.com/rahul/stepwise/schemas/plan-v1.json"

// Schema produces the JSON Schema (Draft 2020-12) of the plan wire format.
func Schema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.RequiredFromJSONSchemaTags = true
	r.AllowAdditionalProperties = true
	r.DoNotReference = true
	r.ExpandedStruct = true

	s := r.Reflect(&Plan{})
	s.ID = schemaURL
	s.Title = "stepwise plan"
	s.Description = "An ordered list of operation calls with literal arguments"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plan schema: %w", err)
	}
	return data, nil
}

// SchemaMap returns the plan schema as a generic tree, the form LLM
// function definitions expect.
func SchemaMap() (map[string]any, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal plan schema: %w", err)
	}
	return m, nil
}

var (
	compileOnce sync.Once
	compiled    *sjsonschema.Schema
	compileErr  error
)

func validator() (*sjsonschema.Schema, error) {
	compileOnce.Do(func() {
		m, err := SchemaMap()
		if err != nil {
			compileErr = err
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, m); err != nil {
			compileErr = fmt.Errorf("add plan schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile plan schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Validate checks a decoded plan document against the plan schema. The
// document must already be normalised (string keys, float64 numbers).
func Validate(doc any) error {
	sch, err := validator()
	if err != nil {
		return err
	}
	err = sch.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *sjsonschema.ValidationError
	if !errors.As(err, &ve) {
		return malformed("", "%v", err)
	}
	leaf := firstLeaf(ve)
	p := message.NewPrinter(language.English)
	return malformed(instancePath(leaf.InstanceLocation), "%s", leaf.ErrorKind.LocalizedString(p))
}

func firstLeaf(ve *sjsonschema.ValidationError) *sjsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func instancePath(loc []string) string {
	var b strings.Builder
	for i, part := range loc {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
