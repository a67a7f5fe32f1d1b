// Package validation checks project documents against the JSON schemas
// bundled with the binary.
package validation

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// fallback used for kinds without a schema of their own
const genericSchema = "object"

// Error lists every problem found in one document
type Error struct {
	Path     string
	Problems []string
}

func (self *Error) Error() string {
	return fmt.Sprintf("%s failed validation: %s", self.Path, strings.Join(self.Problems, "; "))
}

// Validator compiles schemas on first use and keeps them for the rest of
// the run
type Validator struct {
	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

func New() *Validator {
	return &Validator{schemas: map[string]*gojsonschema.Schema{}}
}

// SchemaName maps a document type such as "TEXT SEARCH" or "TABLE" to
// the bundled schema file that checks it
func SchemaName(docType string) string {
	name := strings.ToLower(strings.ReplaceAll(docType, " ", "_"))
	if _, err := schemaFiles.Open("schemas/" + name + ".json"); err != nil {
		return genericSchema
	}
	return name
}

func (self *Validator) schema(name string) (*gojsonschema.Schema, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if s, ok := self.schemas[name]; ok {
		return s, nil
	}
	raw, err := schemaFiles.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, errors.Wrapf(err, "no schema named %s", name)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "could not compile schema %s", name)
	}
	self.schemas[name] = s
	return s, nil
}

// Validate checks doc, the generic decoding of the file at path, against
// the schema for docType. A document that does not conform returns an
// *Error naming each offending field.
func (self *Validator) Validate(docType, path string, doc interface{}) error {
	s, err := self.schema(SchemaName(docType))
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(jsonCompatible(doc)))
	if err != nil {
		return errors.Wrapf(err, "could not validate %s", path)
	}
	if result.Valid() {
		return nil
	}
	verr := &Error{Path: path}
	for _, desc := range result.Errors() {
		verr.Problems = append(verr.Problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return verr
}

// jsonCompatible rewrites the map[interface{}]interface{} values some
// YAML decoders produce into string keyed maps
func jsonCompatible(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = jsonCompatible(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = jsonCompatible(item)
		}
		return out
	}
	return v
}
