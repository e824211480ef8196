package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var (
	// ErrCatalogFormatUnsupported indicates the rule document format is not yaml or json.
	ErrCatalogFormatUnsupported = errors.New("workflow: unsupported rule catalog format")
	// ErrCatalogDocumentInvalid indicates the rule document failed schema validation.
	ErrCatalogDocumentInvalid = errors.New("workflow: rule catalog document invalid")
)

// Format identifies the encoding of a rule catalog document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

//go:embed rules.schema.json
var rulesSchema []byte

type catalogDocument struct {
	Rules []TransitionRule `json:"rules"`
}

// LoadCatalogFile reads a rule catalog from disk, inferring the format from the extension.
func LoadCatalogFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: open rule catalog: %w", err)
	}
	defer file.Close()

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return LoadCatalog(file, format)
}

// LoadCatalog decodes, validates and compiles a rule catalog document.
func LoadCatalog(r io.Reader, format Format) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("workflow: read rule catalog: %w", err)
	}

	encoded, err := normalizeDocument(raw, format)
	if err != nil {
		return nil, err
	}

	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogDocumentInvalid, err)
	}

	schema, err := compileRulesSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCatalogDocumentInvalid, describeSchemaError(err))
	}

	var doc catalogDocument
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogDocumentInvalid, err)
	}
	return NewCatalog(doc.Rules)
}

func normalizeDocument(raw []byte, format Format) ([]byte, error) {
	switch Format(strings.ToLower(strings.TrimSpace(string(format)))) {
	case FormatJSON:
		return raw, nil
	case FormatYAML, "yml", "":
		var decoded any
		if err := yaml.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogDocumentInvalid, err)
		}
		encoded, err := json.Marshal(decoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogDocumentInvalid, err)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrCatalogFormatUnsupported, format)
	}
}

func compileRulesSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(rulesSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("rules.schema.json")
}

func describeSchemaError(err error) string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return err.Error()
	}
	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			location := strings.TrimSpace(node.InstanceLocation)
			if location == "" {
				location = "#"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", location, strings.TrimSpace(node.Message)))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(validationErr)
	return strings.Join(parts, "; ")
}
