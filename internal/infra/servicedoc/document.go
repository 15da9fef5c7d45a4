// Where: internal/infra/servicedoc/document.go
// What: Locate, validate and decode Service documents.
// Why: Every command reads the same document the same way.
package servicedoc

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/meta"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

// ErrNotFound is returned when no service document exists at a path.
var ErrNotFound = errors.New("service document not found")

//go:embed schema/service.schema.json
var schemaSource []byte

const schemaURL = "https://serverless.krm.kubed.io/schemas/service.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// Locate resolves path to a service document. A directory is searched for
// service.yaml, then service.yml.
func Locate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return "", err
	}
	if !info.IsDir() {
		return abs, nil
	}
	for _, name := range []string{meta.ServiceFileName, meta.ServiceFileAlt} {
		candidate := filepath.Join(abs, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNotFound, abs)
}

// Load reads and decodes the document at path.
func Load(path string) (service.Service, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.Service{}, nil, fmt.Errorf("read service document: %w", err)
	}
	svc, err := Decode(data)
	if err != nil {
		return service.Service{}, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return svc, data, nil
}

// Decode validates data (YAML or JSON) against the embedded schema and
// returns the typed Service. It does not run semantic validation.
func Decode(data []byte) (service.Service, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return service.Service{}, fmt.Errorf("convert yaml to json: %w", err)
	}
	if err := validateSchema(jsonData); err != nil {
		return service.Service{}, err
	}

	var svc service.Service
	if err := json.Unmarshal(jsonData, &svc); err != nil {
		return service.Service{}, service.WrapConfigError("", "", err)
	}
	return svc, nil
}

// DecodeObject decodes an already parsed object, such as a KRM
// functionConfig.
func DecodeObject(obj map[string]any) (service.Service, error) {
	jsonData, err := json.Marshal(obj)
	if err != nil {
		return service.Service{}, fmt.Errorf("encode service object: %w", err)
	}
	return Decode(jsonData)
}

func validateSchema(jsonData []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load service schema: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := sch.Validate(document); err != nil {
		return service.WrapConfigError("", "document", err)
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaSource)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}
