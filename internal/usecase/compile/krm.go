// Where: internal/usecase/compile/krm.go
// What: KRM function mode over a config.kubernetes.io/v1 ResourceList.
// Why: Lets kustomize and kpt run the compiler as a generator.
package compile

import (
	"encoding/json"
	"fmt"

	"github.com/kubed-io/fx/internal/infra/servicedoc"
	"sigs.k8s.io/yaml"
)

const (
	resourceListAPIVersion = "config.kubernetes.io/v1"
	resourceListKind       = "ResourceList"
)

type ResourceList struct {
	APIVersion     string           `json:"apiVersion"`
	Kind           string           `json:"kind"`
	Items          []map[string]any `json:"items"`
	FunctionConfig map[string]any   `json:"functionConfig,omitempty"`
	Results        []Result         `json:"results,omitempty"`
}

type Result struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ProcessResourceList appends the compiled resources to the list items.
// On failure the returned document carries an error result alongside the
// returned error, so callers can still write it out.
func ProcessResourceList(input []byte, opts Options) ([]byte, error) {
	var list ResourceList
	if err := yaml.Unmarshal(input, &list); err != nil {
		return nil, fmt.Errorf("decode resource list: %w", err)
	}
	if list.Kind != resourceListKind {
		return nil, fmt.Errorf("input kind is %q, not %s", list.Kind, resourceListKind)
	}
	if list.APIVersion == "" {
		list.APIVersion = resourceListAPIVersion
	}
	if list.Items == nil {
		list.Items = []map[string]any{}
	}

	compileErr := appendCompiled(&list, opts)
	if compileErr != nil {
		list.Results = append(list.Results, Result{Message: compileErr.Error(), Severity: "error"})
	}

	out, err := yaml.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode resource list: %w", err)
	}
	return out, compileErr
}

func appendCompiled(list *ResourceList, opts Options) error {
	if len(list.FunctionConfig) == 0 {
		return fmt.Errorf("functionConfig is required")
	}
	svc, err := servicedoc.DecodeObject(list.FunctionConfig)
	if err != nil {
		return err
	}
	set, err := Service(svc, opts)
	if err != nil {
		return err
	}
	for _, obj := range set.Objects() {
		item, err := toMap(obj)
		if err != nil {
			return err
		}
		list.Items = append(list.Items, item)
	}
	return nil
}

func toMap(obj any) (map[string]any, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
