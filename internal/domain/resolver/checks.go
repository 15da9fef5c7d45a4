// Where: internal/domain/resolver/checks.go
// What: Range checks for resolved scheduling fields and object refs.
package resolver

import (
	"fmt"
	"strings"

	"github.com/kubed-io/fx/internal/domain/service"
)

func checkCounts(cfg Config) error {
	fields := []struct {
		name  string
		value int
		min   int
	}{
		{"requestsPerPod", cfg.RequestsPerPod, 1},
		{"retainPods", cfg.RetainPods, 0},
		{"concurrency", cfg.Concurrency, 1},
		{"functionTimeout", cfg.FunctionTimeout, 1},
		{"idleTimeout", cfg.IdleTimeout, 0},
	}
	for _, field := range fields {
		if field.value < field.min {
			return fmt.Errorf("%s must be at least %d, got %d", field.name, field.min, field.value)
		}
	}
	return nil
}

// namespaced copies refs, filling an absent namespace with ns.
func namespaced(refs []service.ObjectRef, ns string) ([]service.ObjectRef, error) {
	out := make([]service.ObjectRef, 0, len(refs))
	for i, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %d has no name", i)
		}
		refNS := strings.TrimSpace(ref.Namespace)
		if refNS == "" {
			refNS = ns
		}
		out = append(out, service.ObjectRef{Name: name, Namespace: refNS})
	}
	return out, nil
}
