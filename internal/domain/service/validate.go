// Where: internal/domain/service/validate.go
// What: Structural validation of a decoded Service.
// Why: Reject contradictory documents before resolution and emission.
package service

import (
	"strings"

	"github.com/kubed-io/fx/internal/meta"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Validate checks identity, environment, source and function list rules.
// It does not resolve or default function configuration.
func (s Service) Validate() error {
	if !strings.HasPrefix(s.APIVersion, meta.ServiceAPIGroup) {
		return ConfigErrorf("", "apiVersion", "must start with %q, got %q", meta.ServiceAPIGroup, s.APIVersion)
	}
	if s.Kind != meta.ServiceKind {
		return ConfigErrorf("", "kind", "must be %q, got %q", meta.ServiceKind, s.Kind)
	}

	name := strings.TrimSpace(s.Metadata.Name)
	if name == "" {
		return ConfigErrorf("", "metadata.name", "is required")
	}
	if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
		return ConfigErrorf("", "metadata.name", "%q: %s", name, strings.Join(errs, "; "))
	}
	if ns := strings.TrimSpace(s.Metadata.Namespace); ns != "" {
		if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
			return ConfigErrorf("", "metadata.namespace", "%q: %s", ns, strings.Join(errs, "; "))
		}
	}
	if pkg := strings.TrimSpace(s.Spec.Package.Name); pkg != "" {
		if errs := validation.IsDNS1123Subdomain(pkg); len(errs) > 0 {
			return ConfigErrorf("", "spec.package.name", "%q: %s", pkg, strings.Join(errs, "; "))
		}
	}

	if strings.TrimSpace(s.Spec.Environment.Name) == "" {
		return ConfigErrorf("", "spec.environment.name", "is required")
	}

	if src := s.Spec.Package.Source; src != nil {
		if _, err := src.Kind(); err != nil {
			return err
		}
	}

	for i, ref := range s.Spec.Secrets {
		if strings.TrimSpace(ref.Name) == "" {
			return ConfigErrorf("", "spec.secrets", "entry %d has no name", i)
		}
	}

	return s.validateFunctions()
}

func (s Service) validateFunctions() error {
	if len(s.Spec.Functions) == 0 {
		return ConfigErrorf("", "spec.functions", "at least one function is required")
	}

	seen := make(map[string]struct{}, len(s.Spec.Functions))
	for i, fn := range s.Spec.Functions {
		short := strings.TrimSpace(fn.Name)
		if short == "" && len(s.Spec.Functions) > 1 {
			return ConfigErrorf("", "spec.functions", "entry %d: name is required when more than one function is declared", i)
		}
		short = s.ShortName(fn)
		if errs := validation.IsDNS1123Label(short); len(errs) > 0 {
			return ConfigErrorf(short, "name", "%s", strings.Join(errs, "; "))
		}
		if _, dup := seen[short]; dup {
			return ConfigErrorf(short, "name", "duplicate function name")
		}
		seen[short] = struct{}{}

		entry := strings.TrimSpace(fn.FunctionName)
		if entry == "" {
			return ConfigErrorf(short, "functionName", "is required")
		}
		if !strings.Contains(entry, ".") || strings.HasPrefix(entry, ".") || strings.HasSuffix(entry, ".") {
			return ConfigErrorf(short, "functionName", "%q must have the form module.function", entry)
		}

		for _, trigger := range fn.Triggers.Items() {
			if _, err := trigger.Kind(); err != nil {
				return WrapConfigError(short, "triggers", err)
			}
		}
	}

	for _, trigger := range s.Spec.FunctionTemplate.Triggers.Items() {
		if _, err := trigger.Kind(); err != nil {
			return WrapConfigError("", "spec.functionTemplate.triggers", err)
		}
	}
	return nil
}
