// Where: internal/domain/resolver/resolver.go
// What: Cascades functionTemplate into each function with per-field policies.
// Why: A function's effective configuration must depend only on its own
// fields and the template.
package resolver

import (
	"strings"

	"github.com/kubed-io/fx/internal/domain/service"
	corev1 "k8s.io/api/core/v1"
)

const (
	DefaultRequestsPerPod  = 1
	DefaultRetainPods      = 0
	DefaultConcurrency     = 500
	DefaultFunctionTimeout = 60
	DefaultIdleTimeout     = 120
)

// Config is a fully populated FunctionConfig.
type Config struct {
	RequestsPerPod  int
	RetainPods      int
	Concurrency     int
	FunctionTimeout int
	IdleTimeout     int
	OnceOnly        bool
	Resources       corev1.ResourceRequirements
	Secrets         []service.ObjectRef
	ConfigMaps      []service.ObjectRef
	PodSpec         *corev1.PodSpec
	InvokeStrategy  service.InvokeStrategy
	Triggers        []service.Trigger
}

// ResolvedFunction is a function with every configuration field decided.
type ResolvedFunction struct {
	Name        string
	EntryPoint  string
	Description string
	// Unnamed is set for the single function that borrows the service name.
	Unnamed bool
	Config  Config
}

// Merge overlays override on template. A field set in override replaces the
// template value whole; composite fields are never merged. Triggers keep
// the override whenever its key was written, even as an empty list.
func Merge(template, override service.FunctionConfig) service.FunctionConfig {
	out := service.FunctionConfig{
		RequestsPerPod:  pick(override.RequestsPerPod, template.RequestsPerPod),
		RetainPods:      pick(override.RetainPods, template.RetainPods),
		Concurrency:     pick(override.Concurrency, template.Concurrency),
		FunctionTimeout: pick(override.FunctionTimeout, template.FunctionTimeout),
		IdleTimeout:     pick(override.IdleTimeout, template.IdleTimeout),
		OnceOnly:        pick(override.OnceOnly, template.OnceOnly),
		Secrets:         pickRefs(override.Secrets, template.Secrets),
		ConfigMaps:      pickRefs(override.ConfigMaps, template.ConfigMaps),
		InvokeStrategy:  pick(override.InvokeStrategy, template.InvokeStrategy),
		Triggers:        template.Triggers,
	}

	switch {
	case override.Resources != nil:
		out.Resources = override.Resources.DeepCopy()
	case template.Resources != nil:
		out.Resources = template.Resources.DeepCopy()
	}
	switch {
	case override.PodSpec != nil:
		out.PodSpec = override.PodSpec.DeepCopy()
	case template.PodSpec != nil:
		out.PodSpec = template.PodSpec.DeepCopy()
	}
	if override.Triggers.IsSet() {
		out.Triggers = override.Triggers
	}
	if out.Triggers.IsSet() {
		out.Triggers = service.ExplicitTriggers(out.Triggers.Items()...)
	}
	return out
}

// ResolveFunction merges the service template into fn, applies defaults
// and validates the result.
func ResolveFunction(svc service.Service, fn service.FunctionSpec) (ResolvedFunction, error) {
	name := svc.ShortName(fn)
	merged := Merge(svc.Spec.FunctionTemplate, fn.FunctionConfig)

	cfg := Config{
		RequestsPerPod:  valueOr(merged.RequestsPerPod, DefaultRequestsPerPod),
		RetainPods:      valueOr(merged.RetainPods, DefaultRetainPods),
		Concurrency:     valueOr(merged.Concurrency, DefaultConcurrency),
		FunctionTimeout: valueOr(merged.FunctionTimeout, DefaultFunctionTimeout),
		IdleTimeout:     valueOr(merged.IdleTimeout, DefaultIdleTimeout),
		OnceOnly:        valueOr(merged.OnceOnly, false),
		InvokeStrategy:  valueOr(merged.InvokeStrategy, service.DefaultInvokeStrategy()),
		PodSpec:         merged.PodSpec,
		Triggers:        merged.Triggers.Items(),
	}
	if merged.Resources != nil {
		cfg.Resources = *merged.Resources
	}
	if cfg.Triggers == nil {
		cfg.Triggers = []service.Trigger{}
	}

	if err := checkCounts(cfg); err != nil {
		return ResolvedFunction{}, service.WrapConfigError(name, "", err)
	}
	if err := cfg.InvokeStrategy.Validate(); err != nil {
		return ResolvedFunction{}, service.WrapConfigError(name, "invokeStrategy", err)
	}

	secrets := svc.Spec.Secrets
	if merged.Secrets != nil {
		secrets = *merged.Secrets
	}
	var err error
	if cfg.Secrets, err = namespaced(secrets, svc.Namespace()); err != nil {
		return ResolvedFunction{}, service.WrapConfigError(name, "secrets", err)
	}
	var configMaps []service.ObjectRef
	if merged.ConfigMaps != nil {
		configMaps = *merged.ConfigMaps
	}
	if cfg.ConfigMaps, err = namespaced(configMaps, svc.Namespace()); err != nil {
		return ResolvedFunction{}, service.WrapConfigError(name, "configmaps", err)
	}

	return ResolvedFunction{
		Name:        name,
		EntryPoint:  strings.TrimSpace(fn.FunctionName),
		Description: fn.Description,
		Unnamed:     strings.TrimSpace(fn.Name) == "",
		Config:      cfg,
	}, nil
}

// ResolveAll resolves every function in declaration order. The first error
// aborts the whole resolution.
func ResolveAll(svc service.Service) ([]ResolvedFunction, error) {
	out := make([]ResolvedFunction, 0, len(svc.Spec.Functions))
	for _, fn := range svc.Spec.Functions {
		resolved, err := ResolveFunction(svc, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func pick[T any](override, template *T) *T {
	src := template
	if override != nil {
		src = override
	}
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}

func pickRefs(override, template *[]service.ObjectRef) *[]service.ObjectRef {
	src := template
	if override != nil {
		src = override
	}
	if src == nil {
		return nil
	}
	cp := append([]service.ObjectRef{}, (*src)...)
	return &cp
}

func valueOr[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}
