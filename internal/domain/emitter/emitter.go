// Where: internal/domain/emitter/emitter.go
// What: Builds Package, Function and HTTPTrigger objects from resolved functions.
// Why: Naming, label propagation and default expansion live in one pure step.
package emitter

import (
	"fmt"
	"maps"
	"strings"

	"github.com/kubed-io/fx/internal/domain/resolver"
	"github.com/kubed-io/fx/internal/domain/resource"
	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/meta"
	digest "github.com/opencontainers/go-digest"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
)

// LiteralArchiver turns inline source text into archive bytes.
type LiteralArchiver interface {
	ArchiveLiteral(source string) ([]byte, error)
}

type Options struct {
	// Draft tolerates a missing source or a url source without digest.
	Draft bool
	// Literal is required when the service embeds a literal source.
	Literal LiteralArchiver
}

// Emit builds the resource set. It never mutates svc or resolved.
func Emit(svc service.Service, resolved []resolver.ResolvedFunction, opts Options) (resource.Set, error) {
	pkg, err := buildPackage(svc, opts)
	if err != nil {
		return resource.Set{}, err
	}

	set := resource.Set{
		Package:      pkg,
		Functions:    make([]resource.Function, 0, len(resolved)),
		HTTPTriggers: []resource.HTTPTrigger{},
	}
	names := nameSet{}
	for _, fn := range resolved {
		name := FunctionResourceName(svc, fn)
		if err := checkName(fn.Name, name); err != nil {
			return resource.Set{}, err
		}
		if err := names.claim(resource.KindFunction, name, fn.Name); err != nil {
			return resource.Set{}, err
		}

		set.Functions = append(set.Functions, buildFunction(svc, fn, name))

		emitted := map[service.TriggerKind]int{}
		for i, trigger := range fn.Config.Triggers {
			kind, err := trigger.Kind()
			if err != nil {
				return resource.Set{}, service.WrapConfigError(fn.Name, fmt.Sprintf("triggers[%d]", i), err)
			}
			handler, ok := registry[kind]
			if !ok {
				return resource.Set{}, service.ConfigErrorf(fn.Name, fmt.Sprintf("triggers[%d]", i), "no emitter for trigger kind %q", kind)
			}
			emitted[kind]++
			target := triggerTarget{
				service:      svc,
				function:     fn,
				resourceName: name,
				ordinal:      emitted[kind],
				names:        names,
			}
			if err := handler(target, trigger, &set); err != nil {
				return resource.Set{}, err
			}
		}
	}
	return set, nil
}

// FunctionResourceName is <service>-<function>, or the service name for
// the single unnamed function.
func FunctionResourceName(svc service.Service, fn resolver.ResolvedFunction) string {
	if fn.Unnamed {
		return svc.Metadata.Name
	}
	return svc.Metadata.Name + "-" + fn.Name
}

// DefaultHTTPPath is /<service>/<function>, or /<service> for the single
// unnamed function.
func DefaultHTTPPath(svc service.Service, fn resolver.ResolvedFunction) string {
	if fn.Unnamed {
		return "/" + svc.Metadata.Name
	}
	return "/" + svc.Metadata.Name + "/" + fn.Name
}

func objectMeta(svc service.Service, name string) metav1.ObjectMeta {
	out := metav1.ObjectMeta{
		Name:      name,
		Namespace: svc.Namespace(),
	}
	if len(svc.Metadata.Labels) > 0 {
		out.Labels = maps.Clone(svc.Metadata.Labels)
	}
	return out
}

func typeMeta(kind string) metav1.TypeMeta {
	return metav1.TypeMeta{APIVersion: meta.FissionAPIVersion, Kind: kind}
}

func buildPackage(svc service.Service, opts Options) (resource.Package, error) {
	name := svc.PackageName()
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return resource.Package{}, service.ConfigErrorf("", "spec.package.name", "%q: %s", name, strings.Join(errs, "; "))
	}

	source, err := buildSource(svc.Spec.Package.Source, opts)
	if err != nil {
		return resource.Package{}, err
	}

	return resource.Package{
		TypeMeta: typeMeta(resource.KindPackage),
		Metadata: objectMeta(svc, name),
		Spec: resource.PackageSpec{
			Environment: resource.EnvironmentReference{
				Namespace: svc.EnvironmentNamespace(),
				Name:      strings.TrimSpace(svc.Spec.Environment.Name),
			},
			Source:   source,
			BuildCmd: svc.Spec.Package.BuildCmd,
		},
		Status: resource.PackageStatus{BuildStatus: resource.BuildStatusPending},
	}, nil
}

func buildSource(src *service.Source, opts Options) (resource.Archive, error) {
	if src == nil {
		if opts.Draft {
			return resource.Archive{}, nil
		}
		return resource.Archive{}, service.ConfigErrorf("", "spec.package.source", "is required; publish the package or compile in draft mode")
	}

	kind, err := src.Kind()
	if err != nil {
		return resource.Archive{}, err
	}

	switch kind {
	case service.SourceLiteral:
		if opts.Literal == nil {
			return resource.Archive{}, fmt.Errorf("literal source requires an archiver")
		}
		data, err := opts.Literal.ArchiveLiteral(src.Literal)
		if err != nil {
			return resource.Archive{}, fmt.Errorf("archive literal source: %w", err)
		}
		return resource.Archive{
			Type:    string(service.SourceLiteral),
			Literal: data,
			Checksum: resource.Checksum{
				Type: service.ChecksumSHA256,
				Sum:  digest.FromBytes(data).Encoded(),
			},
		}, nil
	case service.SourceURL:
		sum := src.Digest()
		if strings.TrimSpace(src.URL) == "" && !opts.Draft {
			return resource.Archive{}, service.ConfigErrorf("", "spec.package.source.url", "is required")
		}
		if strings.TrimSpace(sum.Sum) == "" && !opts.Draft {
			return resource.Archive{}, service.ConfigErrorf("", "spec.package.source.checksum", "url source has no digest; publish the package first")
		}
		archive := resource.Archive{
			Type: string(service.SourceURL),
			URL:  src.URL,
		}
		if sum.Sum != "" {
			archive.Checksum = resource.Checksum{Type: sum.Algorithm(), Sum: sum.Sum}
		}
		return archive, nil
	default:
		if opts.Draft {
			return resource.Archive{}, nil
		}
		return resource.Archive{}, service.ConfigErrorf("", "spec.package.source", "is empty")
	}
}

func buildFunction(svc service.Service, fn resolver.ResolvedFunction, name string) resource.Function {
	cfg := fn.Config
	md := objectMeta(svc, name)
	if fn.Description != "" {
		md.Annotations = map[string]string{meta.DescriptionAnnotation: fn.Description}
	}

	spec := resource.FunctionSpec{
		Environment: resource.EnvironmentReference{
			Namespace: svc.EnvironmentNamespace(),
			Name:      strings.TrimSpace(svc.Spec.Environment.Name),
		},
		Package: resource.FunctionPackageRef{
			PackageRef: resource.PackageRef{
				Namespace: svc.Namespace(),
				Name:      svc.PackageName(),
			},
			FunctionName: fn.EntryPoint,
		},
		Secrets:         refs(cfg.Secrets),
		ConfigMaps:      refs(cfg.ConfigMaps),
		Resources:       *cfg.Resources.DeepCopy(),
		InvokeStrategy:  cfg.InvokeStrategy,
		FunctionTimeout: cfg.FunctionTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		Concurrency:     cfg.Concurrency,
		RequestsPerPod:  cfg.RequestsPerPod,
		OnceOnly:        cfg.OnceOnly,
		RetainPods:      cfg.RetainPods,
	}
	if cfg.PodSpec != nil {
		spec.PodSpec = cfg.PodSpec.DeepCopy()
	}

	return resource.Function{
		TypeMeta: typeMeta(resource.KindFunction),
		Metadata: md,
		Spec:     spec,
	}
}

func refs(in []service.ObjectRef) []resource.ObjectReference {
	out := make([]resource.ObjectReference, 0, len(in))
	for _, ref := range in {
		out = append(out, resource.ObjectReference{Namespace: ref.Namespace, Name: ref.Name})
	}
	return out
}

// nameSet maps "<kind>/<name>" to the function that emitted it.
type nameSet map[string]string

func (n nameSet) claim(kind, name, function string) error {
	key := kind + "/" + name
	if prev, dup := n[key]; dup {
		return service.ConfigErrorf(function, "name", "%s name %q collides with function %q", kind, name, prev)
	}
	n[key] = function
	return nil
}

func checkName(function, name string) error {
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return service.ConfigErrorf(function, "name", "resource name %q: %s", name, strings.Join(errs, "; "))
	}
	return nil
}
