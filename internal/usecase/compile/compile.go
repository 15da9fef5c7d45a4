// Where: internal/usecase/compile/compile.go
// What: Compile workflow: decode, validate, resolve, emit, render.
// Why: Keep the pure compile pipeline free of CLI concerns.
package compile

import (
	"bytes"
	"fmt"

	"github.com/kubed-io/fx/internal/domain/emitter"
	"github.com/kubed-io/fx/internal/domain/resolver"
	"github.com/kubed-io/fx/internal/domain/resource"
	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/infra/packager"
	"github.com/kubed-io/fx/internal/infra/servicedoc"
	"sigs.k8s.io/yaml"
)

type Options struct {
	Draft bool
	// Literal overrides the archiver used for literal sources.
	Literal emitter.LiteralArchiver
}

func (o Options) emitterOptions() emitter.Options {
	literal := o.Literal
	if literal == nil {
		literal = packager.LiteralArchiver{}
	}
	return emitter.Options{Draft: o.Draft, Literal: literal}
}

// Output is the result of one compile.
type Output struct {
	Service   service.Service
	Resources resource.Set
	YAML      []byte
}

// Compile turns a Service document into a multi-document YAML stream.
func Compile(doc []byte, opts Options) (Output, error) {
	svc, err := servicedoc.Decode(doc)
	if err != nil {
		return Output{}, err
	}
	set, err := Service(svc, opts)
	if err != nil {
		return Output{}, err
	}
	rendered, err := RenderYAML(set)
	if err != nil {
		return Output{}, err
	}
	return Output{Service: svc, Resources: set, YAML: rendered}, nil
}

// Service compiles an already decoded Service.
func Service(svc service.Service, opts Options) (resource.Set, error) {
	if err := svc.Validate(); err != nil {
		return resource.Set{}, err
	}
	resolved, err := resolver.ResolveAll(svc)
	if err != nil {
		return resource.Set{}, err
	}
	return emitter.Emit(svc, resolved, opts.emitterOptions())
}

// RenderYAML serializes the set in output order, one document per object.
func RenderYAML(set resource.Set) ([]byte, error) {
	var buf bytes.Buffer
	for i, obj := range set.Objects() {
		data, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", set.Names()[i], err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
