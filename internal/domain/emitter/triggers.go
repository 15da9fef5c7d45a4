// Where: internal/domain/emitter/triggers.go
// What: Trigger kind registry and the HTTP trigger emitter.
// Why: Each trigger kind declares how it becomes platform objects.
package emitter

import (
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/kubed-io/fx/internal/domain/resolver"
	"github.com/kubed-io/fx/internal/domain/resource"
	"github.com/kubed-io/fx/internal/domain/service"
)

type triggerTarget struct {
	service      service.Service
	function     resolver.ResolvedFunction
	resourceName string
	// ordinal counts triggers of the same kind on one function, from 1.
	ordinal int
	names   nameSet
}

type triggerEmitter func(target triggerTarget, trigger service.Trigger, set *resource.Set) error

// registry is read-only after package init.
var registry = map[service.TriggerKind]triggerEmitter{
	service.TriggerHTTP: emitHTTPTrigger,
}

// SupportedTriggerKinds lists the kinds the emitter can dispatch.
func SupportedTriggerKinds() []service.TriggerKind {
	return []service.TriggerKind{service.TriggerHTTP}
}

func emitHTTPTrigger(target triggerTarget, trigger service.Trigger, set *resource.Set) error {
	spec := ExpandHTTPDefaults(target.service, target.function, *trigger.HTTP)
	if !strings.HasPrefix(spec.Path, "/") {
		return service.ConfigErrorf(target.function.Name, "triggers.http.path", "%q must start with /", spec.Path)
	}

	name := target.resourceName
	if target.ordinal > 1 {
		name = fmt.Sprintf("%s-%d", name, target.ordinal)
	}
	if err := checkName(target.function.Name, name); err != nil {
		return err
	}
	if err := target.names.claim(resource.KindHTTPTrigger, name, target.function.Name); err != nil {
		return err
	}

	out := resource.HTTPTrigger{
		TypeMeta: typeMeta(resource.KindHTTPTrigger),
		Metadata: objectMeta(target.service, name),
		Spec: resource.HTTPTriggerSpec{
			Host:          spec.Host,
			RelativeURL:   spec.Path,
			CreateIngress: spec.CreateIngress,
			Method:        spec.Method,
			FunctionReference: resource.FunctionReference{
				Type: resource.FunctionRefByName,
				Name: target.resourceName,
			},
		},
	}
	if spec.IngressConfig != nil {
		ingress := *spec.IngressConfig
		ingress.Annotations = maps.Clone(spec.IngressConfig.Annotations)
		out.Spec.IngressConfig = &ingress
	}
	set.HTTPTriggers = append(set.HTTPTriggers, out)
	return nil
}

// ExpandHTTPDefaults fills method (GET, upper-cased), path and host.
func ExpandHTTPDefaults(svc service.Service, fn resolver.ResolvedFunction, spec service.HTTPTrigger) service.HTTPTrigger {
	out := spec
	out.Method = strings.ToUpper(strings.TrimSpace(spec.Method))
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	out.Path = strings.TrimSpace(spec.Path)
	if out.Path == "" {
		out.Path = DefaultHTTPPath(svc, fn)
	}
	out.Host = strings.TrimSpace(spec.Host)
	return out
}
