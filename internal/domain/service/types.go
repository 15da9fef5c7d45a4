// Where: internal/domain/service/types.go
// What: Typed model of the Service document.
// Why: Give the resolver and emitter a presence-aware view of the document.
package service

import (
	"strings"

	"github.com/kubed-io/fx/internal/meta"
	corev1 "k8s.io/api/core/v1"
)

// Service is the declarative input document (kind: Service).
type Service struct {
	APIVersion string   `json:"apiVersion"`
	Kind       string   `json:"kind"`
	Metadata   Metadata `json:"metadata"`
	Spec       Spec     `json:"spec"`
}

// Metadata identifies the service. Labels propagate to every emitted
// resource; annotations stay on the document.
type Metadata struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type Spec struct {
	Package          PackageSpec    `json:"package,omitempty"`
	Environment      EnvironmentRef `json:"environment"`
	Secrets          []ObjectRef    `json:"secrets,omitempty"`
	FunctionTemplate FunctionConfig `json:"functionTemplate,omitempty"`
	Functions        []FunctionSpec `json:"functions"`
}

type PackageSpec struct {
	Name     string   `json:"name,omitempty"`
	Include  []string `json:"include,omitempty"`
	Source   *Source  `json:"source,omitempty"`
	BuildCmd string   `json:"buildcmd,omitempty"`
}

type EnvironmentRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// ObjectRef points at a namespaced object such as a Secret or ConfigMap.
type ObjectRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// FunctionConfig is the mergeable unit shared by functionTemplate and each
// function. A nil pointer means the author did not set the field.
type FunctionConfig struct {
	RequestsPerPod  *int                         `json:"requestsPerPod,omitempty"`
	RetainPods      *int                         `json:"retainPods,omitempty"`
	Concurrency     *int                         `json:"concurrency,omitempty"`
	FunctionTimeout *int                         `json:"functionTimeout,omitempty"`
	IdleTimeout     *int                         `json:"idleTimeout,omitempty"`
	OnceOnly        *bool                        `json:"onceOnly,omitempty"`
	Resources       *corev1.ResourceRequirements `json:"resources,omitempty"`
	Secrets         *[]ObjectRef                 `json:"secrets,omitempty"`
	ConfigMaps      *[]ObjectRef                 `json:"configmaps,omitempty"`
	PodSpec         *corev1.PodSpec              `json:"podspec,omitempty"`
	InvokeStrategy  *InvokeStrategy              `json:"invokeStrategy,omitempty"`
	Triggers        Triggers                     `json:"triggers,omitzero"`
}

// FunctionSpec declares one function of the service. Its FunctionConfig
// fields are sparse overrides of the service functionTemplate.
type FunctionSpec struct {
	Name           string `json:"name,omitempty"`
	FunctionName   string `json:"functionName"`
	Description    string `json:"description,omitempty"`
	FunctionConfig `json:",inline"`
}

// Namespace returns the service namespace, defaulting when absent.
func (s Service) Namespace() string {
	if ns := strings.TrimSpace(s.Metadata.Namespace); ns != "" {
		return ns
	}
	return meta.DefaultNamespace
}

// PackageName returns package.name, falling back to the service name.
func (s Service) PackageName() string {
	if name := strings.TrimSpace(s.Spec.Package.Name); name != "" {
		return name
	}
	return s.Metadata.Name
}

// EnvironmentNamespace returns the environment namespace, falling back to
// the service namespace.
func (s Service) EnvironmentNamespace() string {
	if ns := strings.TrimSpace(s.Spec.Environment.Namespace); ns != "" {
		return ns
	}
	return s.Namespace()
}

// ShortName returns the function's short name. Only a service with a
// single function may omit it, in which case the service name is used.
func (s Service) ShortName(fn FunctionSpec) string {
	if name := strings.TrimSpace(fn.Name); name != "" {
		return name
	}
	return s.Metadata.Name
}
