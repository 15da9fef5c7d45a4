// Where: internal/domain/resource/types.go
// What: Fission object shapes emitted by the compiler (fission.io/v1).
// Why: Keep the wire layout in one place, independent of the Service model.
package resource

import (
	"github.com/kubed-io/fx/internal/domain/service"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	KindPackage     = "Package"
	KindFunction    = "Function"
	KindHTTPTrigger = "HTTPTrigger"

	BuildStatusPending = "pending"
	FunctionRefByName  = "name"
)

type Package struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta `json:"metadata"`
	Spec            PackageSpec       `json:"spec"`
	Status          PackageStatus     `json:"status"`
}

type PackageSpec struct {
	Environment EnvironmentReference `json:"environment"`
	Source      Archive              `json:"source,omitzero"`
	Deployment  Archive              `json:"deployment,omitzero"`
	BuildCmd    string               `json:"buildcmd,omitempty"`
}

type PackageStatus struct {
	BuildStatus string `json:"buildstatus"`
}

// Archive is a package source or deployment. Literal holds zip bytes and
// is base64 encoded by encoding/json.
type Archive struct {
	Type     string   `json:"type,omitempty"`
	Literal  []byte   `json:"literal,omitempty"`
	URL      string   `json:"url,omitempty"`
	Checksum Checksum `json:"checksum,omitzero"`
}

type Checksum struct {
	Type string `json:"type,omitempty"`
	Sum  string `json:"sum,omitempty"`
}

type EnvironmentReference struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type ObjectReference struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type Function struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta `json:"metadata"`
	Spec            FunctionSpec      `json:"spec"`
}

type FunctionSpec struct {
	Environment     EnvironmentReference        `json:"environment"`
	Package         FunctionPackageRef          `json:"package"`
	Secrets         []ObjectReference           `json:"secrets"`
	ConfigMaps      []ObjectReference           `json:"configmaps"`
	Resources       corev1.ResourceRequirements `json:"resources"`
	InvokeStrategy  service.InvokeStrategy      `json:"InvokeStrategy"`
	FunctionTimeout int                         `json:"functionTimeout"`
	IdleTimeout     int                         `json:"idletimeout"`
	Concurrency     int                         `json:"concurrency"`
	RequestsPerPod  int                         `json:"requestsPerPod"`
	OnceOnly        bool                        `json:"onceOnly"`
	RetainPods      int                         `json:"retainPods"`
	PodSpec         *corev1.PodSpec             `json:"podspec,omitempty"`
}

type FunctionPackageRef struct {
	PackageRef   PackageRef `json:"packageref"`
	FunctionName string     `json:"functionName,omitempty"`
}

type PackageRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type HTTPTrigger struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta `json:"metadata"`
	Spec            HTTPTriggerSpec   `json:"spec"`
}

type HTTPTriggerSpec struct {
	Host              string                 `json:"host"`
	RelativeURL       string                 `json:"relativeurl"`
	CreateIngress     bool                   `json:"createingress"`
	IngressConfig     *service.IngressConfig `json:"ingressconfig,omitempty"`
	Method            string                 `json:"method"`
	FunctionReference FunctionReference      `json:"functionref"`
}

type FunctionReference struct {
	Type string `json:"type"`
	Name string `json:"name"`
}
