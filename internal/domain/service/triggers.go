// Where: internal/domain/service/triggers.go
// What: Three-state trigger list and the trigger tagged union.
// Why: Unset, explicitly empty and explicit triggers must stay distinguishable.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Triggers is either Inherited (the zero value) or Explicit(list). An
// explicit list may be empty, which disables triggers for the function.
type Triggers struct {
	set   bool
	items []Trigger
}

// InheritTriggers returns the unset state.
func InheritTriggers() Triggers {
	return Triggers{}
}

// ExplicitTriggers returns an explicit trigger list; no arguments yields
// an explicit empty list.
func ExplicitTriggers(items ...Trigger) Triggers {
	out := make([]Trigger, len(items))
	copy(out, items)
	return Triggers{set: true, items: out}
}

// IsSet reports whether the author wrote a triggers key.
func (t Triggers) IsSet() bool {
	return t.set
}

// IsZero lets encoding/json omit the inherited state.
func (t Triggers) IsZero() bool {
	return !t.set
}

// Items returns a copy of the explicit list (nil when inherited).
func (t Triggers) Items() []Trigger {
	if !t.set {
		return nil
	}
	out := make([]Trigger, len(t.items))
	copy(out, t.items)
	return out
}

func (t Triggers) Len() int {
	return len(t.items)
}

// UnmarshalJSON marks the list as explicit whenever the key is present,
// including `triggers: []` and a bare `triggers:` (null).
func (t *Triggers) UnmarshalJSON(data []byte) error {
	t.set = true
	t.items = []Trigger{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var items []Trigger
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items != nil {
		t.items = items
	}
	return nil
}

func (t Triggers) MarshalJSON() ([]byte, error) {
	if t.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.items)
}

// TriggerKind discriminates Trigger variants.
type TriggerKind string

const (
	TriggerHTTP TriggerKind = "http"
)

// Trigger is a closed tagged union: exactly one variant is populated.
type Trigger struct {
	HTTP *HTTPTrigger `json:"http,omitempty"`
}

// HTTPTrigger describes an HTTP route to a function. Empty fields are
// expanded to defaults by the emitter.
type HTTPTrigger struct {
	Method        string         `json:"method,omitempty"`
	Path          string         `json:"path,omitempty"`
	Host          string         `json:"host,omitempty"`
	CreateIngress bool           `json:"createIngress,omitempty"`
	IngressConfig *IngressConfig `json:"ingressConfig,omitempty"`
}

// IngressConfig is passed through to the HTTPTrigger unmodified.
type IngressConfig struct {
	Annotations map[string]string `json:"annotations,omitempty"`
	Path        string            `json:"path,omitempty"`
	Host        string            `json:"host,omitempty"`
	TLS         string            `json:"tls,omitempty"`
}

// HTTPTriggerOf is a convenience constructor used by callers building
// documents in code.
func HTTPTriggerOf(spec HTTPTrigger) Trigger {
	return Trigger{HTTP: &spec}
}

// Kind returns the populated variant.
func (t Trigger) Kind() (TriggerKind, error) {
	switch {
	case t.HTTP != nil:
		return TriggerHTTP, nil
	default:
		return "", fmt.Errorf("trigger declares no kind")
	}
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("trigger must be a mapping: %w", err)
	}
	if len(raw) != 1 {
		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return fmt.Errorf("trigger must declare exactly one kind, got [%s]", strings.Join(keys, ", "))
	}

	*t = Trigger{}
	for key, body := range raw {
		switch TriggerKind(key) {
		case TriggerHTTP:
			spec := HTTPTrigger{}
			if !bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
				if err := json.Unmarshal(body, &spec); err != nil {
					return fmt.Errorf("http trigger: %w", err)
				}
			}
			t.HTTP = &spec
		default:
			return fmt.Errorf("unsupported trigger kind %q", key)
		}
	}
	return nil
}
