// Where: internal/domain/resource/set.go
// What: The emitted resource set and its serialization order.
package resource

// Set is the compile result for one service.
type Set struct {
	Package      Package
	Functions    []Function
	HTTPTriggers []HTTPTrigger
}

// Objects returns the resources in output order: the Package, then each
// Function followed by the triggers that reference it.
func (s Set) Objects() []any {
	out := make([]any, 0, 1+len(s.Functions)+len(s.HTTPTriggers))
	out = append(out, s.Package)

	byFunction := make(map[string][]HTTPTrigger, len(s.Functions))
	for _, trigger := range s.HTTPTriggers {
		name := trigger.Spec.FunctionReference.Name
		byFunction[name] = append(byFunction[name], trigger)
	}
	for _, fn := range s.Functions {
		out = append(out, fn)
		for _, trigger := range byFunction[fn.Metadata.Name] {
			out = append(out, trigger)
		}
	}
	return out
}

// Names lists "<Kind>/<name>" for every object in output order.
func (s Set) Names() []string {
	objects := s.Objects()
	out := make([]string, 0, len(objects))
	for _, obj := range objects {
		switch typed := obj.(type) {
		case Package:
			out = append(out, KindPackage+"/"+typed.Metadata.Name)
		case Function:
			out = append(out, KindFunction+"/"+typed.Metadata.Name)
		case HTTPTrigger:
			out = append(out, KindHTTPTrigger+"/"+typed.Metadata.Name)
		}
	}
	return out
}
