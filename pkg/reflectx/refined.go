package reflectx

import "reflect"

// IsRefinedType reports whether value is exactly the type R. The executor
// uses this to recognize ContextVars parameters, which are injected rather
// than supplied by the model.
func IsRefinedType[R any](value reflect.Type) bool {
	var toMatch R
	return reflect.TypeOf(toMatch) == value
}
