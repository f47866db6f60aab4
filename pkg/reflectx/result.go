package reflectx

import "reflect"

// ResultImplements reports whether any result of the given function (a
// function value or a reflect.Type of one) implements the interface T.
// The executor uses this to spot agent-transfer tools before invoking them.
func ResultImplements[T any](function any) bool {
	if function == nil {
		return false
	}

	var fnType reflect.Type
	switch v := function.(type) {
	case reflect.Type:
		fnType = v
	default:
		fnType = reflect.TypeOf(function)
	}
	if fnType.Kind() != reflect.Func {
		return false
	}

	var zero T
	ifaceType := reflect.TypeOf(&zero).Elem()

	for i := 0; i < fnType.NumOut(); i++ {
		if fnType.Out(i).Implements(ifaceType) {
			return true
		}
	}
	return false
}
