package coalescingloader

import (
	"fmt"
	"reflect"
)

// ValueCloner is an interface for cloning values.
// Stores that keep values in process memory use it so that callers cannot mutate stored values.
// The CloneValue method should return a deep copy of the input value.
type ValueCloner[V ValueConstraint] interface {
	CloneValue(V) V
}

// ValueClonerFunc is a function type that implements the ValueCloner interface.
type ValueClonerFunc[V ValueConstraint] func(v V) V

// CloneValue calls the function.
func (f ValueClonerFunc[V]) CloneValue(v V) V {
	return f(v)
}

// NopValueCloner is a value cloner that does not clone values.
// It is used when values do not need to be cloned. (e.g. when the values are primitive types or immutable usage)
type NopValueCloner[V ValueConstraint] struct{}

// CloneValue returns the input value.
func (NopValueCloner[V]) CloneValue(v V) V {
	return v
}

// DefaultValueCloner returns a default cloner for the given value type.
//
// If the value type has a Clone or DeepCopy method, it is used.
// Otherwise, value types that hold no references (scalars, strings, and arrays or structs made of them)
// are copied by assignment with NopValueCloner. Any other type panics.
func DefaultValueCloner[V ValueConstraint]() ValueCloner[V] {
	var zero V
	return defaultValueClonerAny[V](zero)
}

func defaultValueClonerAny[V ValueConstraint](v any) ValueCloner[V] {
	type cloner interface {
		Clone() V
	}
	type deepCopier interface {
		DeepCopy() V
	}

	switch v.(type) {
	case cloner:
		return ValueClonerFunc[V](func(v V) V {
			var a any = v
			return a.(cloner).Clone()
		})

	case deepCopier:
		return ValueClonerFunc[V](func(v V) V {
			var a any = v
			return a.(deepCopier).DeepCopy()
		})
	}

	// note: v is nil only when V is an interface type.
	if v == nil {
		panic("interface value type does not have Clone or DeepCopy method")
	}
	if typ := reflect.TypeOf(v); !isReferenceFree(typ) {
		panic(fmt.Sprintf("value type %s does not have Clone or DeepCopy method", typ))
	}
	return NopValueCloner[V]{}
}

// isReferenceFree reports whether a value of the type can be copied by assignment without sharing memory.
func isReferenceFree(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Array:
		return isReferenceFree(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !isReferenceFree(typ.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
