// Package equals provides the comparison strategies swrcache uses to decide
// whether a fetched value actually changed. Keeping the previous value when
// nothing changed keeps references stable for subscribers.
package equals

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Func reports whether a and b should be treated as the same value.
// Implementations must not panic.
type Func func(a, b any) bool

var (
	_ Func = Ref
	_ Func = JSON
	_ Func = Shallow
)

// Ref is reference equality. Comparable values use ==, so NaN != NaN.
// Maps, slices, funcs and channels compare by identity (same backing pointer and length).
func Ref(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Type().Comparable() {
		return safeEq(a, b)
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		// structs/arrays holding non-comparable members have no identity of their own
		return false
	}
}

// safeEq guards against interface fields holding non-comparable dynamic values.
func safeEq(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// JSON compares the encoding/json forms of a and b after a Ref check.
// Values that fail to encode (NaN, channels, cycles) are never equal.
func JSON(a, b any) bool {
	if Ref(a, b) {
		return true
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// Shallow compares maps and structs one level deep using Ref on members.
// Anything else falls back to Ref.
func Shallow(a, b any) bool {
	if Ref(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	va, vb := deref(reflect.ValueOf(a)), deref(reflect.ValueOf(b))
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map:
		if va.Len() != vb.Len() {
			return false
		}
		it := va.MapRange()
		for it.Next() {
			other := vb.MapIndex(it.Key())
			if !other.IsValid() {
				return false
			}
			if !Ref(iface(it.Value()), iface(other)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !va.Type().Field(i).IsExported() {
				continue
			}
			if !Ref(iface(va.Field(i)), iface(vb.Field(i))) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func iface(v reflect.Value) any {
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return nil
	}
	return v.Interface()
}
