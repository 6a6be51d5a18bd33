// Package vm is the Covenant stack machine (spec §4.10): a classic bytecode
// interpreter over a flat value stack and a call-frame stack, enforcing
// contract preconditions/postconditions at the landing pad the compiler
// built for each contract.
package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the runtime tag of a Value (§4.10).
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindList
	KindObject
)

// Value is one Covenant runtime value. Object carries its declared type name
// plus an insertion-ordered field map; List/Object values are always value
// types — mutation rebuilds rather than aliases (§9: "Object fields and
// derived Objects share structure only as value clones").
type Value struct {
	Kind   Kind
	Int    int64
	Float  float64
	Str    string
	Bool   bool
	List   []Value
	Object *Object
}

// Object is a named record: a type tag plus fields, in insertion order.
type Object struct {
	TypeName string
	Order    []string
	Fields   map[string]Value
}

func Null() Value                  { return Value{Kind: KindNull} }
func IntVal(v int64) Value         { return Value{Kind: KindInt, Int: v} }
func FloatVal(v float64) Value     { return Value{Kind: KindFloat, Float: v} }
func StringVal(v string) Value     { return Value{Kind: KindString, Str: v} }
func BoolVal(v bool) Value         { return Value{Kind: KindBool, Bool: v} }
func ListVal(v []Value) Value      { return Value{Kind: KindList, List: v} }
func ObjectVal(o *Object) Value    { return Value{Kind: KindObject, Object: o} }

// NewObject builds an Object from ordered (name, value) fields.
func NewObject(typeName string, names []string, values []Value) *Object {
	o := &Object{TypeName: typeName, Fields: make(map[string]Value, len(names))}
	for i, n := range names {
		o.Order = append(o.Order, n)
		o.Fields[n] = values[i]
	}
	return o
}

// Clone returns a deep-enough copy for value semantics: a fresh Object with
// a fresh field map (nested Objects/Lists inside are themselves immutable
// once constructed, so a shallow field copy suffices — only the top-level
// map identity must differ so writes through one reference never alias
// another (§9, §4.10 SET_FIELD)).
func (o *Object) Clone() *Object {
	clone := &Object{TypeName: o.TypeName, Order: append([]string(nil), o.Order...), Fields: make(map[string]Value, len(o.Fields))}
	for k, v := range o.Fields {
		clone.Fields[k] = v
	}
	return clone
}

// WithField returns a clone of o with name set to v, appending name to the
// field order if it's new.
func (o *Object) WithField(name string, v Value) *Object {
	clone := o.Clone()
	if _, exists := clone.Fields[name]; !exists {
		clone.Order = append(clone.Order, name)
	}
	clone.Fields[name] = v
	return clone
}

// TypeName reports the gradual-typing type name of v (§4.11): "Int",
// "Float", "String", "Bool", "List", "Null", or an Object's declared type.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBool:
		return "Bool"
	case KindList:
		return "List"
	case KindObject:
		return v.Object.TypeName
	default:
		return "Null"
	}
}

// Truthy applies Covenant's condition-testing rule: Bool by value, Null is
// always false, numeric zero is false, empty string/list is false, any
// Object is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNull:
		return false
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	case KindList:
		return len(v.List) > 0
	case KindObject:
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%v", v.Float)
	case KindString:
		return v.Str
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		names := append([]string(nil), v.Object.Order...)
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s: %s", n, v.Object.Fields[n].String())
		}
		return v.Object.TypeName + "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}

// Equal implements Covenant's `==`: same kind, same contents; Int/Float
// compare by numeric value across kinds (gradual typing extends to
// equality, §4.11).
func Equal(a, b Value) bool {
	if a.Kind == KindInt && b.Kind == KindFloat {
		return float64(a.Int) == b.Float
	}
	if a.Kind == KindFloat && b.Kind == KindInt {
		return a.Float == float64(b.Int)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.Object.TypeName != b.Object.TypeName || len(a.Object.Fields) != len(b.Object.Fields) {
			return false
		}
		for k, v := range a.Object.Fields {
			bv, ok := b.Object.Fields[k]
			if !ok || !Equal(v, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AssignableTo implements the gradual-typing compatibility rule (§4.11):
// Any matches anything; Int is assignable to Float/Number; List checks
// element-wise against a declared "[Elem]" type name; Null is compatible
// with anything; an Object type name matches only the exact carried type.
func AssignableTo(v Value, declared string) bool {
	if declared == "" || declared == "Any" {
		return true
	}
	if v.Kind == KindNull {
		return true
	}
	if strings.HasPrefix(declared, "[") && strings.HasSuffix(declared, "]") {
		if v.Kind != KindList {
			return false
		}
		elem := declared[1 : len(declared)-1]
		for _, e := range v.List {
			if !AssignableTo(e, elem) {
				return false
			}
		}
		return true
	}
	switch declared {
	case "Int":
		return v.Kind == KindInt
	case "Float", "Number":
		return v.Kind == KindFloat || v.Kind == KindInt
	case "String":
		return v.Kind == KindString
	case "Bool":
		return v.Kind == KindBool
	case "List":
		return v.Kind == KindList
	default:
		return v.Kind == KindObject && v.Object.TypeName == declared
	}
}
