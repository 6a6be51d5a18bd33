package vm

import (
	"strings"
	"unicode"

	"github.com/covenant-lang/covenant/internal/bytecode"
	"github.com/covenant-lang/covenant/internal/cverr"
)

// popArgs pops KwCount (name, value) pairs followed by PosCount plain
// values, restoring both to their original push order (§4.10).
func (vm *VM) popArgs(in bytecode.Instr) ([]Value, map[string]Value) {
	kwargs := make(map[string]Value, in.KwCount)
	for i := uint16(0); i < in.KwCount; i++ {
		name := vm.pop()
		val := vm.pop()
		kwargs[name.Str] = val
	}
	positionals := vm.popN(int(in.PosCount))
	return positionals, kwargs
}

func isCapitalized(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

// execCallContract implements CALL_CONTRACT (§4.10): a capitalized callee is
// constructor sugar for an Object literal; a known lowercase callee invokes
// that contract; an unknown callee pushes Null (lenient).
func (vm *VM) execCallContract(f *frame, in bytecode.Instr) error {
	positionals, kwargs := vm.popArgs(in)
	callee := vm.mod.Constants[in.Index].String

	if isCapitalized(callee) {
		names := make([]string, 0, len(positionals)+len(kwargs))
		values := make([]Value, 0, len(positionals)+len(kwargs))
		for i, p := range positionals {
			names = append(names, indexFieldName(i))
			values = append(values, p)
		}
		for k, v := range kwargs {
			names = append(names, k)
			values = append(values, v)
		}
		vm.push(ObjectVal(NewObject(callee, names, values)))
		return nil
	}

	idx, ok := vm.byName[callee]
	if !ok {
		vm.push(Null())
		return nil
	}
	target := &vm.mod.Contracts[idx]
	args := make(map[string]Value, len(positionals)+len(kwargs))
	for i, p := range positionals {
		if i < len(target.ParamNames) {
			args[target.ParamNames[i]] = p
		}
	}
	for k, v := range kwargs {
		args[k] = v
	}
	result, err := vm.callContractByIndex(idx, args)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

func indexFieldName(i int) string {
	return "_" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

// execCallModule implements CALL_MODULE: delegate to the external stdlib
// dispatcher (§6.2).
func (vm *VM) execCallModule(in bytecode.Instr) error {
	positionals, kwargs := vm.popArgs(in)
	module := vm.mod.Constants[in.Index].String
	// FieldPath carries the method name for CALL_MODULE, set by the compiler
	// alongside Index (the module name constant).
	method := in.FieldPath

	posIf := toBridgeValues(positionals)
	kwIf := make(map[string]interface{}, len(kwargs))
	for k, v := range kwargs {
		kwIf[k] = toBridgeValue(v)
	}

	result, err := vm.bridge.CallModuleMethod(module, method, posIf, kwIf)
	if err != nil {
		return cverr.Wrap(cverr.KindBridge, "stdlib module call failed", err)
	}
	vm.push(fromBridgeValue(result))
	return nil
}

// execCallMethod implements CALL_METHOD (§4.10): stdlib-owned object types
// delegate externally; built-in List/String methods are handled inline;
// any other object returns a derived object named "OriginalType.method"
// carrying the args as _0, _1, ….
func (vm *VM) execCallMethod(in bytecode.Instr) error {
	positionals, kwargs := vm.popArgs(in)
	receiver := vm.pop()
	method := vm.mod.Constants[in.Index].String

	if receiver.Kind == KindObject && vm.bridge.IsStdlibType(receiver.Object.TypeName) {
		fields := make(map[string]interface{}, len(receiver.Object.Fields))
		for k, v := range receiver.Object.Fields {
			fields[k] = toBridgeValue(v)
		}
		posIf := toBridgeValues(positionals)
		kwIf := make(map[string]interface{}, len(kwargs))
		for k, v := range kwargs {
			kwIf[k] = toBridgeValue(v)
		}
		result, err := vm.bridge.CallTypeMethod(receiver.Object.TypeName, fields, method, posIf, kwIf)
		if err != nil {
			return cverr.Wrap(cverr.KindBridge, "stdlib type method call failed", err)
		}
		vm.push(fromBridgeValue(result))
		return nil
	}

	if receiver.Kind == KindList || receiver.Kind == KindString {
		v, err := builtinCollectionMethod(receiver, method, positionals)
		if err != nil {
			return err
		}
		vm.push(v)
		return nil
	}

	if receiver.Kind == KindObject {
		names := make([]string, 0, len(positionals)+len(kwargs))
		values := make([]Value, 0, len(positionals)+len(kwargs))
		for i, p := range positionals {
			names = append(names, indexFieldName(i))
			values = append(values, p)
		}
		for k, v := range kwargs {
			names = append(names, k)
			values = append(values, v)
		}
		derived := NewObject(receiver.Object.TypeName+"."+method, names, values)
		vm.push(ObjectVal(derived))
		return nil
	}

	return cverr.Newf(cverr.KindRuntime, "cannot call method %q on %s", method, receiver.TypeName())
}

func builtinCollectionMethod(receiver Value, method string, args []Value) (Value, error) {
	switch method {
	case "length", "len":
		if receiver.Kind == KindList {
			return IntVal(int64(len(receiver.List))), nil
		}
		return IntVal(int64(len(receiver.Str))), nil
	case "append":
		if receiver.Kind != KindList {
			return Value{}, cverr.New(cverr.KindRuntime, "append() requires a List receiver")
		}
		return ListVal(append(append([]Value(nil), receiver.List...), args...)), nil
	case "upper":
		return StringVal(strings.ToUpper(receiver.Str)), nil
	case "lower":
		return StringVal(strings.ToLower(receiver.Str)), nil
	case "contains":
		if len(args) == 0 {
			return Value{}, cverr.New(cverr.KindRuntime, "contains() requires one argument")
		}
		if receiver.Kind == KindString {
			if args[0].Kind != KindString {
				return Value{}, cverr.New(cverr.KindRuntime, "String.contains() requires a String argument")
			}
			return BoolVal(strings.Contains(receiver.Str, args[0].Str)), nil
		}
		for _, e := range receiver.List {
			if Equal(e, args[0]) {
				return BoolVal(true), nil
			}
		}
		return BoolVal(false), nil
	default:
		return Value{}, cverr.Newf(cverr.KindRuntime, "unknown method %q on %s", method, receiver.TypeName())
	}
}

func toBridgeValues(vs []Value) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = toBridgeValue(v)
	}
	return out
}

func toBridgeValue(v Value) interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindBool:
		return v.Bool
	case KindList:
		return toBridgeValues(v.List)
	case KindObject:
		m := make(map[string]interface{}, len(v.Object.Fields))
		for k, fv := range v.Object.Fields {
			m[k] = toBridgeValue(fv)
		}
		return m
	default:
		return nil
	}
}

func fromBridgeValue(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case int64:
		return IntVal(t)
	case int:
		return IntVal(int64(t))
	case float64:
		return FloatVal(t)
	case string:
		return StringVal(t)
	case bool:
		return BoolVal(t)
	case []interface{}:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = fromBridgeValue(e)
		}
		return ListVal(out)
	case map[string]interface{}:
		names := make([]string, 0, len(t))
		values := make([]Value, 0, len(t))
		for k, fv := range t {
			names = append(names, k)
			values = append(values, fromBridgeValue(fv))
		}
		return ObjectVal(NewObject("Object", names, values))
	default:
		return Null()
	}
}
