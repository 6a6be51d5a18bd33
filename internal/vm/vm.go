package vm

import (
	"fmt"

	"github.com/covenant-lang/covenant/internal/bytecode"
	"github.com/covenant-lang/covenant/internal/cverr"
	"github.com/covenant-lang/covenant/internal/invariant"
	"github.com/covenant-lang/covenant/internal/stdlib"
)

const (
	maxCallDepth = 256
	forInCap     = 10_000_000
	whileCap     = 1_000_000
)

// frame is one call-frame (§4.10): a cloned instruction vector (we index
// into the module's CompiledContract directly instead, since it is
// immutable for the run's lifetime), an instruction pointer, a flat locals
// array, an optional old-locals clone for `old(...)`, and the stack base to
// truncate back to on return.
type frame struct {
	contract  *bytecode.CompiledContract
	locals    []Value
	oldLocals []Value
	inOld     bool
	pc        int
	stackBase int
	backEdges map[int]int64
}

// VM executes one compiled module against an externally supplied stdlib
// bridge. A VM is allocated fresh per run (§9: "Module-level state: none").
type VM struct {
	mod     *bytecode.Module
	bridge  *stdlib.Registry
	byName  map[string]int
	stack   []Value
	frames  []*frame
	events  []Event
}

// Event is one emitted (name, values) entry appended to the append-only
// event log (§4.10).
type Event struct {
	Name   string
	Values []Value
}

// New returns a VM ready to run contracts from mod, dispatching stdlib calls
// through bridge.
func New(mod *bytecode.Module, bridge *stdlib.Registry) *VM {
	byName := make(map[string]int, len(mod.Contracts))
	for i, c := range mod.Contracts {
		byName[c.Name] = i
	}
	return &VM{mod: mod, bridge: bridge, byName: byName}
}

// Events returns every event emitted across the VM's lifetime so far.
func (vm *VM) Events() []Event { return vm.events }

// RunContract looks up name, binds named args into parameter slots by name
// (a name with no matching parameter is ignored), validates argument types
// against the declared param types (§4.11), and runs the contract to
// completion, returning its result value.
func (vm *VM) RunContract(name string, args map[string]Value) (Value, error) {
	idx, ok := vm.byName[name]
	if !ok {
		return Value{}, cverr.Newf(cverr.KindRuntime, "unknown contract %q", name)
	}
	return vm.callContractByIndex(idx, args)
}

func (vm *VM) callContractByIndex(idx int, args map[string]Value) (Value, error) {
	if len(vm.frames) >= maxCallDepth {
		return Value{}, cverr.New(cverr.KindRuntime, "max call depth exceeded")
	}
	contract := &vm.mod.Contracts[idx]

	locals := make([]Value, contract.LocalCount)
	for i := range locals {
		locals[i] = Null()
	}
	for i, pname := range contract.ParamNames {
		v, ok := args[pname]
		if !ok {
			continue
		}
		if !AssignableTo(v, contract.ParamTypes[i]) {
			return Value{}, cverr.Newf(cverr.KindRuntime,
				"type mismatch: parameter %q of contract %q expects %s, got %s",
				pname, contract.Name, contract.ParamTypes[i], v.TypeName())
		}
		locals[i] = v
	}

	f := &frame{contract: contract, locals: locals, stackBase: len(vm.stack), backEdges: map[int]int64{}}
	vm.frames = append(vm.frames, f)
	result, err := vm.run(f)
	vm.frames = vm.frames[:len(vm.frames)-1]
	if err != nil {
		return Value{}, err
	}

	vm.stack = vm.stack[:f.stackBase]
	if contract.HasReturn && !AssignableTo(result, contract.ReturnType) {
		return Value{}, cverr.Newf(cverr.KindRuntime,
			"type mismatch: contract %q returns %s, declared %s",
			contract.Name, result.TypeName(), contract.ReturnType)
	}
	return result, nil
}

func (vm *VM) push(v Value)  { vm.stack = append(vm.stack, v) }
func (vm *VM) pop() Value {
	invariant.Check(len(vm.stack) > 0, "pop from empty value stack")
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// popN pops n values off the stack and returns them in push order (the
// first-pushed value first), matching EMIT_EVENT / CALL_* argument draining
// (§4.10).
func (vm *VM) popN(n int) []Value {
	invariant.Check(len(vm.stack) >= n, "popN(%d): only %d values on stack", n, len(vm.stack))
	out := make([]Value, n)
	copy(out, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return out
}

func (f *frame) getLocal(i uint16) Value {
	if f.inOld {
		return f.oldLocals[i]
	}
	return f.locals[i]
}

func (f *frame) setLocal(i uint16, v Value) {
	if f.inOld {
		f.oldLocals[i] = v
		return
	}
	f.locals[i] = v
}

// run dispatches f's instruction stream to completion, returning the
// contract's result value (Null if it has none).
func (vm *VM) run(f *frame) (Value, error) {
	code := f.contract.Code
	for f.pc < len(code) {
		in := code[f.pc]
		f.pc++

		switch in.Op {
		case bytecode.OpLoadConst:
			vm.push(constToValue(vm.mod.Constants[in.Index]))
		case bytecode.OpLoadNull:
			vm.push(Null())
		case bytecode.OpLoadTrue:
			vm.push(BoolVal(true))
		case bytecode.OpLoadFalse:
			vm.push(BoolVal(false))
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpDup:
			top := vm.stack[len(vm.stack)-1]
			vm.push(top)

		case bytecode.OpGetLocal:
			vm.push(f.getLocal(in.Index))
		case bytecode.OpSetLocal:
			f.setLocal(in.Index, vm.pop())

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
			r, l := vm.pop(), vm.pop()
			v, err := arith(in.Op, l, r)
			if err != nil {
				return Value{}, err
			}
			vm.push(v)
		case bytecode.OpNeg:
			v := vm.pop()
			switch v.Kind {
			case KindInt:
				vm.push(IntVal(-v.Int))
			case KindFloat:
				vm.push(FloatVal(-v.Float))
			default:
				return Value{}, cverr.Newf(cverr.KindRuntime, "cannot negate %s", v.TypeName())
			}

		case bytecode.OpEq:
			r, l := vm.pop(), vm.pop()
			vm.push(BoolVal(Equal(l, r)))
		case bytecode.OpNe:
			r, l := vm.pop(), vm.pop()
			vm.push(BoolVal(!Equal(l, r)))
		case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			r, l := vm.pop(), vm.pop()
			res, err := compare(in.Op, l, r)
			if err != nil {
				return Value{}, err
			}
			vm.push(BoolVal(res))
		case bytecode.OpNot:
			vm.push(BoolVal(!vm.pop().Truthy()))
		case bytecode.OpAnd:
			r, l := vm.pop(), vm.pop()
			vm.push(BoolVal(l.Truthy() && r.Truthy()))
		case bytecode.OpOr:
			r, l := vm.pop(), vm.pop()
			vm.push(BoolVal(l.Truthy() || r.Truthy()))

		case bytecode.OpJump:
			f.pc += int(in.JumpDelta) - 1
		case bytecode.OpJumpIfFalse:
			if !vm.pop().Truthy() {
				f.pc += int(in.JumpDelta) - 1
			}
		case bytecode.OpJumpIfTrue:
			if vm.pop().Truthy() {
				f.pc += int(in.JumpDelta) - 1
			}
		case bytecode.OpLoopBack:
			edgePC := f.pc - 1
			f.backEdges[edgePC]++
			cap := int64(whileCap)
			if in.Index == 0 {
				cap = forInCap
			}
			if f.backEdges[edgePC] > cap {
				kind := "while"
				if in.Index == 0 {
					kind = "for-in"
				}
				return Value{}, cverr.Newf(cverr.KindRuntime, "max iteration count exceeded in %s loop", kind)
			}
			f.pc += int(in.JumpDelta) - 1

		case bytecode.OpCallContract:
			if err := vm.execCallContract(f, in); err != nil {
				return Value{}, err
			}
		case bytecode.OpCallBuiltin:
			if err := vm.execCallBuiltin(f, in); err != nil {
				return Value{}, err
			}
		case bytecode.OpCallModule:
			if err := vm.execCallModule(in); err != nil {
				return Value{}, err
			}
		case bytecode.OpCallMethod:
			if err := vm.execCallMethod(in); err != nil {
				return Value{}, err
			}

		case bytecode.OpGetField:
			obj := vm.pop()
			v, err := getField(obj, in.FieldPath)
			if err != nil {
				return Value{}, err
			}
			vm.push(v)
		case bytecode.OpSetField:
			val := vm.pop()
			root := f.getLocal(in.Index)
			updated, err := setFieldPath(root, in.FieldPath, val)
			if err != nil {
				return Value{}, err
			}
			f.setLocal(in.Index, updated)
		case bytecode.OpNewObject:
			args := vm.popN(int(in.PosCount))
			names := make([]string, len(args))
			for i := range args {
				names[i] = fmt.Sprintf("_%d", i)
			}
			vm.push(ObjectVal(NewObject("Object", names, args)))
		case bytecode.OpNewList:
			vm.push(ListVal(vm.popN(int(in.PosCount))))
		case bytecode.OpListIndex:
			idx, obj := vm.pop(), vm.pop()
			v, err := listIndex(obj, idx)
			if err != nil {
				return Value{}, err
			}
			vm.push(v)

		case bytecode.OpCheckPre:
			if !vm.pop().Truthy() {
				return Value{}, cverr.Newf(cverr.KindPrecond, "Precondition %d failed in contract '%s'", in.Index, f.contract.Name)
			}
		case bytecode.OpCheckPost:
			if !vm.pop().Truthy() {
				return Value{}, cverr.Newf(cverr.KindPostcond, "Postcondition %d failed in contract '%s'", in.Index, f.contract.Name)
			}
		case bytecode.OpSnapshot:
			f.oldLocals = append([]Value(nil), f.locals...)
		case bytecode.OpBeginOld:
			f.inOld = true
		case bytecode.OpEndOld:
			f.inOld = false

		case bytecode.OpEmitEvent:
			vals := vm.popN(int(in.PosCount))
			vm.events = append(vm.events, Event{Name: vm.mod.Constants[in.Index].String, Values: vals})

		case bytecode.OpHasCapability:
			vm.pop() // subject; capability enforcement is purely static (§4.10)
			vm.push(BoolVal(true))

		case bytecode.OpReturn:
			if len(vm.stack) > f.stackBase {
				return vm.pop(), nil
			}
			return Null(), nil

		case bytecode.OpPrint:
			vals := vm.popN(int(in.PosCount))
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = v.String()
			}
			fmt.Println(joinSpace(parts))
			vm.push(Null())

		default:
			invariant.Unreachable("unknown opcode 0x%02x reached dispatch", byte(in.Op))
		}
	}
	return Null(), nil
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func constToValue(c bytecode.Const) Value {
	switch c.Tag {
	case bytecode.ConstInt:
		return IntVal(c.Int)
	case bytecode.ConstFloat:
		return FloatVal(c.Float)
	case bytecode.ConstString:
		return StringVal(c.String)
	case bytecode.ConstBool:
		return BoolVal(c.Bool)
	default:
		return Null()
	}
}

func arith(op bytecode.Op, l, r Value) (Value, error) {
	if l.Kind == KindInt && r.Kind == KindInt {
		switch op {
		case bytecode.OpAdd:
			sum := l.Int + r.Int
			if (r.Int > 0 && sum < l.Int) || (r.Int < 0 && sum > l.Int) {
				return Value{}, cverr.New(cverr.KindRuntime, "integer overflow in addition")
			}
			return IntVal(sum), nil
		case bytecode.OpSub:
			diff := l.Int - r.Int
			if (r.Int < 0 && diff < l.Int) || (r.Int > 0 && diff > l.Int) {
				return Value{}, cverr.New(cverr.KindRuntime, "integer overflow in subtraction")
			}
			return IntVal(diff), nil
		case bytecode.OpMul:
			if l.Int != 0 && r.Int != 0 {
				prod := l.Int * r.Int
				if prod/r.Int != l.Int {
					return Value{}, cverr.New(cverr.KindRuntime, "integer overflow in multiplication")
				}
				return IntVal(prod), nil
			}
			return IntVal(0), nil
		case bytecode.OpDiv:
			if r.Int == 0 {
				return Value{}, cverr.New(cverr.KindRuntime, "division by zero")
			}
			if l.Int%r.Int == 0 {
				return IntVal(l.Int / r.Int), nil
			}
			return FloatVal(float64(l.Int) / float64(r.Int)), nil
		}
	}

	lf, lok := numeric(l)
	rf, rok := numeric(r)
	if l.Kind == KindString && r.Kind == KindString && op == bytecode.OpAdd {
		return StringVal(l.Str + r.Str), nil
	}
	if !lok || !rok {
		return Value{}, cverr.Newf(cverr.KindRuntime, "cannot apply arithmetic to %s and %s", l.TypeName(), r.TypeName())
	}
	switch op {
	case bytecode.OpAdd:
		return FloatVal(lf + rf), nil
	case bytecode.OpSub:
		return FloatVal(lf - rf), nil
	case bytecode.OpMul:
		return FloatVal(lf * rf), nil
	case bytecode.OpDiv:
		if rf == 0 {
			return Value{}, cverr.New(cverr.KindRuntime, "division by zero")
		}
		return FloatVal(lf / rf), nil
	}
	return Value{}, cverr.Newf(cverr.KindRuntime, "unknown arithmetic opcode %v", op)
}

func numeric(v Value) (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func compare(op bytecode.Op, l, r Value) (bool, error) {
	lf, lok := numeric(l)
	rf, rok := numeric(r)
	if lok && rok {
		switch op {
		case bytecode.OpLt:
			return lf < rf, nil
		case bytecode.OpLe:
			return lf <= rf, nil
		case bytecode.OpGt:
			return lf > rf, nil
		case bytecode.OpGe:
			return lf >= rf, nil
		}
	}
	if l.Kind == KindString && r.Kind == KindString {
		switch op {
		case bytecode.OpLt:
			return l.Str < r.Str, nil
		case bytecode.OpLe:
			return l.Str <= r.Str, nil
		case bytecode.OpGt:
			return l.Str > r.Str, nil
		case bytecode.OpGe:
			return l.Str >= r.Str, nil
		}
	}
	return false, cverr.Newf(cverr.KindRuntime, "cannot compare %s and %s", l.TypeName(), r.TypeName())
}

func getField(obj Value, name string) (Value, error) {
	if obj.Kind != KindObject {
		return Value{}, cverr.Newf(cverr.KindRuntime, "unknown field access %q on non-object %s", name, obj.TypeName())
	}
	v, ok := obj.Object.Fields[name]
	if !ok {
		return Value{}, cverr.Newf(cverr.KindRuntime, "object %q has no field %q", obj.Object.TypeName, name)
	}
	return v, nil
}

// setFieldPath walks root along the dotted path, cloning each level, sets
// the leaf to val, and reassembles the chain bottom-up (§4.10, §9: "rebuild
// the object chain from the leaf up").
func setFieldPath(root Value, path string, val Value) (Value, error) {
	segs := splitPath(path)
	return setFieldRec(root, segs, val)
}

func setFieldRec(node Value, segs []string, val Value) (Value, error) {
	if node.Kind != KindObject {
		return Value{}, cverr.Newf(cverr.KindRuntime, "attempted mutation of a non-object parent (%s)", node.TypeName())
	}
	if len(segs) == 1 {
		return ObjectVal(node.Object.WithField(segs[0], val)), nil
	}
	child, ok := node.Object.Fields[segs[0]]
	if !ok {
		return Value{}, cverr.Newf(cverr.KindRuntime, "object %q has no field %q", node.Object.TypeName, segs[0])
	}
	newChild, err := setFieldRec(child, segs[1:], val)
	if err != nil {
		return Value{}, err
	}
	return ObjectVal(node.Object.WithField(segs[0], newChild)), nil
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}

func listIndex(obj, idx Value) (Value, error) {
	if obj.Kind != KindList {
		return Value{}, cverr.Newf(cverr.KindRuntime, "cannot index non-list %s", obj.TypeName())
	}
	if idx.Kind != KindInt {
		return Value{}, cverr.New(cverr.KindRuntime, "list index must be an Int")
	}
	i := idx.Int
	if i < 0 || i >= int64(len(obj.List)) {
		return Value{}, cverr.Newf(cverr.KindRuntime, "list index %d out of bounds (length %d)", i, len(obj.List))
	}
	return obj.List[i], nil
}
