package bytecode

// ConstTag identifies the runtime type of a constant-pool entry.
type ConstTag byte

const (
	ConstNull   ConstTag = 0
	ConstInt    ConstTag = 1
	ConstFloat  ConstTag = 2
	ConstString ConstTag = 3
	ConstBool   ConstTag = 4
)

// Const is one constant-pool entry, tagged by runtime type (§3.8).
type Const struct {
	Tag    ConstTag
	Int    int64
	Float  float64
	String string
	Bool   bool
}

func NullConst() Const               { return Const{Tag: ConstNull} }
func IntConst(v int64) Const         { return Const{Tag: ConstInt, Int: v} }
func FloatConst(v float64) Const     { return Const{Tag: ConstFloat, Float: v} }
func StringConst(v string) Const     { return Const{Tag: ConstString, String: v} }
func BoolConst(v bool) Const         { return Const{Tag: ConstBool, Bool: v} }

// Instr is one decoded instruction: an opcode plus its fixed operand set.
// Not every field is meaningful for every opcode; the compiler and VM each
// know which fields their opcodes populate.
type Instr struct {
	Op        Op
	Index     uint16 // LOAD_CONST / GET_LOCAL / SET_LOCAL / GET_FIELD / SET_FIELD / EMIT_EVENT / CALL_CONTRACT / CALL_MODULE / CALL_METHOD / NEW_OBJECT / NEW_LIST / CALL_BUILTIN / CHECK_PRE / CHECK_POST / PRINT name/const index or clause number
	PosCount  uint16 // positional argument count
	KwCount   uint16 // keyword argument count
	JumpDelta int32  // relative offset for jump opcodes
	// FieldPath carries the field name for GET_FIELD (single segment), or
	// the full dotted path after the root for SET_FIELD. SET_FIELD pops
	// one value, reads the local at Index (the assignment's root), walks
	// FieldPath cloning each level, sets the leaf, reassembles the chain,
	// and writes the rebuilt tree back into that same local (§4.10).
	// Unused by every other opcode.
	FieldPath string
}

// CompiledContract is one contract's lowered form (§3.8).
type CompiledContract struct {
	Name        string
	ParamNames  []string
	ParamTypes  []string // "Any" when unannotated
	HasReturn   bool
	ReturnType  string
	LocalCount  uint16
	LocalNames  []string
	Code        []Instr
}

// Module is a self-contained compiled program: a deduplicated constant
// pool plus an ordered list of compiled contracts (§3.8).
type Module struct {
	Constants []Const
	Contracts []CompiledContract
}

// IndexOf returns the contract index for name, or -1.
func (m *Module) IndexOf(name string) int {
	for i, c := range m.Contracts {
		if c.Name == name {
			return i
		}
	}
	return -1
}
