// Package bytecode defines the `.covc` module format (spec §3.8/§4.9):
// constant pool, compiled contracts, opcode table, and binary/debug
// encoders.
package bytecode

// Op is one VM instruction opcode.
type Op byte

const (
	// Constants (0x01-0x06)
	OpLoadConst Op = 0x01
	OpLoadNull  Op = 0x02
	OpLoadTrue  Op = 0x03
	OpLoadFalse Op = 0x04
	OpPop       Op = 0x05
	OpDup       Op = 0x06

	// Locals (0x07-0x08)
	OpGetLocal Op = 0x07
	OpSetLocal Op = 0x08

	// Arithmetic (0x10-0x14)
	OpAdd Op = 0x10
	OpSub Op = 0x11
	OpMul Op = 0x12
	OpDiv Op = 0x13
	OpNeg Op = 0x14

	// Compare (0x20-0x26)
	OpEq  Op = 0x20
	OpNe  Op = 0x21
	OpLt  Op = 0x22
	OpLe  Op = 0x23
	OpGt  Op = 0x24
	OpGe  Op = 0x25
	OpNot Op = 0x26

	// Jumps (0x30-0x35), i32 relative offset operand.
	OpJump        Op = 0x30
	OpJumpIfFalse Op = 0x31
	OpJumpIfTrue  Op = 0x32
	// OpLoopBack closes a for-in/while body with a backward jump; Index
	// distinguishes the iteration cap to enforce at this back-edge
	// (0 = for-in, cap 10,000,000; 1 = while, cap 1,000,000), since the
	// caps themselves don't fit a uint16 operand (§4.10).
	OpLoopBack Op = 0x35

	// Calls (0x40-0x41)
	OpCallContract Op = 0x40
	OpCallBuiltin  Op = 0x41

	// Objects/lists (0x50-0x54)
	OpGetField  Op = 0x50
	OpSetField  Op = 0x51
	OpNewObject Op = 0x52
	OpNewList   Op = 0x53
	OpListIndex Op = 0x54

	// Builtins/stdlib bridge (0x60-0x62)
	OpCallModule Op = 0x60
	OpAnd        Op = 0x61
	OpOr         Op = 0x62

	// Methods (0x63)
	OpCallMethod Op = 0x63

	// Contract enforcement (0x70-0x74)
	OpCheckPre  Op = 0x70
	OpCheckPost Op = 0x71
	OpSnapshot  Op = 0x72
	OpBeginOld  Op = 0x73
	OpEndOld    Op = 0x74

	// Events (0x80)
	OpEmitEvent Op = 0x80

	// Capabilities (0x90)
	OpHasCapability Op = 0x90

	// Control
	OpReturn Op = 0xF0
	OpPrint  Op = 0xF1
)

var opNames = map[Op]string{
	OpLoadConst: "LOAD_CONST", OpLoadNull: "LOAD_NULL", OpLoadTrue: "LOAD_TRUE", OpLoadFalse: "LOAD_FALSE",
	OpPop: "POP", OpDup: "DUP",
	OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpNeg: "NEG",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE", OpNot: "NOT",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE", OpLoopBack: "LOOP_BACK",
	OpCallContract: "CALL_CONTRACT", OpCallBuiltin: "CALL_BUILTIN",
	OpGetField: "GET_FIELD", OpSetField: "SET_FIELD", OpNewObject: "NEW_OBJECT", OpNewList: "NEW_LIST", OpListIndex: "LIST_INDEX",
	OpCallModule: "CALL_MODULE", OpAnd: "AND", OpOr: "OR", OpCallMethod: "CALL_METHOD",
	OpCheckPre: "CHECK_PRE", OpCheckPost: "CHECK_POST", OpSnapshot: "SNAPSHOT", OpBeginOld: "BEGIN_OLD", OpEndOld: "END_OLD",
	OpEmitEvent: "EMIT_EVENT", OpHasCapability: "HAS_CAPABILITY",
	OpReturn: "RETURN", OpPrint: "PRINT",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "UNKNOWN_OP"
}

// IsKnown reports whether o is a recognized opcode; an unknown opcode
// during decoding is a hard error (§4.9).
func IsKnown(o Op) bool {
	_, ok := opNames[o]
	return ok
}
