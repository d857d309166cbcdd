package bytecode

// OpCode is the VM's instruction set. It is out of scope for detailed
// design per spec.md §1 (the core only depends on the VM's contract,
// not its ISA); this is a trimmed-down instruction set, adapted from
// the teacher's bytecode.OpCode list, sized to exactly what the
// compiler in internal/compiler emits.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate

	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpNot

	OpPop
	OpDup

	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal

	OpJump
	OpJumpIfFalse
	OpLoop

	OpNewArray // operand: element count; pops N, pushes Array
	OpNewMap   // operand: pair count; pops 2N (key,val,key,val,...), pushes HashMap

	OpGetIndex // pops (collection, key), pushes value
	OpSetIndex // pops (collection, key, value), pushes value

	OpGetField // operand: constant-pool index of a string name; pops receiver, pushes value (hashmap dot-sugar)
	OpSetField // operand: constant-pool index of a string name; pops (receiver, value), pushes value

	OpCall       // operand: argument count; pops (fn, args...), pushes result
	OpCallMethod // operands: constant-pool index of method name, argument count; pops (receiver, args...), pushes result

	OpReturn
)
