// Package bytecode defines the instruction set the compiler emits and the
// VM executes: a tagged union of opcodes (§4.3), plus the Program container
// that holds an ordered instruction sequence and its debug symbol table.
package bytecode

import "fmt"

// Op identifies which instruction an Instruction carries. Unlike the
// teacher's single-byte register machine, this machine's instructions carry
// variable-shaped payloads (byte blobs, u64 pairs, routine handles), so Op
// tags a Go struct rather than a flat byte stream.
type Op byte

const (
	LoadBytes Op = iota
	PushGlobalAddr
	PushLocalAddr
	ModifyPtr
	Load
	Save
	Pop
	Allocate
	Deallocate
	Jump
	JumpIfFalse
	FunctionHeader
	FunctionCall
	Return
	BuiltinCall
	Debug
)

var opNames = map[Op]string{
	LoadBytes:      "load_bytes",
	PushGlobalAddr: "push_global_addr",
	PushLocalAddr:  "push_local_addr",
	ModifyPtr:      "modify_ptr",
	Load:           "load",
	Save:           "save",
	Pop:            "pop",
	Allocate:       "allocate",
	Deallocate:     "deallocate",
	Jump:           "jump",
	JumpIfFalse:    "jump_if_false",
	FunctionHeader: "function_header",
	FunctionCall:   "function_call",
	Return:         "return",
	BuiltinCall:    "builtin_call",
	Debug:          "debug",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "?unknown?"
}

// Instruction is one bytecode instruction. Every field is valid only for the
// opcodes that use it; instructions are built exclusively through the
// constructor functions below so a caller can never leave a field
// meaningless for the chosen Op.
type Instruction struct {
	Op Op

	// LoadBytes
	Bytes []byte

	// PushGlobalAddr, PushLocalAddr, Load, Save, Pop, Allocate
	Size uint64

	// Jump, JumpIfFalse: pc-relative delta, resolved from a patch index
	// during compilation (§4.4.3).
	Delta int64

	// FunctionHeader
	Jump uint64

	// FunctionCall
	TargetPC uint64
	ArgsSize uint64

	// Return
	ReturnSize uint64

	// BuiltinCall
	Routine string

	// Debug
	Message string
}

func NewLoadBytes(b []byte) Instruction { return Instruction{Op: LoadBytes, Bytes: b} }
func NewPushGlobalAddr(pos uint64) Instruction {
	return Instruction{Op: PushGlobalAddr, Size: pos}
}
func NewPushLocalAddr(offset uint64) Instruction {
	return Instruction{Op: PushLocalAddr, Size: offset}
}
func NewModifyPtr() Instruction       { return Instruction{Op: ModifyPtr} }
func NewLoad(size uint64) Instruction { return Instruction{Op: Load, Size: size} }
func NewSave(size uint64) Instruction { return Instruction{Op: Save, Size: size} }
func NewPop(size uint64) Instruction  { return Instruction{Op: Pop, Size: size} }
func NewAllocate(elemSize uint64) Instruction {
	return Instruction{Op: Allocate, Size: elemSize}
}
func NewDeallocate() Instruction { return Instruction{Op: Deallocate} }
func NewJump(delta int64) Instruction {
	return Instruction{Op: Jump, Delta: delta}
}
func NewJumpIfFalse(delta int64) Instruction {
	return Instruction{Op: JumpIfFalse, Delta: delta}
}
func NewFunctionHeader(jump uint64) Instruction {
	return Instruction{Op: FunctionHeader, Jump: jump}
}
func NewFunctionCall(targetPC, argsSize uint64) Instruction {
	return Instruction{Op: FunctionCall, TargetPC: targetPC, ArgsSize: argsSize}
}
func NewReturn(size uint64) Instruction {
	return Instruction{Op: Return, ReturnSize: size}
}
func NewBuiltinCall(routine string) Instruction {
	return Instruction{Op: BuiltinCall, Routine: routine}
}
func NewDebug(message string) Instruction {
	return Instruction{Op: Debug, Message: message}
}

// String renders an instruction the way a disassembly listing would: opcode
// name followed by whatever fields apply to it.
func (in Instruction) String() string {
	switch in.Op {
	case LoadBytes:
		return fmt.Sprintf("load_bytes %d", len(in.Bytes))
	case PushGlobalAddr:
		return fmt.Sprintf("push_global_addr %d", in.Size)
	case PushLocalAddr:
		return fmt.Sprintf("push_local_addr %d", in.Size)
	case ModifyPtr:
		return "modify_ptr"
	case Load:
		return fmt.Sprintf("load %d", in.Size)
	case Save:
		return fmt.Sprintf("save %d", in.Size)
	case Pop:
		return fmt.Sprintf("pop %d", in.Size)
	case Allocate:
		return fmt.Sprintf("allocate %d", in.Size)
	case Deallocate:
		return "deallocate"
	case Jump:
		return fmt.Sprintf("jump %+d", in.Delta)
	case JumpIfFalse:
		return fmt.Sprintf("jump_if_false %+d", in.Delta)
	case FunctionHeader:
		return fmt.Sprintf("function_header %d", in.Jump)
	case FunctionCall:
		return fmt.Sprintf("function_call %d %d", in.TargetPC, in.ArgsSize)
	case Return:
		return fmt.Sprintf("return %d", in.ReturnSize)
	case BuiltinCall:
		return fmt.Sprintf("builtin_call %s", in.Routine)
	case Debug:
		return fmt.Sprintf("debug %q", in.Message)
	default:
		return "?unknown?"
	}
}

// Program is the compiler's output: an ordered instruction sequence plus a
// symbol table mapping function names to their FunctionHeader's index. Call
// targets are carried by each FunctionCall's TargetPC; the VM and String do
// not read the symbol table.
type Program struct {
	Instructions []Instruction
	// Symbols maps a function name to the pc of its FunctionHeader
	// instruction. The compiler does not fill it in.
	Symbols map[string]uint64
}

// NewProgram returns an empty program ready for the compiler to append to.
func NewProgram() *Program {
	return &Program{Symbols: make(map[string]uint64)}
}

// Append adds an instruction and returns its pc (index).
func (p *Program) Append(in Instruction) uint64 {
	pc := uint64(len(p.Instructions))
	p.Instructions = append(p.Instructions, in)
	return pc
}

// Len returns the number of instructions in the program.
func (p *Program) Len() uint64 { return uint64(len(p.Instructions)) }

// Patch overwrites the instruction at pc - used to backfill a jump's Delta
// once its target is known (§4.4.3's patch-index protocol).
func (p *Program) Patch(pc uint64, in Instruction) {
	p.Instructions[pc] = in
}

// String renders the full program as a numbered disassembly listing.
func (p *Program) String() string {
	out := ""
	for pc, in := range p.Instructions {
		out += fmt.Sprintf("%4d: %s\n", pc, in.String())
	}
	return out
}
