// Package compiler lowers an ast.Stmt tree into a bytecode.Program (§4.4):
// expression and statement lowering, the jump-patch protocol for forward
// and backward branches, and symbol tables for functions and locals.
package compiler

import (
	"io"

	"vmcore/internal/ast"
	"vmcore/internal/builtins"
	"vmcore/internal/bytecode"
	"vmcore/internal/diag"
	"vmcore/internal/types"
)

// localVar is one binding in a scope: its byte offset from bp and its type.
type localVar struct {
	offset uint64
	typ    types.Name
}

// scope is a lexical block's locals, plus how many bytes it has reserved on
// the stack - popped in one shot when the block closes.
type scope struct {
	vars map[string]localVar
	size uint64
}

// function is a registered callable: its signature and the pc of its
// FunctionHeader instruction (the call target is entryPC+1, skipping the
// header itself, per §4.4.1).
type function struct {
	sig     types.Signature
	entryPC uint64
}

// loopFrame tracks the innermost enclosing loop so break/continue know
// which placeholder jumps to patch once the loop's bounds are known.
type loopFrame struct {
	beginPC         uint64
	breakPatches    []uint64
	continuePatches []uint64
}

// Compiler holds the CompilerContext state threaded through expression and
// statement lowering.
type Compiler struct {
	program  *bytecode.Program
	store    *types.Store
	registry *builtins.Registry
	stdout   io.Writer

	functions map[string]function
	scopes    []scope
	frameSize uint64
	loops     []loopFrame

	// currentReturnType is the return type of the function currently being
	// lowered, used by bare `return;` and the function epilogue fallback.
	currentReturnType types.Name
	forCounter        int
}

// New returns a compiler ready to lower a tree against store (for record
// field/size lookups) and registry (for builtin overload resolution and the
// lazy list_size/list_at/string-print instantiation). stdout is only used
// to register the string print overloads' output sink.
func New(store *types.Store, registry *builtins.Registry, stdout io.Writer) *Compiler {
	return &Compiler{
		program:   bytecode.NewProgram(),
		store:     store,
		registry:  registry,
		stdout:    stdout,
		functions: make(map[string]function),
	}
}

// Compile lowers root into a complete Program.
func (c *Compiler) Compile(root ast.Stmt) (*bytecode.Program, error) {
	c.pushScope()
	if err := c.compileStmt(root); err != nil {
		return nil, err
	}
	c.popScope()
	return c.program, nil
}

func (c *Compiler) pushScope() {
	c.scopes = append(c.scopes, scope{vars: make(map[string]localVar)})
}

// popScope emits a Pop for whatever bytes the closing scope reserved,
// releasing its locals, and removes it from the scope stack.
func (c *Compiler) popScope() {
	n := len(c.scopes) - 1
	s := c.scopes[n]
	c.scopes = c.scopes[:n]
	c.frameSize -= s.size
	if s.size > 0 {
		c.program.Append(bytecode.NewPop(s.size))
	}
}

// bind declares name at the current frame offset with the given type and
// grows the current scope by its size.
func (c *Compiler) bind(name string, typ types.Name) error {
	size, err := c.store.SizeOf(typ)
	if err != nil {
		return err
	}
	top := &c.scopes[len(c.scopes)-1]
	if top.vars == nil {
		top.vars = make(map[string]localVar)
	}
	top.vars[name] = localVar{offset: c.frameSize, typ: typ}
	top.size += size
	c.frameSize += size
	return nil
}

// resolve looks a local up by name, searching innermost scope outward.
func (c *Compiler) resolve(name string) (localVar, error) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i].vars[name]; ok {
			return v, nil
		}
	}
	return localVar{}, diag.Compilef("", "unknown identifier %q", name)
}

// emitPlaceholderJump appends a jump-family instruction with a sentinel
// delta and returns its pc, to be resolved later via patchJump (§4.4.3).
func (c *Compiler) emitPlaceholderJump(conditional bool) uint64 {
	if conditional {
		return c.program.Append(bytecode.NewJumpIfFalse(0))
	}
	return c.program.Append(bytecode.NewJump(0))
}

// patchJump resolves the jump at pc to land on target, recomputing its
// delta as target_pc - source_pc.
func (c *Compiler) patchJump(pc, target uint64) {
	in := c.program.Instructions[pc]
	delta := int64(target) - int64(pc)
	in.Delta = delta
	c.program.Patch(pc, in)
}

func (c *Compiler) pushLoop() {
	c.loops = append(c.loops, loopFrame{beginPC: c.program.Len()})
}

func (c *Compiler) popLoop(endPC uint64) {
	n := len(c.loops) - 1
	frame := c.loops[n]
	c.loops = c.loops[:n]
	for _, pc := range frame.breakPatches {
		c.patchJump(pc, endPC)
	}
	for _, pc := range frame.continuePatches {
		c.patchJump(pc, frame.beginPC)
	}
}
