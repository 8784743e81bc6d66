package compiler

import (
	"vmcore/internal/ast"
	"vmcore/internal/builtins"
	"vmcore/internal/bytecode"
	"vmcore/internal/diag"
	"vmcore/internal/types"
	"vmcore/internal/value"
)

// exprType extracts the static type every expression node already carries
// (§3H - the compiler never infers, only looks up).
func exprType(e ast.Expr) types.Name {
	switch n := e.(type) {
	case ast.Literal:
		return n.Type
	case ast.Variable:
		return n.Type
	case ast.FieldAccess:
		return n.Type
	case ast.Subscript:
		return n.Type
	case ast.Deref:
		return n.Type
	case ast.AddressOf:
		return n.Type
	case ast.Unary:
		return n.Type
	case ast.Binary:
		return n.Type
	case ast.ListLiteral:
		return n.Type
	case ast.RepeatList:
		return n.Type
	case ast.New:
		return n.Type
	case ast.Sizeof:
		return types.U64Type()
	case ast.Call:
		return n.Type
	case ast.MethodCall:
		return n.Type
	default:
		return types.NullType()
	}
}

// compileValue lowers e so its value is left as the top bytes of the stack.
func (c *Compiler) compileValue(e ast.Expr) error {
	switch n := e.(type) {
	case ast.Literal:
		c.program.Append(bytecode.NewLoadBytes(n.Bytes))
		return nil

	case ast.Variable:
		if err := c.compileAddr(e); err != nil {
			return err
		}
		size, err := c.store.SizeOf(n.Type)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewLoad(size))
		return nil

	case ast.FieldAccess:
		if err := c.compileFieldAddr(n); err != nil {
			return err
		}
		size, err := c.store.SizeOf(n.Type)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewLoad(size))
		return nil

	case ast.Subscript:
		if err := c.compileSubscriptAddr(n); err != nil {
			return err
		}
		size, err := c.store.SizeOf(n.Type)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewLoad(size))
		return nil

	case ast.Deref:
		if err := c.compileValue(n.Target); err != nil {
			return err
		}
		size, err := c.store.SizeOf(n.Type)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewLoad(size))
		return nil

	case ast.AddressOf:
		return c.compileAddr(n.Target)

	case ast.Unary:
		return c.compileUnary(n)

	case ast.Binary:
		return c.compileBinary(n)

	case ast.ListLiteral:
		for _, elem := range n.Elements {
			if err := c.compileValue(elem); err != nil {
				return err
			}
		}
		return nil

	case ast.RepeatList:
		for i := uint64(0); i < n.Count; i++ {
			if err := c.compileValue(n.Elem); err != nil {
				return err
			}
		}
		return nil

	case ast.New:
		if err := c.compileValue(n.Count); err != nil {
			return err
		}
		elemSize, err := c.store.SizeOf(n.Elem)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewAllocate(elemSize))
		return nil

	case ast.Sizeof:
		size, err := c.store.SizeOf(n.Operand)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewLoadBytes(value.EncodeU64(size)))
		return nil

	case ast.Call:
		return c.compileCall(n)

	case ast.MethodCall:
		return c.compileMethodCall(n)

	default:
		return diag.Compilef("", "unsupported expression node %T", e)
	}
}

// compileAddr lowers e as an lvalue: the result is an address, not a value
// (the trailing Load that compileValue would emit is omitted).
func (c *Compiler) compileAddr(e ast.Expr) error {
	switch n := e.(type) {
	case ast.Variable:
		local, err := c.resolve(n.Name)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewPushLocalAddr(local.offset))
		return nil

	case ast.FieldAccess:
		return c.compileFieldAddr(n)

	case ast.Subscript:
		return c.compileSubscriptAddr(n)

	case ast.Deref:
		// &*e == e: the lvalue of a deref is simply the pointer value.
		return c.compileValue(n.Target)

	default:
		return diag.Compilef("", "expression %T is not an lvalue", e)
	}
}

// compileBaseAddr lowers the base of a field/subscript expression to the
// address its byte offset should be added to. A pointer-typed base (e.g. a
// heap pointer from `new`, or a pointer receiver inside a method) is lowered
// as a value - the pointer itself is the base address. Any other base is an
// inline aggregate (a stack-resident list/struct), so its address is the
// address of its own storage.
func (c *Compiler) compileBaseAddr(target ast.Expr) error {
	if exprType(target).Kind == types.KindPointer {
		return c.compileValue(target)
	}
	return c.compileAddr(target)
}

func (c *Compiler) compileFieldAddr(n ast.FieldAccess) error {
	if err := c.compileBaseAddr(n.Target); err != nil {
		return err
	}
	targetType := exprType(n.Target)
	if targetType.Kind == types.KindPointer {
		targetType = types.Inner(targetType)
	}
	offset, err := c.store.OffsetOf(targetType, n.Field)
	if err != nil {
		return err
	}
	c.program.Append(bytecode.NewLoadBytes(value.EncodeU64(offset)))
	c.program.Append(bytecode.NewModifyPtr())
	return nil
}

func (c *Compiler) compileSubscriptAddr(n ast.Subscript) error {
	if err := c.compileBaseAddr(n.Target); err != nil {
		return err
	}
	if err := c.compileValue(n.Index); err != nil {
		return err
	}
	elemSize, err := c.store.SizeOf(n.Type)
	if err != nil {
		return err
	}
	c.program.Append(bytecode.NewLoadBytes(value.EncodeU64(elemSize)))
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key("*", []types.Name{types.U64Type(), types.U64Type()})))
	c.program.Append(bytecode.NewModifyPtr())
	return nil
}

func (c *Compiler) compileUnary(n ast.Unary) error {
	operandType := exprType(n.Operand)
	if _, err := c.registry.Lookup(string(n.Op), []types.Name{operandType}); err != nil {
		return diag.Compilef("", "operator %s%s: %s", n.Op, operandType, err)
	}
	if err := c.compileValue(n.Operand); err != nil {
		return err
	}
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key(string(n.Op), []types.Name{operandType})))
	return nil
}

func (c *Compiler) compileBinary(n ast.Binary) error {
	if n.Op == ast.And || n.Op == ast.Or {
		return c.compileShortCircuit(n)
	}

	leftType := exprType(n.Left)
	rightType := exprType(n.Right)
	if _, err := c.registry.Lookup(string(n.Op), []types.Name{leftType, rightType}); err != nil {
		return diag.Compilef("", "operator %s %s %s: %s", leftType, n.Op, rightType, err)
	}

	if err := c.compileValue(n.Left); err != nil {
		return err
	}
	if err := c.compileValue(n.Right); err != nil {
		return err
	}
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key(string(n.Op), []types.Name{leftType, rightType})))
	return nil
}

// compileShortCircuit lowers && and || with JumpIfFalse/Jump so the right
// operand is skipped once the left side already determines the result
// (§4.4.1).
func (c *Compiler) compileShortCircuit(n ast.Binary) error {
	if err := c.compileValue(n.Left); err != nil {
		return err
	}

	if n.Op == ast.And {
		// if left is false, short-circuit to false without evaluating right.
		shortCircuitJump := c.emitPlaceholderJump(true)
		if err := c.compileValue(n.Right); err != nil {
			return err
		}
		endJump := c.emitPlaceholderJump(false)
		c.patchJump(shortCircuitJump, c.program.Len())
		c.program.Append(bytecode.NewLoadBytes(value.EncodeBool(false)))
		c.patchJump(endJump, c.program.Len())
		return nil
	}

	// Or: if left is true, short-circuit to true without evaluating right.
	// JumpIfFalse on !left would need a negation, so invert by jumping over
	// the short-circuit path when left is false.
	jumpIfLeftFalse := c.emitPlaceholderJump(true)
	c.program.Append(bytecode.NewLoadBytes(value.EncodeBool(true)))
	endJump := c.emitPlaceholderJump(false)
	c.patchJump(jumpIfLeftFalse, c.program.Len())
	if err := c.compileValue(n.Right); err != nil {
		return err
	}
	c.patchJump(endJump, c.program.Len())
	return nil
}

func (c *Compiler) compileCall(n ast.Call) error {
	if fn, ok := c.functions[n.Function]; ok {
		return c.compileUserCall(fn, n.Args)
	}

	argTypes := make([]types.Name, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = exprType(a)
	}
	if err := c.ensureBuiltinInstantiation(n.Function, argTypes); err != nil {
		return err
	}
	if _, err := c.registry.Lookup(n.Function, argTypes); err != nil {
		return diag.Compilef("", "call to %s%v: %s", n.Function, argTypes, err)
	}
	for _, a := range n.Args {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key(n.Function, argTypes)))
	return nil
}

// compileUserCall lowers a call to a compiler-defined function: reserve the
// 16-byte frame header, push arguments in order, then FunctionCall with
// args_size counting only the argument bytes (see DESIGN.md for why this
// differs from the distilled spec's literal "+frame_header_size" phrasing).
func (c *Compiler) compileUserCall(fn function, args []ast.Expr) error {
	c.program.Append(bytecode.NewLoadBytes(make([]byte, frameHeaderSize)))

	var argsSize uint64
	for i, a := range args {
		if err := c.compileValue(a); err != nil {
			return err
		}
		size, err := c.store.SizeOf(fn.sig.Params[i].Type)
		if err != nil {
			return err
		}
		argsSize += size
	}

	c.program.Append(bytecode.NewFunctionCall(fn.entryPC+1, argsSize))
	return nil
}

func (c *Compiler) compileMethodCall(n ast.MethodCall) error {
	name := n.Struct + "::" + n.Method
	fn, ok := c.functions[name]
	if !ok {
		return diag.Compilef("", "unknown method %s", name)
	}
	args := append([]ast.Expr{ast.AddressOf{Type: types.Pointer(exprType(n.Receiver)), Target: n.Receiver}}, n.Args...)
	return c.compileUserCall(fn, args)
}

// ensureBuiltinInstantiation lazily registers the per-shape overloads that
// don't exist until the compiler has seen a concrete type: print/println
// over a string literal's List{char,n}, and the list_size/list_at
// for-loop-desugaring helpers (see EnsureListInstantiation).
func (c *Compiler) ensureBuiltinInstantiation(name string, argTypes []types.Name) error {
	if (name == "print" || name == "println") && len(argTypes) == 1 && argTypes[0].Kind == types.KindList && types.Equal(argTypes[0].List.Inner, types.CharType()) {
		builtins.EnsureStringPrintOverloads(c.registry, c.stdout, argTypes[0].List.Count)
	}
	return nil
}
