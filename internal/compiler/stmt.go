package compiler

import (
	"fmt"

	"vmcore/internal/ast"
	"vmcore/internal/builtins"
	"vmcore/internal/bytecode"
	"vmcore/internal/diag"
	"vmcore/internal/types"
	"vmcore/internal/value"
)

// frameHeaderSize is the saved-bp/saved-pc pair every call frame reserves
// before its argument bytes (§4.4.1/§4.5).
const frameHeaderSize = 16

func (c *Compiler) compileStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case ast.Sequence:
		for _, child := range n.Stmts {
			if err := c.compileStmt(child); err != nil {
				return err
			}
		}
		return nil

	case ast.Let:
		if err := c.compileValue(n.Value); err != nil {
			return err
		}
		return c.bind(n.Name, n.Type)

	case ast.Assign:
		targetType := exprType(n.Target)
		valueType := exprType(n.Value)
		if !types.Equal(targetType, valueType) {
			return diag.Compilef("", "cannot assign %s to %s", valueType, targetType)
		}
		if err := c.compileValue(n.Value); err != nil {
			return err
		}
		if err := c.compileAddr(n.Target); err != nil {
			return err
		}
		size, err := c.store.SizeOf(targetType)
		if err != nil {
			return err
		}
		c.program.Append(bytecode.NewSave(size))
		return nil

	case ast.If:
		return c.compileIf(n)

	case ast.While:
		return c.compileWhile(n)

	case ast.For:
		return c.compileFor(n)

	case ast.Break:
		if len(c.loops) == 0 {
			return diag.Compilef("", "break outside of loop")
		}
		pc := c.emitPlaceholderJump(false)
		top := &c.loops[len(c.loops)-1]
		top.breakPatches = append(top.breakPatches, pc)
		return nil

	case ast.Continue:
		if len(c.loops) == 0 {
			return diag.Compilef("", "continue outside of loop")
		}
		pc := c.emitPlaceholderJump(false)
		top := &c.loops[len(c.loops)-1]
		top.continuePatches = append(top.continuePatches, pc)
		return nil

	case ast.StructDef:
		return c.compileStructDef(n)

	case ast.FuncDef:
		return c.compileFuncDef(n)

	case ast.Return:
		return c.compileReturn(n)

	case ast.ExprStmt:
		if err := c.compileValue(n.Expr); err != nil {
			return err
		}
		size, err := c.store.SizeOf(exprType(n.Expr))
		if err != nil {
			return err
		}
		if size > 0 {
			c.program.Append(bytecode.NewPop(size))
		}
		return nil

	case ast.Delete:
		if err := c.compileValue(n.Target); err != nil {
			return err
		}
		c.program.Append(bytecode.NewDeallocate())
		return nil

	default:
		return diag.Compilef("", "unsupported statement node %T", s)
	}
}

func (c *Compiler) compileIf(n ast.If) error {
	if err := c.compileValue(n.Cond); err != nil {
		return err
	}
	elseJump := c.emitPlaceholderJump(true)

	if err := c.compileStmt(n.Then); err != nil {
		return err
	}

	if n.Else == nil {
		c.patchJump(elseJump, c.program.Len())
		return nil
	}

	endJump := c.emitPlaceholderJump(false)
	c.patchJump(elseJump, c.program.Len())
	if err := c.compileStmt(n.Else); err != nil {
		return err
	}
	c.patchJump(endJump, c.program.Len())
	return nil
}

func (c *Compiler) compileWhile(n ast.While) error {
	c.pushLoop()
	beginPC := c.loops[len(c.loops)-1].beginPC

	if err := c.compileValue(n.Cond); err != nil {
		return err
	}
	exitJump := c.emitPlaceholderJump(true)

	if err := c.compileStmt(n.Body); err != nil {
		return err
	}
	backJump := c.emitPlaceholderJump(false)
	c.patchJump(backJump, beginPC)

	endPC := c.program.Len()
	c.patchJump(exitJump, endPC)
	c.popLoop(endPC)
	return nil
}

// compileFor desugars `for x in container { body }` into indexed iteration,
// grounded on original_source/src/compiler.cpp's node_for_stmt: a hidden
// counter walks 0..list_size(container) via list_at, rebinding x each pass.
//
// The loop-begin marker used for both the normal back-edge and for continue
// is the size/index comparison, matching link_up_jumps in the original -
// continue there jumps to the same position a plain while loop's condition
// re-check would, which lands before the counter increment. That is carried
// over here rather than redesigned: continue re-enters the comparison
// without running the increment, same as the source this was ported from.
func (c *Compiler) compileFor(n ast.For) error {
	c.forCounter++
	suffix := fmt.Sprintf("__for%d", c.forCounter)

	c.pushScope() // holds the container pointer, size, and counter locals

	if err := c.compileAddr(n.Container); err != nil {
		return err
	}
	containerType := types.Pointer(exprType(n.Container))
	if err := c.bind("container"+suffix, containerType); err != nil {
		return err
	}

	listType := exprType(n.Container)
	if listType.Kind != types.KindList {
		return diag.Compilef("", "for-loop container must be a list type, got %s", listType)
	}
	if err := builtins.EnsureListInstantiation(c.registry, c.store, n.ElemType, listType.List.Count); err != nil {
		return err
	}

	containerLocal, err := c.resolve("container" + suffix)
	if err != nil {
		return err
	}
	c.program.Append(bytecode.NewPushLocalAddr(containerLocal.offset))
	c.program.Append(bytecode.NewLoad(8))
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key("list_size", []types.Name{containerType})))
	if err := c.bind("size"+suffix, types.U64Type()); err != nil {
		return err
	}

	c.program.Append(bytecode.NewLoadBytes(value.EncodeU64(0)))
	if err := c.bind("counter"+suffix, types.U64Type()); err != nil {
		return err
	}

	c.pushLoop()
	beginPC := c.loops[len(c.loops)-1].beginPC

	counterLocal, err := c.resolve("counter" + suffix)
	if err != nil {
		return err
	}
	sizeLocal, err := c.resolve("size" + suffix)
	if err != nil {
		return err
	}

	c.program.Append(bytecode.NewPushLocalAddr(counterLocal.offset))
	c.program.Append(bytecode.NewLoad(8))
	c.program.Append(bytecode.NewPushLocalAddr(sizeLocal.offset))
	c.program.Append(bytecode.NewLoad(8))
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key("!=", []types.Name{types.U64Type(), types.U64Type()})))
	exitJump := c.emitPlaceholderJump(true)

	c.pushScope()
	c.program.Append(bytecode.NewPushLocalAddr(containerLocal.offset))
	c.program.Append(bytecode.NewLoad(8))
	c.program.Append(bytecode.NewPushLocalAddr(counterLocal.offset))
	c.program.Append(bytecode.NewLoad(8))
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key("list_at", []types.Name{containerType, types.U64Type()})))
	if err := c.bind(n.Var, n.ElemType); err != nil {
		return err
	}
	if err := c.compileStmt(n.Body); err != nil {
		return err
	}
	c.popScope()

	// counter = counter + 1
	c.program.Append(bytecode.NewPushLocalAddr(counterLocal.offset))
	c.program.Append(bytecode.NewLoad(8))
	c.program.Append(bytecode.NewLoadBytes(value.EncodeU64(1)))
	c.program.Append(bytecode.NewBuiltinCall(builtins.Key("+", []types.Name{types.U64Type(), types.U64Type()})))
	c.program.Append(bytecode.NewPushLocalAddr(counterLocal.offset))
	c.program.Append(bytecode.NewSave(8))

	backJump := c.emitPlaceholderJump(false)
	c.patchJump(backJump, beginPC)

	endPC := c.program.Len()
	c.patchJump(exitJump, endPC)
	c.popLoop(endPC)

	c.popScope() // container/size/counter
	return nil
}

func (c *Compiler) compileStructDef(n ast.StructDef) error {
	if err := c.store.Add(n.Name, n.Fields); err != nil {
		return err
	}
	for _, m := range n.Methods {
		named := *m
		named.Name = n.Name + "::" + m.Name
		if err := c.compileFuncDef(named); err != nil {
			return err
		}
	}
	return nil
}

// compileFuncDef lowers a function declaration. The header placeholder is
// appended and functions[name] recorded before the body is compiled, so a
// recursive call inside the body resolves - grounded on
// original_source/src/compiler.cpp emplacing into ctx.functions immediately
// after the header, ahead of compiling the body.
func (c *Compiler) compileFuncDef(n ast.FuncDef) error {
	headerPC := c.program.Append(bytecode.NewFunctionHeader(0))
	entryPC := headerPC

	c.functions[n.Name] = function{
		sig:     types.Signature{Params: n.Params, ReturnType: n.ReturnType},
		entryPC: entryPC,
	}

	savedFrameSize := c.frameSize
	savedReturnType := c.currentReturnType
	savedScopes := c.scopes
	c.frameSize = frameHeaderSize
	c.currentReturnType = n.ReturnType
	c.scopes = nil

	c.pushScope()
	for _, p := range n.Params {
		if err := c.bind(p.Name, p.Type); err != nil {
			return err
		}
	}

	if err := c.compileStmt(n.Body); err != nil {
		return err
	}

	if !endsInReturn(n.Body) {
		retSize, err := c.store.SizeOf(n.ReturnType)
		if err != nil {
			return err
		}
		if retSize > 0 {
			c.program.Append(bytecode.NewLoadBytes(make([]byte, retSize)))
		}
		c.program.Append(bytecode.NewReturn(retSize))
	}

	c.popScope()
	c.scopes = savedScopes
	c.frameSize = savedFrameSize
	c.currentReturnType = savedReturnType

	c.program.Patch(headerPC, bytecode.NewFunctionHeader(c.program.Len()))
	return nil
}

// endsInReturn reports whether s's last statement is a Return, so
// compileFuncDef knows whether to synthesize a fallback epilogue.
func endsInReturn(s ast.Stmt) bool {
	seq, ok := s.(ast.Sequence)
	if !ok {
		_, isReturn := s.(ast.Return)
		return isReturn
	}
	if len(seq.Stmts) == 0 {
		return false
	}
	_, isReturn := seq.Stmts[len(seq.Stmts)-1].(ast.Return)
	return isReturn
}

func (c *Compiler) compileReturn(n ast.Return) error {
	var size uint64
	if n.Value != nil {
		if err := c.compileValue(n.Value); err != nil {
			return err
		}
		var err error
		size, err = c.store.SizeOf(exprType(n.Value))
		if err != nil {
			return err
		}
	} else {
		c.program.Append(bytecode.NewLoadBytes(value.Null()))
		size = 1
	}
	c.program.Append(bytecode.NewReturn(size))
	return nil
}
