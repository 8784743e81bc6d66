package compiler_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"vmcore/internal/ast"
	"vmcore/internal/builtins"
	"vmcore/internal/compiler"
	"vmcore/internal/examples"
	"vmcore/internal/types"
	"vmcore/internal/value"
	"vmcore/internal/vm"
)

// run compiles root and executes it, returning the VM and its printed output.
func run(t *testing.T, root ast.Stmt) (*vm.VM, string) {
	t.Helper()
	var out bytes.Buffer
	store := types.NewStore()
	registry := builtins.Standard(&out)

	c := compiler.New(store, registry, &out)
	program, err := c.Compile(root)
	require.NoError(t, err)

	machine := vm.New(program, registry, vm.WithStdout(&out))
	require.NoError(t, machine.Run())
	return machine, out.String()
}

func buildExample(t *testing.T, name string) ast.Stmt {
	t.Helper()
	root, err := examples.Build(name)
	require.NoError(t, err)
	return root
}

func TestScenarioArithmeticAndPrintln(t *testing.T) {
	machine, out := run(t, buildExample(t, "arithmetic"))
	require.Equal(t, "42\n", out)
	require.Equal(t, uint64(0), machine.Stack().Len())
	require.Equal(t, uint64(0), machine.BytesInUse())
}

func TestScenarioHeapNewAndDelete(t *testing.T) {
	machine, out := run(t, buildExample(t, "heap"))
	require.Equal(t, "24\n", out)
	require.Equal(t, uint64(0), machine.BytesInUse())
}

func TestScenarioWhileBreak(t *testing.T) {
	_, out := run(t, buildExample(t, "while-break"))
	require.Equal(t, "3\n", out)
}

func TestScenarioNestedFunctionCalls(t *testing.T) {
	machine, out := run(t, buildExample(t, "functions"))
	require.Equal(t, "10\n", out)
	require.Equal(t, uint64(0), machine.Stack().Len())
}

func TestScenarioStructFieldAccess(t *testing.T) {
	vType := types.Simple("V")
	store := types.NewStore()
	require.NoError(t, store.Add("V", []types.Field{
		{Name: "x", Type: types.I64Type()},
		{Name: "y", Type: types.I64Type()},
	}))
	size, err := store.SizeOf(vType)
	require.NoError(t, err)
	require.Equal(t, uint64(16), size)

	_, out := run(t, buildExample(t, "struct-fields"))
	require.Equal(t, "3\n", out)
}

func TestScenarioStringLiteralPrintln(t *testing.T) {
	_, out := run(t, buildExample(t, "string-literal"))
	require.Equal(t, "hi\n", out)
}

// for x in [1, 2, 3] { println(x); } exercises the for-loop desugaring,
// supplementing the six named scenarios above.
func TestForLoopOverListLiteral(t *testing.T) {
	listType := types.List(types.I64Type(), 3)
	elem := func(v int64) ast.Literal { return ast.Literal{Type: types.I64Type(), Bytes: value.EncodeI64(v)} }

	root := ast.Sequence{Stmts: []ast.Stmt{
		ast.Let{Name: "xs", Type: listType, Value: ast.ListLiteral{
			Type: listType, Elements: []ast.Expr{elem(1), elem(2), elem(3)},
		}},
		ast.For{
			Var:       "x",
			ElemType:  types.I64Type(),
			Container: ast.Variable{Type: listType, Name: "xs"},
			Body: ast.Sequence{Stmts: []ast.Stmt{ast.ExprStmt{Expr: ast.Call{
				Type: types.NullType(), Function: "println",
				Args: []ast.Expr{ast.Variable{Type: types.I64Type(), Name: "x"}},
			}}}},
		},
	}}

	machine, out := run(t, root)
	require.Equal(t, "1\n2\n3\n", out)
	require.Equal(t, uint64(0), machine.Stack().Len())
}

// Jump patching: every break/continue placeholder must end compilation with
// a concrete, non-sentinel delta (§8).
func TestBreakContinueJumpsArePatched(t *testing.T) {
	iVar := ast.Variable{Type: types.I64Type(), Name: "i"}
	root := ast.Sequence{Stmts: []ast.Stmt{
		ast.Let{Name: "i", Type: types.I64Type(), Value: ast.Literal{Type: types.I64Type(), Bytes: value.EncodeI64(0)}},
		ast.While{
			Cond: ast.Binary{Type: types.BoolType(), Op: ast.Lt, Left: iVar, Right: ast.Literal{Type: types.I64Type(), Bytes: value.EncodeI64(3)}},
			Body: ast.Sequence{Stmts: []ast.Stmt{
				ast.Continue{},
				ast.Assign{Target: iVar, Value: ast.Binary{
					Type: types.I64Type(), Op: ast.Add, Left: iVar, Right: ast.Literal{Type: types.I64Type(), Bytes: value.EncodeI64(1)},
				}},
			}},
		},
	}}

	store := types.NewStore()
	registry := builtins.Standard(&bytes.Buffer{})
	c := compiler.New(store, registry, &bytes.Buffer{})
	program, err := c.Compile(root)
	require.NoError(t, err)

	for pc, in := range program.Instructions {
		if in.Op.String() == "jump" || in.Op.String() == "jump_if_false" {
			require.NotZero(t, in.Delta, "instruction %d left with a sentinel zero delta", pc)
		}
	}
}
