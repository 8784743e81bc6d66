// Package examples stands in for the absent front end: a small, named set of
// ast.Stmt trees built directly in Go, one per scenario in §8, that the CLI's
// com/run/debug modes operate on via --example.
package examples

import (
	"sort"

	"github.com/pkg/errors"

	"vmcore/internal/ast"
	"vmcore/internal/types"
	"vmcore/internal/value"
)

func seq(stmts ...ast.Stmt) ast.Sequence { return ast.Sequence{Stmts: stmts} }

func lit(t types.Name, b []byte) ast.Literal { return ast.Literal{Type: t, Bytes: b} }

func i64lit(v int64) ast.Literal  { return lit(types.I64Type(), value.EncodeI64(v)) }
func i32lit(v int32) ast.Literal  { return lit(types.I32Type(), value.EncodeI32(v)) }
func u64lit(v uint64) ast.Literal { return lit(types.U64Type(), value.EncodeU64(v)) }

func variable(t types.Name, name string) ast.Variable { return ast.Variable{Type: t, Name: name} }

func printlnCall(arg ast.Expr) ast.ExprStmt {
	return ast.ExprStmt{Expr: ast.Call{
		Type: types.NullType(), Function: "println", Args: []ast.Expr{arg},
	}}
}

// arithmetic: let x: i64 = 40 + 2; println(x);
func arithmetic() ast.Stmt {
	return seq(
		ast.Let{Name: "x", Type: types.I64Type(), Value: ast.Binary{
			Type: types.I64Type(), Op: ast.Add, Left: i64lit(40), Right: i64lit(2),
		}},
		printlnCall(variable(types.I64Type(), "x")),
	)
}

// heap: let p = new i32[3]; p[0]=7; p[1]=8; p[2]=9;
// println(p[0]+p[1]+p[2]); delete p;
func heap() ast.Stmt {
	ptrType := types.Pointer(types.I32Type())
	p := func() ast.Variable { return variable(ptrType, "p") }
	subscript := func(i uint64) ast.Subscript {
		return ast.Subscript{Type: types.I32Type(), Target: p(), Index: u64lit(i)}
	}
	assignElem := func(i uint64, v int32) ast.Assign {
		return ast.Assign{Target: subscript(i), Value: i32lit(v)}
	}
	sum := ast.Binary{
		Type: types.I32Type(), Op: ast.Add,
		Left:  ast.Binary{Type: types.I32Type(), Op: ast.Add, Left: subscript(0), Right: subscript(1)},
		Right: subscript(2),
	}

	return seq(
		ast.Let{Name: "p", Type: ptrType, Value: ast.New{
			Type: ptrType, Elem: types.I32Type(), Count: u64lit(3),
		}},
		assignElem(0, 7),
		assignElem(1, 8),
		assignElem(2, 9),
		printlnCall(sum),
		ast.Delete{Target: p()},
	)
}

// whileBreak: let i = 0; while i < 5 { if i == 3 { break; } i = i + 1; }
// println(i);
func whileBreak() ast.Stmt {
	iVar := variable(types.I64Type(), "i")
	return seq(
		ast.Let{Name: "i", Type: types.I64Type(), Value: i64lit(0)},
		ast.While{
			Cond: ast.Binary{Type: types.BoolType(), Op: ast.Lt, Left: iVar, Right: i64lit(5)},
			Body: seq(
				ast.If{
					Cond: ast.Binary{Type: types.BoolType(), Op: ast.Eq, Left: iVar, Right: i64lit(3)},
					Then: seq(ast.Break{}),
				},
				ast.Assign{Target: iVar, Value: ast.Binary{
					Type: types.I64Type(), Op: ast.Add, Left: iVar, Right: i64lit(1),
				}},
			),
		},
		printlnCall(iVar),
	)
}

// functions: fn add(a: i64, b: i64) -> i64 { return a + b; }
// println(add(add(1,2), add(3,4)));
func functions() ast.Stmt {
	addCall := func(a, b ast.Expr) ast.Call {
		return ast.Call{Type: types.I64Type(), Function: "add", Args: []ast.Expr{a, b}}
	}
	return seq(
		ast.FuncDef{
			Name: "add",
			Params: []types.Field{
				{Name: "a", Type: types.I64Type()},
				{Name: "b", Type: types.I64Type()},
			},
			ReturnType: types.I64Type(),
			Body: seq(ast.Return{Value: ast.Binary{
				Type: types.I64Type(), Op: ast.Add,
				Left:  variable(types.I64Type(), "a"),
				Right: variable(types.I64Type(), "b"),
			}}),
		},
		printlnCall(addCall(addCall(i64lit(1), i64lit(2)), addCall(i64lit(3), i64lit(4)))),
	)
}

// structFields: struct V { x: i64, y: i64 } let v = V{1, 2};
// println(v.x + v.y);
func structFields() ast.Stmt {
	vType := types.Simple("V")
	vVar := variable(vType, "v")
	return seq(
		ast.StructDef{Name: "V", Fields: []types.Field{
			{Name: "x", Type: types.I64Type()},
			{Name: "y", Type: types.I64Type()},
		}},
		ast.Let{Name: "v", Type: vType, Value: ast.ListLiteral{
			Type: vType, Elements: []ast.Expr{i64lit(1), i64lit(2)},
		}},
		printlnCall(ast.Binary{
			Type: types.I64Type(), Op: ast.Add,
			Left:  ast.FieldAccess{Type: types.I64Type(), Target: vVar, Field: "x"},
			Right: ast.FieldAccess{Type: types.I64Type(), Target: vVar, Field: "y"},
		}),
	)
}

// stringLiteral: let s = "hi"; println(s);
func stringLiteral() ast.Stmt {
	strType := types.List(types.CharType(), 2)
	return seq(
		ast.Let{Name: "s", Type: strType, Value: lit(strType, []byte("hi"))},
		printlnCall(variable(strType, "s")),
	)
}

var registry = map[string]func() ast.Stmt{
	"arithmetic":     arithmetic,
	"heap":           heap,
	"while-break":    whileBreak,
	"functions":      functions,
	"struct-fields":  structFields,
	"string-literal": stringLiteral,
}

// Names returns every registered example name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns the ast.Stmt tree registered under name.
func Build(name string) (ast.Stmt, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown example %q (available: %v)", name, Names())
	}
	return fn(), nil
}
