package builtins

import (
	"fmt"
	"io"
	"math"

	"vmcore/internal/types"
	"vmcore/internal/value"
)

// Standard returns the registry of reference built-ins carried over from
// functions.cpp: print/println for every fundamental type plus sqrt. Output
// goes to w - the program's own stdout, kept separate from the VM's
// zerolog debug trace (see AMBIENT STACK's logging split).
func Standard(w io.Writer) *Registry {
	r := NewRegistry()

	registerPrintFamily(r, w, "print", false)
	registerPrintFamily(r, w, "println", true)
	registerSqrt(r)
	RegisterOperators(r)

	return r
}

func registerPrintFamily(r *Registry, w io.Writer, name string, newline bool) {
	line := func(s string) {
		if newline {
			fmt.Fprintln(w, s)
		} else {
			fmt.Fprint(w, s)
		}
	}

	r.Register(name, []types.Name{types.I32Type()}, types.NullType(), func(m Machine) error {
		v := value.DecodeI32(m.Stack().Pop(4))
		line(fmt.Sprintf("%d", v))
		m.Stack().Push(value.Null())
		return nil
	})
	r.Register(name, []types.Name{types.I64Type()}, types.NullType(), func(m Machine) error {
		v := value.DecodeI64(m.Stack().Pop(8))
		line(fmt.Sprintf("%d", v))
		m.Stack().Push(value.Null())
		return nil
	})
	r.Register(name, []types.Name{types.U64Type()}, types.NullType(), func(m Machine) error {
		v := value.DecodeU64(m.Stack().Pop(8))
		line(fmt.Sprintf("%d", v))
		m.Stack().Push(value.Null())
		return nil
	})
	r.Register(name, []types.Name{types.F64Type()}, types.NullType(), func(m Machine) error {
		v := value.DecodeF64(m.Stack().Pop(8))
		line(fmt.Sprintf("%g", v))
		m.Stack().Push(value.Null())
		return nil
	})
	r.Register(name, []types.Name{types.CharType()}, types.NullType(), func(m Machine) error {
		v := m.Stack().Pop(1)[0]
		line(string(rune(v)))
		m.Stack().Push(value.Null())
		return nil
	})
	r.Register(name, []types.Name{types.BoolType()}, types.NullType(), func(m Machine) error {
		v := value.DecodeBool(m.Stack().Pop(1))
		line(fmt.Sprintf("%t", v))
		m.Stack().Push(value.Null())
		return nil
	})
	r.Register(name, []types.Name{types.NullType()}, types.NullType(), func(m Machine) error {
		m.Stack().Pop(1)
		line("null")
		m.Stack().Push(value.Null())
		return nil
	})
}

func registerSqrt(r *Registry) {
	r.Register("sqrt", []types.Name{types.F64Type()}, types.F64Type(), func(m Machine) error {
		v := value.DecodeF64(m.Stack().Pop(8))
		m.Stack().Push(value.EncodeF64(math.Sqrt(v)))
		return nil
	})
}

// EnsureStringPrintOverloads lazily registers print/println for
// List{char, n} - the special case (§4.2) that prints the n characters
// verbatim (newline for println) without a distinct string type. Called by
// the compiler the first time it lowers a print/println call whose sole
// argument has this shape, mirroring the per-instantiation registration
// list_size/list_at already need.
func EnsureStringPrintOverloads(r *Registry, w io.Writer, n uint64) {
	strType := types.List(types.CharType(), n)

	registerStringOverload := func(name string, newline bool) {
		args := []types.Name{strType}
		if r.Has(name, args) {
			return
		}
		r.Register(name, args, types.NullType(), func(m Machine) error {
			chars := m.Stack().Pop(n)
			w.Write(chars)
			if newline {
				fmt.Fprintln(w)
			}
			m.Stack().Push(value.Null())
			return nil
		})
	}

	registerStringOverload("print", false)
	registerStringOverload("println", true)
}

// EnsureListInstantiation lazily registers list_size and list_at for
// &List{elem, n} - used by for-loop desugaring (§4.4.2 supplement). The
// language has no generics, so each concrete (elem, n) shape gets its own
// registration the first time the compiler needs it; the registry key
// already includes n and elem so two shapes never collide.
func EnsureListInstantiation(r *Registry, store *types.Store, elem types.Name, n uint64) error {
	listType := types.List(elem, n)
	ptrType := types.Pointer(listType)
	elemSize, err := store.SizeOf(elem)
	if err != nil {
		return err
	}

	sizeArgs := []types.Name{ptrType}
	if !r.Has("list_size", sizeArgs) {
		r.Register("list_size", sizeArgs, types.U64Type(), func(m Machine) error {
			m.Stack().Pop(8) // pointer argument unused; n is fixed per instantiation
			m.Stack().Push(value.EncodeU64(n))
			return nil
		})
	}

	atArgs := []types.Name{ptrType, types.U64Type()}
	if !r.Has("list_at", atArgs) {
		r.Register("list_at", atArgs, elem, func(m Machine) error {
			idx := value.DecodeU64(m.Stack().Pop(8))
			ptr := value.PtrFromBytes(m.Stack().Pop(8))
			elemPtr := ptr.Add(idx * elemSize)
			m.Stack().Push(m.ReadPtr(elemPtr, elemSize))
			return nil
		})
	}

	return nil
}
