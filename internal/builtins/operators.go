package builtins

import (
	"vmcore/internal/types"
	"vmcore/internal/value"
)

// numeric constrains the four fundamental types arithmetic and comparison
// operators are generated over - echoes the teacher's numeric32 constraint,
// widened to this machine's four numeric fundamentals.
type numeric interface {
	~int32 | ~int64 | ~uint64 | ~float64
}

type numericCodec[T numeric] struct {
	size   uint64
	decode func([]byte) T
	encode func(T) []byte
}

// RegisterOperators adds the arithmetic (+ - * / %) and comparison
// (< <= > >= == !=) builtins that binary-operator lowering (§4.4.1)
// dispatches to, for every fundamental numeric type plus bool/char
// equality. && and || are not included - the compiler short-circuits them
// directly with JumpIfFalse/Jump rather than calling out to a builtin.
func RegisterOperators(r *Registry) {
	registerNumericOps(r, types.I32Type(), numericCodec[int32]{4, value.DecodeI32, value.EncodeI32}, true)
	registerNumericOps(r, types.I64Type(), numericCodec[int64]{8, value.DecodeI64, value.EncodeI64}, true)
	registerNumericOps(r, types.U64Type(), numericCodec[uint64]{8, value.DecodeU64, value.EncodeU64}, true)
	registerNumericOps(r, types.F64Type(), numericCodec[float64]{8, value.DecodeF64, value.EncodeF64}, false)

	registerEquality(r, types.BoolType(), 1, func(a, b []byte) bool { return a[0] == b[0] })
	registerEquality(r, types.CharType(), 1, func(a, b []byte) bool { return a[0] == b[0] })

	registerUnaryNumeric(r, types.I32Type(), numericCodec[int32]{4, value.DecodeI32, value.EncodeI32})
	registerUnaryNumeric(r, types.I64Type(), numericCodec[int64]{8, value.DecodeI64, value.EncodeI64})
	registerUnaryNumeric(r, types.F64Type(), numericCodec[float64]{8, value.DecodeF64, value.EncodeF64})

	r.Register("!", []types.Name{types.BoolType()}, types.BoolType(), func(m Machine) error {
		v := value.DecodeBool(m.Stack().Pop(1))
		m.Stack().Push(value.EncodeBool(!v))
		return nil
	})
}

func registerUnaryNumeric[T numeric](r *Registry, t types.Name, c numericCodec[T]) {
	r.Register("-", []types.Name{t}, t, func(m Machine) error {
		v := c.decode(m.Stack().Pop(c.size))
		m.Stack().Push(c.encode(-v))
		return nil
	})
}

func registerNumericOps[T numeric](r *Registry, t types.Name, c numericCodec[T], supportsMod bool) {
	binaryOp := func(name string, fn func(a, b T) T) {
		r.Register(name, []types.Name{t, t}, t, func(m Machine) error {
			b := c.decode(m.Stack().Pop(c.size))
			a := c.decode(m.Stack().Pop(c.size))
			m.Stack().Push(c.encode(fn(a, b)))
			return nil
		})
	}
	binaryOp("+", func(a, b T) T { return a + b })
	binaryOp("-", func(a, b T) T { return a - b })
	binaryOp("*", func(a, b T) T { return a * b })
	binaryOp("/", func(a, b T) T { return a / b })
	if supportsMod {
		binaryOp("%", func(a, b T) T {
			// T is always an integer type here (supportsMod is false for
			// float64), so this constraint is always satisfiable; written
			// via a type switch since Go generics forbid % on T directly
			// without a narrower integer-only constraint.
			return modInt(a, b)
		})
	}

	compareOp := func(name string, fn func(a, b T) bool) {
		r.Register(name, []types.Name{t, t}, types.BoolType(), func(m Machine) error {
			b := c.decode(m.Stack().Pop(c.size))
			a := c.decode(m.Stack().Pop(c.size))
			m.Stack().Push(value.EncodeBool(fn(a, b)))
			return nil
		})
	}
	compareOp("<", func(a, b T) bool { return a < b })
	compareOp("<=", func(a, b T) bool { return a <= b })
	compareOp(">", func(a, b T) bool { return a > b })
	compareOp(">=", func(a, b T) bool { return a >= b })
	compareOp("==", func(a, b T) bool { return a == b })
	compareOp("!=", func(a, b T) bool { return a != b })
}

// modInt implements % for the integer numeric instantiations; never called
// with T=float64 since registerNumericOps only requests it when
// supportsMod is true.
func modInt[T numeric](a, b T) T {
	switch any(a).(type) {
	case int32:
		return T(int32(any(a).(int32)) % int32(any(b).(int32)))
	case int64:
		return T(int64(any(a).(int64)) % int64(any(b).(int64)))
	case uint64:
		return T(uint64(any(a).(uint64)) % uint64(any(b).(uint64)))
	default:
		return a
	}
}

func registerEquality(r *Registry, t types.Name, size uint64, eq func(a, b []byte) bool) {
	r.Register("==", []types.Name{t, t}, types.BoolType(), func(m Machine) error {
		b := m.Stack().Pop(size)
		a := m.Stack().Pop(size)
		m.Stack().Push(value.EncodeBool(eq(a, b)))
		return nil
	})
	r.Register("!=", []types.Name{t, t}, types.BoolType(), func(m Machine) error {
		b := m.Stack().Pop(size)
		a := m.Stack().Pop(size)
		m.Stack().Push(value.EncodeBool(!eq(a, b)))
		return nil
	})
}
