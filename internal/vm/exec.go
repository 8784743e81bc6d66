package vm

import (
	"vmcore/internal/bytecode"
	"vmcore/internal/diag"
	"vmcore/internal/value"
)

const frameHeaderSize = 16

// step executes the instruction at vm.pc and reports whether the program
// has more instructions to run. Mirrors the teacher's execNextInstruction:
// one switch over the opcode, pc advanced as each case dictates.
func (vm *VM) step() (bool, error) {
	if vm.pc >= vm.program.Len() {
		return false, nil
	}

	in := vm.program.Instructions[vm.pc]

	switch in.Op {
	case bytecode.LoadBytes:
		vm.stack.Push(in.Bytes)
		vm.pc++

	case bytecode.PushGlobalAddr:
		p := value.NewStackPtr(in.Size)
		b := p.Bytes()
		vm.stack.Push(b[:])
		vm.pc++

	case bytecode.PushLocalAddr:
		p := value.NewStackPtr(vm.bp + in.Size)
		b := p.Bytes()
		vm.stack.Push(b[:])
		vm.pc++

	case bytecode.ModifyPtr:
		offset := value.DecodeU64(vm.stack.Pop(8))
		ptr := value.PtrFromBytes(vm.stack.Pop(8))
		moved := ptr.Add(offset)
		b := moved.Bytes()
		vm.stack.Push(b[:])
		vm.pc++

	case bytecode.Load:
		ptr := value.PtrFromBytes(vm.stack.Pop(8))
		bytes, err := vm.readChecked(ptr, in.Size)
		if err != nil {
			return false, err
		}
		vm.stack.Push(bytes)
		vm.pc++

	case bytecode.Save:
		ptr := value.PtrFromBytes(vm.stack.Pop(8))
		bytes := vm.stack.Pop(in.Size)
		if err := vm.writePtr(ptr, bytes); err != nil {
			return false, err
		}
		vm.pc++

	case bytecode.Pop:
		vm.stack.Pop(in.Size)
		vm.pc++

	case bytecode.Allocate:
		count := value.DecodeU64(vm.stack.Pop(8))
		size := count * in.Size
		headerOffset := vm.alloc.Allocate(size + 8)
		vm.growHeap(headerOffset + size + 8)
		copy(vm.heap[headerOffset:headerOffset+8], value.EncodeU64(size))
		ptr := value.NewHeapPtr(headerOffset + 8)
		b := ptr.Bytes()
		vm.stack.Push(b[:])
		vm.pc++

	case bytecode.Deallocate:
		ptr := value.PtrFromBytes(vm.stack.Pop(8))
		if !ptr.IsHeap() {
			return false, diag.Runtimef(vm.pc, "deallocate of a non-heap pointer")
		}
		headerOffset := ptr.Offset() - 8
		if headerOffset+8 > uint64(len(vm.heap)) {
			return false, diag.Runtimef(vm.pc, "deallocate reads header out of bounds")
		}
		size := value.DecodeU64(vm.heap[headerOffset : headerOffset+8])
		if err := vm.alloc.Free(headerOffset, size+8); err != nil {
			return false, diag.NewRuntimeError(vm.pc, err)
		}
		vm.pc++

	case bytecode.Jump:
		vm.pc = uint64(int64(vm.pc) + in.Delta)

	case bytecode.JumpIfFalse:
		cond := vm.stack.Pop(1)[0]
		if cond == 0 {
			vm.pc = uint64(int64(vm.pc) + in.Delta)
		} else {
			vm.pc++
		}

	case bytecode.FunctionHeader:
		vm.pc = in.Jump

	case bytecode.FunctionCall:
		newBP := vm.stack.Len() - in.ArgsSize - frameHeaderSize
		vm.stack.Put(newBP, value.EncodeU64(vm.bp))
		vm.stack.Put(newBP+8, value.EncodeU64(vm.pc+1))
		vm.bp = newBP
		vm.pc = in.TargetPC

	case bytecode.Return:
		savedBP := value.DecodeU64(vm.stack.At(vm.bp, 8))
		savedPC := value.DecodeU64(vm.stack.At(vm.bp+8, 8))
		top := vm.stack.Len()
		returned := make([]byte, in.ReturnSize)
		copy(returned, vm.stack.At(top-in.ReturnSize, in.ReturnSize))
		vm.stack.Put(vm.bp, returned)
		vm.stack.Truncate(vm.bp + in.ReturnSize)
		vm.bp = savedBP
		vm.pc = savedPC

	case bytecode.BuiltinCall:
		entry, err := vm.registry.LookupKey(in.Routine)
		if err != nil {
			return false, diag.NewRuntimeError(vm.pc, err)
		}
		if err := entry.Routine(vm); err != nil {
			return false, diag.NewRuntimeError(vm.pc, err)
		}
		vm.pc++

	case bytecode.Debug:
		vm.log.Debug().
			Uint64("pc", vm.pc).
			Uint64("bp", vm.bp).
			Uint64("stack_bytes", vm.stack.Len()).
			Uint64("heap_bytes_in_use", vm.alloc.BytesInUse()).
			Msg(in.Message)
		vm.pc++

	default:
		return false, diag.Runtimef(vm.pc, "unrecognized opcode %v", in.Op)
	}

	return true, nil
}

// readChecked bounds-checks a Load against the length of the region its
// pointer addresses: the stack, or the heap buffer (a read past the heap
// buffer is a load from an unmapped heap region).
func (vm *VM) readChecked(p value.Ptr, size uint64) ([]byte, error) {
	off := p.Offset()
	if p.IsHeap() {
		if off+size > uint64(len(vm.heap)) {
			return nil, diag.Runtimef(vm.pc, "heap load out of range: offset=%d size=%d heap_len=%d", off, size, len(vm.heap))
		}
		out := make([]byte, size)
		copy(out, vm.heap[off:off+size])
		return out, nil
	}
	if off+size > vm.stack.Len() {
		return nil, diag.Runtimef(vm.pc, "stack load out of range: offset=%d size=%d stack_len=%d", off, size, vm.stack.Len())
	}
	out := make([]byte, size)
	copy(out, vm.stack.At(off, size))
	return out, nil
}
