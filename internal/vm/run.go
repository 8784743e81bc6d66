package vm

// Run executes the program to completion (or until a runtime error),
// returning that error if execution did not finish cleanly. A nonzero
// BytesInUse afterward is logged as a warning, not returned as an error
// (§7.3 - the resource leak is diagnostic only).
func (vm *VM) Run() error {
	for {
		more, err := vm.step()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	vm.warnOnLeak()
	return nil
}

// RunDebug runs the program one instruction at a time, emitting a trace
// line before each step - the `debug` CLI mode's per-instruction tracing
// (§6).
func (vm *VM) RunDebug() error {
	for {
		if vm.pc >= vm.program.Len() {
			break
		}
		in := vm.program.Instructions[vm.pc]
		vm.log.Info().
			Uint64("pc", vm.pc).
			Str("op", in.String()).
			Uint64("stack_bytes", vm.stack.Len()).
			Uint64("heap_bytes_in_use", vm.alloc.BytesInUse()).
			Msg("step")

		more, err := vm.step()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	vm.warnOnLeak()
	return nil
}

func (vm *VM) warnOnLeak() {
	if n := vm.alloc.BytesInUse(); n > 0 {
		vm.log.Warn().Uint64("bytes_in_use", n).Msg("heap allocation leaked past program end")
	}
}
