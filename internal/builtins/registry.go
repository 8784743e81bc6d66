// Package builtins holds the native-routine registry (§4.2): a process-wide
// table from (name, argument types) to a routine that mutates the VM's
// ByteStack in place, plus the reference bodies carried over from
// functions.cpp (print/println per fundamental type and the string
// special case, sqrt, list_size/list_at).
package builtins

import (
	"fmt"

	"github.com/pkg/errors"

	"vmcore/internal/types"
	"vmcore/internal/value"
)

// Machine is the minimal VM surface a builtin routine needs: its evaluation
// stack (to read arguments off the top and push a return value), plus
// pointer-addressed reads spanning both stack and heap regions - needed by
// list_at/list_size, whose sole argument is a pointer that may address
// either region depending on its tag bit.
type Machine interface {
	Stack() *ByteStack
	ReadPtr(p value.Ptr, n uint64) []byte
}

// Routine is a native function's implementation. It reads its arguments off
// the top of the stack (the caller pushed them in declaration order), pops
// their encoded bytes, and pushes the encoded return value.
type Routine func(m Machine) error

// Entry is what the registry returns for a resolved (name, args) lookup.
type Entry struct {
	Routine    Routine
	ReturnType types.Name
}

// key is the registry's lookup key: a name plus its full ordered argument
// type list, rendered to a string so two distinct Name values that are
// structurally equal collide on purpose (overload resolution is exact
// match, §4.2).
type key struct {
	name string
	args string
}

func makeKey(name string, args []types.Name) key {
	sig := ""
	for _, a := range args {
		sig += a.String() + ","
	}
	return key{name: name, args: sig}
}

// Key renders (name, args) as the flat string the compiler bakes into a
// BuiltinCall instruction's Routine field - overload resolution happens
// once, at compile time, against this same encoding.
func Key(name string, args []types.Name) string {
	k := makeKey(name, args)
	return k.name + "$" + k.args
}

// Registry is the process-wide built-in table. Standard fills it once; after
// that it only grows through the lazy per-shape registrations
// (EnsureStringPrintOverloads, EnsureListInstantiation) the compiler makes.
// There is no freeze step.
type Registry struct {
	entries  map[key]Entry
	byString map[string]Entry
}

// NewRegistry returns an empty registry. Use Standard for the reference
// built-ins; NewRegistry exists for tests that want a minimal table.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]Entry), byString: make(map[string]Entry)}
}

// Register adds routine under (name, args). Re-registering the same
// (name, args) pair overwrites the previous entry; the lazy per-shape
// registrations check Has first and so never re-register.
func (r *Registry) Register(name string, args []types.Name, returnType types.Name, routine Routine) {
	k := makeKey(name, args)
	e := Entry{Routine: routine, ReturnType: returnType}
	r.entries[k] = e
	r.byString[k.name+"$"+k.args] = e
}

// Has reports whether (name, args) is already registered - used by the
// list_size/list_at lazy per-instantiation path to avoid re-registering.
func (r *Registry) Has(name string, args []types.Name) bool {
	_, ok := r.entries[makeKey(name, args)]
	return ok
}

// Lookup resolves (name, args) to its entry. Overload resolution is exact
// match on the full argument type list; no implicit conversions.
func (r *Registry) Lookup(name string, args []types.Name) (Entry, error) {
	e, ok := r.entries[makeKey(name, args)]
	if !ok {
		return Entry{}, errors.Errorf("no builtin matches %s%s", name, fmt.Sprintf("%v", args))
	}
	return e, nil
}

// LookupKey resolves a combined key string produced by Key - what the VM
// uses at runtime to dispatch a BuiltinCall instruction without
// reconstructing the argument type list.
func (r *Registry) LookupKey(k string) (Entry, error) {
	e, ok := r.byString[k]
	if !ok {
		return Entry{}, errors.Errorf("no builtin registered for key %q", k)
	}
	return e, nil
}
