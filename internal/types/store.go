package types

import (
	"github.com/pkg/errors"
)

// Store answers size/field/membership questions about every type the
// compiler can see: the seven fundamentals, list and pointer types, and
// user-declared records.
//
// Mirrors original_source's type_store: record names are unique, Add is
// rejected on collision, and SizeOf recurses through record field lists with
// no padding inserted between fields.
type Store struct {
	records map[string][]Field
}

// NewStore returns an empty type store - no records declared yet.
func NewStore() *Store {
	return &Store{records: make(map[string][]Field)}
}

// Add registers a record type with its field list in declaration order.
// Returns an error if the name is already registered.
func (s *Store) Add(name string, fields []Field) error {
	if _, ok := s.records[name]; ok {
		return errors.Errorf("duplicate type declaration: %q", name)
	}
	s.records[name] = fields
	return nil
}

// Contains reports whether t is a fundamental, list, pointer, or a
// registered record.
func (s *Store) Contains(t Name) bool {
	switch t.Kind {
	case KindList, KindPointer:
		return true
	case KindSimple:
		if IsFundamental(t) {
			return true
		}
		_, ok := s.records[t.Simple]
		return ok
	default:
		return false
	}
}

// SizeOf returns the byte size of t: 4 for i32; 8 for i64/u64/f64; 1 for
// char/bool/null; 8 for any pointer; count*SizeOf(inner) for a list; the sum
// of field sizes (no padding) for a record.
func (s *Store) SizeOf(t Name) (uint64, error) {
	if !s.Contains(t) {
		return 0, errors.Errorf("unknown type %q", t)
	}

	switch t.Kind {
	case KindPointer:
		return 8, nil
	case KindList:
		inner, err := s.SizeOf(t.List.Inner)
		if err != nil {
			return 0, err
		}
		return inner * t.List.Count, nil
	}

	if IsFundamental(t) {
		return fundamentalSizes[t.Simple], nil
	}

	var total uint64
	for _, f := range s.records[t.Simple] {
		sz, err := s.SizeOf(f.Type)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

// FieldsOf returns the declared fields of a record type, in declaration
// order, or nil if t is not a registered record.
func (s *Store) FieldsOf(t Name) []Field {
	if t.Kind != KindSimple {
		return nil
	}
	return s.records[t.Simple]
}

// OffsetOf returns the byte offset of field name within record t: the
// running prefix sum of the sizes of the fields declared before it.
func (s *Store) OffsetOf(t Name, field string) (uint64, error) {
	var offset uint64
	for _, f := range s.FieldsOf(t) {
		if f.Name == field {
			return offset, nil
		}
		sz, err := s.SizeOf(f.Type)
		if err != nil {
			return 0, err
		}
		offset += sz
	}
	return 0, errors.Errorf("type %q has no field %q", t, field)
}

// FieldType returns the declared type of field name within record t.
func (s *Store) FieldType(t Name, field string) (Name, error) {
	for _, f := range s.FieldsOf(t) {
		if f.Name == field {
			return f.Type, nil
		}
	}
	return Name{}, errors.Errorf("type %q has no field %q", t, field)
}
