// Package classtable implements the VM-owned map from type-tag to
// method-dictionary described in spec.md §4.5, and the registration
// helpers the stdlib libraries use to populate it.
package classtable

import (
	"fmt"

	"sparkling/internal/value"
)

// Table is a process-wide (per-VM) mapping from type-tag to a
// method-dictionary, itself a HashMap of name -> Func value.
type Table struct {
	classes map[value.Tag]value.Value // each entry is a TagHashMap value
	globals value.Value                // TagHashMap of name -> value, and namespace -> hashmap
}

func New() *Table {
	return &Table{
		classes: make(map[value.Tag]value.Value),
		globals: value.NewHashMap(),
	}
}

func (t *Table) Globals() value.Value { return t.globals }

func (t *Table) classFor(tag value.Tag) value.Value {
	hm, ok := t.classes[tag]
	if !ok {
		hm = value.NewHashMap()
		t.classes[tag] = hm
	}
	return hm
}

// LoadMethods inserts name->fn pairs into the method dictionary for
// tag (spec.md §4.5's `load_methods`).
func (t *Table) LoadMethods(tag value.Tag, fns map[string]value.NativeFn) {
	hm := t.classFor(tag)
	for name, fn := range fns {
		fv := value.NewNativeFunc(name, fn)
		value.HashMapSetStrKey(hm, name, fv)
		value.Release(fv)
	}
}

// AddLibCFuncs registers free functions. When libname is empty the
// functions become global; otherwise they are grouped under a
// namespace map in globals (spec.md §4.5's `addlib_cfuncs`).
func (t *Table) AddLibCFuncs(libname string, fns map[string]value.NativeFn) {
	dest := t.globals
	if libname != "" {
		dest = t.namespace(libname)
	}
	for name, fn := range fns {
		fv := value.NewNativeFunc(name, fn)
		value.HashMapSetStrKey(dest, name, fv)
		value.Release(fv)
	}
}

// AddLibValues registers constants, mirroring AddLibCFuncs for
// non-callable values.
func (t *Table) AddLibValues(libname string, vals map[string]value.Value) {
	dest := t.globals
	if libname != "" {
		dest = t.namespace(libname)
	}
	for name, v := range vals {
		value.HashMapSetStrKey(dest, name, v)
	}
}

func (t *Table) namespace(libname string) value.Value {
	existing := value.HashMapGetStrKey(t.globals, libname)
	if existing.Kind() == value.TagHashMap {
		return existing
	}
	hm := value.NewHashMap()
	value.HashMapSetStrKey(t.globals, libname, hm)
	value.Release(hm)
	return hm
}

// Dispatch looks up a method named m on a receiver of the given tag,
// per spec.md §4.5: "missing method is a runtime error".
func (t *Table) Dispatch(tag value.Tag, method string) (value.Value, error) {
	hm, ok := t.classes[tag]
	if !ok {
		return value.Nil(), fmt.Errorf("type %s has no methods", value.TypeName(tag))
	}
	fn := value.HashMapGetStrKey(hm, method)
	if fn.IsNil() {
		return value.Nil(), fmt.Errorf("%s has no method '%s'", value.TypeName(tag), method)
	}
	return fn, nil
}
