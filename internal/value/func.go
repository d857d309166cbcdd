package value

// NativeFn is the native-callable ABI of spec.md §4.7/§9: the host
// function receives its arguments and an opaque context handle and
// returns a result plus an error. A non-nil error is equivalent to a
// nonzero status; the caller (the VM) is responsible for turning it
// into a runtime error message if the callable didn't already report
// one more specifically.
type NativeFn func(args []Value, ctx any) (Value, error)

// Closure is the minimum a bytecode closure needs to be callable
// through the same ABI as a native function: the VM's own Chunk type
// is opaque here to avoid import cycles, so it is carried as `any` and
// type-asserted by internal/vmcore.
type Closure struct {
	Chunk any
	Name  string
	Arity int
}

// FuncBody is the payload of a TagFunc object: either a bytecode
// closure or a native callable, never both (spec.md §3).
type FuncBody struct {
	Name    string
	Native  NativeFn
	Closure *Closure
}

var funcDescriptor = &Descriptor{
	Tag:  TagFunc,
	Name: "function",
	Destroy: func(o *Object) {
		o.body = nil
	},
	Equals: func(a, b *Object) bool { return a == b },
}

func NewNativeFunc(name string, fn NativeFn) Value {
	return fromObject(TagFunc, newObject(funcDescriptor, &FuncBody{Name: name, Native: fn}))
}

func NewClosureFunc(c *Closure) Value {
	return fromObject(TagFunc, newObject(funcDescriptor, &FuncBody{Name: c.Name, Closure: c}))
}

func FuncInfo(v Value) *FuncBody { return v.obj.body.(*FuncBody) }

func IsNative(v Value) bool { return FuncInfo(v).Native != nil }
