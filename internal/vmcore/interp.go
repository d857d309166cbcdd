package vmcore

import (
	"fmt"

	"sparkling/internal/bytecode"
	"sparkling/internal/value"
)

// runChunk executes one Chunk (the top level, or a closure body) to
// completion and returns its result. Locals live in a per-call slice
// indexed by slot, grown on demand since the compiler does not record
// a fixed local count; the operand stack is likewise per-call.
func (vm *VM) runChunk(chunk *bytecode.Chunk, args []value.Value) (value.Value, error) {
	locals := make([]value.Value, chunk.Arity)
	for i := range locals {
		if i < len(args) {
			value.Retain(args[i])
			locals[i] = args[i]
		} else {
			locals[i] = value.Nil()
		}
	}
	defer func() {
		for _, l := range locals {
			value.Release(l)
		}
	}()

	growLocals := func(slot int) {
		if slot < len(locals) {
			return
		}
		grown := make([]value.Value, slot+1)
		copy(grown, locals)
		for i := len(locals); i <= slot; i++ {
			grown[i] = value.Nil()
		}
		locals = grown
	}

	var stack []value.Value
	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() value.Value {
		n := len(stack) - 1
		v := stack[n]
		stack = stack[:n]
		return v
	}

	code := chunk.Code
	ip := 0

	for ip < len(code) {
		op := bytecode.OpCode(code[ip])
		ip++

		switch op {
		case bytecode.OpConstant:
			idx := bytecode.ReadUint16(code, ip)
			ip += 2
			push(chunk.Constants[idx])

		case bytecode.OpNil:
			push(value.Nil())
		case bytecode.OpTrue:
			push(value.Bool(true))
		case bytecode.OpFalse:
			push(value.Bool(false))

		case bytecode.OpPop:
			pop()
		case bytecode.OpDup:
			push(stack[len(stack)-1])

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			b := pop()
			a := pop()
			result, err := arith(op, a, b)
			if err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			push(result)

		case bytecode.OpNegate:
			a := pop()
			switch a.Kind() {
			case value.TagInt:
				push(value.Int(-a.AsInt()))
			case value.TagFloat:
				push(value.Float(-a.AsFloat()))
			default:
				return value.Nil(), vm.setRuntimeErr(fmt.Errorf("cannot negate a %s value", value.TypeName(a.Kind())))
			}

		case bytecode.OpNot:
			a := pop()
			push(value.Bool(!a.Truthy()))

		case bytecode.OpEqual:
			b := pop()
			a := pop()
			push(value.Bool(value.Equals(a, b)))
		case bytecode.OpNotEqual:
			b := pop()
			a := pop()
			push(value.Bool(!value.Equals(a, b)))

		case bytecode.OpGreater, bytecode.OpGreaterEqual, bytecode.OpLess, bytecode.OpLessEqual:
			b := pop()
			a := pop()
			result, err := compareOp(op, a, b)
			if err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			push(value.Bool(result))

		case bytecode.OpDefineGlobal:
			idx := bytecode.ReadUint16(code, ip)
			ip += 2
			name := string(value.Bytes(chunk.Constants[idx]))
			val := pop()
			if err := value.HashMapSetStrKey(vm.classes.Globals(), name, val); err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}

		case bytecode.OpGetGlobal:
			idx := bytecode.ReadUint16(code, ip)
			ip += 2
			name := string(value.Bytes(chunk.Constants[idx]))
			val := value.HashMapGetStrKey(vm.classes.Globals(), name)
			push(val)

		case bytecode.OpSetGlobal:
			idx := bytecode.ReadUint16(code, ip)
			ip += 2
			name := string(value.Bytes(chunk.Constants[idx]))
			val := pop()
			if err := value.HashMapSetStrKey(vm.classes.Globals(), name, val); err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			push(val)

		case bytecode.OpGetLocal:
			slot := int(bytecode.ReadUint16(code, ip))
			ip += 2
			growLocals(slot)
			push(locals[slot])

		case bytecode.OpSetLocal:
			slot := int(bytecode.ReadUint16(code, ip))
			ip += 2
			growLocals(slot)
			val := pop()
			value.Retain(val)
			old := locals[slot]
			locals[slot] = val
			value.Release(old)
			push(val)

		case bytecode.OpJump:
			ip = int(bytecode.ReadUint16(code, ip))
		case bytecode.OpJumpIfFalse:
			target := int(bytecode.ReadUint16(code, ip))
			ip += 2
			if !pop().Truthy() {
				ip = target
			}
		case bytecode.OpLoop:
			ip = int(bytecode.ReadUint16(code, ip))

		case bytecode.OpNewArray:
			n := int(bytecode.ReadUint16(code, ip))
			ip += 2
			elems := stack[len(stack)-n:]
			arr := value.NewArrayFrom(elems)
			stack = stack[:len(stack)-n]
			push(arr)

		case bytecode.OpNewMap:
			n := int(bytecode.ReadUint16(code, ip))
			ip += 2
			pairs := stack[len(stack)-2*n:]
			hm := value.NewHashMap()
			for i := 0; i < n; i++ {
				k, v := pairs[2*i], pairs[2*i+1]
				if err := value.HashMapSet(hm, k, v); err != nil {
					return value.Nil(), vm.setRuntimeErr(err)
				}
			}
			stack = stack[:len(stack)-2*n]
			push(hm)

		case bytecode.OpGetIndex:
			key := pop()
			recv := pop()
			result, err := getIndex(recv, key)
			if err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			push(result)

		case bytecode.OpSetIndex:
			val := pop()
			key := pop()
			recv := pop()
			if err := setIndex(recv, key, val); err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			push(val)

		case bytecode.OpGetField:
			idx := bytecode.ReadUint16(code, ip)
			ip += 2
			recv := pop()
			name := string(value.Bytes(chunk.Constants[idx]))
			if recv.Kind() != value.TagHashMap {
				return value.Nil(), vm.setRuntimeErr(fmt.Errorf("cannot access field %q of a %s value", name, value.TypeName(recv.Kind())))
			}
			push(value.HashMapGetStrKey(recv, name))

		case bytecode.OpSetField:
			idx := bytecode.ReadUint16(code, ip)
			ip += 2
			val := pop()
			recv := pop()
			name := string(value.Bytes(chunk.Constants[idx]))
			if recv.Kind() != value.TagHashMap {
				return value.Nil(), vm.setRuntimeErr(fmt.Errorf("cannot set field %q of a %s value", name, value.TypeName(recv.Kind())))
			}
			if err := value.HashMapSetStrKey(recv, name, val); err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			push(val)

		case bytecode.OpCall:
			argc := int(bytecode.ReadUint16(code, ip))
			ip += 2
			args := append([]value.Value(nil), stack[len(stack)-argc:]...)
			fn := stack[len(stack)-argc-1]
			stack = stack[:len(stack)-argc-1]
			result, err := vm.CallFunc(fn, args)
			if err != nil {
				return value.Nil(), err
			}
			push(result)

		case bytecode.OpCallMethod:
			nameIdx := bytecode.ReadUint16(code, ip)
			ip += 2
			argc := int(bytecode.ReadUint16(code, ip))
			ip += 2
			args := append([]value.Value(nil), stack[len(stack)-argc:]...)
			recv := stack[len(stack)-argc-1]
			stack = stack[:len(stack)-argc-1]
			name := string(value.Bytes(chunk.Constants[nameIdx]))
			fn, err := vm.classes.Dispatch(recv.Kind(), name)
			if err != nil {
				return value.Nil(), vm.setRuntimeErr(err)
			}
			allArgs := append([]value.Value{recv}, args...)
			result, err := vm.CallFunc(fn, allArgs)
			if err != nil {
				return value.Nil(), err
			}
			push(result)

		case bytecode.OpReturn:
			result := pop()
			value.Retain(result)
			return result, nil

		default:
			return value.Nil(), vm.setRuntimeErr(fmt.Errorf("vmcore: unknown opcode %d", op))
		}
	}
	return value.Nil(), nil
}

func arith(op bytecode.OpCode, a, b value.Value) (value.Value, error) {
	if a.Kind() == value.TagString && b.Kind() == value.TagString && op == bytecode.OpAdd {
		buf := append(append([]byte(nil), value.Bytes(a)...), value.Bytes(b)...)
		return value.NewStringNoCopy(buf), nil
	}
	if a.Kind() == value.TagInt && b.Kind() == value.TagInt {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case bytecode.OpAdd:
			return value.Int(x + y), nil
		case bytecode.OpSub:
			return value.Int(x - y), nil
		case bytecode.OpMul:
			return value.Int(x * y), nil
		case bytecode.OpDiv:
			if y == 0 {
				return value.Nil(), fmt.Errorf("integer division by zero")
			}
			return value.Int(x / y), nil
		case bytecode.OpMod:
			if y == 0 {
				return value.Nil(), fmt.Errorf("integer modulo by zero")
			}
			return value.Int(x % y), nil
		}
	}
	if isNumeric(a) && isNumeric(b) {
		x, y := asFloat(a), asFloat(b)
		switch op {
		case bytecode.OpAdd:
			return value.Float(x + y), nil
		case bytecode.OpSub:
			return value.Float(x - y), nil
		case bytecode.OpMul:
			return value.Float(x * y), nil
		case bytecode.OpDiv:
			return value.Float(x / y), nil // IEEE infinity/NaN on zero divisor, no error
		case bytecode.OpMod:
			return value.Nil(), fmt.Errorf("modulo requires integer operands")
		}
	}
	return value.Nil(), fmt.Errorf("cannot apply operator to %s and %s", value.TypeName(a.Kind()), value.TypeName(b.Kind()))
}

func compareOp(op bytecode.OpCode, a, b value.Value) (bool, error) {
	if !value.Comparable(a, b) {
		return false, fmt.Errorf("cannot compare %s with %s", value.TypeName(a.Kind()), value.TypeName(b.Kind()))
	}
	c := value.Compare(a, b)
	switch op {
	case bytecode.OpGreater:
		return c > 0, nil
	case bytecode.OpGreaterEqual:
		return c >= 0, nil
	case bytecode.OpLess:
		return c < 0, nil
	case bytecode.OpLessEqual:
		return c <= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator")
}

func isNumeric(v value.Value) bool {
	return v.Kind() == value.TagInt || v.Kind() == value.TagFloat
}

func asFloat(v value.Value) float64 {
	if v.Kind() == value.TagInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func getIndex(recv, key value.Value) (value.Value, error) {
	switch recv.Kind() {
	case value.TagArray:
		if key.Kind() != value.TagInt {
			return value.Nil(), fmt.Errorf("array index must be an integer, got %s", value.TypeName(key.Kind()))
		}
		return value.ArrayGet(recv, int(key.AsInt()))
	case value.TagHashMap:
		return value.HashMapGet(recv, key), nil
	default:
		return value.Nil(), fmt.Errorf("cannot index a %s value", value.TypeName(recv.Kind()))
	}
}

func setIndex(recv, key, val value.Value) error {
	switch recv.Kind() {
	case value.TagArray:
		if key.Kind() != value.TagInt {
			return fmt.Errorf("array index must be an integer, got %s", value.TypeName(key.Kind()))
		}
		return value.ArraySet(recv, int(key.AsInt()), val)
	case value.TagHashMap:
		return value.HashMapSet(recv, key, val)
	default:
		return fmt.Errorf("cannot index a %s value", value.TypeName(recv.Kind()))
	}
}
