package value

import "fmt"

type slotState byte

const (
	slotEmpty slotState = iota
	slotOccupied
	slotTombstone
)

type hmSlot struct {
	state slotState
	key   Value
	val   Value
}

// HashMapBody is the payload of a TagHashMap object: an open-addressing
// map keyed by any hashable Value (spec.md §4.4).
type HashMapBody struct {
	slots      []hmSlot
	count      int // occupied, live entries
	tombstones int
	generation uint64 // bumped on every mutation; invalidates cursors
}

var hashMapDescriptor = &Descriptor{
	Tag:  TagHashMap,
	Name: "hashmap",
	Destroy: func(o *Object) {
		hb := o.body.(*HashMapBody)
		for i := range hb.slots {
			if hb.slots[i].state == slotOccupied {
				Release(hb.slots[i].key)
				Release(hb.slots[i].val)
			}
		}
		hb.slots = nil
	},
	Equals: func(a, b *Object) bool { return a == b },
}

const initialHashMapCap = 8

func NewHashMap() Value {
	return fromObject(TagHashMap, newObject(hashMapDescriptor, &HashMapBody{
		slots: make([]hmSlot, initialHashMapCap),
	}))
}

func hashMapBody(v Value) *HashMapBody { return v.obj.body.(*HashMapBody) }

func HashMapCount(v Value) int { return hashMapBody(v).count }

// find returns the slot index for key: either the occupied slot
// holding it, or the first empty/tombstone slot it would occupy.
func (hb *HashMapBody) find(key Value) (idx int, found bool) {
	n := len(hb.slots)
	mask := uint64(n - 1)
	h := Hash(key)
	firstTombstone := -1
	for i := uint64(0); i < uint64(n); i++ {
		idx := int((h + i) & mask)
		slot := &hb.slots[idx]
		switch slot.state {
		case slotEmpty:
			if firstTombstone >= 0 {
				return firstTombstone, false
			}
			return idx, false
		case slotTombstone:
			if firstTombstone < 0 {
				firstTombstone = idx
			}
		case slotOccupied:
			if Equals(slot.key, key) {
				return idx, true
			}
		}
	}
	if firstTombstone >= 0 {
		return firstTombstone, false
	}
	return -1, false
}

func HashMapGet(v Value, key Value) Value {
	hb := hashMapBody(v)
	idx, found := hb.find(key)
	if !found {
		return Nil()
	}
	return hb.slots[idx].val
}

// HashMapSet inserts or replaces key -> val. Setting val = Nil removes
// the entry, per spec.md §4.4.
func HashMapSet(v Value, key Value, val Value) error {
	if !Hashable(key) {
		return fmt.Errorf("hashmap set: key of type %s is not hashable", key.Kind())
	}
	hb := hashMapBody(v)
	hb.generation++

	idx, found := hb.find(key)
	if val.IsNil() {
		if found {
			Release(hb.slots[idx].key)
			Release(hb.slots[idx].val)
			hb.slots[idx] = hmSlot{state: slotTombstone}
			hb.count--
			hb.tombstones++
		}
		return nil
	}

	if found {
		Retain(val)
		old := hb.slots[idx].val
		hb.slots[idx].val = val
		Release(old)
		return nil
	}

	Retain(key)
	Retain(val)
	hb.slots[idx] = hmSlot{state: slotOccupied, key: key, val: val}
	hb.count++

	if (hb.count+hb.tombstones)*4 >= len(hb.slots)*3 {
		hb.rehash(nextPow2((hb.count + 1) * 2))
	}
	return nil
}

func (hb *HashMapBody) rehash(newCap int) {
	old := hb.slots
	hb.slots = make([]hmSlot, newCap)
	hb.tombstones = 0
	for _, s := range old {
		if s.state != slotOccupied {
			continue
		}
		idx, _ := hb.find(s.key)
		hb.slots[idx] = s
	}
}

func nextPow2(n int) int {
	p := initialHashMapCap
	for p < n {
		p *= 2
	}
	return p
}

// Next implements the stable iteration protocol: cursor=0 starts
// iteration, next_cursor=0 signals end. The cursor's low bits are the
// slot index of the next live entry (never 0, since it always follows
// a visited slot); it is invalidated by mutation (detected via the
// generation counter baked into the cursor's high bits).
func HashMapNext(v Value, cursor uint64) (nextCursor uint64, key Value, val Value, err error) {
	hb := hashMapBody(v)
	gen := cursor >> 32
	pos := int(cursor & 0xffffffff)
	if cursor != 0 && gen != hb.generation&0xffffffff {
		return 0, Nil(), Nil(), fmt.Errorf("hashmap iteration: map mutated during iteration")
	}
	for pos < len(hb.slots) {
		if hb.slots[pos].state == slotOccupied {
			k, val := hb.slots[pos].key, hb.slots[pos].val
			// Peek ahead so the cursor is 0 exactly when this was the
			// last live entry.
			next := uint64(0)
			for j := pos + 1; j < len(hb.slots); j++ {
				if hb.slots[j].state == slotOccupied {
					next = uint64(j) | (hb.generation&0xffffffff)<<32
					break
				}
			}
			return next, k, val, nil
		}
		pos++
	}
	return 0, Nil(), Nil(), nil
}

// HashMapKeys and HashMapValues collect all live entries; used by the
// stdlib's keys()/values() and by combine().
func HashMapKeys(v Value) []Value {
	hb := hashMapBody(v)
	out := make([]Value, 0, hb.count)
	for _, s := range hb.slots {
		if s.state == slotOccupied {
			out = append(out, s.key)
		}
	}
	return out
}

func HashMapValues(v Value) []Value {
	hb := hashMapBody(v)
	out := make([]Value, 0, hb.count)
	for _, s := range hb.slots {
		if s.state == slotOccupied {
			out = append(out, s.val)
		}
	}
	return out
}

// HashMapGetStrKey / SetStrKey are conveniences keyed by a Go string;
// each call builds a String value from key and delegates to
// HashMapGet / HashMapSet.
func HashMapGetStrKey(v Value, key string) Value {
	return HashMapGet(v, NewString(key))
}

func HashMapSetStrKey(v Value, key string, val Value) error {
	return HashMapSet(v, NewString(key), val)
}
