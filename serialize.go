package hser

import (
	"fmt"
	"reflect"
)

// Serialize flattens the members of root into a new Record. root must be a
// pointer to a struct or a struct value; a struct value is copied first.
//
// Serialize has a side effect: nil pointer-to-struct members of root are
// replaced with default instances, exactly as SlotCount does.
//
// The root type is registered, so Deserialize can resolve it later.
func Serialize(root any, vis Visibility) *Record {
	obj := rootValue(root)
	RegisterTypeOf(obj.Type())

	n := countMembers(obj, vis, 1)
	enc := newEncoder(vis, n, 0)
	enc.members(obj, 0, 1)
	enc.finish(n)

	return &Record{
		ObjectType:     TypeName(obj.Type()),
		ValueHashes:    enc.hashes,
		ValuePositions: enc.positions,
		Values:         enc.buf,
		External:       enc.external,
		FormatVersion:  FormatVersion,
	}
}

type encoder struct {
	vis       Visibility
	hashes    []int32
	positions []int32
	buf       []byte
	base      int // offset of buf[0] within the record's Values
	external  []Asset
}

func newEncoder(vis Visibility, slots int, base int) *encoder {
	return &encoder{
		vis:       vis,
		hashes:    make([]int32, 0, slots),
		positions: make([]int32, 0, slots),
		buf:       make([]byte, 0, slots*4),
		base:      base,
	}
}

func (enc *encoder) finish(planned int) {
	if len(enc.hashes) != planned {
		panic(fmt.Errorf("hser: planned %d slots, wrote %d", planned, len(enc.hashes)))
	}
}

func (enc *encoder) slot(hash int32) {
	enc.hashes = append(enc.hashes, hash)
	enc.positions = append(enc.positions, int32(enc.base+len(enc.buf)))
}

func (enc *encoder) members(obj reflect.Value, prefix int32, depth int) {
	for _, m := range Members(obj.Type(), enc.vis) {
		enc.value(m.info, memberValue(obj, m, depth), prefix, m.Name, depth)
	}
}

func (enc *encoder) value(ti *typeInfo, v reflect.Value, prefix int32, name string, depth int) {
	if ti.shape == shapeUnsupported {
		return
	}
	if emitsNull(ti, v, depth) {
		enc.slot(nullHash(prefix, name))
		return
	}
	h := Hash(prefix, ti.name, name)
	enc.slot(h)
	switch ti.shape {
	case shapeLeaf:
		enc.buf = ti.leaf.Encode(enc.buf, ti.deref(v))
	case shapeExternal:
		enc.buf = appendInt32(enc.buf, enc.externalIndex(v))
	case shapeList:
		lv := ti.deref(v)
		count := lv.Len()
		enc.buf = appendInt32(enc.buf, int32(count))
		eti := ti.elem()
		for i := 0; i < count; i++ {
			enc.value(eti, lv.Index(i), elementPrefix(h, i), name, depth)
		}
	case shapeComposite:
		enc.members(ti.deref(v), h, depth+1)
	default:
		panic("unreachable")
	}
}

// externalIndex appends a table entry for every non-nil reference, so two
// members pointing at one asset get two entries.
func (enc *encoder) externalIndex(v reflect.Value) int32 {
	if isNilReference(v) {
		return noExternal
	}
	enc.external = append(enc.external, v.Interface().(Asset))
	return int32(len(enc.external) - 1)
}

// isNilReference also treats an interface holding a nil pointer as nil.
func isNilReference(v reflect.Value) bool {
	if v.IsNil() {
		return true
	}
	if v.Kind() == reflect.Interface {
		e := v.Elem()
		return e.Kind() == reflect.Ptr && e.IsNil()
	}
	return false
}
