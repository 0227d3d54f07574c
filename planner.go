package hser

import (
	"fmt"
	"reflect"
)

// MaxDepth bounds composite nesting. Deeper composites are written as null
// slots, which keeps self-referential pointer types finite.
const MaxDepth = 16

// SlotCount returns the number of slots Serialize would produce for root.
// Like Serialize, it materializes nil pointer-to-struct members.
func SlotCount(root any, vis Visibility) int {
	obj := rootValue(root)
	return countMembers(obj, vis, 1)
}

func countMembers(obj reflect.Value, vis Visibility, depth int) int {
	var n int
	for _, m := range Members(obj.Type(), vis) {
		n += countValue(m.info, memberValue(obj, m, depth), vis, depth)
	}
	return n
}

func countValue(ti *typeInfo, v reflect.Value, vis Visibility, depth int) int {
	if ti.shape == shapeUnsupported {
		return 0
	}
	if emitsNull(ti, v, depth) {
		return 1
	}
	switch ti.shape {
	case shapeList:
		lv := ti.deref(v)
		eti := ti.elem()
		n := 1
		for i, count := 0, lv.Len(); i < count; i++ {
			n += countValue(eti, lv.Index(i), vis, depth)
		}
		return n
	case shapeComposite:
		return 1 + countMembers(ti.deref(v), vis, depth+1)
	default:
		return 1
	}
}

// emitsNull reports whether a value is written as a single null slot: a nil
// pointer, or a composite past MaxDepth.
func emitsNull(ti *typeInfo, v reflect.Value, depth int) bool {
	if ti.shape == shapeComposite && depth > MaxDepth {
		return true
	}
	return ti.isNil(v)
}

// memberValue reads m from obj. A nil pointer-to-struct member is replaced
// with a default instance first, unless that instance would sit past MaxDepth.
func memberValue(obj reflect.Value, m *Member, depth int) reflect.Value {
	v := m.Get(obj)
	ti := m.info
	if ti.shape == shapeComposite && ti.ptr && v.IsNil() && depth < MaxDepth {
		m.Set(obj, newDefault(ti.base))
		v = m.Get(obj)
	}
	return v
}

// rootValue returns the addressable struct a root argument denotes. Struct
// values are copied.
func rootValue(root any) reflect.Value {
	if root == nil {
		panic("hser: nil root")
	}
	v := reflect.ValueOf(root)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			panic(fmt.Errorf("hser: nil %v root", v.Type()))
		}
		v = v.Elem()
	} else {
		v = addressable(v)
	}
	if v.Kind() != reflect.Struct {
		panic(fmt.Errorf("hser: root must be a struct or a pointer to one, got %v", v.Type()))
	}
	return v
}
