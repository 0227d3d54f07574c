package hser

import (
	"reflect"
	"sync"
)

type shape int

const (
	shapeUnsupported shape = iota
	shapeLeaf
	shapeExternal
	shapeList
	shapeComposite
)

func (s shape) String() string {
	switch s {
	case shapeLeaf:
		return "leaf"
	case shapeExternal:
		return "external"
	case shapeList:
		return "list"
	case shapeComposite:
		return "composite"
	default:
		return "unsupported"
	}
}

// typeInfo is what the planner and both walkers need to know about a
// declared member type.
type typeInfo struct {
	typ   reflect.Type // as declared
	base  reflect.Type // typ with one pointer level stripped
	name  string       // name used for hashing
	shape shape
	ptr   bool // declared as *base; nil is emitted as a null slot
	leaf  *leafCodec
}

var typeInfoCache sync.Map // reflect.Type -> *typeInfo

var assetType = reflect.TypeOf((*Asset)(nil)).Elem()
var recordType = reflect.TypeOf(Record{})

func infoOf(typ reflect.Type) *typeInfo {
	if v, ok := typeInfoCache.Load(typ); ok {
		return v.(*typeInfo)
	}
	info := infoOfWithoutCache(typ)
	actual, _ := typeInfoCache.LoadOrStore(typ, info)
	return actual.(*typeInfo)
}

func infoOfWithoutCache(typ reflect.Type) *typeInfo {
	info := &typeInfo{typ: typ, base: typ}
	if isExternalType(typ) {
		info.shape = shapeExternal
		info.name = typeNameForHash(typ)
		return info
	}
	if typ.Kind() == reflect.Ptr {
		info.ptr = true
		info.base = typ.Elem()
	}
	info.name = typeNameForHash(typ)

	base := info.base
	if base.Kind() == reflect.Ptr || base.Kind() == reflect.Interface {
		return info // **T, *interface
	}
	if lc := leafCodecOf(base); lc != nil {
		info.shape = shapeLeaf
		info.leaf = lc
		return info
	}
	switch base.Kind() {
	case reflect.Slice, reflect.Array:
		if base.Elem() != base && infoOf(base.Elem()).shape != shapeUnsupported {
			info.shape = shapeList
		}
	case reflect.Struct:
		info.shape = shapeComposite
	}
	return info
}

// elem returns the element info of a list type.
func (ti *typeInfo) elem() *typeInfo {
	return infoOf(ti.base.Elem())
}

func (ti *typeInfo) isNil(v reflect.Value) bool {
	return ti.ptr && v.IsNil()
}

// deref returns the value a pointer-typed member points to.
func (ti *typeInfo) deref(v reflect.Value) reflect.Value {
	if ti.ptr {
		return v.Elem()
	}
	return v
}

func isExternalType(typ reflect.Type) bool {
	k := typ.Kind()
	return (k == reflect.Ptr || k == reflect.Interface) && typ.Implements(assetType)
}

// typeNameForHash names arrays like slices, so a list member can change
// between the two, or change its array length, without losing its slots.
func typeNameForHash(typ reflect.Type) string {
	if typ.Kind() == reflect.Ptr && !isExternalType(typ) {
		typ = typ.Elem()
	}
	if typ.Kind() == reflect.Array {
		return "[]" + typ.Elem().String()
	}
	return typ.String()
}

// isRecordShaped reports whether a member of this type would embed a Record
// inside a record.
func isRecordShaped(typ reflect.Type) bool {
	for i := 0; i < 2; i++ {
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ == recordType {
			return true
		}
		if typ.Kind() != reflect.Slice && typ.Kind() != reflect.Array {
			return false
		}
		typ = typ.Elem()
	}
	return false
}
