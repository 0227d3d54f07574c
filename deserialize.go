package hser

import (
	"fmt"
	"reflect"
)

// Deserialize constructs an instance of the type named by rec.ObjectType and
// fills it from rec. The result is a pointer to the new instance.
func Deserialize(rec *Record, vis Visibility) (any, error) {
	typ, ok := ResolveType(rec.ObjectType)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, rec.ObjectType)
	}
	return DeserializeType(rec, typ, vis)
}

// DeserializeType is like Deserialize but ignores rec.ObjectType. Members of
// typ that have no slot in rec keep their default values, and slots that
// match no member are ignored.
func DeserializeType(rec *Record, typ reflect.Type, vis Visibility) (any, error) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%w %v", ErrAbstractType, typ)
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w %v: not a struct", ErrUnknownType, typ)
	}
	ptr := newDefault(typ)
	err := decodeRoot(rec, ptr.Elem(), vis)
	if err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// DeserializeInto fills the struct ptr points to. Members without slots are
// left untouched.
func DeserializeInto(rec *Record, ptr any, vis Visibility) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		panic(fmt.Errorf("hser: DeserializeInto needs a non-nil pointer to a struct, got %T", ptr))
	}
	return decodeRoot(rec, v.Elem(), vis)
}

func Unmarshal[T any](rec *Record, vis Visibility) (*T, error) {
	ptr := newDefault(reflect.TypeFor[T]())
	err := decodeRoot(rec, ptr.Elem(), vis)
	if err != nil {
		return nil, err
	}
	return ptr.Interface().(*T), nil
}

func decodeRoot(rec *Record, obj reflect.Value, vis Visibility) error {
	err := rec.Validate()
	if err != nil {
		return err
	}
	dec := &decoder{
		rec:   rec,
		vis:   vis,
		index: rec.index(),
	}
	return dec.members(obj, 0, 1)
}

type decoder struct {
	rec   *Record
	vis   Visibility
	index map[int32]int
}

func (dec *decoder) members(obj reflect.Value, prefix int32, depth int) error {
	for _, m := range Members(obj.Type(), dec.vis) {
		v, found, err := dec.value(m.info, m.Get(obj), prefix, m.Name, depth)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		if found {
			m.Set(obj, v)
		}
	}
	return nil
}

// value decodes the slots of one member or list element. cur is the value
// currently held, or an invalid Value for a fresh list element; composites
// are decoded into it. found is false when the record has no slot for it.
func (dec *decoder) value(ti *typeInfo, cur reflect.Value, prefix int32, name string, depth int) (v reflect.Value, found bool, err error) {
	if ti.shape == shapeUnsupported || (ti.shape == shapeComposite && depth > MaxDepth) {
		return reflect.Value{}, false, nil
	}
	h := Hash(prefix, ti.name, name)
	i, found := dec.index[h]
	if !found {
		if _, null := dec.index[nullHash(prefix, name)]; null && ti.ptr {
			return reflect.Zero(ti.typ), true, nil
		}
		return reflect.Value{}, false, nil
	}
	payload := dec.rec.Payload(i)

	switch ti.shape {
	case shapeLeaf:
		out := reflect.New(ti.base)
		err := ti.leaf.Decode(payload, out.Elem())
		if err != nil {
			return reflect.Value{}, false, err
		}
		if ti.ptr {
			return out, true, nil
		}
		return out.Elem(), true, nil

	case shapeExternal:
		return dec.external(ti, payload)

	case shapeList:
		return dec.list(ti, cur, payload, h, name, depth)

	case shapeComposite:
		var target reflect.Value
		if ti.ptr {
			if cur.IsValid() && !cur.IsNil() {
				target = cur
			} else {
				target = newDefault(ti.base)
			}
		} else {
			if cur.IsValid() {
				target = addressable(cur)
			} else {
				target = newDefault(ti.base).Elem()
			}
		}
		err := dec.members(ti.deref(target), h, depth+1)
		if err != nil {
			return reflect.Value{}, false, err
		}
		return target, true, nil

	default:
		panic("unreachable")
	}
}

func (dec *decoder) external(ti *typeInfo, payload []byte) (reflect.Value, bool, error) {
	idx, err := decodeInt32(payload)
	if err != nil {
		return reflect.Value{}, false, err
	}
	if idx == noExternal {
		return reflect.Zero(ti.typ), true, nil
	}
	if idx < 0 || int(idx) >= len(dec.rec.External) {
		return reflect.Value{}, false, dataErrf(payload, 0, nil, "external index %d out of range, have %d", idx, len(dec.rec.External))
	}
	asset := dec.rec.External[idx]
	if asset == nil {
		return reflect.Zero(ti.typ), true, nil
	}
	av := reflect.ValueOf(asset)
	if !av.Type().AssignableTo(ti.typ) {
		return reflect.Value{}, false, fmt.Errorf("external %d is %T, not assignable to %v", idx, asset, ti.typ)
	}
	return av, true, nil
}

func (dec *decoder) list(ti *typeInfo, cur reflect.Value, payload []byte, h int32, name string, depth int) (reflect.Value, bool, error) {
	count, err := decodeInt32(payload)
	if err != nil {
		return reflect.Value{}, false, err
	}
	if count < 0 || int(count) > len(dec.rec.ValueHashes) {
		return reflect.Value{}, false, dataErrf(payload, 0, nil, "invalid list count %d", count)
	}
	n := int(count)
	eti := ti.elem()

	var lv reflect.Value
	if ti.base.Kind() == reflect.Array {
		lv = reflect.New(ti.base).Elem()
		if cur.IsValid() && !ti.isNil(cur) {
			lv.Set(ti.deref(cur))
		}
		n = min(n, lv.Len())
		for i := 0; i < n; i++ {
			ev, found, err := dec.value(eti, lv.Index(i), elementPrefix(h, i), name, depth)
			if err != nil {
				return reflect.Value{}, false, fmt.Errorf("[%d]: %w", i, err)
			}
			if found {
				lv.Index(i).Set(ev)
			}
		}
	} else {
		lv = reflect.New(ti.base).Elem()
		if n > 0 {
			lv.Set(reflect.MakeSlice(ti.base, n, n))
		}
		for i := 0; i < n; i++ {
			ev, found, err := dec.value(eti, reflect.Value{}, elementPrefix(h, i), name, depth)
			if err != nil {
				return reflect.Value{}, false, fmt.Errorf("[%d]: %w", i, err)
			}
			if found {
				lv.Index(i).Set(ev)
			} else if eti.shape == shapeComposite && !eti.ptr {
				lv.Index(i).Set(newDefault(eti.base).Elem())
			}
		}
	}

	if ti.ptr {
		return lv.Addr(), true, nil
	}
	return lv, true, nil
}
