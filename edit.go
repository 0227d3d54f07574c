package hser

import (
	"fmt"
	"reflect"
	"slices"
)

func resolveRecordType(rec *Record) (reflect.Type, error) {
	typ, ok := ResolveType(rec.ObjectType)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, rec.ObjectType)
	}
	return typ, nil
}

// RemoveMember deletes the slots of one top-level member from rec in place,
// together with the external references it owned. The remaining external
// reference payloads are renumbered to match the compacted table.
//
// Removing a member the type does not have, or one the record holds no slot
// for, does nothing and returns false.
//
// Slots of members the type no longer declares are kept as they are. External
// indices inside them are not renumbered.
func RemoveMember(rec *Record, name string, vis Visibility) (bool, error) {
	typ, err := resolveRecordType(rec)
	if err != nil {
		return false, err
	}
	m := MemberNamed(typ, vis, name)
	if m == nil {
		return false, nil
	}
	err = rec.Validate()
	if err != nil {
		return false, err
	}

	start, found := rec.FindSlot(Hash(0, m.info.name, m.Name))
	if !found {
		start, found = rec.FindSlot(nullHash(0, m.Name))
		if !found {
			return false, nil
		}
	}
	w := &spanWalker{rec: rec, vis: vis}
	n, err := w.span(m.info, start, 0, m.Name, 1)
	if err != nil {
		return false, err
	}
	if n == 0 {
		n = 1
	}

	var owned []int32
	for _, slot := range w.externals {
		idx, err := decodeInt32(rec.Payload(slot))
		if err != nil {
			return false, err
		}
		if idx >= 0 {
			owned = append(owned, idx)
		}
	}

	rec.spliceSlots(start, n)

	if len(owned) > 0 {
		slices.Sort(owned)
		owned = slices.Compact(owned)
		remaining, err := externalSlots(rec, typ, vis)
		if err != nil {
			return true, err
		}
		rec.removeExternals(owned, remaining)
	}
	return true, nil
}

// spliceSlots removes slots [start, start+n) and their bytes.
func (rec *Record) spliceSlots(start, n int) {
	from := int(rec.ValuePositions[start])
	to := rec.slotEnd(start + n - 1)
	shift := int32(to - from)

	rec.Values = append(rec.Values[:from], rec.Values[to:]...)
	rec.ValueHashes = append(rec.ValueHashes[:start], rec.ValueHashes[start+n:]...)
	rec.ValuePositions = append(rec.ValuePositions[:start], rec.ValuePositions[start+n:]...)
	for i := start; i < len(rec.ValuePositions); i++ {
		rec.ValuePositions[i] -= shift
	}
}

// removeExternals drops the sorted table indices in removed and rewrites the
// payloads of the given reference slots. A payload pointing at a removed
// entry becomes -1.
func (rec *Record) removeExternals(removed []int32, refSlots []int) {
	for _, slot := range refSlots {
		off := int(rec.ValuePositions[slot])
		idx, err := decodeInt32(rec.Payload(slot))
		if err != nil || idx < 0 {
			continue
		}
		below, hit := slices.BinarySearch(removed, idx)
		if hit {
			putInt32(rec.Values, off, noExternal)
		} else {
			putInt32(rec.Values, off, idx-int32(below))
		}
	}

	kept := rec.External[:0]
	for i, a := range rec.External {
		if _, hit := slices.BinarySearch(removed, int32(i)); !hit {
			kept = append(kept, a)
		}
	}
	clear(rec.External[len(kept):])
	rec.External = kept
}

// AddMember serializes value as top-level member name and appends its slots
// to rec. External references in value are appended to rec.External.
//
// AddMember does not check whether rec already holds the member. After adding
// a member twice, Deserialize reads the earlier copy.
func AddMember(rec *Record, name string, value any, vis Visibility) error {
	typ, err := resolveRecordType(rec)
	if err != nil {
		return err
	}
	m := MemberNamed(typ, vis, name)
	if m == nil {
		return fmt.Errorf("%w %q in %v", ErrUnknownMember, name, typ)
	}

	holder := reflect.New(m.Type).Elem()
	if value != nil {
		rv := reflect.ValueOf(value)
		if !rv.Type().AssignableTo(m.Type) && rv.Kind() == reflect.Ptr && !rv.IsNil() {
			rv = rv.Elem()
		}
		if !rv.Type().AssignableTo(m.Type) {
			return fmt.Errorf("hser: cannot use %T as member %s", value, m)
		}
		holder.Set(rv)
	}
	ti := m.info
	if ti.shape == shapeComposite && ti.ptr && holder.IsNil() {
		holder.Set(newDefault(ti.base))
	}

	n := countValue(ti, holder, vis, 1)
	enc := newEncoder(vis, n, len(rec.Values))
	enc.external = rec.External
	enc.value(ti, holder, 0, m.Name, 1)
	enc.finish(n)

	rec.ValueHashes = append(rec.ValueHashes, enc.hashes...)
	rec.ValuePositions = append(rec.ValuePositions, enc.positions...)
	rec.Values = append(rec.Values, enc.buf...)
	rec.External = enc.external
	return nil
}

// ExternalSlots returns the indices of the slots holding external references,
// in slot order.
func ExternalSlots(rec *Record, vis Visibility) ([]int, error) {
	typ, err := resolveRecordType(rec)
	if err != nil {
		return nil, err
	}
	err = rec.Validate()
	if err != nil {
		return nil, err
	}
	return externalSlots(rec, typ, vis)
}

func externalSlots(rec *Record, typ reflect.Type, vis Visibility) ([]int, error) {
	w := &spanWalker{rec: rec, vis: vis}
	err := w.walkMembers(typ, nil)
	if err != nil {
		return nil, err
	}
	return w.externals, nil
}
