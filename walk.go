package hser

import (
	"fmt"
	"reflect"
	"strings"
)

// spanWalker measures the slots a value occupies in an existing record by
// replaying the serializer's traversal against the record's hashes. Nested
// composites carry no bytes in their marker slots, so slot structure, not
// byte positions, delimits a member.
//
// The walk uses the current member catalog. A nested composite whose type
// gained or lost members since the record was written is measured by what
// the record still matches: a missing member spans zero slots.
type spanWalker struct {
	rec *Record
	vis Visibility

	// externals lists the slot indices of external references walked so far.
	externals []int

	// labels, when non-nil, receives the member path of every matched slot.
	labels []string
	path   []string
}

func (w *spanWalker) push(seg string) {
	if w.labels != nil {
		w.path = append(w.path, seg)
	}
}

func (w *spanWalker) pushIndex(i int) {
	if w.labels != nil {
		w.path = append(w.path, fmt.Sprintf("[%d]", i))
	}
}

func (w *spanWalker) pop() {
	if w.labels != nil {
		w.path = w.path[:len(w.path)-1]
	}
}

func (w *spanWalker) mark(i int) {
	if w.labels == nil {
		return
	}
	var buf strings.Builder
	for _, seg := range w.path {
		if buf.Len() > 0 && !strings.HasPrefix(seg, "[") {
			buf.WriteByte('.')
		}
		buf.WriteString(seg)
	}
	w.labels[i] = buf.String()
}

func (w *spanWalker) span(ti *typeInfo, i int, prefix int32, name string, depth int) (int, error) {
	if ti.shape == shapeUnsupported || i >= len(w.rec.ValueHashes) {
		return 0, nil
	}
	hash := w.rec.ValueHashes[i]
	if hash == nullHash(prefix, name) {
		w.mark(i)
		return 1, nil
	}
	if ti.shape == shapeComposite && depth > MaxDepth {
		return 0, nil
	}
	h := Hash(prefix, ti.name, name)
	if hash != h {
		return 0, nil
	}
	w.mark(i)

	switch ti.shape {
	case shapeLeaf:
		return 1, nil
	case shapeExternal:
		w.externals = append(w.externals, i)
		return 1, nil
	case shapeList:
		count, err := decodeInt32(w.rec.Payload(i))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		if count < 0 {
			return 0, dataErrf(w.rec.Payload(i), 0, nil, "%s: invalid list count %d", name, count)
		}
		n := 1
		eti := ti.elem()
		for e := 0; e < int(count); e++ {
			w.pushIndex(e)
			s, err := w.span(eti, i+n, elementPrefix(h, e), name, depth)
			w.pop()
			if err != nil {
				return 0, err
			}
			n += s
		}
		return n, nil
	case shapeComposite:
		n := 1
		for _, m := range Members(ti.base, w.vis) {
			w.push(m.Name)
			s, err := w.span(m.info, i+n, h, m.Name, depth+1)
			w.pop()
			if err != nil {
				return 0, err
			}
			n += s
		}
		return n, nil
	default:
		panic("unreachable")
	}
}

// walkMembers visits every top-level member present in the record. Slots
// that match no member of typ are stepped over one at a time.
func (w *spanWalker) walkMembers(typ reflect.Type, f func(m *Member, start, n int)) error {
	top := make(map[int32]*Member)
	for _, m := range Members(typ, w.vis) {
		for _, h := range [...]int32{Hash(0, m.info.name, m.Name), nullHash(0, m.Name)} {
			if _, dup := top[h]; !dup {
				top[h] = m
			}
		}
	}
	for i := 0; i < len(w.rec.ValueHashes); {
		n := 1
		if m := top[w.rec.ValueHashes[i]]; m != nil {
			w.push(m.Name)
			s, err := w.span(m.info, i, 0, m.Name, 1)
			w.pop()
			if err != nil {
				return err
			}
			if s > 0 {
				n = s
			}
			if f != nil {
				f(m, i, n)
			}
		}
		i += n
	}
	return nil
}
