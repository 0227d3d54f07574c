package hser

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpHeader = DumpFlags(1 << iota)
	DumpSlots
	DumpPayloads
	DumpExternal

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders rec for humans. When the record's type is registered, slots
// are labeled with the member paths they belong to; unmatched slots show "?".
func Dump(rec *Record, vis Visibility, f DumpFlags) string {
	var buf strings.Builder

	if f.Contains(DumpHeader) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "%s (%d slots, %d bytes, %d external, version %q)\n", rec.ObjectType, rec.SlotCount(), len(rec.Values), len(rec.External), rec.FormatVersion)
	}

	if f.Contains(DumpSlots) {
		if err := rec.Validate(); err != nil {
			fmt.Fprintf(&buf, "** INVALID: %v\n", err)
			return buf.String()
		}
		labels := slotLabels(rec, vis)
		for i, h := range rec.ValueHashes {
			label := labels[i]
			if label == "" {
				label = "?"
			}
			pos, end := int(rec.ValuePositions[i]), rec.slotEnd(i)
			if f.Contains(DumpPayloads) && end > pos {
				fmt.Fprintf(&buf, "#%d %08x @%d+%d %s = %x\n", i, uint32(h), pos, end-pos, label, rec.Values[pos:end])
			} else {
				fmt.Fprintf(&buf, "#%d %08x @%d+%d %s\n", i, uint32(h), pos, end-pos, label)
			}
		}
	}

	if f.Contains(DumpExternal) && len(rec.External) > 0 {
		fmt.Fprintln(&buf, dumpSep2)
		for i, a := range rec.External {
			if a == nil {
				fmt.Fprintf(&buf, "external[%d] = nil\n", i)
			} else {
				fmt.Fprintf(&buf, "external[%d] = %s\n", i, a.AssetID())
			}
		}
	}
	return buf.String()
}

func slotLabels(rec *Record, vis Visibility) []string {
	labels := make([]string, rec.SlotCount())
	typ, ok := ResolveType(rec.ObjectType)
	if !ok {
		return labels
	}
	w := &spanWalker{rec: rec, vis: vis, labels: labels}
	if err := w.walkMembers(typ, nil); err != nil {
		return make([]string, rec.SlotCount())
	}
	return labels
}
