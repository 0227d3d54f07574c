package hser

// FormatVersion is stamped into every record the serializer produces. It is
// recorded, never interpreted.
const FormatVersion = "1"

// Asset is an object whose identity and lifetime are owned elsewhere (a
// texture, a prefab, another preset). Records never inline assets; a member
// holding one is stored as an index into Record.External.
//
// A member type is treated as an asset reference when it is a pointer or
// interface type implementing Asset.
type Asset interface {
	AssetID() string
}

// Record is a serialized object graph.
//
// Slot i occupies Values[ValuePositions[i]:ValuePositions[i+1]] (up to the end
// of Values for the last slot) and is addressed by ValueHashes[i].
type Record struct {
	ObjectType     string
	ValueHashes    []int32
	ValuePositions []int32
	Values         []byte
	External       []Asset
	FormatVersion  string
}

func (rec *Record) SlotCount() int {
	return len(rec.ValueHashes)
}

// slotEnd returns the byte offset where slot i's payload ends.
func (rec *Record) slotEnd(i int) int {
	if i+1 < len(rec.ValuePositions) {
		return int(rec.ValuePositions[i+1])
	}
	return len(rec.Values)
}

// Payload returns the bytes of slot i. The result aliases rec.Values.
func (rec *Record) Payload(i int) []byte {
	return rec.Values[rec.ValuePositions[i]:rec.slotEnd(i)]
}

// FindSlot returns the first slot with the given hash.
func (rec *Record) FindSlot(hash int32) (int, bool) {
	for i, h := range rec.ValueHashes {
		if h == hash {
			return i, true
		}
	}
	return -1, false
}

// index maps every hash to its first slot; later duplicates lose.
func (rec *Record) index() map[int32]int {
	m := make(map[int32]int, len(rec.ValueHashes))
	for i, h := range rec.ValueHashes {
		if _, found := m[h]; !found {
			m[h] = i
		}
	}
	return m
}

func (rec *Record) Clone() *Record {
	if rec == nil {
		return nil
	}
	return &Record{
		ObjectType:     rec.ObjectType,
		ValueHashes:    append([]int32(nil), rec.ValueHashes...),
		ValuePositions: append([]int32(nil), rec.ValuePositions...),
		Values:         append([]byte(nil), rec.Values...),
		External:       append([]Asset(nil), rec.External...),
		FormatVersion:  rec.FormatVersion,
	}
}

// Validate checks the structural invariants of the slot arrays. It does not
// look at payloads, so a valid record can still hold external indices that
// are out of range; ExternalSlots reports those.
func (rec *Record) Validate() error {
	if len(rec.ValueHashes) != len(rec.ValuePositions) {
		return dataErrf(nil, 0, nil, "%d hashes but %d positions", len(rec.ValueHashes), len(rec.ValuePositions))
	}
	var prev int32
	for i, p := range rec.ValuePositions {
		if p < prev {
			return dataErrf(rec.Values, int(p), nil, "slot %d position %d is before previous position %d", i, p, prev)
		}
		if int(p) > len(rec.Values) {
			return dataErrf(rec.Values, len(rec.Values), nil, "slot %d position %d is past the end", i, p)
		}
		prev = p
	}
	return nil
}
