package hser

import (
	"errors"
	"testing"
)

func TestRecord_Payload(t *testing.T) {
	rec := &Record{
		ValueHashes:    []int32{1, 2, 3},
		ValuePositions: []int32{0, 0, 4},
		Values:         x("03000000 6f6b"),
	}
	deepEqual(t, rec.Payload(0), []byte{})
	deepEqual(t, rec.Payload(1), x("03000000"))
	deepEqual(t, rec.Payload(2), x("6f6b"))

	if i, ok := rec.FindSlot(2); !ok || i != 1 {
		t.Fatalf("FindSlot(2) = %d, %v, wanted 1", i, ok)
	}
	if _, ok := rec.FindSlot(9); ok {
		t.Fatalf("FindSlot(9) found a slot")
	}
}

func TestRecord_indexFirstWins(t *testing.T) {
	rec := &Record{ValueHashes: []int32{5, 6, 5}}
	idx := rec.index()
	if idx[5] != 0 || idx[6] != 1 || len(idx) != 2 {
		t.Fatalf("index = %v", idx)
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		ok   bool
	}{
		{"empty", Record{}, true},
		{"valid", Record{ValueHashes: []int32{1, 2}, ValuePositions: []int32{0, 2}, Values: x("0102")}, true},
		{"length mismatch", Record{ValueHashes: []int32{1}, ValuePositions: nil}, false},
		{"decreasing", Record{ValueHashes: []int32{1, 2}, ValuePositions: []int32{2, 1}, Values: x("0102")}, false},
		{"past end", Record{ValueHashes: []int32{1}, ValuePositions: []int32{3}, Values: x("0102")}, false},
	}
	for _, test := range tests {
		err := test.rec.Validate()
		if (err == nil) != test.ok {
			t.Errorf("** %s: Validate() = %v, wanted ok=%v", test.name, err, test.ok)
		}
		var de *DataError
		if err != nil && !errors.As(err, &de) {
			t.Errorf("** %s: Validate() = %T, wanted *DataError", test.name, err)
		}
	}
}

func TestRecord_Clone(t *testing.T) {
	a := &testAsset{"a"}
	rec := Serialize(&Pickup{Count: 1, Target: a}, VisibilityPublic)
	c := rec.Clone()
	deepEqual(t, c, rec)

	c.Values[0] = 0xff
	c.ValueHashes[0] = 0
	c.External[0] = nil
	if rec.Values[0] != 1 || rec.ValueHashes[0] == 0 || rec.External[0] != Asset(a) {
		t.Fatalf("Clone shares memory with the original")
	}

	var nilRec *Record
	if nilRec.Clone() != nil {
		t.Fatalf("nil.Clone() != nil")
	}
}
