package hser

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestByteUtil_AppendHelpers(t *testing.T) {
	var buf []byte
	buf = appendUint8(buf, 1)
	buf = appendUint16(buf, 0x0203)
	buf = appendUint32(buf, 0x04050607)
	buf = appendUint64(buf, 0x08090a0b0c0d0e0f)
	buf = appendInt32(buf, -1)
	buf = appendFloat32(buf, 1)
	buf = appendString(buf, "hi")
	buf = appendRaw(buf, []byte{0xAA})

	want := x("01 0302 07060504 0f0e0d0c0b0a0908 ffffffff 0000803f 6869 aa")
	if !reflect.DeepEqual(buf, want) {
		t.Fatalf("buf = %x, wanted %x", buf, want)
	}

	putInt32(buf, 1, 0x11223344)
	if !reflect.DeepEqual(buf[1:5], x("44332211")) {
		t.Fatalf("after putInt32: %x", buf[1:5])
	}
}

func TestEnsureCapacity(t *testing.T) {
	buf := ensureCapacity([]byte{1, 2}, 100)
	if cap(buf) < 100 || !reflect.DeepEqual(buf, []byte{1, 2}) {
		t.Fatalf("ensureCapacity = %x (cap %d), wanted 0102 with cap >= 100", buf, cap(buf))
	}
	same := ensureCapacity(buf, 10)
	if &same[0] != &buf[0] {
		t.Fatalf("ensureCapacity reallocated a buffer that was big enough")
	}
}

func TestByteDecoder(t *testing.T) {
	d := makeByteDecoder(x("01 0302 07060504 0f0e0d0c0b0a0908 ffffffff 0000c03f"))
	if v, err := d.Uint8(); err != nil || v != 1 {
		t.Fatalf("Uint8 = %v, %v", v, err)
	}
	if v, err := d.Uint16(); err != nil || v != 0x0203 {
		t.Fatalf("Uint16 = %x, %v", v, err)
	}
	if v, err := d.Uint32(); err != nil || v != 0x04050607 {
		t.Fatalf("Uint32 = %x, %v", v, err)
	}
	if v, err := d.Uint64(); err != nil || v != 0x08090a0b0c0d0e0f {
		t.Fatalf("Uint64 = %x, %v", v, err)
	}
	if v, err := d.Int32(); err != nil || v != -1 {
		t.Fatalf("Int32 = %v, %v", v, err)
	}
	if off := d.Off(); off != 19 {
		t.Fatalf("Off = %d, wanted 19", off)
	}
	if v, err := d.Float32(); err != nil || v != 1.5 {
		t.Fatalf("Float32 = %v, %v", v, err)
	}
	if len(d.Buf) != 0 {
		t.Fatalf("remaining = %d, wanted 0", len(d.Buf))
	}
}

func TestByteDecoder_Errors(t *testing.T) {
	t.Run("Raw not enough data", func(t *testing.T) {
		d := makeByteDecoder([]byte{1, 2})
		_, err := d.Raw(3)
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("Raw err = %T %v, wanted *DataError", err, err)
		}
		if de.Off != 0 {
			t.Fatalf("DataError.Off = %d, wanted 0", de.Off)
		}
	})

	t.Run("Raw negative", func(t *testing.T) {
		d := makeByteDecoder([]byte{1, 2})
		if _, err := d.Raw(-1); err == nil {
			t.Fatalf("Raw(-1) err = nil, wanted error")
		}
	})

	t.Run("short Uint64", func(t *testing.T) {
		d := makeByteDecoder([]byte{1, 2, 3})
		_, _ = d.Uint8()
		_, err := d.Uint64()
		var de *DataError
		if !errors.As(err, &de) || de.Off != 1 {
			t.Fatalf("Uint64 err = %v, wanted *DataError at offset 1", err)
		}
	})
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		v        uint64
		size     int
		expected int64
	}{
		{0xff, 1, -1},
		{0x7f, 1, 127},
		{0xfffe, 2, -2},
		{0x80000000, 4, math.MinInt32},
		{math.MaxUint64, 8, -1},
	}
	for _, test := range tests {
		if a := signExtend(test.v, test.size); a != test.expected {
			t.Errorf("** signExtend(%x, %d) = %d, wanted %d", test.v, test.size, a, test.expected)
		}
	}
}
