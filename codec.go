package hser

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode/utf8"
)

// leafCodec converts one leaf value to and from its payload bytes.
type leafCodec struct {
	Type reflect.Type
	// Size is the payload size in bytes, or -1 when the payload length is
	// implied by the slot.
	Size   int
	Encode func(buf []byte, v reflect.Value) []byte
	// Decode stores the payload into v, which is always addressable.
	Decode func(b []byte, v reflect.Value) error
}

var binaryMarshalerType = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
var binaryUnmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
var timeType = reflect.TypeOf(time.Time{})
var curveType = reflect.TypeOf(Curve{})

var fixedLayoutTypes = map[reflect.Type]bool{
	reflect.TypeOf(Vector2{}):    true,
	reflect.TypeOf(Vector3{}):    true,
	reflect.TypeOf(Vector4{}):    true,
	reflect.TypeOf(Vector2Int{}): true,
	reflect.TypeOf(Vector3Int{}): true,
	reflect.TypeOf(Quaternion{}): true,
	reflect.TypeOf(Color{}):      true,
	reflect.TypeOf(Color32{}):    true,
	reflect.TypeOf(Rect{}):       true,
	reflect.TypeOf(Bounds{}):     true,
	reflect.TypeOf(Matrix4x4{}):  true,
}

// leafCodecOf returns nil for types that are not leaves.
func leafCodecOf(typ reflect.Type) *leafCodec {
	if typ == timeType {
		return &leafCodec{
			Type: typ,
			Size: 12,
			Encode: func(buf []byte, v reflect.Value) []byte {
				t := v.Interface().(time.Time)
				buf = appendUint64(buf, uint64(t.Unix()))
				return appendUint32(buf, uint32(t.Nanosecond()))
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != 12 {
					return sizeErr(b, 12, typ)
				}
				d := makeByteDecoder(b)
				sec, _ := d.Uint64()
				nsec, _ := d.Uint32()
				t := time.Unix(int64(sec), int64(nsec)).UTC()
				if t.IsZero() {
					t = time.Time{}
				}
				v.Set(reflect.ValueOf(t))
				return nil
			},
		}
	}
	if typ == curveType {
		return &leafCodec{
			Type:   typ,
			Size:   -1,
			Encode: encodeCurve,
			Decode: decodeCurve,
		}
	}
	if fixedLayoutTypes[typ] {
		return fixedLayoutCodec(typ)
	}
	if typ.Kind() != reflect.Interface && reflect.PointerTo(typ).Implements(binaryUnmarshalerType) &&
		reflect.PointerTo(typ).Implements(binaryMarshalerType) {
		return &leafCodec{
			Type: typ,
			Size: -1,
			Encode: func(buf []byte, v reflect.Value) []byte {
				data, err := addressable(v).Addr().Interface().(encoding.BinaryMarshaler).MarshalBinary()
				if err != nil {
					panic(fmt.Errorf("%v.MarshalBinary: %w", typ, err))
				}
				return appendRaw(buf, data)
			},
			Decode: func(b []byte, v reflect.Value) error {
				return v.Addr().Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(b)
			},
		}
	}

	switch typ.Kind() {
	case reflect.Bool:
		return &leafCodec{
			Type: typ,
			Size: 1,
			Encode: func(buf []byte, v reflect.Value) []byte {
				if v.Bool() {
					return appendUint8(buf, 1)
				}
				return appendUint8(buf, 0)
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != 1 {
					return sizeErr(b, 1, typ)
				}
				v.SetBool(b[0] != 0)
				return nil
			},
		}
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		size := intSize(typ)
		return &leafCodec{
			Type: typ,
			Size: size,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendSized(buf, uint64(v.Int()), size)
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != size {
					return sizeErr(b, size, typ)
				}
				v.SetInt(signExtend(readSized(b), size))
				return nil
			},
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		size := intSize(typ)
		return &leafCodec{
			Type: typ,
			Size: size,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendSized(buf, v.Uint(), size)
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != size {
					return sizeErr(b, size, typ)
				}
				v.SetUint(readSized(b))
				return nil
			},
		}
	case reflect.Float32:
		return &leafCodec{
			Type: typ,
			Size: 4,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendUint32(buf, float32Bits(v))
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != 4 {
					return sizeErr(b, 4, typ)
				}
				setFloat32Bits(v, uint32(readSized(b)))
				return nil
			},
		}
	case reflect.Float64:
		return &leafCodec{
			Type: typ,
			Size: 8,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendUint64(buf, math.Float64bits(v.Float()))
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != 8 {
					return sizeErr(b, 8, typ)
				}
				v.SetFloat(math.Float64frombits(readSized(b)))
				return nil
			},
		}
	case reflect.String:
		return &leafCodec{
			Type: typ,
			Size: -1,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendString(buf, v.String())
			},
			Decode: func(b []byte, v reflect.Value) error {
				if !utf8.Valid(b) {
					return dataErrf(b, 0, nil, "not a valid UTF8 string")
				}
				v.SetString(string(b))
				return nil
			},
		}
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.Uint8 {
			return nil
		}
		return &leafCodec{
			Type: typ,
			Size: -1,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendRaw(buf, v.Bytes())
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) == 0 {
					v.SetZero()
					return nil
				}
				v.SetBytes(append([]byte(nil), b...))
				return nil
			},
		}
	case reflect.Array:
		if typ.Elem().Kind() != reflect.Uint8 {
			return nil
		}
		n := typ.Len()
		return &leafCodec{
			Type: typ,
			Size: n,
			Encode: func(buf []byte, v reflect.Value) []byte {
				return appendRaw(buf, addressable(v).Slice(0, n).Bytes())
			},
			Decode: func(b []byte, v reflect.Value) error {
				if len(b) != n {
					return sizeErr(b, n, typ)
				}
				copy(v.Slice(0, n).Bytes(), b)
				return nil
			},
		}
	}
	return nil
}

func intSize(typ reflect.Type) int {
	switch typ.Kind() {
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return 8
	default:
		return int(typ.Size())
	}
}

func appendSized(buf []byte, v uint64, size int) []byte {
	switch size {
	case 1:
		return appendUint8(buf, uint8(v))
	case 2:
		return appendUint16(buf, uint16(v))
	case 4:
		return appendUint32(buf, uint32(v))
	default:
		return appendUint64(buf, v)
	}
}

// readSized reads a little-endian unsigned integer of len(b) bytes.
func readSized(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func signExtend(v uint64, size int) int64 {
	shift := uint(64 - size*8)
	return int64(v<<shift) >> shift
}

func sizeErr(b []byte, want int, typ reflect.Type) error {
	return dataErrf(b, 0, nil, "invalid %v payload length: got %d bytes, wanted %d", typ, len(b), want)
}

// float32Bits reads the exact bit pattern, so NaN payloads survive.
func float32Bits(v reflect.Value) uint32 {
	return *(*uint32)(addressable(v).Addr().UnsafePointer())
}

func setFloat32Bits(v reflect.Value, bits uint32) {
	*(*uint32)(v.Addr().UnsafePointer()) = bits
}

// addressable returns v itself if it can be addressed, or an addressable copy.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func encodeCurve(buf []byte, v reflect.Value) []byte {
	c := v.Interface().(Curve)
	buf = appendInt32(buf, int32(len(c.Keys)))
	for _, k := range c.Keys {
		buf = appendFloat32(buf, k.Time)
		buf = appendFloat32(buf, k.Value)
		buf = appendFloat32(buf, k.InTangent)
		buf = appendFloat32(buf, k.OutTangent)
	}
	return buf
}

func decodeCurve(b []byte, v reflect.Value) error {
	d := makeByteDecoder(b)
	n, err := d.Int32()
	if err != nil {
		return err
	}
	if n < 0 || int(n)*keyframeSize != len(d.Buf) {
		return dataErrf(b, d.Off(), nil, "invalid curve key count %d for %d bytes", n, len(d.Buf))
	}
	var c Curve
	if n > 0 {
		c.Keys = make([]Keyframe, n)
	}
	for i := range c.Keys {
		k := &c.Keys[i]
		k.Time, _ = d.Float32()
		k.Value, _ = d.Float32()
		k.InTangent, _ = d.Float32()
		k.OutTangent, _ = d.Float32()
	}
	v.Set(reflect.ValueOf(c))
	return nil
}

// fixedLayoutCodec flattens a struct of fixed-width numeric fields (and
// arrays and structs of them) in field order.
func fixedLayoutCodec(typ reflect.Type) *leafCodec {
	size, enc, dec := fixedLayout(typ)
	return &leafCodec{
		Type: typ,
		Size: size,
		Encode: func(buf []byte, v reflect.Value) []byte {
			return enc(buf, addressable(v))
		},
		Decode: func(b []byte, v reflect.Value) error {
			if len(b) != size {
				return sizeErr(b, size, typ)
			}
			d := makeByteDecoder(b)
			dec(&d, v)
			return nil
		},
	}
}

type fixedEncodeFunc = func(buf []byte, v reflect.Value) []byte
type fixedDecodeFunc = func(d *byteDecoder, v reflect.Value)

func fixedLayout(typ reflect.Type) (int, fixedEncodeFunc, fixedDecodeFunc) {
	switch typ.Kind() {
	case reflect.Float32:
		return 4, func(buf []byte, v reflect.Value) []byte {
				return appendUint32(buf, float32Bits(v))
			}, func(d *byteDecoder, v reflect.Value) {
				bits, _ := d.Uint32()
				setFloat32Bits(v, bits)
			}
	case reflect.Int32:
		return 4, func(buf []byte, v reflect.Value) []byte {
				return appendInt32(buf, int32(v.Int()))
			}, func(d *byteDecoder, v reflect.Value) {
				n, _ := d.Int32()
				v.SetInt(int64(n))
			}
	case reflect.Uint8:
		return 1, func(buf []byte, v reflect.Value) []byte {
				return appendUint8(buf, uint8(v.Uint()))
			}, func(d *byteDecoder, v reflect.Value) {
				n, _ := d.Uint8()
				v.SetUint(uint64(n))
			}
	case reflect.Array:
		n := typ.Len()
		esize, eenc, edec := fixedLayout(typ.Elem())
		return n * esize, func(buf []byte, v reflect.Value) []byte {
				for i := 0; i < n; i++ {
					buf = eenc(buf, v.Index(i))
				}
				return buf
			}, func(d *byteDecoder, v reflect.Value) {
				for i := 0; i < n; i++ {
					edec(d, v.Index(i))
				}
			}
	case reflect.Struct:
		nf := typ.NumField()
		var size int
		encs := make([]fixedEncodeFunc, nf)
		decs := make([]fixedDecodeFunc, nf)
		for i := 0; i < nf; i++ {
			var fsize int
			fsize, encs[i], decs[i] = fixedLayout(typ.Field(i).Type)
			size += fsize
		}
		return size, func(buf []byte, v reflect.Value) []byte {
				for i, enc := range encs {
					buf = enc(buf, v.Field(i))
				}
				return buf
			}, func(d *byteDecoder, v reflect.Value) {
				for i, dec := range decs {
					dec(d, v.Field(i))
				}
			}
	default:
		panic(fmt.Errorf("hser: %v is not a fixed-layout type", typ))
	}
}

const noExternal int32 = -1

// decodeInt32 reads the payload of an external reference or list count slot.
func decodeInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, dataErrf(b, 0, nil, "invalid int32 payload: got %d bytes, wanted 4", len(b))
	}
	return int32(readSized(b)), nil
}
