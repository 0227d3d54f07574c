package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/andreyvit/hser"
	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the at-rest encoding of record bodies.
type Encoding uint8

const (
	MsgPack Encoding = 0
	CBOR    Encoding = 1
)

func (e Encoding) String() string {
	switch e {
	case MsgPack:
		return "msgpack"
	case CBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "msgpack", "":
		return MsgPack, nil
	case "cbor":
		return CBOR, nil
	default:
		return 0, fmt.Errorf("unknown encoding: %q", name)
	}
}

// ErrCorrupted is wrapped by errors about envelopes that fail the checksum or
// cannot be parsed.
var ErrCorrupted = errors.New("corrupted record envelope")

// Envelope layout: flags:uvarint rawSize:uvarint body checksum:64
//
// The checksum is xxhash64 of the body as stored (after compression),
// little-endian.
type envelopeFlags uint64

const (
	efVerBit0 = envelopeFlags(1 << iota)
	efVerBit1
	efVerBit2
	efVerBit3
	efEncodingBit0
	efCompressionBit0
	efCompressionBit1

	efVerMask          = (efVerBit0 | efVerBit1 | efVerBit2 | efVerBit3)
	efVer1             = efVerBit0
	efCompressionMask  = (efCompressionBit0 | efCompressionBit1)
	efCompressionShift = 5
	efSupportedMask    = (efVerMask | efEncodingBit0 | efCompressionMask)

	checksumLen = 8
	maxRawSize  = 1 << 30
)

func (ef envelopeFlags) ver() envelopeFlags {
	return ef & efVerMask
}

func (ef envelopeFlags) encoding() Encoding {
	if ef&efEncodingBit0 != 0 {
		return CBOR
	}
	return MsgPack
}

func (ef envelopeFlags) compression() Compression {
	return Compression((ef & efCompressionMask) >> efCompressionShift)
}

func makeEnvelopeFlags(enc Encoding, comp Compression) envelopeFlags {
	ef := efVer1
	if enc == CBOR {
		ef |= efEncodingBit0
	}
	ef |= (envelopeFlags(comp) << efCompressionShift) & efCompressionMask
	return ef
}

// storedRecord is the at-rest form of hser.Record. Asset references become
// their IDs; a nil entry is stored as "".
type storedRecord struct {
	ObjectType     string   `msgpack:"t" cbor:"1,keyasint"`
	ValueHashes    []int32  `msgpack:"h" cbor:"2,keyasint"`
	ValuePositions []int32  `msgpack:"p" cbor:"3,keyasint"`
	Values         []byte   `msgpack:"v" cbor:"4,keyasint"`
	External       []string `msgpack:"x" cbor:"5,keyasint"`
	FormatVersion  string   `msgpack:"f" cbor:"6,keyasint"`
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		MaxArrayElements: 1 << 26,
	}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

func toStored(rec *hser.Record) *storedRecord {
	sr := &storedRecord{
		ObjectType:     rec.ObjectType,
		ValueHashes:    rec.ValueHashes,
		ValuePositions: rec.ValuePositions,
		Values:         rec.Values,
		FormatVersion:  rec.FormatVersion,
	}
	if len(rec.External) > 0 {
		sr.External = make([]string, len(rec.External))
		for i, a := range rec.External {
			if !isNilAsset(a) {
				sr.External[i] = a.AssetID()
			}
		}
	}
	return sr
}

func isNilAsset(a hser.Asset) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func fromStored(sr *storedRecord, resolver AssetResolver) (*hser.Record, error) {
	rec := &hser.Record{
		ObjectType:     sr.ObjectType,
		ValueHashes:    sr.ValueHashes,
		ValuePositions: sr.ValuePositions,
		Values:         sr.Values,
		FormatVersion:  sr.FormatVersion,
	}
	if len(sr.External) > 0 {
		rec.External = make([]hser.Asset, len(sr.External))
		for i, id := range sr.External {
			if id == "" || resolver == nil {
				continue
			}
			a, err := resolver.ResolveAsset(id)
			if err != nil {
				return nil, fmt.Errorf("external[%d] %q: %w", i, id, err)
			}
			rec.External[i] = a
		}
	}
	return rec, nil
}

func encodeBody(sr *storedRecord, enc Encoding) ([]byte, error) {
	switch enc {
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.Reset(&buf)
		err := e.Encode(sr)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record using MsgPack: %w", err)
		}
		return buf.Bytes(), nil
	case CBOR:
		b, err := cborEnc.Marshal(sr)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record using CBOR: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %v", enc)
	}
}

func decodeBody(body []byte, enc Encoding) (*storedRecord, error) {
	sr := new(storedRecord)
	switch enc {
	case MsgPack:
		d := msgpack.GetDecoder()
		d.Reset(bytes.NewReader(body))
		err := d.Decode(sr)
		msgpack.PutDecoder(d)
		if err != nil {
			return nil, &hser.DataError{Data: body, Err: fmt.Errorf("%w: %w", ErrCorrupted, err), Msg: "failed to decode msgpack record"}
		}
	case CBOR:
		if err := cborDec.Unmarshal(body, sr); err != nil {
			return nil, &hser.DataError{Data: body, Err: fmt.Errorf("%w: %w", ErrCorrupted, err), Msg: "failed to decode CBOR record"}
		}
	default:
		panic("unreachable")
	}
	return sr, nil
}

// encodeEnvelope falls back to CompressionNone when the body does not shrink.
func encodeEnvelope(rec *hser.Record, enc Encoding, comp Compression) ([]byte, error) {
	raw, err := encodeBody(toStored(rec), enc)
	if err != nil {
		return nil, err
	}
	body, err := compress(raw, comp)
	if errors.Is(err, errIncompressible) {
		body, comp = raw, CompressionNone
	} else if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(body)+checksumLen)
	buf = binary.AppendUvarint(buf, uint64(makeEnvelopeFlags(enc, comp)))
	buf = binary.AppendUvarint(buf, uint64(len(raw)))
	buf = append(buf, body...)
	buf = binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(body))
	return buf, nil
}

func decodeEnvelope(data []byte, resolver AssetResolver) (*hser.Record, error) {
	orig := data

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, &hser.DataError{Data: orig, Err: ErrCorrupted, Msg: "invalid flags"}
	}
	flags, data := envelopeFlags(v), data[n:]
	if flags.ver() != efVer1 {
		return nil, &hser.DataError{Data: orig, Err: ErrCorrupted, Msg: fmt.Sprintf("unsupported envelope version %d", flags.ver())}
	}
	if flags&^efSupportedMask != 0 {
		return nil, &hser.DataError{Data: orig, Err: ErrCorrupted, Msg: fmt.Sprintf("unsupported envelope flags %x", uint64(flags))}
	}

	rawSize, n := binary.Uvarint(data)
	if n <= 0 || rawSize > maxRawSize {
		return nil, &hser.DataError{Data: orig, Off: len(orig) - len(data), Err: ErrCorrupted, Msg: "invalid raw size"}
	}
	data = data[n:]

	if len(data) < checksumLen {
		return nil, &hser.DataError{Data: orig, Off: len(orig) - len(data), Err: ErrCorrupted, Msg: "missing checksum"}
	}
	body, sum := data[:len(data)-checksumLen], data[len(data)-checksumLen:]
	if binary.LittleEndian.Uint64(sum) != xxhash.Sum64(body) {
		return nil, &hser.DataError{Data: orig, Off: len(orig) - checksumLen, Err: ErrCorrupted, Msg: "checksum mismatch"}
	}

	comp := flags.compression()
	raw, err := decompress(body, comp, int(rawSize))
	if err != nil {
		return nil, &hser.DataError{Data: orig, Off: len(orig) - len(data), Err: ErrCorrupted, Msg: err.Error()}
	}
	sr, err := decodeBody(raw, flags.encoding())
	if err != nil {
		return nil, err
	}
	return fromStored(sr, resolver)
}
