package serialization

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Record builds one protobuf wire-format message. Every Put appends a
// field; repeated calls with the same number make a repeated field.
type Record struct {
	buf []byte
}

// Bytes returns the encoded message.
func (r *Record) Bytes() []byte { return r.buf }

// PutUint appends a varint field.
func (r *Record) PutUint(num protowire.Number, v uint64) {
	r.buf = protowire.AppendTag(r.buf, num, protowire.VarintType)
	r.buf = protowire.AppendVarint(r.buf, v)
}

// PutInt appends a zigzag-encoded varint field.
func (r *Record) PutInt(num protowire.Number, v int) {
	r.PutUint(num, protowire.EncodeZigZag(int64(v)))
}

// PutBool appends a bool as a varint field.
func (r *Record) PutBool(num protowire.Number, v bool) {
	r.PutUint(num, protowire.EncodeBool(v))
}

// PutFloat appends a fixed64 field.
func (r *Record) PutFloat(num protowire.Number, v float64) {
	r.buf = protowire.AppendTag(r.buf, num, protowire.Fixed64Type)
	r.buf = protowire.AppendFixed64(r.buf, math.Float64bits(v))
}

// PutFloats appends a packed fixed64 field.
func (r *Record) PutFloats(num protowire.Number, vs []float64) {
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	r.PutBytes(num, packed)
}

// PutInts appends a packed zigzag varint field.
func (r *Record) PutInts(num protowire.Number, vs []int) {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(v)))
	}
	r.PutBytes(num, packed)
}

// PutBytes appends a length-delimited field.
func (r *Record) PutBytes(num protowire.Number, b []byte) {
	r.buf = protowire.AppendTag(r.buf, num, protowire.BytesType)
	r.buf = protowire.AppendBytes(r.buf, b)
}

// PutString appends a length-delimited string field.
func (r *Record) PutString(num protowire.Number, s string) {
	r.buf = protowire.AppendTag(r.buf, num, protowire.BytesType)
	r.buf = protowire.AppendString(r.buf, s)
}

// PutRecord appends sub as a nested message.
func (r *Record) PutRecord(num protowire.Number, sub *Record) {
	r.PutBytes(num, sub.Bytes())
}

type field struct {
	typ protowire.Type
	v   uint64
	b   []byte
}

// Fields is a decoded message. Accessors never fail: a missing or ill-typed
// field yields the zero value and records the first error, reported by Err.
// Nested Fields share the error of the message they came from.
type Fields struct {
	m    map[protowire.Number][]field
	errp *error
}

// Parse decodes one message.
func Parse(b []byte) (*Fields, error) {
	var err error
	f := &Fields{errp: &err}
	if perr := f.parse(b); perr != nil {
		return nil, perr
	}
	return f, nil
}

func (f *Fields) parse(b []byte) error {
	f.m = make(map[protowire.Number][]field)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
		}
		b = b[n:]

		var fl field
		fl.typ = typ
		switch typ {
		case protowire.VarintType:
			fl.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			fl.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			fl.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
		}
		b = b[n:]
		f.m[num] = append(f.m[num], fl)
	}
	return nil
}

// Err returns the first accessor error of this message or any message
// nested in it.
func (f *Fields) Err() error { return *f.errp }

func (f *Fields) fail(num protowire.Number, format string, args ...any) {
	if *f.errp == nil {
		*f.errp = &FieldError{Field: int32(num), Details: fmt.Sprintf(format, args...)}
	}
}

// Has reports whether num is present.
func (f *Fields) Has(num protowire.Number) bool { return len(f.m[num]) > 0 }

// last returns the final occurrence of num, which must have type typ.
func (f *Fields) last(num protowire.Number, typ protowire.Type) (field, bool) {
	fs := f.m[num]
	if len(fs) == 0 {
		f.fail(num, "missing")
		return field{}, false
	}
	fl := fs[len(fs)-1]
	if fl.typ != typ {
		f.fail(num, "wire type %d, expected %d", fl.typ, typ)
		return field{}, false
	}
	return fl, true
}

// Uint returns a varint field.
func (f *Fields) Uint(num protowire.Number) uint64 {
	fl, _ := f.last(num, protowire.VarintType)
	return fl.v
}

// Int returns a zigzag varint field.
func (f *Fields) Int(num protowire.Number) int {
	return int(protowire.DecodeZigZag(f.Uint(num)))
}

// Bool returns a bool field.
func (f *Fields) Bool(num protowire.Number) bool {
	return protowire.DecodeBool(f.Uint(num))
}

// Float returns a fixed64 field.
func (f *Fields) Float(num protowire.Number) float64 {
	fl, _ := f.last(num, protowire.Fixed64Type)
	return math.Float64frombits(fl.v)
}

// Bytes returns a length-delimited field.
func (f *Fields) Bytes(num protowire.Number) []byte {
	fl, _ := f.last(num, protowire.BytesType)
	return fl.b
}

// String returns a length-delimited field as a string.
func (f *Fields) String(num protowire.Number) string {
	return string(f.Bytes(num))
}

// Strings returns every occurrence of a repeated string field.
func (f *Fields) Strings(num protowire.Number) []string {
	var out []string
	for _, fl := range f.m[num] {
		if fl.typ != protowire.BytesType {
			f.fail(num, "wire type %d, expected bytes", fl.typ)
			return nil
		}
		out = append(out, string(fl.b))
	}
	return out
}

// Floats returns a packed fixed64 field.
func (f *Fields) Floats(num protowire.Number) []float64 {
	fl, ok := f.last(num, protowire.BytesType)
	if !ok {
		return nil
	}
	return f.unpackFloats(num, fl.b)
}

func (f *Fields) unpackFloats(num protowire.Number, b []byte) []float64 {
	if len(b)%8 != 0 {
		f.fail(num, "packed doubles of %d bytes", len(b))
		return nil
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}
	return out
}

// FloatsList returns every occurrence of a repeated packed fixed64 field.
func (f *Fields) FloatsList(num protowire.Number) [][]float64 {
	var out [][]float64
	for _, fl := range f.m[num] {
		if fl.typ != protowire.BytesType {
			f.fail(num, "wire type %d, expected bytes", fl.typ)
			return nil
		}
		out = append(out, f.unpackFloats(num, fl.b))
	}
	return out
}

// Ints returns a packed zigzag varint field.
func (f *Fields) Ints(num protowire.Number) []int {
	fl, ok := f.last(num, protowire.BytesType)
	if !ok {
		return nil
	}
	var out []int
	b := fl.b
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			f.fail(num, "packed varint: %v", protowire.ParseError(n))
			return nil
		}
		out = append(out, int(protowire.DecodeZigZag(v)))
		b = b[n:]
	}
	return out
}

// Record returns a nested message.
func (f *Fields) Record(num protowire.Number) *Fields {
	fl, ok := f.last(num, protowire.BytesType)
	if !ok {
		return &Fields{m: map[protowire.Number][]field{}, errp: f.errp}
	}
	return f.nested(num, fl.b)
}

// Records returns every occurrence of a repeated nested message.
func (f *Fields) Records(num protowire.Number) []*Fields {
	var out []*Fields
	for _, fl := range f.m[num] {
		if fl.typ != protowire.BytesType {
			f.fail(num, "wire type %d, expected bytes", fl.typ)
			return nil
		}
		out = append(out, f.nested(num, fl.b))
	}
	return out
}

func (f *Fields) nested(num protowire.Number, b []byte) *Fields {
	sub := &Fields{errp: f.errp}
	if err := sub.parse(b); err != nil {
		f.fail(num, "nested: %v", err)
		sub.m = map[protowire.Number][]field{}
	}
	return sub
}
