package serial

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrEncode = errors.New("serial: encode failed")
	ErrDecode = errors.New("serial: decode failed")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	// Core deterministic encoding sorts map keys, so equal values always
	// produce equal bytes. Times keep nanoseconds.
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	encMode = em
	decMode = dm
}

// Canonical returns the deterministic byte form of v. Values holding
// channels, functions or other unsupported types fail with ErrEncode.
//
// Only exported struct fields are encoded. A struct type that has fields but
// none exported must implement cbor.Marshaler or encoding.BinaryMarshaler,
// otherwise its state would be dropped and Canonical fails with ErrEncode.
func Canonical(v any) ([]byte, error) {
	if v != nil {
		if err := checkEncodable(reflect.TypeOf(v), map[reflect.Type]bool{}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return b, nil
}

// Encode writes v to w as a zstd-compressed canonical payload.
func Encode(w io.Writer, v any) error {
	b, err := Canonical(v)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("%w: zstd writer: %w", ErrEncode, err)
	}
	if _, err := zw.Write(b); err != nil {
		_ = zw.Close()
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}

// Decode reads a payload written by Encode and returns its canonical bytes.
// The payload is checked to be a single well-formed value but is not bound
// to any Go type yet.
func Decode(r io.Reader) ([]byte, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd reader: %w", ErrDecode, err)
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	data := buf.Bytes()
	if err := decMode.Wellformed(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return data, nil
}

// Unmarshal binds canonical bytes to v.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// Fields splits a map payload into its top-level fields without decoding the
// values. ok is false when the payload is not a map keyed by strings.
func Fields(data []byte) (fields map[string]cbor.RawMessage, ok bool) {
	if err := decMode.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

var (
	cborMarshaler   = reflect.TypeOf((*cbor.Marshaler)(nil)).Elem()
	binaryMarshaler = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	timeType        = reflect.TypeOf(time.Time{})
	bigIntType      = reflect.TypeOf(big.Int{})
)

func marshalsItself(t reflect.Type) bool {
	for _, m := range []reflect.Type{cborMarshaler, binaryMarshaler} {
		if t.Implements(m) || reflect.PointerTo(t).Implements(m) {
			return true
		}
	}
	return t == timeType || t == bigIntType
}

// checkEncodable walks t and rejects struct types whose fields are all
// unexported and which provide no marshaler. Interface-typed values are
// only known at run time and are not inspected.
func checkEncodable(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if marshalsItself(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkEncodable(t.Elem(), seen)
	case reflect.Map:
		if err := checkEncodable(t.Key(), seen); err != nil {
			return err
		}
		return checkEncodable(t.Elem(), seen)
	case reflect.Struct:
		exported := 0
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			if f.IsExported() || f.Anonymous {
				exported++
			}
			if err := checkEncodable(f.Type, seen); err != nil {
				return err
			}
		}
		if t.NumField() > 0 && exported == 0 {
			return fmt.Errorf("%s has only unexported fields and no MarshalCBOR or MarshalBinary method", t)
		}
	}
	return nil
}
