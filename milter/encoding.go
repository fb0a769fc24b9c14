package milter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
)

var (
	errNotEnoughData = errors.New("not enough data")
	errUnterminated  = errors.New("unterminated C string")
)

// decode fills the fields of the struct pointed to by dest, in order, from
// the milter protocol's binary wire format: bytes, big-endian uint16 and
// uint32, and NUL-terminated strings.
func decode(data []byte, dest interface{}) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode: need pointer to struct, got %T", dest)
	}
	v = v.Elem()

	for i := 0; i < v.NumField(); i++ {
		n, err := decodeField(data, v.Field(i))
		if err != nil {
			return fmt.Errorf("%s: %w", v.Type().Field(i).Name, err)
		}
		data = data[n:]
	}
	return nil
}

// decodeField sets f from the start of data and returns the number of bytes
// consumed.
func decodeField(data []byte, f reflect.Value) (int, error) {
	switch f.Kind() {
	case reflect.Uint8:
		if len(data) < 1 {
			return 0, errNotEnoughData
		}
		f.SetUint(uint64(data[0]))
		return 1, nil

	case reflect.Uint16:
		if len(data) < 2 {
			return 0, errNotEnoughData
		}
		f.SetUint(uint64(binary.BigEndian.Uint16(data)))
		return 2, nil

	case reflect.Uint32:
		if len(data) < 4 {
			return 0, errNotEnoughData
		}
		f.SetUint(uint64(binary.BigEndian.Uint32(data)))
		return 4, nil

	case reflect.String:
		i := bytes.IndexByte(data, 0)
		if i == -1 {
			return 0, errUnterminated
		}
		f.SetString(string(data[:i]))
		return i + 1, nil
	}
	return 0, fmt.Errorf("unsupported field type %s", f.Type())
}

// encode is the inverse of decode. It panics if val is not a struct of
// supported field types, since that is a bug in this package.
func encode(val interface{}) []byte {
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		panic(fmt.Errorf("encode: unsupported type: %T", val))
	}

	var b bytes.Buffer
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Uint8:
			b.WriteByte(byte(f.Uint()))
		case reflect.Uint16:
			binary.Write(&b, binary.BigEndian, uint16(f.Uint()))
		case reflect.Uint32:
			binary.Write(&b, binary.BigEndian, uint32(f.Uint()))
		case reflect.String:
			b.WriteString(f.String())
			b.WriteByte(0)
		default:
			panic(fmt.Errorf("encode: unsupported field type: %s", f.Type()))
		}
	}
	return b.Bytes()
}
