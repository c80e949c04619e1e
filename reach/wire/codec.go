// Package wire implements the length-delimited protobuf payload codec for
// the reach protocol (spec component C1).
//
// Reach's message set is wire-compatible with a conventional protobuf
// schema (nanopb on the device side), but the schema itself is a wire
// contract, not a source-ecosystem constraint (any compliant codec works).
// Rather than hand-writing one Marshal/Unmarshal per message type, or
// depending on full descriptor-based code generation (which needs a
// .proto + protoc run this module cannot perform), this package walks a
// struct's exported fields by a small `pb:"<field number>"` tag and emits
// the same tag/varint/length-delimited wire encoding protoc-gen-go would,
// using google.golang.org/protobuf/encoding/protowire — the same module
// the wider ecosystem (and the teacher's own bep_hello_test.go) imports
// for protobuf on the wire.
package wire

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"
)

type fieldInfo struct {
	index []int
	num   protowire.Number
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

func fieldsOf(t reflect.Type) []fieldInfo {
	if v, ok := fieldCache.Load(t); ok {
		return v.([]fieldInfo)
	}
	var out []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		tag := f.Tag.Get("pb")
		if tag == "" || tag == "-" {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(tag, "%d", &num); err != nil {
			continue
		}
		out = append(out, fieldInfo{index: []int{i}, num: protowire.Number(num)})
	}
	fieldCache.Store(t, out)
	return out
}

// Marshal appends the wire encoding of v, a struct or pointer-to-struct
// whose fields carry `pb:"N"` tags, to buf.
func Marshal(buf []byte, v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return buf, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("wire: Marshal: %T is not a struct", v)
	}
	return marshalStruct(buf, rv)
}

func marshalStruct(buf []byte, rv reflect.Value) ([]byte, error) {
	for _, fi := range fieldsOf(rv.Type()) {
		fv := rv.FieldByIndex(fi.index)
		var err error
		buf, err = appendField(buf, fi.num, fv)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendField(buf []byte, num protowire.Number, fv reflect.Value) ([]byte, error) {
	switch fv.Kind() {
	case reflect.Bool:
		if !fv.Bool() {
			return buf, nil
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, 1)
		return buf, nil
	case reflect.Int32, reflect.Int64, reflect.Int:
		n := fv.Int()
		if n == 0 {
			return buf, nil
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(n))
		return buf, nil
	case reflect.Uint32, reflect.Uint64, reflect.Uint:
		n := fv.Uint()
		if n == 0 {
			return buf, nil
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, n)
		return buf, nil
	case reflect.Float32:
		f := float32(fv.Float())
		if f == 0 {
			return buf, nil
		}
		buf = protowire.AppendTag(buf, num, protowire.Fixed32Type)
		buf = protowire.AppendFixed32(buf, math.Float32bits(f))
		return buf, nil
	case reflect.Float64:
		f := fv.Float()
		if f == 0 {
			return buf, nil
		}
		buf = protowire.AppendTag(buf, num, protowire.Fixed64Type)
		buf = protowire.AppendFixed64(buf, math.Float64bits(f))
		return buf, nil
	case reflect.String:
		s := fv.String()
		if s == "" {
			return buf, nil
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, []byte(s))
		return buf, nil
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			b := fv.Bytes()
			if len(b) == 0 {
				return buf, nil
			}
			buf = protowire.AppendTag(buf, num, protowire.BytesType)
			buf = protowire.AppendBytes(buf, b)
			return buf, nil
		}
		for i := 0; i < fv.Len(); i++ {
			var err error
			buf, err = appendRepeatedElem(buf, num, fv.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case reflect.Ptr:
		if fv.IsNil() {
			return buf, nil
		}
		return appendField(buf, num, fv.Elem())
	case reflect.Struct:
		sub, err := marshalStruct(nil, fv)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, sub)
		return buf, nil
	default:
		return nil, fmt.Errorf("wire: unsupported field kind %s", fv.Kind())
	}
}

// appendRepeatedElem encodes one element of a repeated field; unlike
// appendField it emits a tag+value even for an empty string or a zero
// integer element, since a repeated scalar's count (not its value)
// carries meaning. Bool and float elements go through appendField, which
// skips zero values.
func appendRepeatedElem(buf []byte, num protowire.Number, ev reflect.Value) ([]byte, error) {
	switch ev.Kind() {
	case reflect.Struct, reflect.Ptr:
		return appendField(buf, num, ev)
	case reflect.String:
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, []byte(ev.String()))
		return buf, nil
	case reflect.Uint32, reflect.Uint64, reflect.Uint:
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, ev.Uint())
		return buf, nil
	case reflect.Int32, reflect.Int64, reflect.Int:
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(ev.Int()))
		return buf, nil
	default:
		return appendField(buf, num, ev)
	}
}

// Unmarshal decodes data into v (a pointer to a tagged struct), appending
// to any repeated fields already present.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("wire: Unmarshal: v must be a non-nil pointer")
	}
	return unmarshalStruct(data, rv.Elem())
}

func unmarshalStruct(data []byte, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("wire: Unmarshal: %s is not a struct", rv.Kind())
	}
	byNum := make(map[protowire.Number][]int, rv.NumField())
	for _, fi := range fieldsOf(rv.Type()) {
		byNum[fi.num] = fi.index
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		idx, known := byNum[num]
		if !known {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}
		fv := rv.FieldByIndex(idx)
		consumed, err := decodeFieldInto(fv, typ, data)
		if err != nil {
			return err
		}
		data = data[consumed:]
	}
	return nil
}

func decodeFieldInto(fv reflect.Value, typ protowire.Type, data []byte) (int, error) {
	switch fv.Kind() {
	case reflect.Bool:
		val, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		fv.SetBool(val != 0)
		return n, nil
	case reflect.Int32, reflect.Int64, reflect.Int:
		val, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		fv.SetInt(int64(val))
		return n, nil
	case reflect.Uint32, reflect.Uint64, reflect.Uint:
		val, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		fv.SetUint(val)
		return n, nil
	case reflect.Float32:
		val, n := protowire.ConsumeFixed32(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		fv.SetFloat(float64(math.Float32frombits(val)))
		return n, nil
	case reflect.Float64:
		val, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		fv.SetFloat(math.Float64frombits(val))
		return n, nil
	case reflect.String:
		val, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		fv.SetString(string(val))
		return n, nil
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			cp := make([]byte, len(val))
			copy(cp, val)
			fv.SetBytes(cp)
			return n, nil
		}
		elemType := fv.Type().Elem()
		ev := reflect.New(elemType).Elem()
		switch elemType.Kind() {
		case reflect.Struct:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			if err := unmarshalStruct(val, ev); err != nil {
				return 0, err
			}
			fv.Set(reflect.Append(fv, ev))
			return n, nil
		default:
			n, err := decodeFieldInto(ev, typ, data)
			if err != nil {
				return 0, err
			}
			fv.Set(reflect.Append(fv, ev))
			return n, nil
		}
	case reflect.Ptr:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return decodeFieldInto(fv.Elem(), typ, data)
	case reflect.Struct:
		val, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if err := unmarshalStruct(val, fv); err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("wire: unsupported field kind %s", fv.Kind())
	}
}
