package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Luismorlan/qrchain/model"
)

// JSONStyle controls the byte layout produced by CanonicalJSON. Keys are always
// sorted; the style only picks separators and escaping.
type JSONStyle struct {
	// Written between items of an object or array.
	ItemSep string
	// Written between a key and its value.
	KeySep string
	// Escape every non-ASCII rune as \uXXXX.
	ASCII bool
}

var (
	// CompactJSON is the layout signatures are computed over: {"a":1,"b":"é"} with
	// the non-ASCII escaped.
	CompactJSON = JSONStyle{ItemSep: ",", KeySep: ":", ASCII: true}
	// SpacedJSON is the layout of block hash inputs and block data: {"a": 1, "b": "é"}.
	SpacedJSON = JSONStyle{ItemSep: ", ", KeySep: ": "}
)

var ErrUnsupportedNumber = errors.New("canonical json: NaN and Inf are not representable")

const hexDigits = "0123456789abcdef"

// CanonicalJSON serializes v with sorted object keys in the given style.
//
// The output is byte-for-byte what Python's json.dumps(v, sort_keys=True)
// writes for the same separators and ensure_ascii setting, so tokens and
// hashes produced by either side agree.
func CanonicalJSON(v interface{}, style JSONStyle) ([]byte, error) {
	var buf bytes.Buffer
	if err := style.encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeJSONObject parses data as a single JSON object, keeping numbers as json.Number.
func DecodeJSONObject(data []byte) (model.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("json value is not an object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after json object")
	}
	return model.Payload(obj), nil
}

func (s JSONStyle) encode(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		s.writeString(buf, val)
	case json.Number:
		// Written as scanned, so 1.50 stays 1.50 in block data.
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return fmt.Errorf("canonical json: invalid number %q", val)
		}
		buf.WriteString(string(val))
	case float64:
		return writeFloat(buf, val)
	case float32:
		return writeFloat(buf, float64(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case model.Payload:
		return s.encodeObject(buf, val)
	case map[string]interface{}:
		return s.encodeObject(buf, val)
	case map[string]string:
		obj := make(map[string]interface{}, len(val))
		for k, e := range val {
			obj[k] = e
		}
		return s.encodeObject(buf, obj)
	case []interface{}:
		return s.encodeArray(buf, val)
	case []string:
		arr := make([]interface{}, len(val))
		for i, e := range val {
			arr[i] = e
		}
		return s.encodeArray(buf, arr)
	default:
		// Anything else goes through encoding/json first, then gets re-encoded
		// from its generic form so key order and layout stay canonical.
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("canonical json: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var generic interface{}
		if err := dec.Decode(&generic); err != nil {
			return fmt.Errorf("canonical json: %w", err)
		}
		return s.encode(buf, generic)
	}
	return nil
}

func (s JSONStyle) encodeObject(buf *bytes.Buffer, obj map[string]interface{}) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(s.ItemSep)
		}
		s.writeString(buf, k)
		buf.WriteString(s.KeySep)
		if err := s.encode(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (s JSONStyle) encodeArray(buf *bytes.Buffer, arr []interface{}) error {
	buf.WriteByte('[')
	for i, e := range arr {
		if i > 0 {
			buf.WriteString(s.ItemSep)
		}
		if err := s.encode(buf, e); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func (s JSONStyle) writeString(buf *bytes.Buffer, str string) {
	buf.WriteByte('"')
	for _, r := range str {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				writeUnicodeEscape(buf, r)
			case r < 0x7f || !s.ASCII:
				buf.WriteRune(r)
			case r > 0xFFFF:
				// Outside the BMP: escape as a UTF-16 surrogate pair.
				r -= 0x10000
				writeUnicodeEscape(buf, 0xD800+(r>>10))
				writeUnicodeEscape(buf, 0xDC00+(r&0x3FF))
			default:
				writeUnicodeEscape(buf, r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[(r>>12)&0xF])
	buf.WriteByte(hexDigits[(r>>8)&0xF])
	buf.WriteByte(hexDigits[(r>>4)&0xF])
	buf.WriteByte(hexDigits[r&0xF])
}

// writeFloat follows Python's float repr: shortest round-trip digits, a ".0"
// suffix on integral values and exponent form outside [1e-4, 1e16).
func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrUnsupportedNumber
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		buf.WriteString(strconv.FormatFloat(f, 'e', -1, 64))
		return nil
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	buf.WriteString(out)
	if !strings.Contains(out, ".") {
		buf.WriteString(".0")
	}
	return nil
}
