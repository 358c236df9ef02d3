package event

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Arg is one argument value. Positional arguments use keys "0", "1", ...
type Arg struct {
	Key   string
	Value any
}

// Args is an ordered argument list.
//
// It encodes as a JSON array when every key is positional and as a JSON
// object (keys in order) otherwise.
type Args []Arg

// Positional builds Args from values with keys "0", "1", ...
func Positional(values ...any) Args {
	out := make(Args, 0, len(values))
	for i, v := range values {
		out = append(out, Arg{Key: strconv.Itoa(i), Value: v})
	}
	return out
}

// Named builds Args from alternating key, value pairs.
func Named(kv ...any) Args {
	out := make(Args, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Arg{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return out
}

// Get returns the value stored under key.
func (a Args) Get(key string) (any, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return nil, false
}

// String returns the value under key as trimmed text, or "" when absent.
func (a Args) String(key string) string {
	v, ok := a.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// IsList reports whether keys are exactly "0".."n-1" in order.
func (a Args) IsList() bool {
	for i, arg := range a {
		if arg.Key != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if a.IsList() {
		buf.WriteByte('[')
		for i, arg := range a {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(&buf, arg.Value); err != nil {
				return nil, err
			}
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}

	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(&buf, arg.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeValue(&buf, arg.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeValue encodes v without HTML escaping; the caller's encoder decides.
func writeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func (a *Args) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '[' && delim != '{') {
		return fmt.Errorf("args: expected array or object, got %s", string(b))
	}

	out := Args{}
	for i := 0; dec.More(); i++ {
		key := strconv.Itoa(i)
		if delim == '{' {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			ks, ok := kt.(string)
			if !ok {
				return fmt.Errorf("args: invalid object key %v", kt)
			}
			key = ks
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Arg{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// Signature derives the uniqueness token for a set of arguments.
func Signature(a Args) string {
	b, err := json.Marshal(a)
	if err != nil {
		b = []byte(fmt.Sprint([]Arg(a)))
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
