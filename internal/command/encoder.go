package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Encoding errors. Both indicate caller bugs, not runtime conditions, so
// they are returned synchronously and never absorbed.
var (
	ErrInvalidCommandName = errors.New("invalid command name")
	ErrInvalidArgument    = errors.New("invalid command argument")
)

var wordOnly = regexp.MustCompile(`^\w+$`)

// fullWidthQuote replaces literal double quotes inside quoted arguments.
// Together with newline stripping this makes the encoded line unambiguous
// to a quote-aware tokenizer and blocks command injection via embedded
// newlines.
const fullWidthQuote = "＂"

// Encode turns a command name plus typed arguments into a single
// safely-escaped console line. Accepted argument kinds are strings,
// integers and structured objects (serialized as JSON). Pure function.
func Encode(name string, args []any) (string, error) {
	if name == "" || !wordOnly.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCommandName, name)
	}

	var b strings.Builder
	b.WriteString(name)

	for i, arg := range args {
		encoded, err := encodeArg(arg)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		b.WriteByte(' ')
		b.WriteString(encoded)
	}

	return b.String(), nil
}

func encodeArg(arg any) (string, error) {
	switch v := arg.(type) {
	case string:
		return encodeString(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return encodeFloat(float64(v))
	case float64:
		return encodeFloat(v)
	case bool:
		return "", fmt.Errorf("%w: booleans are not an accepted kind", ErrInvalidArgument)
	case nil:
		return "", fmt.Errorf("%w: nil argument", ErrInvalidArgument)
	}

	// Anything left must be a structured object: serialized to JSON and
	// then escaped exactly like a non-word string.
	switch reflect.TypeOf(arg).Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array, reflect.Ptr:
		data, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return encodeString(string(data)), nil
	}

	return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidArgument, arg)
}

func encodeFloat(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return "", fmt.Errorf("%w: numeric argument %v is not an integer", ErrInvalidArgument, v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

func encodeString(s string) string {
	if s == "" {
		return `""`
	}
	if wordOnly.MatchString(s) {
		return s
	}

	s = strings.ReplaceAll(s, `"`, fullWidthQuote)
	s = strings.ReplaceAll(s, "\n", " ")
	return `"` + s + `"`
}
