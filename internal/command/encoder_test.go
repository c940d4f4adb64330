package command

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeBareWordArgument(t *testing.T) {
	line, err := Encode("test", []any{"hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "test hello" {
		t.Fatalf("expected %q, got %q", "test hello", line)
	}
}

func TestEncodeQuotedString(t *testing.T) {
	line, err := Encode("test", []any{"hello world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != `test "hello world"` {
		t.Fatalf("expected %q, got %q", `test "hello world"`, line)
	}
}

func TestEncodeEmptyString(t *testing.T) {
	line, err := Encode("test", []any{""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != `test ""` {
		t.Fatalf("expected %q, got %q", `test ""`, line)
	}
}

func TestEncodeReplacesEmbeddedQuotes(t *testing.T) {
	line, err := Encode("test", []any{`a"b`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "test \"a＂b\"" {
		t.Fatalf("expected full-width quote replacement, got %q", line)
	}
}

func TestEncodeReplacesNewlines(t *testing.T) {
	line, err := Encode("say", []any{"line one\nline two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(line, "\n") {
		t.Fatalf("encoded line must not contain newlines: %q", line)
	}
	if line != `say "line one line two"` {
		t.Fatalf("expected newline collapsed to space, got %q", line)
	}
}

func TestEncodeStructuredObject(t *testing.T) {
	line, err := Encode("x", []any{map[string]int{"a": 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "x \"{＂a＂:1}\""
	if line != expected {
		t.Fatalf("expected %q, got %q", expected, line)
	}
}

func TestEncodeIntegers(t *testing.T) {
	line, err := Encode("kick", []any{42, int64(-7)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "kick 42 -7" {
		t.Fatalf("expected %q, got %q", "kick 42 -7", line)
	}
}

func TestEncodeIntegralFloat(t *testing.T) {
	line, err := Encode("kick", []any{float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "kick 3" {
		t.Fatalf("expected %q, got %q", "kick 3", line)
	}
}

func TestEncodeRejectsFractionalFloat(t *testing.T) {
	_, err := Encode("kick", []any{3.5})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEncodeRejectsInvalidNames(t *testing.T) {
	for _, name := range []string{"", "bad name", "semi;colon", "new\nline", `quo"te`} {
		if _, err := Encode(name, nil); !errors.Is(err, ErrInvalidCommandName) {
			t.Errorf("name %q: expected ErrInvalidCommandName, got %v", name, err)
		}
	}
}

func TestEncodeRejectsUnsupportedKinds(t *testing.T) {
	for _, arg := range []any{true, nil, make(chan int)} {
		if _, err := Encode("test", []any{arg}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("arg %T: expected ErrInvalidArgument, got %v", arg, err)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	args := []any{"hello world", 5, map[string]string{"k": "v"}}
	first, err := Encode("cmd", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Encode("cmd", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("encoding not deterministic: %q vs %q", first, again)
		}
	}
}

func TestEncodedQuotedStringsAreTokenizable(t *testing.T) {
	// A conforming line tokenizer treats everything between double quotes
	// as one argument. That only works if quoted sections contain no raw
	// quote characters.
	line, err := Encode("test", []any{`she said "hi"`, "a\nb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inQuotes := false
	for _, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case '\n':
			t.Fatalf("raw newline in encoded line: %q", line)
		}
	}
	if inQuotes {
		t.Fatalf("unbalanced quotes in encoded line: %q", line)
	}
}
