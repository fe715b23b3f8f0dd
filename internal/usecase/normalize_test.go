package usecase

import (
	"reflect"
	"testing"

	"TradeWatch/internal/domain/models"
)

func TestCoerceStrings(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"nil", nil, nil},
		{"strings", []interface{}{"a", "b"}, []string{"a", "b"}},
		{"mixed scalars", []interface{}{"a", int64(2), 3.5}, []string{"a", "2", "3.5"}},
		{"drops nils", []interface{}{"a", nil, "b"}, []string{"a", "b"}},
		{"flattens one level", []interface{}{[]interface{}{"a", "b"}, "c"}, []string{"a", "b", "c"}},
		{"string slice", []string{"x"}, []string{"x"}},
		{"scalar", "solo", []string{"solo"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := coerceStrings(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("coerceStrings(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestReadInt(t *testing.T) {
	rec := models.Record{"a": int64(5), "b": 6, "c": 7.0, "d": "not a number"}
	if got := readInt(rec, "a"); got != 5 {
		t.Fatalf("int64 column = %d", got)
	}
	if got := readInt(rec, "b"); got != 6 {
		t.Fatalf("int column = %d", got)
	}
	if got := readInt(rec, "c"); got != 7 {
		t.Fatalf("float column = %d", got)
	}
	if got := readInt(rec, "d"); got != 0 {
		t.Fatalf("non-numeric column = %d, want 0", got)
	}
	if got := readInt(rec, "missing"); got != 0 {
		t.Fatalf("missing column = %d, want 0", got)
	}
}

func TestReadString(t *testing.T) {
	rec := models.Record{"s": "hello", "n": int64(42), "nil": nil}
	if got := readString(rec, "s"); got != "hello" {
		t.Fatalf("string column = %q", got)
	}
	if got := readString(rec, "n"); got != "42" {
		t.Fatalf("numeric column = %q", got)
	}
	if got := readString(rec, "nil"); got != "" {
		t.Fatalf("nil column = %q, want empty", got)
	}
	if got := readString(rec, "missing"); got != "" {
		t.Fatalf("missing column = %q, want empty", got)
	}
}
