// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package sanitize

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

func TestNilInput(t *testing.T) {
	if got := Properties(nil); got != nil {
		t.Errorf("Properties(nil) = %v, want nil", got)
	}
}

func TestPrimitivesPassThrough(t *testing.T) {
	out := Properties(map[string]any{
		"str":   "hello",
		"int":   42,
		"float": 3.14,
		"bool":  true,
		"nil":   nil,
	})

	if out["str"] != "hello" {
		t.Errorf("str = %v", out["str"])
	}
	if out["int"] != int64(42) {
		t.Errorf("int = %v (%T)", out["int"], out["int"])
	}
	if out["float"] != 3.14 {
		t.Errorf("float = %v", out["float"])
	}
	if out["bool"] != true {
		t.Errorf("bool = %v", out["bool"])
	}
	if out["nil"] != nil {
		t.Errorf("nil = %v", out["nil"])
	}
}

func TestNonFiniteNumbers(t *testing.T) {
	out := Properties(map[string]any{
		"nan":    math.NaN(),
		"posinf": math.Inf(1),
		"neginf": math.Inf(-1),
	})

	for _, key := range []string{"nan", "posinf", "neginf"} {
		if out[key] != float64(0) {
			t.Errorf("%s = %v, want 0", key, out[key])
		}
	}
}

func TestStringTruncation(t *testing.T) {
	long := strings.Repeat("x", MaxStringLen+500)
	out := Properties(map[string]any{"long": long})

	got, ok := out["long"].(string)
	if !ok {
		t.Fatalf("long is %T, want string", out["long"])
	}
	if len(got) != MaxStringLen {
		t.Errorf("len = %d, want %d", len(got), MaxStringLen)
	}
}

func TestStringTruncationKeepsRuneBoundary(t *testing.T) {
	long := strings.Repeat("世", MaxStringLen)
	out := Properties(map[string]any{"long": long})

	got, ok := out["long"].(string)
	if !ok {
		t.Fatalf("long is %T, want string", out["long"])
	}
	if len(got) > MaxStringLen {
		t.Errorf("len = %d, want <= %d", len(got), MaxStringLen)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8")
	}
}

func TestKeyCap(t *testing.T) {
	props := make(map[string]any, MaxKeys+20)
	for i := 0; i < MaxKeys+20; i++ {
		props[strings.Repeat("k", 3)+string(rune('a'+i%26))+string(rune('a'+i/26))] = i
	}

	out := Properties(props)
	if len(out) > MaxKeys {
		t.Errorf("key count = %d, want <= %d", len(out), MaxKeys)
	}
}

func TestArrayCap(t *testing.T) {
	arr := make([]any, MaxArrayLen+50)
	for i := range arr {
		arr[i] = i
	}

	out := Properties(map[string]any{"arr": arr})
	got, ok := out["arr"].([]any)
	if !ok {
		t.Fatalf("arr is %T, want []any", out["arr"])
	}
	if len(got) != MaxArrayLen {
		t.Errorf("len = %d, want %d", len(got), MaxArrayLen)
	}
}

func TestDepthBound(t *testing.T) {
	deep := map[string]any{
		"l2": map[string]any{
			"l3": map[string]any{
				"l4": map[string]any{
					"l5": "too deep",
				},
			},
		},
	}

	out := Properties(deep)
	l2 := out["l2"].(map[string]any)
	l3 := l2["l3"].(map[string]any)
	if l3["l4"] != depthPlaceholder {
		t.Errorf("l4 = %v, want %q", l3["l4"], depthPlaceholder)
	}
}

func TestSelfReferenceMap(t *testing.T) {
	props := map[string]any{"a": 1}
	props["self"] = props

	out := Properties(props)
	if out["self"] != circularPlaceholder {
		t.Errorf("self = %v, want %q", out["self"], circularPlaceholder)
	}
	if out["a"] != int64(1) {
		t.Errorf("a = %v", out["a"])
	}

	// Result must be JSON-serializable with no cyclic leftovers.
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("sanitized output not JSON-serializable: %v", err)
	}
}

func TestIndirectCycle(t *testing.T) {
	a := map[string]any{}
	b := map[string]any{"a": a}
	a["b"] = b

	out := Properties(a)
	inner, ok := out["b"].(map[string]any)
	if !ok {
		t.Fatalf("b is %T, want map", out["b"])
	}
	if inner["a"] != circularPlaceholder {
		t.Errorf("b.a = %v, want %q", inner["a"], circularPlaceholder)
	}
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("sanitized output not JSON-serializable: %v", err)
	}
}

func TestSharedNonCyclicReference(t *testing.T) {
	shared := map[string]any{"v": 1}
	out := Properties(map[string]any{"x": shared, "y": shared})

	for _, key := range []string{"x", "y"} {
		m, ok := out[key].(map[string]any)
		if !ok {
			t.Fatalf("%s is %T, want map (shared refs are not cycles)", key, out[key])
		}
		if m["v"] != int64(1) {
			t.Errorf("%s.v = %v", key, m["v"])
		}
	}
}

func TestUnsupportedTypesStringified(t *testing.T) {
	type widget struct{ Name string }
	out := Properties(map[string]any{
		"struct": widget{Name: "w"},
		"fn":     func() {},
		"ch":     make(chan int),
	})

	for _, key := range []string{"struct", "fn", "ch"} {
		if _, ok := out[key].(string); !ok {
			t.Errorf("%s is %T, want string", key, out[key])
		}
	}
}

func TestValueSingle(t *testing.T) {
	if got := Value("plain"); got != "plain" {
		t.Errorf("Value = %v", got)
	}
	if got := Value(math.NaN()); got != float64(0) {
		t.Errorf("Value(NaN) = %v, want 0", got)
	}
}
