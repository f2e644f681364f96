// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package sanitize bounds arbitrary user-supplied property bags into
// JSON-safe structures before they are queued for transmission.
//
// Bounds applied: nesting depth, map key count, array length, and string
// length. Self-referential structures are replaced with a placeholder
// instead of recursing. Non-finite numbers become 0. Values of unsupported
// types are stringified and truncated. Properties never returns an error
// and never panics; tracking must not crash the host application.
package sanitize

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"unicode/utf8"
)

// Bounds applied during sanitization.
const (
	MaxDepth     = 3
	MaxKeys      = 50
	MaxArrayLen  = 100
	MaxStringLen = 1000
)

// Placeholders substituted for values that cannot be carried as-is.
const (
	circularPlaceholder = "[Circular]"
	depthPlaceholder    = "[Truncated]"
)

// Properties sanitizes a property bag. A nil input yields a nil map.
func Properties(props map[string]any) (out map[string]any) {
	if props == nil {
		return nil
	}
	// Last line of defense against reflection edge cases.
	defer func() {
		if r := recover(); r != nil {
			out = map[string]any{}
		}
	}()
	v := reflect.ValueOf(props)
	seen := map[uintptr]bool{v.Pointer(): true}
	return sanitizeMap(v, 1, seen)
}

// Value sanitizes a single value as if it were a top-level property.
func Value(v any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	seen := make(map[uintptr]bool)
	return sanitizeValue(reflect.ValueOf(v), 1, seen)
}

func sanitizeValue(v reflect.Value, depth int, seen map[uintptr]bool) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer {
			ptr := v.Pointer()
			if seen[ptr] {
				return circularPlaceholder
			}
			seen[ptr] = true
			defer delete(seen, ptr)
		}
		return sanitizeValue(v.Elem(), depth, seen)

	case reflect.Bool:
		return v.Bool()

	case reflect.String:
		return truncate(v.String())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return float64(0)
		}
		return f

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if depth > MaxDepth {
			return depthPlaceholder
		}
		ptr := v.Pointer()
		if seen[ptr] {
			return circularPlaceholder
		}
		seen[ptr] = true
		defer delete(seen, ptr)
		return sanitizeMap(v, depth, seen)

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if depth > MaxDepth {
			return depthPlaceholder
		}
		ptr := v.Pointer()
		if seen[ptr] {
			return circularPlaceholder
		}
		seen[ptr] = true
		defer delete(seen, ptr)
		return sanitizeSlice(v, depth, seen)

	case reflect.Array:
		if depth > MaxDepth {
			return depthPlaceholder
		}
		return sanitizeSlice(v, depth, seen)

	default:
		// Structs, channels, funcs and anything else: stringify.
		return truncate(fmt.Sprintf("%v", v.Interface()))
	}
}

// sanitizeMap converts any map into a bounded map[string]any. Keys are
// sorted before the key cap is applied so truncation is deterministic.
func sanitizeMap(v reflect.Value, depth int, seen map[uintptr]bool) map[string]any {
	keys := make([]string, 0, v.Len())
	byKey := make(map[string]reflect.Value, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		k := fmt.Sprintf("%v", iter.Key().Interface())
		keys = append(keys, k)
		byKey[k] = iter.Value()
	}
	sort.Strings(keys)

	if len(keys) > MaxKeys {
		keys = keys[:MaxKeys]
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[truncate(k)] = sanitizeValue(byKey[k], depth+1, seen)
	}
	return out
}

func sanitizeSlice(v reflect.Value, depth int, seen map[uintptr]bool) []any {
	n := v.Len()
	if n > MaxArrayLen {
		n = MaxArrayLen
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = sanitizeValue(v.Index(i), depth+1, seen)
	}
	return out
}

// truncate caps s at MaxStringLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= MaxStringLen {
		return s
	}
	cut := MaxStringLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
