package ledger

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind discriminates the closed set of metadata value variants.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindTime
	KindMap
)

// Value is one typed metadata value. Exactly one field matching Kind is set.
type Value struct {
	Kind ValueKind
	Str  string
	Num  decimal.Decimal
	Bool bool
	Time time.Time
	Map  Metadata
}

// Metadata is a typed key-value map persisted alongside entries, lines,
// and audit records.
type Metadata map[string]Value

// String wraps a string metadata value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps a decimal metadata value.
func Number(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }

// Bool wraps a boolean metadata value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Time wraps a timestamp metadata value.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// Map wraps a nested metadata map.
func Map(m Metadata) Value { return Value{Kind: KindMap, Map: m} }

// MarshalJSON renders the underlying variant without the discriminator.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTime:
		return json.Marshal(v.Time.UTC().Format(time.RFC3339))
	case KindMap:
		return json.Marshal(v.Map)
	default:
		return json.Marshal(v.Str)
	}
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num.Equal(o.Num)
	case KindBool:
		return v.Bool == o.Bool
	case KindTime:
		return v.Time.Equal(o.Time)
	case KindMap:
		return v.Map.Equal(o.Map)
	default:
		return v.Str == o.Str
	}
}

// Equal compares two metadata maps structurally.
func (m Metadata) Equal(o Metadata) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// ChangedKeys lists keys whose values differ between old and new, sorted.
func ChangedKeys(old, new Metadata) []string {
	seen := make(map[string]struct{})
	var keys []string
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k, v := range old {
		nv, ok := new[k]
		if !ok || !v.Equal(nv) {
			add(k)
		}
	}
	for k := range new {
		if _, ok := old[k]; !ok {
			add(k)
		}
	}
	sort.Strings(keys)
	return keys
}
