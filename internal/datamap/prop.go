package datamap

import (
	"strconv"

	"datamap/internal/geom"
)

// Prop is a visual property that is either a fixed value, computed from the
// datum record, or computed from a region and its record.
type Prop[T any] struct {
	value  T
	set    bool
	record func(geom.Record) T
	region func(geom.Region, geom.Record) T
}

func Fixed[T any](v T) Prop[T] { return Prop[T]{value: v, set: true} }

func FromRecord[T any](fn func(geom.Record) T) Prop[T] { return Prop[T]{record: fn} }

func FromRegion[T any](fn func(geom.Region, geom.Record) T) Prop[T] { return Prop[T]{region: fn} }

// IsSet reports whether the property carries a value or a function.
func (p Prop[T]) IsSet() bool { return p.set || p.record != nil || p.region != nil }

// Value returns the fixed value. Unset and computed properties give the zero
// value.
func (p Prop[T]) Value() T { return p.value }

// Or returns p when set, else def.
func (p Prop[T]) Or(def Prop[T]) Prop[T] {
	if p.IsSet() {
		return p
	}
	return def
}

// ResolveRecord resolves p for a single-record context (bubbles, arcs). The
// override wins when present and convertible; it may itself be a
// func(geom.Record) T.
func ResolveRecord[T any](p Prop[T], override any, rec geom.Record) (T, bool) {
	if fn, ok := override.(func(geom.Record) T); ok {
		return fn(rec), true
	}
	if v, ok := convert[T](override); ok {
		return v, true
	}
	switch {
	case p.record != nil:
		return p.record(rec), true
	case p.region != nil:
		return p.region(geom.Region{}, rec), true
	case p.set:
		return p.value, true
	}
	var zero T
	return zero, false
}

// ResolveRegion resolves p for a region context. The override may be a
// func(geom.Region, geom.Record) T.
func ResolveRegion[T any](p Prop[T], override any, region geom.Region, rec geom.Record) (T, bool) {
	if fn, ok := override.(func(geom.Region, geom.Record) T); ok {
		return fn(region, rec), true
	}
	if v, ok := convert[T](override); ok {
		return v, true
	}
	switch {
	case p.region != nil:
		return p.region(region, rec), true
	case p.record != nil:
		return p.record(rec), true
	case p.set:
		return p.value, true
	}
	var zero T
	return zero, false
}

// mayEnable reports whether a flag can resolve to true for some datum.
func mayEnable(p Prop[bool]) bool {
	return p.value || p.record != nil || p.region != nil
}

// recordField returns rec[key] when rec is non-nil.
func recordField(rec geom.Record, key string) any {
	if rec == nil {
		return nil
	}
	return rec[key]
}

func convert[T any](v any) (T, bool) {
	var zero T
	if v == nil {
		return zero, false
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	switch any(zero).(type) {
	case float64:
		if f, ok := geom.ToFloat(v); ok {
			return any(f).(T), true
		}
	case string:
		if f, ok := v.(float64); ok {
			return any(strconv.FormatFloat(f, 'f', -1, 64)).(T), true
		}
	case bool:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return any(b).(T), true
			}
		}
	}
	return zero, false
}
