package finance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize converts one raw JSON object into a Product using the given
// mapping. Missing or malformed fields fall back to "" and 0, the only
// error is a mapping that lacks a required canonical key.
func Normalize(pt ProductType, platform Platform, raw map[string]any, mapping FieldMapping, labels string) (Product, error) {
	if !pt.Valid() {
		return Product{}, fmt.Errorf("normalize: unknown product type %q", pt)
	}
	if !platform.Valid() {
		return Product{}, fmt.Errorf("normalize: unknown platform %q", platform)
	}
	err := mapping.Validate(pt)
	if err != nil {
		return Product{}, err
	}

	if labels == "" {
		if key, ok := mapping.Key(KEY_LABELS); ok {
			value, _ := Lookup(raw, key)
			labels = AsString(value)
		}
	}

	return Product{
		ID:           strings.ToLower(mappedString(raw, mapping, KEY_ID)),
		Name:         strings.ToLower(mappedString(raw, mapping, KEY_NAME)),
		Type:         pt,
		Platform:     platform,
		InitialValue: mappedFloat(raw, mapping, KEY_INITIAL_VALUE),
		Value:        mappedFloat(raw, mapping, KEY_VALUE),
		Labels:       labels,
	}, nil
}

// NormalizeAll normalizes every record with the same labels, it stops at
// the first configuration error.
func NormalizeAll(pt ProductType, platform Platform, records []map[string]any, mapping FieldMapping, labels string) ([]Product, error) {
	out := make([]Product, 0, len(records))
	for _, r := range records {
		p, err := Normalize(pt, platform, r, mapping, labels)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func mappedString(raw map[string]any, mapping FieldMapping, canonical string) string {
	key, ok := mapping.Key(canonical)
	if !ok {
		return ""
	}
	value, _ := Lookup(raw, key)
	return AsString(value)
}

func mappedFloat(raw map[string]any, mapping FieldMapping, canonical string) float64 {
	key, ok := mapping.Key(canonical)
	if !ok {
		return 0
	}
	value, _ := Lookup(raw, key)
	return AsFloat(value)
}

// Lookup resolves a source key in a raw object. A literal key always wins,
// otherwise a dotted key is walked through nested objects.
func Lookup(raw map[string]any, key string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	if value, ok := raw[key]; ok {
		return value, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	current := raw
	parts := strings.Split(key, ".")
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		next, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// LookupObject returns the object stored under key, or nil.
func LookupObject(raw map[string]any, key string) map[string]any {
	value, ok := Lookup(raw, key)
	if !ok {
		return nil
	}
	obj, _ := value.(map[string]any)
	return obj
}

// LookupObjects returns the objects of the list stored under key, list
// elements that are not objects are skipped.
func LookupObjects(raw map[string]any, key string) []map[string]any {
	value, ok := Lookup(raw, key)
	if !ok {
		return nil
	}
	return Objects(value)
}

// Objects keeps the object elements of a decoded JSON list.
func Objects(value any) []map[string]any {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func AsString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	}
	// objects and lists have no sensible scalar form
	return ""
}

func AsFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}
