package finance

import (
	"fmt"

	"github.com/titanous/json5"
)

// canonical attribute names a FieldMapping translates from
const (
	KEY_ID            = "id"
	KEY_NAME          = "name"
	KEY_INITIAL_VALUE = "initial_value"
	KEY_VALUE         = "value"

	// optional, read only when the caller does not supply labels
	KEY_LABELS = "labels"

	// auxiliary keys used to walk nested payloads
	KEY_ACCOUNTS = "accounts"
	KEY_FUNDS    = "funds"
	KEY_HOLDINGS = "holdings"
)

var requiredKeys = []string{
	KEY_ID,
	KEY_NAME,
	KEY_INITIAL_VALUE,
	KEY_VALUE,
}

func RequiredKeys() []string {
	out := make([]string, len(requiredKeys))
	copy(out, requiredKeys)
	return out
}

// FieldMapping translates canonical attribute names into the JSON keys a
// specific platform uses for one product type. Values may be dotted paths
// ("market.value") into nested objects.
type FieldMapping map[string]string

// MappingTable holds one FieldMapping per product type.
type MappingTable map[ProductType]FieldMapping

// UnmarshalJSON parses every key with ParseProductType. The json5 decoder
// converts string-kinded map keys directly and never calls UnmarshalText.
func (t *MappingTable) UnmarshalJSON(data []byte) error {
	var raw map[string]FieldMapping
	err := json5.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}
	table := make(MappingTable, len(raw))
	for key, m := range raw {
		pt, err := ParseProductType(key)
		if err != nil {
			return err
		}
		if _, ok := table[pt]; ok {
			return fmt.Errorf("product type %q is mapped more than once", pt)
		}
		table[pt] = m
	}
	*t = table
	return nil
}

type MappingConfigError struct {
	ProductType ProductType
	Key         string
}

func (e *MappingConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("no field mapping configured for %q", e.ProductType)
	}
	return fmt.Sprintf("mapping for %q is missing required key %q", e.ProductType, e.Key)
}

// Key returns the source key for a canonical attribute and whether it is
// configured at all.
func (m FieldMapping) Key(canonical string) (string, bool) {
	key, ok := m[canonical]
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Validate checks that the required canonical keys, plus any auxiliary
// keys in `extra`, are present.
func (m FieldMapping) Validate(pt ProductType, extra ...string) error {
	for _, key := range requiredKeys {
		if _, ok := m.Key(key); !ok {
			return &MappingConfigError{ProductType: pt, Key: key}
		}
	}
	for _, key := range extra {
		if _, ok := m.Key(key); !ok {
			return &MappingConfigError{ProductType: pt, Key: key}
		}
	}
	return nil
}

// Require looks up and validates the mapping of a product type.
func (t MappingTable) Require(pt ProductType, extra ...string) (FieldMapping, error) {
	m, ok := t[pt]
	if !ok {
		return nil, &MappingConfigError{ProductType: pt}
	}
	err := m.Validate(pt, extra...)
	if err != nil {
		return nil, err
	}
	return m, nil
}
