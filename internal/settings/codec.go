package settings

import (
	"encoding/json"

	"go.uber.org/zap"

	"codequery/internal/core"
)

// Decode reads a settings document member by member. A member of the wrong
// shape becomes empty; inside a well-shaped member, entries that cannot be
// read are skipped and the rest are kept.
func Decode(data []byte) (core.Settings, error) {
	s := core.DefaultSettings()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, err
	}

	if v, ok := raw["connections"]; ok {
		s.Connections = decodeList(v, "connections", decodeProfile)
	}
	if v, ok := raw["products"]; ok {
		s.Products = decodeList(v, "products", decodeProduct)
	}
	if v, ok := raw["fieldLabels"]; ok {
		s.FieldLabels = decodeLabels(v)
	}
	return s.Normalize(), nil
}

// Encode renders the settings document with a two-space indent.
func Encode(s core.Settings) ([]byte, error) {
	return json.MarshalIndent(s.Normalize(), "", "  ")
}

func decodeList[T any](data json.RawMessage, member string, decode func(map[string]json.RawMessage) T) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return []T{}
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			zap.S().Named("settings").Warnw("skipping unreadable settings entry", "member", member, "index", i)
			continue
		}
		out = append(out, decode(fields))
	}
	return out
}

func decodeProfile(f map[string]json.RawMessage) core.ConnectionProfile {
	var port core.Port
	if v, ok := f["port"]; ok {
		if err := json.Unmarshal(v, &port); err != nil {
			port = 0
		}
	}
	return core.ConnectionProfile{
		ID:       looseString(f["id"]),
		Name:     looseString(f["name"]),
		Host:     looseString(f["host"]),
		Port:     port,
		User:     looseString(f["user"]),
		Password: looseString(f["password"]),
		Database: looseString(f["database"]),
	}
}

func decodeProduct(f map[string]json.RawMessage) core.ProductDefinition {
	return core.ProductDefinition{
		ID:   looseString(f["id"]),
		Name: looseString(f["name"]),
		GTIN: looseString(f["gtin"]),
	}
}

// decodeLabels keeps the string-valued labels of an object.
func decodeLabels(data json.RawMessage) map[string]string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		var label string
		if err := json.Unmarshal(v, &label); err != nil {
			zap.S().Named("settings").Warnw("skipping non-string field label", "field", k)
			continue
		}
		out[k] = label
	}
	return out
}

// looseString reads a string or number; anything else is "".
func looseString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s core.FlexString
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return string(s)
}
