package personio

import (
	"encoding/json"
	"strconv"
)

// Entity is one raw object from the Personio API, kept in its native nested
// shape (attribute name to {"value": ...} wrapper). Attribute sets vary per
// tenant, so this stays schemaless until the transformer flattens it.
type Entity map[string]any

// Attributes returns the entity's attribute map, or nil when absent or
// malformed.
func (e Entity) Attributes() map[string]any {
	attrs, ok := e["attributes"].(map[string]any)
	if !ok {
		return nil
	}
	return attrs
}

// ID returns the employee id attribute as a string, for logging and path
// building. Empty when the entity carries no id.
func (e Entity) ID() string {
	attrs := e.Attributes()
	if attrs == nil {
		return ""
	}
	wrapper, ok := attrs["id"].(map[string]any)
	if !ok {
		return ""
	}
	switch v := wrapper["value"].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return ""
	}
}

// listEnvelope covers both response conventions Personio uses for list
// endpoints: v1-style data/metadata and the newer _data/_meta keys.
type listEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	AltData json.RawMessage `json:"_data"`
	Meta    *pageMeta       `json:"metadata"`
	AltMeta *pageMeta       `json:"_meta"`
}

// pageMeta carries pagination position. Pointers distinguish "absent" from
// zero, which drives the offset-vs-page advancement choice.
type pageMeta struct {
	TotalPages  *int `json:"total_pages"`
	CurrentPage *int `json:"current_page"`
}

// items decodes whichever data key is populated. The second return value is
// set when the endpoint returned a single object instead of a list, a known
// provider quirk rather than an error.
func (e *listEnvelope) items() ([]Entity, Entity, error) {
	raw := e.Data
	if isEmptyJSON(raw) {
		raw = e.AltData
	}
	if isEmptyJSON(raw) {
		return nil, nil, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, nil, err
	}
	switch t := v.(type) {
	case []any:
		out := make([]Entity, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Entity(m))
			}
		}
		return out, nil, nil
	case map[string]any:
		return nil, Entity(t), nil
	default:
		return nil, nil, nil
	}
}

// meta returns whichever metadata convention the response used, nil if none.
func (e *listEnvelope) meta() *pageMeta {
	if e.Meta != nil {
		return e.Meta
	}
	return e.AltMeta
}

func isEmptyJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// DocumentMeta describes one employee document as returned by the
// per-employee documents endpoint.
type DocumentMeta struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Extension string `json:"extension"`
	Category  string `json:"category"`
	Size      int64  `json:"size"`
}

// documentListEnvelope wraps the documents metadata response.
type documentListEnvelope struct {
	Data []DocumentMeta `json:"data"`
}
