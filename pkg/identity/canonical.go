package identity

import "encoding/json"

// CanonicalJSON serializes v to UTF-8 JSON with sorted object keys and no
// insignificant whitespace, per spec.md §6/§7's canonical-JSON requirement
// for content_hash and signed payloads. encoding/json already marshals
// map[string]any keys in sorted order; the round trip through an untyped
// value normalizes any struct field order to that same sorted-map order.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(generic)
}
