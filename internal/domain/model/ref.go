package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Ref is a relationship value. Clients send either a bare id (string or
// number) or an expanded document carrying an "id" field; both decode to the
// same Ref and always encode back as a bare string id.
type Ref struct {
	ID string
}

// NewRef returns a Ref for id, or nil when id is empty.
func NewRef(id string) *Ref {
	if id == "" {
		return nil
	}
	return &Ref{ID: id}
}

// ResolveID normalises a reference to its id. A nil ref resolves to "".
func ResolveID(ref *Ref) string {
	if ref == nil {
		return ""
	}
	return ref.ID
}

// IsZero reports whether the reference points at nothing.
func (r Ref) IsZero() bool { return r.ID == "" }

// MarshalJSON encodes the reference as its bare id.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts null, "id", 42 or {"id": ...}.
func (r *Ref) UnmarshalJSON(b []byte) error {
	id, err := decodeRefID(b)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

var errBadRef = errors.New("reference must be an id or an object with an id")

func decodeRefID(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", fmt.Errorf("decode ref: %w", err)
		}
		return s, nil
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return "", fmt.Errorf("decode ref: %w", err)
		}
		if len(obj.ID) == 0 || obj.ID[0] == '{' {
			return "", errBadRef
		}
		return decodeRefID(obj.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return "", errBadRef
		}
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return n.String(), nil
	}
}

// DistinctRefIDs returns the ids of refs in first-seen order, skipping empties and duplicates.
func DistinctRefIDs(single *Ref, list []Ref) []string {
	seen := make(map[string]struct{}, len(list)+1)
	out := make([]string, 0, len(list)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(ResolveID(single))
	for i := range list {
		add(list[i].ID)
	}
	return out
}
