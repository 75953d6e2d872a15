package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Identifier is a server-assigned resource id. The backend emits integers; the
// editor treats them as opaque strings.
type Identifier string

func (id Identifier) String() string { return string(id) }

func (id Identifier) IsZero() bool { return id == "" }

// MarshalJSON writes numeric ids as JSON numbers so the backend accepts them.
func (id Identifier) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id *Identifier) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = Identifier(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier: %w", err)
	}
	*id = Identifier(n.String())
	return nil
}
