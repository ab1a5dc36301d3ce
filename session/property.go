package session

import (
	"encoding/json"
	"maps"
	"time"
)

// Property is one entry of the caller-visible property list. Fields the client does
// not interpret are kept in Attributes and encoded back as top-level members.
type Property struct {
	ID         ID             `json:"id"`
	Name       string         `json:"name"`
	Address    string         `json:"address,omitempty"`
	Attributes map[string]any `json:"-"`
}

var propertyFields = []string{"id", "name", "address"}

func (p *Property) UnmarshalJSON(data []byte) error {
	type plain Property
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := extraFields(data, propertyFields)
	if err != nil {
		return err
	}
	v.Attributes = extra
	*p = Property(v)
	return nil
}

func (p Property) MarshalJSON() ([]byte, error) {
	type plain Property
	data, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	return withExtraFields(data, p.Attributes)
}

// PropertyEntry is a cached snapshot of the property list.
type PropertyEntry struct {
	Properties []Property `json:"properties"`
	FetchedAt  time.Time  `json:"fetched_at"`
	// Owner is the ID of the user whose session produced the list.
	Owner ID `json:"owner,omitempty"`
}

// Fresh reports whether the entry may be served to owner at now.
func (e *PropertyEntry) Fresh(owner ID, now time.Time, ttl time.Duration) bool {
	if e == nil || e.FetchedAt.IsZero() {
		return false
	}
	if e.Owner != owner {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// CloneProperties copies a property list so callers cannot mutate cached state.
func CloneProperties(in []Property) []Property {
	if in == nil {
		return []Property{}
	}
	out := make([]Property, len(in))
	for i, p := range in {
		p.Attributes = maps.Clone(p.Attributes)
		out[i] = p
	}
	return out
}
