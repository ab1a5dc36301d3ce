package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ID is an identifier the API may send either as a JSON number or a JSON string.
// Numeric identifiers are written back as numbers.
type ID string

// UnmarshalJSON accepts `1`, `"1"` and `null`.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer-looking identifiers as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// User is the identity record returned by login, refresh and verify-token.
// Group and Subscription are only populated for roles that carry them. Any other
// member of the JSON object is kept in Attributes and written back beside the
// modelled fields.
type User struct {
	ID           ID             `json:"id"`
	Username     string         `json:"username,omitempty"`
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	Group        string         `json:"group,omitempty"`
	Subscription string         `json:"subscription,omitempty"`
	Attributes   map[string]any `json:"-"`
}

var userFields = []string{"id", "username", "email", "role", "group", "subscription"}

func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := extraFields(data, userFields)
	if err != nil {
		return err
	}
	v.Attributes = extra
	*u = User(v)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	data, err := json.Marshal(plain(u))
	if err != nil {
		return nil, err
	}
	return withExtraFields(data, u.Attributes)
}

// extraFields returns the members of the JSON object in data whose names are not
// in known. Numbers are kept as json.Number.
func extraFields(data []byte, known []string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// withExtraFields adds extra to the encoded object. Members already present win.
func withExtraFields(data []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := obj[k]; ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// Clone returns a deep-enough copy for handing out snapshots.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if len(u.Attributes) > 0 {
		out.Attributes = make(map[string]any, len(u.Attributes))
		for k, v := range u.Attributes {
			out.Attributes[k] = v
		}
	}
	return &out
}

// Session is the authenticated identity bound to the current process.
type Session struct {
	Token         string
	RefreshToken  string
	User          *User
	Authenticated bool

	// ExpiresAt is the token expiry when the token is a JWT carrying "exp";
	// zero when unknown.
	ExpiresAt time.Time
}

// Valid reports whether the record carries everything an authenticated session needs.
func (s Session) Valid() bool {
	return s.Token != "" && s.User != nil
}

// Normalize enforces the session invariant: an authenticated session is valid, and an
// unauthenticated one carries no identity.
func (s Session) Normalize() Session {
	if s.Authenticated && s.Valid() {
		return s
	}
	return Session{}
}

// Clone copies the session including its user.
func (s Session) Clone() Session {
	s.User = s.User.Clone()
	return s
}

// VerificationRecord is a cached judgment that Token was accepted by the server.
type VerificationRecord struct {
	Token      string
	User       *User
	VerifiedAt time.Time
}

// Usable reports whether the record answers for token at now within ttl.
func (r *VerificationRecord) Usable(token string, now time.Time, ttl time.Duration) bool {
	if r == nil || r.Token == "" || r.User == nil || r.Token != token {
		return false
	}
	return now.Sub(r.VerifiedAt) < ttl
}

// Matches reports whether the record was computed for token, regardless of age.
func (r *VerificationRecord) Matches(token string) bool {
	return r != nil && r.User != nil && r.Token != "" && r.Token == token
}
