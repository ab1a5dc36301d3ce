package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	recordFormatVersionCurrent = 2
	recordFormatVersionV1      = 1
)

// CurrentSchemaVersion is the durable record version written by Encode.
const CurrentSchemaVersion = recordFormatVersionCurrent

var (
	// ErrCorrupt is returned when stored text cannot be parsed.
	ErrCorrupt = errors.New("session record corrupt")
	// ErrIncomplete is returned when a parsed record lacks a token or user.
	ErrIncomplete = errors.New("session record incomplete")
	// ErrUnsupportedVersion is returned for records written by a newer client.
	ErrUnsupportedVersion = errors.New("unsupported session schema version")
)

type record struct {
	Version       int    `json:"v,omitempty"`
	Token         string `json:"token"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	User          *User  `json:"user"`
	Authenticated bool   `json:"authenticated"`

	// v1 field names, read only.
	LegacyRefreshToken  string `json:"refreshToken,omitempty"`
	LegacyAuthenticated *bool  `json:"isAuthenticated,omitempty"`
}

// Encode serializes an authenticated session for the durable store.
func Encode(s Session) (string, error) {
	if !s.Valid() {
		return "", ErrIncomplete
	}
	data, err := json.Marshal(record{
		Version:       recordFormatVersionCurrent,
		Token:         s.Token,
		RefreshToken:  s.RefreshToken,
		User:          s.User,
		Authenticated: true,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a durable session record. The returned session is always
// authenticated; records that cannot back an authenticated session fail with
// ErrCorrupt or ErrIncomplete.
func Decode(text string) (Session, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return Session{}, ErrIncomplete
	}

	var r record
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	switch r.Version {
	case 0, recordFormatVersionV1:
		if r.RefreshToken == "" {
			r.RefreshToken = r.LegacyRefreshToken
		}
		if r.LegacyAuthenticated != nil {
			r.Authenticated = *r.LegacyAuthenticated
		} else if r.Version == 0 {
			r.Authenticated = true
		}
	case recordFormatVersionCurrent:
	default:
		return Session{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.Version)
	}

	s := Session{
		Token:         r.Token,
		RefreshToken:  r.RefreshToken,
		User:          r.User,
		Authenticated: r.Authenticated,
	}
	if !s.Valid() || !s.Authenticated {
		return Session{}, ErrIncomplete
	}
	return s, nil
}

// EncodeUser serializes a user snapshot.
func EncodeUser(u *User) (string, error) {
	if u == nil {
		return "", ErrIncomplete
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUser parses a user snapshot; "null" is rejected.
func DecodeUser(text string) (*User, error) {
	var u *User
	if err := json.Unmarshal([]byte(text), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if u == nil {
		return nil, ErrIncomplete
	}
	return u, nil
}

// EncodeTimestamp writes t as unix milliseconds.
func EncodeTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// DecodeTimestamp parses unix milliseconds.
func DecodeTimestamp(text string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return time.UnixMilli(ms), nil
}

type propertyRecord struct {
	Owner      ID         `json:"owner,omitempty"`
	Properties []Property `json:"properties"`
}

// EncodeProperties serializes the list part of a property entry. The fetch time is
// stored separately with EncodeTimestamp.
func EncodeProperties(e PropertyEntry) (string, error) {
	props := e.Properties
	if props == nil {
		props = []Property{}
	}
	data, err := json.Marshal(propertyRecord{Owner: e.Owner, Properties: props})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeProperties parses the list part of a property entry. A bare JSON array is
// accepted as an ownerless list.
func DecodeProperties(text string) (PropertyEntry, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") {
		var props []Property
		if err := json.Unmarshal([]byte(text), &props); err != nil {
			return PropertyEntry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return PropertyEntry{Properties: props}, nil
	}
	var r propertyRecord
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return PropertyEntry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r.Properties == nil {
		r.Properties = []Property{}
	}
	return PropertyEntry{Owner: r.Owner, Properties: r.Properties}, nil
}

// EncodeSharedProperties serializes a full entry including its fetch time, for the
// durable mirror other instances adopt.
func EncodeSharedProperties(e PropertyEntry) (string, error) {
	props := e.Properties
	if props == nil {
		props = []Property{}
	}
	data, err := json.Marshal(PropertyEntry{Properties: props, FetchedAt: e.FetchedAt, Owner: e.Owner})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeSharedProperties parses the durable mirror written by EncodeSharedProperties.
func DecodeSharedProperties(text string) (PropertyEntry, error) {
	var e PropertyEntry
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return PropertyEntry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if e.Properties == nil {
		e.Properties = []Property{}
	}
	return e, nil
}
