package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// Records reads and writes the session manager's persisted state. Durable holds the
// session record (and the shared property mirror); Ephemeral holds per-instance
// caches.
type Records struct {
	Durable   storage.Store
	Ephemeral storage.Store
}

// LoadSession returns ok=false when no record is stored. A record that cannot back
// an authenticated session fails with session.ErrCorrupt or session.ErrIncomplete.
func (r Records) LoadSession(ctx context.Context) (session.Session, bool, error) {
	text, ok, err := r.Durable.Get(ctx, storage.KeySession)
	if err != nil || !ok {
		return session.Session{}, false, err
	}
	s, err := session.Decode(text)
	if err != nil {
		return session.Session{}, true, err
	}
	return s, true, nil
}

func (r Records) SaveSession(ctx context.Context, s session.Session) error {
	text, err := session.Encode(s)
	if err != nil {
		return err
	}
	return r.Durable.Set(ctx, storage.KeySession, text)
}

func (r Records) ClearSession(ctx context.Context) error {
	return r.Durable.Remove(ctx, storage.KeySession)
}

// LoadVerification returns nil when any part of the record is missing.
func (r Records) LoadVerification(ctx context.Context) (*session.VerificationRecord, error) {
	tsText, ok, err := r.Ephemeral.Get(ctx, storage.KeyLastVerified)
	if err != nil || !ok {
		return nil, err
	}
	token, ok, err := r.Ephemeral.Get(ctx, storage.KeyLastVerifiedToken)
	if err != nil || !ok {
		return nil, err
	}
	userText, ok, err := r.Ephemeral.Get(ctx, storage.KeyLastVerifiedUser)
	if err != nil || !ok {
		return nil, err
	}

	verifiedAt, err := session.DecodeTimestamp(tsText)
	if err != nil {
		return nil, err
	}
	user, err := session.DecodeUser(userText)
	if err != nil {
		return nil, err
	}
	return &session.VerificationRecord{Token: token, User: user, VerifiedAt: verifiedAt}, nil
}

func (r Records) SaveVerification(ctx context.Context, rec session.VerificationRecord) error {
	userText, err := session.EncodeUser(rec.User)
	if err != nil {
		return err
	}
	if err := r.Ephemeral.Set(ctx, storage.KeyLastVerifiedToken, rec.Token); err != nil {
		return err
	}
	if err := r.Ephemeral.Set(ctx, storage.KeyLastVerifiedUser, userText); err != nil {
		return err
	}
	return r.Ephemeral.Set(ctx, storage.KeyLastVerified, session.EncodeTimestamp(rec.VerifiedAt))
}

func (r Records) ClearVerification(ctx context.Context) error {
	return errors.Join(
		r.Ephemeral.Remove(ctx, storage.KeyLastVerified),
		r.Ephemeral.Remove(ctx, storage.KeyLastVerifiedToken),
		r.Ephemeral.Remove(ctx, storage.KeyLastVerifiedUser),
	)
}

// LoadMarker returns the time of the last full startup verification.
func (r Records) LoadMarker(ctx context.Context) (time.Time, bool, error) {
	text, ok, err := r.Ephemeral.Get(ctx, storage.KeyLastInit)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := session.DecodeTimestamp(text)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (r Records) SaveMarker(ctx context.Context, t time.Time) error {
	return r.Ephemeral.Set(ctx, storage.KeyLastInit, session.EncodeTimestamp(t))
}

func (r Records) ClearMarker(ctx context.Context) error {
	return r.Ephemeral.Remove(ctx, storage.KeyLastInit)
}

// LoadProperties returns nil when no entry is cached.
func (r Records) LoadProperties(ctx context.Context) (*session.PropertyEntry, error) {
	list, ok, err := r.Ephemeral.Get(ctx, storage.KeyProperties)
	if err != nil || !ok {
		return nil, err
	}
	tsText, ok, err := r.Ephemeral.Get(ctx, storage.KeyPropertiesTime)
	if err != nil || !ok {
		return nil, err
	}
	entry, err := session.DecodeProperties(list)
	if err != nil {
		return nil, err
	}
	if entry.FetchedAt, err = session.DecodeTimestamp(tsText); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r Records) SaveProperties(ctx context.Context, e session.PropertyEntry) error {
	text, err := session.EncodeProperties(e)
	if err != nil {
		return err
	}
	if err := r.Ephemeral.Set(ctx, storage.KeyProperties, text); err != nil {
		return err
	}
	return r.Ephemeral.Set(ctx, storage.KeyPropertiesTime, session.EncodeTimestamp(e.FetchedAt))
}

func (r Records) ClearProperties(ctx context.Context) error {
	return errors.Join(
		r.Ephemeral.Remove(ctx, storage.KeyProperties),
		r.Ephemeral.Remove(ctx, storage.KeyPropertiesTime),
	)
}

// SaveSharedProperties mirrors e to the durable store for other instances.
func (r Records) SaveSharedProperties(ctx context.Context, e session.PropertyEntry) error {
	text, err := session.EncodeSharedProperties(e)
	if err != nil {
		return err
	}
	return r.Durable.Set(ctx, storage.KeySharedProperties, text)
}

func (r Records) ClearSharedProperties(ctx context.Context) error {
	return r.Durable.Remove(ctx, storage.KeySharedProperties)
}
