package flows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

func TestDecideSyncSessionChanges(t *testing.T) {
	text, err := session.Encode(storedSession)
	require.NoError(t, err)

	d := DecideSync(storage.Change{Key: storage.KeySession, Value: text})
	require.Equal(t, SyncAdoptSession, d.Action)
	require.Equal(t, "abc", d.Session.Token)
	require.True(t, d.Session.Authenticated)

	d = DecideSync(storage.Change{Key: storage.KeySession, Removed: true})
	require.Equal(t, SyncForceLogout, d.Action)
	require.False(t, d.Invalid)

	d = DecideSync(storage.Change{Key: storage.KeySession, Value: `{"token":"abc"}`})
	require.Equal(t, SyncForceLogout, d.Action)
	require.True(t, d.Invalid)
	require.ErrorIs(t, d.Err, session.ErrIncomplete)
}

func TestDecideSyncPropertyChanges(t *testing.T) {
	entry := session.PropertyEntry{Properties: []session.Property{{ID: "10", Name: "Harbour View"}}, FetchedAt: time.UnixMilli(1_700_000_000_000).UTC(), Owner: "1"}
	text, err := session.EncodeSharedProperties(entry)
	require.NoError(t, err)

	d := DecideSync(storage.Change{Key: storage.KeySharedProperties, Value: text})
	require.Equal(t, SyncAdoptProperties, d.Action)
	require.Equal(t, entry.Properties, d.Properties.Properties)
	require.Equal(t, entry.Owner, d.Properties.Owner)

	d = DecideSync(storage.Change{Key: storage.KeySharedProperties, Removed: true})
	require.Equal(t, SyncClearProperties, d.Action)

	d = DecideSync(storage.Change{Key: storage.KeySharedProperties, Value: "{"})
	require.Equal(t, SyncIgnore, d.Action)
	require.Error(t, d.Err)
}

func TestDecideSyncIgnoresOtherKeys(t *testing.T) {
	require.Equal(t, SyncIgnore, DecideSync(storage.Change{Key: "unrelated", Value: "x"}).Action)
}
