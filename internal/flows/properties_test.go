package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/session"
)

type propsHarness struct {
	clock   *fakeClock
	rec     Records
	owner   session.ID
	mem     *session.PropertyEntry
	fetches int
	list    []session.Property
	err     error
}

func newPropsHarness() *propsHarness {
	return &propsHarness{
		clock: newClock(),
		rec:   newRecords(),
		owner: "1",
		list:  []session.Property{{ID: "10", Name: "Harbour View"}, {ID: "11", Name: "Elm Court"}},
	}
}

func (h *propsHarness) run(force bool) PropertiesResult {
	res := RunGetProperties(context.Background(), force, PropertiesDeps{
		Now: h.clock.Now(),
		TTL: 5 * time.Minute,
		Owner: func() (session.ID, bool) {
			return h.owner, h.owner != ""
		},
		Memory:        func() *session.PropertyEntry { return h.mem },
		LoadEphemeral: h.rec.LoadProperties,
		Fetch: func(context.Context) ([]session.Property, error) {
			h.fetches++
			return h.list, h.err
		},
		Store: func(ctx context.Context, e session.PropertyEntry) {
			_ = h.rec.SaveProperties(ctx, e)
		},
	})
	if res.Entry != nil {
		h.mem = res.Entry
	}
	return res
}

func TestPropertiesUnauthenticatedIsEmpty(t *testing.T) {
	h := newPropsHarness()
	h.owner = ""
	res := h.run(false)
	require.NotNil(t, res.Properties)
	require.Empty(t, res.Properties)
	require.Zero(t, h.fetches)
}

func TestPropertiesServedFromMemoryWithinTTL(t *testing.T) {
	h := newPropsHarness()
	require.Equal(t, PropertiesNetwork, h.run(false).Source)

	h.clock.Advance(4 * time.Minute)
	res := h.run(false)
	require.Equal(t, PropertiesMemory, res.Source)
	require.Equal(t, h.list, res.Properties)
	require.Equal(t, 1, h.fetches)

	h.clock.Advance(time.Minute)
	require.Equal(t, PropertiesNetwork, h.run(false).Source)
	require.Equal(t, 2, h.fetches)
}

func TestPropertiesHydrateFromEphemeralStore(t *testing.T) {
	h := newPropsHarness()
	h.run(false)
	h.mem = nil // reload: memory gone, ephemeral store survives

	res := h.run(false)
	require.Equal(t, PropertiesEphemeral, res.Source)
	require.Equal(t, h.list, res.Properties)
	require.NotNil(t, h.mem)
	require.Equal(t, 1, h.fetches)
}

func TestPropertiesForceRefreshFetches(t *testing.T) {
	h := newPropsHarness()
	h.run(false)
	require.Equal(t, PropertiesNetwork, h.run(true).Source)
	require.Equal(t, 2, h.fetches)
}

func TestPropertiesEntryOfOtherUserIsNotServed(t *testing.T) {
	h := newPropsHarness()
	h.run(false)
	h.owner = "2"

	res := h.run(false)
	require.Equal(t, PropertiesNetwork, res.Source)
	require.Equal(t, 2, h.fetches)
}

func TestPropertiesFetchFailureServesStaleList(t *testing.T) {
	h := newPropsHarness()
	h.run(false)
	h.clock.Advance(time.Hour)
	h.err = errors.New("down")

	res := h.run(false)
	require.Equal(t, PropertiesStale, res.Source)
	require.Equal(t, h.list, res.Properties)
	require.Error(t, res.Err)
}

func TestPropertiesFetchFailureWithoutHistoryIsEmpty(t *testing.T) {
	h := newPropsHarness()
	h.err = errors.New("down")
	res := h.run(false)
	require.Equal(t, PropertiesStale, res.Source)
	require.NotNil(t, res.Properties)
	require.Empty(t, res.Properties)
}

func TestPropertiesResultIsACopy(t *testing.T) {
	h := newPropsHarness()
	res := h.run(false)
	res.Properties[0].Name = "mutated"
	require.Equal(t, "Harbour View", h.run(false).Properties[0].Name)
}
