package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// PropertySource says where GetProperties found its answer.
type PropertySource int

const (
	PropertiesUnauthenticated PropertySource = iota
	PropertiesMemory
	PropertiesEphemeral
	PropertiesNetwork
	// PropertiesStale: the fetch failed and the last in-memory list was returned.
	PropertiesStale
)

func (s PropertySource) String() string {
	switch s {
	case PropertiesMemory:
		return "memory"
	case PropertiesEphemeral:
		return "ephemeral"
	case PropertiesNetwork:
		return "network"
	case PropertiesStale:
		return "stale"
	}
	return "unauthenticated"
}

// PropertiesResult is the outcome of RunGetProperties. Properties is never nil.
type PropertiesResult struct {
	Properties []session.Property
	Source     PropertySource
	// Entry is set when Source is PropertiesEphemeral or PropertiesNetwork and
	// must be adopted as the in-memory entry.
	Entry *session.PropertyEntry
	Err   error
}

// PropertiesDeps captures property cache dependencies.
type PropertiesDeps struct {
	Now time.Time
	TTL time.Duration
	// Owner is the active user's ID; ok=false when unauthenticated.
	Owner         func() (session.ID, bool)
	Memory        func() *session.PropertyEntry
	LoadEphemeral func(context.Context) (*session.PropertyEntry, error)
	Fetch         func(context.Context) ([]session.Property, error)
	Store         func(context.Context, session.PropertyEntry)
	Warn          func(string, ...any)
}

// RunGetProperties serves the property list from memory, then the ephemeral store,
// then the network. A failed fetch falls back to the last in-memory list of the
// same owner.
func RunGetProperties(ctx context.Context, force bool, deps PropertiesDeps) PropertiesResult {
	owner, ok := deps.Owner()
	if !ok {
		return PropertiesResult{Properties: []session.Property{}, Source: PropertiesUnauthenticated}
	}

	mem := deps.Memory()
	if !force {
		if mem.Fresh(owner, deps.Now, deps.TTL) {
			return PropertiesResult{Properties: session.CloneProperties(mem.Properties), Source: PropertiesMemory}
		}

		stored, err := deps.LoadEphemeral(ctx)
		if err != nil {
			warn(deps.Warn, "goSession: cached properties unreadable: %v", err)
		}
		if stored != nil && stored.Fresh(owner, deps.Now, deps.TTL) {
			return PropertiesResult{
				Properties: session.CloneProperties(stored.Properties),
				Source:     PropertiesEphemeral,
				Entry:      stored,
			}
		}
	}

	props, err := deps.Fetch(ctx)
	if err != nil {
		warn(deps.Warn, "goSession: property fetch failed, serving last known list: %v", err)
		stale := []session.Property{}
		if mem != nil && mem.Owner == owner {
			stale = session.CloneProperties(mem.Properties)
		}
		return PropertiesResult{Properties: stale, Source: PropertiesStale, Err: err}
	}

	entry := session.PropertyEntry{Properties: session.CloneProperties(props), FetchedAt: deps.Now, Owner: owner}
	deps.Store(ctx, entry)
	return PropertiesResult{Properties: session.CloneProperties(props), Source: PropertiesNetwork, Entry: &entry}
}
