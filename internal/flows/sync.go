package flows

import (
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// SyncAction is what a change from another instance requires locally.
type SyncAction int

const (
	SyncIgnore SyncAction = iota
	// SyncAdoptSession: take over the other instance's session without verifying.
	SyncAdoptSession
	// SyncForceLogout: the other instance logged out or wrote garbage.
	SyncForceLogout
	SyncAdoptProperties
	SyncClearProperties
)

func (a SyncAction) String() string {
	switch a {
	case SyncAdoptSession:
		return "adopt_session"
	case SyncForceLogout:
		return "force_logout"
	case SyncAdoptProperties:
		return "adopt_properties"
	case SyncClearProperties:
		return "clear_properties"
	}
	return "ignore"
}

// SyncDecision is the outcome of DecideSync.
type SyncDecision struct {
	Action     SyncAction
	Session    session.Session
	Properties session.PropertyEntry
	// Invalid marks a session key that was written with an unusable value.
	Invalid bool
	Err     error
}

// DecideSync maps a durable-store change made elsewhere to a local action.
func DecideSync(c storage.Change) SyncDecision {
	switch c.Key {
	case storage.KeySession:
		if c.Removed {
			return SyncDecision{Action: SyncForceLogout}
		}
		s, err := session.Decode(c.Value)
		if err != nil {
			return SyncDecision{Action: SyncForceLogout, Invalid: true, Err: err}
		}
		return SyncDecision{Action: SyncAdoptSession, Session: s}

	case storage.KeySharedProperties:
		if c.Removed {
			return SyncDecision{Action: SyncClearProperties}
		}
		e, err := session.DecodeSharedProperties(c.Value)
		if err != nil {
			return SyncDecision{Action: SyncIgnore, Err: err}
		}
		return SyncDecision{Action: SyncAdoptProperties, Properties: e}
	}
	return SyncDecision{Action: SyncIgnore}
}
