package threshold

import (
	"context"
	"encoding/json"

	"github.com/alexedwards/scs/v2"
)

// SessionKey is the opaque session key under which runtime threshold
// overrides are persisted, named explicitly by the engine's external
// interfaces contract.
const SessionKey = "hybrid-renderer-thresholds"

// Overrides is the JSON-compatible payload persisted for a session's
// runtime threshold overrides. Only the fields a caller actually
// overrides need to be set; nil/zero pointer fields are left at whatever
// the engine's current Config already holds.
type Overrides struct {
	VecToRas   *float64 `json:"vec_to_ras,omitempty"`
	RasToAccel *float64 `json:"ras_to_accel,omitempty"`
	ForceTier  *string  `json:"force_tier,omitempty"`
}

// Apply merges non-nil override fields into cfg.
func (o Overrides) Apply(cfg *Config) {
	if o.VecToRas != nil {
		cfg.VecToRas = *o.VecToRas
	}
	if o.RasToAccel != nil {
		cfg.RasToAccel = *o.RasToAccel
	}
	if o.ForceTier != nil {
		cfg.ForceTier = o.ForceTier
	}
}

// Store persists runtime threshold overrides across a session. The
// engine treats it as optional: a nil Store simply means overrides are
// not persisted beyond the current process's Config value.
type Store interface {
	Load(ctx context.Context) (Overrides, bool, error)
	Save(ctx context.Context, o Overrides) error
}

// MemoryStore is a Store backed by a single in-process value, useful for
// tests and for embedders with no session infrastructure of their own.
type MemoryStore struct {
	value   Overrides
	present bool
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (Overrides, bool, error) {
	return m.value, m.present, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, o Overrides) error {
	m.value = o
	m.present = true
	return nil
}

// SCSStore adapts github.com/alexedwards/scs/v2's SessionManager into a
// Store, JSON-encoding the Overrides payload under SessionKey — matching
// panyam-sdl's use of scs.SessionManager as the process's session store,
// and the engine's own description of the persisted format as
// "JSON-compatible".
type SCSStore struct {
	sm *scs.SessionManager
}

// NewSCSStore wraps an existing scs.SessionManager.
func NewSCSStore(sm *scs.SessionManager) *SCSStore {
	return &SCSStore{sm: sm}
}

// Load implements Store.
func (s *SCSStore) Load(ctx context.Context) (Overrides, bool, error) {
	raw := s.sm.GetString(ctx, SessionKey)
	if raw == "" {
		return Overrides{}, false, nil
	}
	var o Overrides
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return Overrides{}, false, err
	}
	return o, true, nil
}

// Save implements Store.
func (s *SCSStore) Save(ctx context.Context, o Overrides) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	s.sm.Put(ctx, SessionKey, string(raw))
	return nil
}
