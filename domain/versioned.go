package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ZeroVersion marks the absence of a predecessor in a version chain.
var ZeroVersion = strings.Repeat("0", 32)

// NewID returns a 32 character lowercase hex identifier.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// VersionedModel carries the identity and provenance columns shared by every
// audited table. The primary table holds the latest version of an entity and
// the audit table holds one row per (entity_id, version).
type VersionedModel struct {
	EntityID        string
	Version         string
	PreviousVersion string
	Active          bool
	ChangedByID     string
	ChangedOn       time.Time
}

// NewVersionedModel returns an active model with a fresh entity id and no version yet.
func NewVersionedModel() VersionedModel {
	return VersionedModel{
		EntityID: NewID(),
		Active:   true,
	}
}

// IsNew reports whether the entity has never been persisted.
func (m *VersionedModel) IsNew() bool {
	return m.Version == ""
}

// Advance moves the model to a new version ahead of a write and returns a
// function that restores the previous state if the write fails.
func (m *VersionedModel) Advance(actor string, now time.Time) (restore func()) {
	snapshot := *m

	if m.EntityID == "" {
		m.EntityID = NewID()
	}
	if m.Version == "" {
		m.PreviousVersion = ZeroVersion
	} else {
		m.PreviousVersion = m.Version
	}
	m.Version = NewID()
	m.ChangedByID = actor
	m.ChangedOn = now.UTC()

	return func() { *m = snapshot }
}

// Fields returns the base columns in their serialized form.
func (m *VersionedModel) Fields(isoDates bool) map[string]interface{} {
	out := map[string]interface{}{
		"entity_id":        m.EntityID,
		"version":          m.Version,
		"previous_version": nullString(m.PreviousVersion),
		"active":           m.Active,
		"changed_by_id":    nullString(m.ChangedByID),
		"changed_on":       nil,
	}
	if !m.ChangedOn.IsZero() {
		out["changed_on"] = formatTime(m.ChangedOn, isoDates)
	}
	return out
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time, iso bool) interface{} {
	if iso {
		return t.Format(time.RFC3339Nano)
	}
	return t
}
