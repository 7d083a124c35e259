// Package entity holds the identity, version and timestamp fields shared by
// catalogs and documents.
package entity

import (
	"time"

	"stockcost/internal/core/apperror"
	"stockcost/internal/core/id"
)

// Entity is a persisted row with an optimistic version.
type Entity struct {
	ID      id.ID `db:"id" json:"id"`
	Version int   `db:"version" json:"version"`
}

// NewEntity returns an Entity with a fresh UUIDv7 at version 1.
func NewEntity() Entity {
	return Entity{ID: id.New(), Version: 1}
}

// Touch bumps the version.
func (e *Entity) Touch() {
	e.Version++
}

// Timestamps are kept in UTC.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

// Stamp sets UpdatedAt to now.
func (t *Timestamps) Stamp() {
	t.UpdatedAt = time.Now().UTC()
}

func requireField(field, value string) error {
	if value == "" {
		return apperror.NewValidation(field+" is required").WithDetail("field", field)
	}
	return nil
}
