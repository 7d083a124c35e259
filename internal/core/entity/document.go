package entity

import (
	"context"
	"time"

	"stockcost/internal/core/apperror"
)

// Document is the header shared by purchase orders and receiving vouchers.
type Document struct {
	Entity
	Timestamps

	// Number is unique per document type, e.g. RV-2026-00001.
	Number  string    `db:"number" json:"number"`
	Date    time.Time `db:"date" json:"date"`
	Comment string    `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a Document dated now. Number is assigned by the service.
func NewDocument() Document {
	return Document{
		Entity:     NewEntity(),
		Timestamps: NewTimestamps(),
		Date:       time.Now().UTC(),
	}
}

// Touch bumps the version and UpdatedAt.
func (d *Document) Touch() {
	d.Entity.Touch()
	d.Stamp()
}

func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return nil
}
