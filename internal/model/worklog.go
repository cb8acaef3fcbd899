package model

import "time"

// WorkLog records hours spent on an item on a given date.
type WorkLog struct {
	ID     string    `json:"id" db:"id" yaml:"id"`
	ItemID string    `json:"item_id" db:"item_id" yaml:"item_id"`
	Date   time.Time `json:"date" db:"date" yaml:"date"`
	Worked float64   `json:"worked" db:"worked" yaml:"worked"`

	// Billed is nil until the log is saved without an explicit value, at
	// which point the billing allocator fills it in.
	Billed *float64 `json:"billed,omitempty" db:"billed" yaml:"billed,omitempty"`

	Description string    `json:"description" db:"description" yaml:"description"`
	CreatedBy   string    `json:"created_by" db:"created_by" yaml:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" yaml:"updated_at"`
}

// BilledHours returns the billed hours, treating nil as zero.
func (w WorkLog) BilledHours() float64 {
	if w.Billed == nil {
		return 0
	}
	return *w.Billed
}

// Label is the markup-free description shortened for lists.
func (w WorkLog) Label() string {
	return ShortLabel(w.Description)
}
