package model

import "time"

// Comment is a free-text remark attached to an item.
type Comment struct {
	ID        string    `json:"id" db:"id" yaml:"id"`
	ItemID    string    `json:"item_id" db:"item_id" yaml:"item_id"`
	Body      string    `json:"body" db:"body" yaml:"body"`
	CreatedBy string    `json:"created_by" db:"created_by" yaml:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" yaml:"updated_at"`
}

// Label is the markup-free body shortened for lists.
func (c Comment) Label() string {
	return ShortLabel(c.Body)
}
