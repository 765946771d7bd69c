package entities

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `gorm:"size:200;uniqueIndex;uniqueIndex:idx_tags_name_color" json:"name"`
	Color string    `gorm:"size:7;uniqueIndex:idx_tags_name_color" json:"color"`
	Slug  string    `gorm:"size:200;uniqueIndex" json:"slug"`

	Timestamp
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
