package models

import (
	"time"

	"github.com/google/uuid"
)

// DescriptionSize определяет желаемую длину сгенерированного описания.
type DescriptionSize string

const (
	SizeShort  DescriptionSize = "SHORT"
	SizeMedium DescriptionSize = "MEDIUM"
	SizeLong   DescriptionSize = "LONG"
)

// Valid проверяет, что значение входит в допустимый набор.
func (s DescriptionSize) Valid() bool {
	switch s {
	case SizeShort, SizeMedium, SizeLong:
		return true
	}
	return false
}

// Post описывает сохранённый пост. Запись создаётся один раз и не изменяется.
type Post struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	UserID               uuid.UUID `db:"user_id" json:"user_id"`
	OriginalDescription  *string   `db:"original_description" json:"original_description,omitempty"`
	GeneratedDescription string    `db:"generated_description" json:"generated_description"`
	Hashtags             string    `db:"hashtags" json:"hashtags"`
	PhotoPath            *string   `db:"photo_path" json:"photo_path,omitempty"`
	Size                 string    `db:"size" json:"size"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}
