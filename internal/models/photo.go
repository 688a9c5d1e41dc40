package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Photo does not use BaseModel: rows carry an upload timestamp rather than
// created/updated pairs. Filename is the physical name on disk, unique within
// the owning album (the composite index backstops the naming lock).
type Photo struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AlbumID     uuid.UUID `json:"albumID" gorm:"type:uuid;not null;uniqueIndex:idx_photos_album_filename"`
	Filename    string    `json:"filename" gorm:"type:varchar(255);not null;uniqueIndex:idx_photos_album_filename"`
	DisplayName string    `json:"displayName" gorm:"type:varchar(255);not null"`
	SizeBytes   int64     `json:"sizeBytes" gorm:"not null;default:0"`
	Width       int       `json:"width" gorm:"not null;default:0"`
	Height      int       `json:"height" gorm:"not null;default:0"`
	UploadedAt  time.Time `json:"uploadedAt" gorm:"autoCreateTime"`

	Album *Album `json:"album,omitempty" gorm:"foreignKey:AlbumID"`
}

func (Photo) TableName() string {
	return "photos"
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
