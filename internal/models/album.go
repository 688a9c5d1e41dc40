package models

import "github.com/google/uuid"

// Album is a node in the album tree. Path is the materialized slug chain
// from root to this album; a directory exists at UPLOAD_ROOT/Path exactly as
// long as the row does.
type Album struct {
	BaseModel
	Name     string     `json:"name" gorm:"type:varchar(255);not null"`
	Slug     string     `json:"slug" gorm:"type:varchar(255);not null;index"`
	Path     string     `json:"path" gorm:"type:text;not null;index"`
	ParentID *uuid.UUID `json:"parentID,omitempty" gorm:"type:uuid;index"`

	Parent   *Album  `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []Album `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Photos   []Photo `json:"-" gorm:"foreignKey:AlbumID"`

	// Computed at read time, never stored.
	ChildCount int64 `json:"childCount" gorm:"-"`
	PhotoCount int64 `json:"photoCount" gorm:"-"`
}

func (Album) TableName() string {
	return "albums"
}

// AlbumStats aggregates an album's direct contents.
type AlbumStats struct {
	AlbumCount int64 `json:"albumCount"`
	PhotoCount int64 `json:"photoCount"`
	TotalSize  int64 `json:"totalSize"`
}
