// internal/models/document.go
package models

import (
	"github.com/google/uuid"
)

type Document struct {
	BaseModel
	Name        string     `json:"name" gorm:"size:255;not null"`
	FileKey     string     `json:"-" gorm:"size:500;not null"`
	URL         string     `json:"url" gorm:"size:1000"`
	ContentType string     `json:"content_type" gorm:"size:100"`
	Size        int64      `json:"size"`
	UploadedBy  *uuid.UUID `json:"uploaded_by" gorm:"type:uuid;index"`
}
