package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is a customer purchases are billed to. Managed elsewhere; the
// inventory core only reads it.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Phone     *string
	Deleted   bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
