package model

import (
	"time"

	"github.com/google/uuid"
)

type Person struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar"`
	ColorHex  *string   `json:"color_hex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
