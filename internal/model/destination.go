package model

import (
	"time"

	"github.com/google/uuid"
)

// Destination is a tracked route target. Rows are managed by admin flows;
// the pipeline only reads them.
type Destination struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CityName    string    `db:"city_name" json:"city_name"`
	Country     string    `db:"country" json:"country"`
	AirportCode string    `db:"airport_code" json:"airport_code"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
