package model

import "time"

// Module is one fixed time slot of the scheduling day. Orders are dense
// integers starting at 1 and are the only source of adjacency truth.
type Module struct {
	ID        int64     `json:"id"`
	Order     int       `json:"order"`
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
	CreatedAt time.Time `json:"created_at"`
}
