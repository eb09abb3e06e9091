package model

import "time"

type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Building  string    `json:"building"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}
