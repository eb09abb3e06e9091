package model

import "time"

type ExamState string

const (
	ExamStatePending  ExamState = "PENDING"  // waiting for a placement
	ExamStateReserved ExamState = "RESERVED" // has an active reservation
)

type Exam struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Section     string    `json:"section"`
	ModuleCount int       `json:"module_count"` // duration in modules
	State       ExamState `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
