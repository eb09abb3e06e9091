package model

import "time"

// StatusCode is the confirmation-workflow status of a reservation.
type StatusCode string

const (
	StatusProgramado       StatusCode = "PROGRAMADO"        // scheduled, waiting for the teacher
	StatusConfirmado       StatusCode = "CONFIRMADO"        // accepted by the teacher
	StatusRechazado        StatusCode = "RECHAZADO"         // rejected by the teacher
	StatusRequiereRevision StatusCode = "REQUIERE_REVISION" // sent back for review
	StatusDescartado       StatusCode = "DESCARTADO"        // withdrawn, exam back to PENDING
)

// ReservationStatus is a reference-data row; the canonical ids live in the
// reservation_statuses table and are seeded by migrations.
type ReservationStatus struct {
	ID   int64      `json:"id"`
	Code StatusCode `json:"code"`
}

type Reservation struct {
	ID       int64      `json:"id"`
	ExamID   int64      `json:"exam_id"`
	RoomID   int64      `json:"room_id"`
	StatusID int64      `json:"status_id"`
	Status   StatusCode `json:"status"`
	Date     time.Time  `json:"date"`

	// StartOrder is the authoritative start of the span. The module rows can
	// reproduce it, but only while they are complete.
	StartOrder int       `json:"start_order"`
	TeacherID  *int64    `json:"teacher_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Loaded alongside the row, not columns of it.
	Modules []Module `json:"modules,omitempty"`
	Exam    *Exam    `json:"exam,omitempty"`
}

// ModuleCount reports the span length from the loaded module rows.
func (r *Reservation) ModuleCount() int {
	return len(r.Modules)
}

// IsActive reports whether the reservation still counts for conflict checks.
// Discarded and cancelled reservations are deleted outright, so any row that
// still exists is active.
func (r *Reservation) IsActive() bool {
	return r.Status != StatusDescartado
}

// DateKey is the canonical YYYY-MM-DD form used for projection keys.
func (r *Reservation) DateKey() string {
	return r.Date.Format("2006-01-02")
}
