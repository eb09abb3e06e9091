package model

// Event kinds pushed over the realtime channel. Delivery is at-least-once
// and ordered per connection; consumers must stay idempotent.
const (
	EventReservationUpserted = "reservation-upserted"
	EventReservationRemoved  = "reservation-removed"
	EventSpanPreview         = "span-preview"
)

// ChangeEvent is the wire envelope for broadcast updates.
type ChangeEvent struct {
	ID   string `json:"id"` // uuid, per broadcast
	Kind string `json:"kind"`

	// EventReservationUpserted / EventSpanPreview
	Reservation *Reservation `json:"reservation,omitempty"`

	// EventSpanPreview: proposed new span length, not yet committed
	NewModuleCount int `json:"new_module_count,omitempty"`

	// EventReservationRemoved
	ReservationID int64 `json:"reservation_id,omitempty"`
	ExamID        int64 `json:"exam_id,omitempty"`
}
