package portal

// CancelledStatus is the status text the booking list shows for a cancelled reservation.
const CancelledStatus = "취소"

// BookingRecord is one reservation card from the booking list. A nil field was
// absent from the card.
type BookingRecord struct {
	Name              *string `json:"name"`
	Phone             *string `json:"phone"`
	ReservationNumber *string `json:"reservationNumber"`
	StartDate         *string `json:"startDate"` // YYYYMMDD
	EndDate           *string `json:"endDate"`   // YYYYMMDD
	Room              *string `json:"room"`
	Option            *string `json:"option"`
	Comment           *string `json:"comment"`
	Price             *string `json:"price"`
	Status            *string `json:"status"`
}

// Cancelled reports whether the record's status is the cancellation marker.
func (r BookingRecord) Cancelled() bool {
	return r.Status != nil && *r.Status == CancelledStatus
}

// Key returns the reservation number, or "" when it is absent.
func (r BookingRecord) Key() string {
	if r.ReservationNumber == nil {
		return ""
	}
	return *r.ReservationNumber
}
