package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

const AggregateAppointment = "appointment"

// Event types double as Kafka topic names (one topic per event type).
const (
	TypeAppointmentBooked    = "booking.appointment.booked.v1"
	TypeAppointmentConfirmed = "booking.appointment.confirmed.v1"
	TypeAppointmentCancelled = "booking.appointment.cancelled.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID string `json:"appointment_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Service       string `json:"service,omitempty"`
	Status        string `json:"status,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// AppointmentEvent builds the outbox envelope for a booked or confirmed record.
func AppointmentEvent(eventType string, appt model.Appointment) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID: appt.ID,
		CustomerName:  appt.Name,
		CustomerPhone: appt.Phone,
		CustomerEmail: appt.Email,
		Service:       appt.Service,
		Status:        string(appt.Status),
		OccurredAt:    appt.LastUpdated.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// CancelledEvent builds the outbox envelope for a hard-deleted record.
func CancelledEvent(id string, at time.Time) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID: id,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   id,
		EventType:     TypeAppointmentCancelled,
		Payload:       payload,
	}, nil
}
