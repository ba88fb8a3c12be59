package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

func TestAppointmentEventPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	appt := model.NewAppointment("a-1", "Ana", "555-0001", "", "ana@example.com", "", now)

	evt, err := AppointmentEvent(TypeAppointmentBooked, appt)
	if err != nil {
		t.Fatalf("AppointmentEvent: %v", err)
	}
	if evt.AggregateType != AggregateAppointment || evt.AggregateID != "a-1" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}

	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["status"] != "Pending" || payload["customer_email"] != "ana@example.com" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["occurred_at"] != "2026-03-01T09:00:00Z" {
		t.Fatalf("unexpected occurred_at: %v", payload["occurred_at"])
	}
}

func TestCancelledEventCarriesOnlyID(t *testing.T) {
	evt, err := CancelledEvent("a-9", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CancelledEvent: %v", err)
	}
	if evt.EventType != TypeAppointmentCancelled {
		t.Fatalf("unexpected type %s", evt.EventType)
	}
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := payload["customer_name"]; ok {
		t.Fatalf("cancel payload should not carry customer data: %v", payload)
	}
}

func TestToMessageUsesEventTypeAsTopic(t *testing.T) {
	msg := toMessage(context.Background(), Record{
		ID:          1,
		EventID:     "evt-1",
		AggregateID: "a-1",
		EventType:   TypeAppointmentConfirmed,
		Payload:     []byte(`{}`),
	})
	if msg.Topic != TypeAppointmentConfirmed {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}
	if string(msg.Key) != "a-1" {
		t.Fatalf("unexpected key %s", msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-1" {
		t.Fatal("expected event_id header")
	}
}
