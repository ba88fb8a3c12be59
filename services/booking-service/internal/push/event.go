package push

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

type Kind string

const (
	KindInit   Kind = "init"
	KindNew    Kind = "new"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is one server-push message. Data is encoded once at construction so
// a broadcast to many connections marshals a single time.
type Event struct {
	Kind Kind
	Data json.RawMessage
}

// DeletePayload is the data of a delete event.
type DeletePayload struct {
	ID string `json:"id"`
}

func InitEvent(appts []model.Appointment) (Event, error) {
	if appts == nil {
		appts = []model.Appointment{}
	}
	return newEvent(KindInit, appts)
}

func NewEvent(appt model.Appointment) (Event, error) {
	return newEvent(KindNew, appt)
}

func UpdateEvent(appt model.Appointment) (Event, error) {
	return newEvent(KindUpdate, appt)
}

func DeleteEvent(id string) (Event, error) {
	return newEvent(KindDelete, DeletePayload{ID: id})
}

func newEvent(kind Kind, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", kind, err)
	}
	return Event{Kind: kind, Data: data}, nil
}

// WriteTo frames the event for a text/event-stream response. json.Marshal
// output never contains a raw newline, so one data line is enough.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, e.Data)
	return int64(n), err
}

const keepaliveFrame = ": keepalive\n\n"

func retryFrame(d time.Duration) string {
	return fmt.Sprintf("retry: %d\n\n", d.Milliseconds())
}
