package push

import (
	"bytes"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

func TestEventFraming(t *testing.T) {
	a := model.NewAppointment("a1", "Ana", "555-0001", "", "", "", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	evt := mustEvent(t)(NewEvent(a))

	var buf bytes.Buffer
	if _, err := evt.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !bytes.HasPrefix(buf.Bytes(), []byte("event: new\ndata: {")) {
		t.Fatalf("unexpected frame start %q", out)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("}\n\n")) {
		t.Fatalf("unexpected frame end %q", out)
	}
	if bytes.Count(buf.Bytes(), []byte("\n")) != 3 {
		t.Fatalf("expected a single data line, got %q", out)
	}
}

func TestInitEventNeverNull(t *testing.T) {
	evt := mustEvent(t)(InitEvent(nil))
	if string(evt.Data) != "[]" {
		t.Fatalf("expected empty array, got %s", evt.Data)
	}
}

func TestControlFrames(t *testing.T) {
	if keepaliveFrame != ": keepalive\n\n" {
		t.Fatalf("unexpected keepalive frame %q", keepaliveFrame)
	}
	if got := retryFrame(3 * time.Second); got != "retry: 3000\n\n" {
		t.Fatalf("unexpected retry frame %q", got)
	}
}
