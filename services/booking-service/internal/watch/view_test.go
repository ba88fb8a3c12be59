package watch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestViewAppliesByID(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := model.NewAppointment("a", "Ana", "555-0001", "", "", "", base)
	b := model.NewAppointment("b", "Ben", "555-0002", "", "", "", base.Add(time.Minute))

	v := NewView()
	if err := v.Apply(push.KindInit, mustJSON(t, []model.Appointment{a})); err != nil {
		t.Fatalf("init: %v", err)
	}
	// a delta repeating a snapshot record must not duplicate it
	if err := v.Apply(push.KindNew, mustJSON(t, a)); err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := v.Apply(push.KindNew, mustJSON(t, b)); err != nil {
		t.Fatalf("new: %v", err)
	}
	if v.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", v.Len())
	}
	if snap := v.Snapshot(); snap[0].ID != "b" || snap[1].ID != "a" {
		t.Fatalf("expected newest first, got %s,%s", snap[0].ID, snap[1].ID)
	}

	a.Confirm(base.Add(2 * time.Minute))
	if err := v.Apply(push.KindUpdate, mustJSON(t, a)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := v.Get("a"); got.Status != model.StatusConfirmed || !got.IsConfirmed {
		t.Fatalf("expected a confirmed, got %+v", got)
	}

	if err := v.Apply(push.KindDelete, mustJSON(t, push.DeletePayload{ID: "a"})); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := v.Apply(push.KindDelete, mustJSON(t, push.DeletePayload{ID: "missing"})); err != nil {
		t.Fatalf("delete of unknown id: %v", err)
	}
	if _, ok := v.Get("a"); ok || v.Len() != 1 {
		t.Fatalf("expected only b to remain, len=%d", v.Len())
	}

	if err := v.Apply(push.KindInit, []byte(`[]`)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if v.Len() != 0 {
		t.Fatal("expected init to replace the view")
	}
}

func TestViewRejectsBadPayloads(t *testing.T) {
	v := NewView()
	if err := v.Apply("rename", []byte(`{}`)); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if err := v.Apply(push.KindNew, []byte(`{}`)); err == nil {
		t.Fatal("expected missing id error")
	}
	if err := v.Apply(push.KindInit, []byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}
