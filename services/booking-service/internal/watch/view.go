package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/push"
)

// View is the admin-side copy of the appointment list. Events are applied by
// id, so a record seen in both the snapshot and a later delta is harmless.
type View struct {
	mu    sync.RWMutex
	items map[string]model.Appointment
}

func NewView() *View {
	return &View{items: map[string]model.Appointment{}}
}

func (v *View) Apply(kind push.Kind, data []byte) error {
	switch kind {
	case push.KindInit:
		var appts []model.Appointment
		if err := json.Unmarshal(data, &appts); err != nil {
			return fmt.Errorf("decode init: %w", err)
		}
		v.Replace(appts)
	case push.KindNew, push.KindUpdate:
		var appt model.Appointment
		if err := json.Unmarshal(data, &appt); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		if appt.ID == "" {
			return fmt.Errorf("decode %s: missing id", kind)
		}
		v.mu.Lock()
		v.items[appt.ID] = appt
		v.mu.Unlock()
	case push.KindDelete:
		var p push.DeletePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode delete: %w", err)
		}
		v.mu.Lock()
		delete(v.items, p.ID)
		v.mu.Unlock()
	default:
		return fmt.Errorf("unknown event kind %q", kind)
	}
	return nil
}

func (v *View) Replace(appts []model.Appointment) {
	items := make(map[string]model.Appointment, len(appts))
	for _, a := range appts {
		items[a.ID] = a
	}
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
}

func (v *View) Get(id string) (model.Appointment, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	a, ok := v.items[id]
	return a, ok
}

func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

// Snapshot returns the records newest first.
func (v *View) Snapshot() []model.Appointment {
	v.mu.RLock()
	out := make([]model.Appointment, 0, len(v.items))
	for _, a := range v.items {
		out = append(out, a)
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
