package push

import (
	"context"
	"log/slog"

	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Broadcaster fans an event out to every open push channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, evt Event) int
}

// Notifier turns committed store mutations into push events. Call each
// method once, after the mutation committed; never on failure.
type Notifier struct {
	target Broadcaster
	logger *slog.Logger
	tracer trace.Tracer
}

func NewNotifier(target Broadcaster, logger *slog.Logger) *Notifier {
	return &Notifier{
		target: target,
		logger: logger,
		tracer: otelx.Tracer("push"),
	}
}

func (n *Notifier) OnCreated(ctx context.Context, appt model.Appointment) {
	evt, err := NewEvent(appt)
	n.publish(ctx, KindNew, appt.ID, evt, err)
}

func (n *Notifier) OnConfirmed(ctx context.Context, appt model.Appointment) {
	evt, err := UpdateEvent(appt)
	n.publish(ctx, KindUpdate, appt.ID, evt, err)
}

func (n *Notifier) OnCancelled(ctx context.Context, id string) {
	evt, err := DeleteEvent(id)
	n.publish(ctx, KindDelete, id, evt, err)
}

func (n *Notifier) publish(ctx context.Context, kind Kind, appointmentID string, evt Event, err error) {
	if err != nil {
		n.logger.Error("push event encode failed", "err", err, "kind", string(kind), "appointment_id", appointmentID)
		return
	}

	ctx, span := n.tracer.Start(ctx, "push.broadcast", trace.WithAttributes(
		attribute.String("push.kind", string(kind)),
		attribute.String("appointment.id", appointmentID),
	))
	defer span.End()

	delivered := n.target.Broadcast(ctx, evt)
	span.SetAttributes(attribute.Int("push.recipients", delivered))
	n.logger.Debug("push event broadcast", "kind", string(kind), "appointment_id", appointmentID, "recipients", delivered)
}
