package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeStore struct {
	tx      *fakeTx
	records []Record
	marked  []int64
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) { return s.tx, nil }

func (s *fakeStore) FetchUnpublished(_ context.Context, _ pgx.Tx, limit int) ([]Record, error) {
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	s.marked = append(s.marked, ids...)
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testRecords() []Record {
	return []Record{
		{ID: 1, EventID: "e1", AggregateID: "a1", EventType: TypeAppointmentBooked, Payload: []byte(`{}`)},
		{ID: 2, EventID: "e2", AggregateID: "a1", EventType: TypeAppointmentConfirmed, Payload: []byte(`{}`)},
		{ID: 3, EventID: "e3", AggregateID: "a2", EventType: TypeAppointmentCancelled, Payload: []byte(`{}`)},
	}
}

func newTestPublisher(store Store, batch int) *Publisher {
	return NewPublisher(store, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{
		Brokers:   []string{"localhost:9092"},
		BatchSize: batch,
	})
}

func TestPublishBatchMarksAndCommits(t *testing.T) {
	store := &fakeStore{tx: &fakeTx{}, records: testRecords()}
	w := &fakeWriter{}

	n, err := newTestPublisher(store, 2).publishBatch(context.Background(), w)
	if err != nil {
		t.Fatalf("publishBatch: %v", err)
	}
	if n != 2 || len(w.msgs) != 2 {
		t.Fatalf("expected a batch of 2, published %d wrote %d", n, len(w.msgs))
	}
	if w.msgs[0].Topic != TypeAppointmentBooked || w.msgs[1].Topic != TypeAppointmentConfirmed {
		t.Fatalf("unexpected topics %s, %s", w.msgs[0].Topic, w.msgs[1].Topic)
	}
	if len(store.marked) != 2 || store.marked[0] != 1 || store.marked[1] != 2 {
		t.Fatalf("unexpected marked ids %v", store.marked)
	}
	if !store.tx.committed {
		t.Fatal("expected commit")
	}
}

func TestPublishBatchWriteFailureLeavesRowsPending(t *testing.T) {
	store := &fakeStore{tx: &fakeTx{}, records: testRecords()}
	w := &fakeWriter{err: errors.New("broker down")}

	if _, err := newTestPublisher(store, 10).publishBatch(context.Background(), w); err == nil {
		t.Fatal("expected write error")
	}
	if len(store.marked) != 0 {
		t.Fatalf("rows must stay unpublished, marked %v", store.marked)
	}
	if store.tx.committed || !store.tx.rolledBack {
		t.Fatal("expected rollback without commit")
	}
}

func TestPublishBatchEmpty(t *testing.T) {
	store := &fakeStore{tx: &fakeTx{}}
	n, err := newTestPublisher(store, 10).publishBatch(context.Background(), &fakeWriter{})
	if err != nil || n != 0 {
		t.Fatalf("expected empty batch, got %d %v", n, err)
	}
}
