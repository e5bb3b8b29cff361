package services

import (
	"context"
	"errors"
	"testing"

	"jizhang/internal/amqp"
	"jizhang/internal/core"
	"jizhang/internal/store/sqlite"
)

type fakePublisher struct {
	published []*amqp.LedgerEventMessage
	err       error
}

func (f *fakePublisher) PublishEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTestService(t *testing.T, pub EventPublisher) *LedgerService {
	t.Helper()
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewLedgerService(st, pub)
}

func TestRecordPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	id, err := svc.Record(ctx, "user-1", core.Money{Cents: 12000}, "午餐")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero record id")
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	ev := pub.published[0]
	if ev.Kind != amqp.EventRecorded || ev.RecordID != id || ev.AmountCents != 12000 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestRecordSucceedsWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := newTestService(t, pub)
	ctx := context.Background()

	id, err := svc.Record(ctx, "user-1", core.Money{Cents: 5000}, "咖啡")
	if err != nil {
		t.Fatalf("Record should not fail on publish error: %v", err)
	}

	records, err := svc.ListRecent(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(records) != 1 || records[0].ID != id {
		t.Fatalf("record not persisted: %+v", records)
	}
}

func TestRecordWithoutPublisher(t *testing.T) {
	svc := newTestService(t, nil)

	if _, err := svc.Record(context.Background(), "user-1", core.Money{Cents: 100}, "test"); err != nil {
		t.Fatalf("Record without publisher: %v", err)
	}
}

func TestDeletePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	id, err := svc.Record(ctx, "user-1", core.Money{Cents: 8050}, "早餐")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := svc.Delete(ctx, id, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(pub.published) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.published))
	}
	if pub.published[1].Kind != amqp.EventDeleted {
		t.Errorf("second event kind = %q, want %q", pub.published[1].Kind, amqp.EventDeleted)
	}
}

func TestDeleteForeignRecordPublishesNothing(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	id, err := svc.Record(ctx, "owner", core.Money{Cents: 100}, "test")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	pub.published = nil

	if err := svc.Delete(ctx, id, "intruder"); !errors.Is(err, core.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d events after failed delete, want 0", len(pub.published))
	}
}

func TestDeleteBulkPublishesPerRecord(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	var ids []int64
	for _, reason := range []string{"a", "b", "c"} {
		id, err := svc.Record(ctx, "user-1", core.Money{Cents: 100}, reason)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		ids = append(ids, id)
	}
	pub.published = nil

	deleted, err := svc.DeleteBulk(ctx, ids, "user-1")
	if err != nil {
		t.Fatalf("DeleteBulk: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if len(pub.published) != 3 {
		t.Errorf("published %d events, want 3", len(pub.published))
	}
}
