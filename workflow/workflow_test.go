package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDatabase(sqlite.Open("file:" + name + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	config.SetDB(db)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	if err := models.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func insertEvent(t *testing.T, db *gorm.DB, event models.PaymentEvent) *models.PaymentEvent {
	t.Helper()
	if event.PublishStatus == "" {
		event.PublishStatus = models.OutboxPublishStatusPending
	}
	if event.NewStatus == "" {
		event.NewStatus = models.PaymentStatusCompleted
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return &event
}

func loadEvent(t *testing.T, db *gorm.DB, id int) models.PaymentEvent {
	t.Helper()
	var event models.PaymentEvent
	if err := db.First(&event, id).Error; err != nil {
		t.Fatalf("load event %d: %v", id, err)
	}
	return event
}

type fakePublisher struct {
	fail     bool
	messages []config.PaymentEventMessage
}

func (f *fakePublisher) publish(_ context.Context, msg config.PaymentEventMessage) (string, error) {
	if f.fail {
		return "", errors.New("pubsub unavailable")
	}
	f.messages = append(f.messages, msg)
	return "msg-" + msg.CorrelationId, nil
}

func newTestDispatcher(db *gorm.DB, pub *fakePublisher) *OutboxDispatcher {
	d := NewOutboxDispatcher(db, nil)
	d.Publish = pub.publish
	return d
}

func TestDispatchOnce_PublishesPendingEvents(t *testing.T) {
	db := setupTestDB(t)
	first := insertEvent(t, db, models.PaymentEvent{PaymentId: 1, CorrelationId: "a"})
	second := insertEvent(t, db, models.PaymentEvent{PaymentId: 2, CorrelationId: "b"})
	published := insertEvent(t, db, models.PaymentEvent{PaymentId: 3, CorrelationId: "c", PublishStatus: models.OutboxPublishStatusPublished})

	pub := &fakePublisher{}
	if n := newTestDispatcher(db, pub).DispatchOnce(context.Background()); n != 2 {
		t.Fatalf("expected 2 published, got %d", n)
	}
	if len(pub.messages) != 2 || pub.messages[0].EventId != first.ID {
		t.Fatalf("expected events in id order, got %+v", pub.messages)
	}
	for _, e := range []*models.PaymentEvent{first, second} {
		got := loadEvent(t, db, e.ID)
		if got.PublishStatus != models.OutboxPublishStatusPublished || got.PublishAttempts != 1 {
			t.Fatalf("event %d: expected PUBLISHED after 1 attempt, got %s/%d", e.ID, got.PublishStatus, got.PublishAttempts)
		}
		if got.PubSubMessageId == nil || *got.PubSubMessageId != "msg-"+e.CorrelationId {
			t.Fatalf("event %d: expected message id to be stored", e.ID)
		}
		if got.LockedAt != nil || got.LockedBy != nil {
			t.Fatalf("event %d: expected lock released", e.ID)
		}
	}
	if got := loadEvent(t, db, published.ID); got.PublishAttempts != 0 {
		t.Fatalf("already published event must not be retried")
	}
}

func TestDispatchOnce_FailureSchedulesRetry(t *testing.T) {
	db := setupTestDB(t)
	event := insertEvent(t, db, models.PaymentEvent{PaymentId: 1})

	pub := &fakePublisher{fail: true}
	d := newTestDispatcher(db, pub)
	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("expected nothing published, got %d", n)
	}
	got := loadEvent(t, db, event.ID)
	if got.PublishStatus != models.OutboxPublishStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.PublishStatus)
	}
	if got.NextAttemptAt == nil || !got.NextAttemptAt.After(time.Now()) {
		t.Fatalf("expected a future retry time, got %v", got.NextAttemptAt)
	}
	if got.LastPublishError == nil || *got.LastPublishError != "pubsub unavailable" {
		t.Fatalf("expected publish error to be stored")
	}

	pub.fail = false
	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("event must wait for its backoff, got %d published", n)
	}
}

func TestDispatchOnce_MaxAttemptsMovesToDeadAndReplay(t *testing.T) {
	db := setupTestDB(t)
	event := insertEvent(t, db, models.PaymentEvent{PaymentId: 1, PublishStatus: models.OutboxPublishStatusFailed, PublishAttempts: 3})

	pub := &fakePublisher{}
	d := newTestDispatcher(db, pub)
	d.MaxAttempts = 3
	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("expected nothing published, got %d", n)
	}
	if got := loadEvent(t, db, event.ID); got.PublishStatus != models.OutboxPublishStatusDead {
		t.Fatalf("expected DEAD, got %s", got.PublishStatus)
	}

	if _, err := models.ReplayPaymentEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("ReplayPaymentEvent: %v", err)
	}
	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("expected replayed event to publish, got %d", n)
	}
	if got := loadEvent(t, db, event.ID); got.PublishStatus != models.OutboxPublishStatusPublished {
		t.Fatalf("expected PUBLISHED, got %s", got.PublishStatus)
	}
	if _, err := models.ReplayPaymentEvent(context.Background(), event.ID); err == nil {
		t.Fatalf("expected published event replay to be refused")
	}
}

func TestDispatchOnce_ReclaimsStaleLock(t *testing.T) {
	db := setupTestDB(t)
	stale := time.Now().UTC().Add(-time.Hour)
	owner := "crashed-dispatcher"
	event := insertEvent(t, db, models.PaymentEvent{
		PaymentId: 1, PublishStatus: models.OutboxPublishStatusProcessing, LockedAt: &stale, LockedBy: &owner, PublishAttempts: 1,
	})
	fresh := time.Now().UTC()
	busy := insertEvent(t, db, models.PaymentEvent{
		PaymentId: 2, PublishStatus: models.OutboxPublishStatusProcessing, LockedAt: &fresh, LockedBy: &owner,
	})

	if n := newTestDispatcher(db, &fakePublisher{}).DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("expected only the stale event to publish, got %d", n)
	}
	if got := loadEvent(t, db, event.ID); got.PublishAttempts != 2 {
		t.Fatalf("expected attempt count 2, got %d", got.PublishAttempts)
	}
	if got := loadEvent(t, db, busy.ID); got.PublishStatus != models.OutboxPublishStatusProcessing {
		t.Fatalf("freshly locked event must be left alone, got %s", got.PublishStatus)
	}
}

func TestRetryBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{4, 40 * time.Second},
		{30, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := retryBackoff(5*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("retryBackoff(5s, %d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestOverdueSweeper_RunOnce(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)
	payment := models.Payment{
		Type:        models.PaymentTypeExpense,
		Amount:      decimal.NewFromInt(40),
		Status:      models.PaymentStatusPending,
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PlannedDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	sweeper := NewOverdueSweeper(nil)
	sweeper.Locker = nil
	sweeper.Now = func() time.Time { return now }
	changed, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 payment changed, got %d", changed)
	}
	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.PaymentStatusOverdue {
		t.Fatalf("expected Overdue, got %s", reloaded.Status)
	}
}
