package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentEvent is a transactional outbox row: written with the payment change, published
// to Pub/Sub after commit by the dispatcher.
type PaymentEvent struct {
	ID               int                 `gorm:"primary_key;index:idx_payment_event_dispatch,priority:3" json:"id"`
	PaymentId        int                 `gorm:"not null;index" json:"payment_id"`
	EventType        PaymentEventType    `gorm:"size:40;not null" json:"event_type"`
	OldStatus        PaymentStatus       `gorm:"size:20" json:"old_status"`
	NewStatus        PaymentStatus       `gorm:"size:20;not null" json:"new_status"`
	Payload          []byte              `gorm:"type:blob" json:"payload"`
	CorrelationId    string              `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus    OutboxPublishStatus `gorm:"size:20;not null;index:idx_payment_event_dispatch,priority:1" json:"publish_status"`
	PublishAttempts  int                 `gorm:"not null" json:"publish_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index:idx_payment_event_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time          `json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError *string             `gorm:"type:text" json:"last_publish_error"`
	PubSubMessageId  *string             `gorm:"size:255" json:"pubsub_message_id"`
	PublishedAt      *time.Time          `json:"published_at"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type paymentEventPayload struct {
	ID           int             `json:"id"`
	Type         PaymentType     `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Date         time.Time       `json:"date"`
	PaidDate     *time.Time      `json:"paid_date"`
	ClientId     *int            `json:"client_id"`
	ClientCaseId *int            `json:"client_case_id"`
}

func paymentEventType(status PaymentStatus) PaymentEventType {
	switch status {
	case PaymentStatusCompleted:
		return PaymentEventCompleted
	case PaymentStatusOverdue:
		return PaymentEventOverdue
	case PaymentStatusCancelled:
		return PaymentEventCancelled
	}
	return PaymentEventStatus
}

// recordPaymentEvent writes an outbox row inside tx when the status moved.
// Nothing is recorded while PAYMENT_EVENTS_TOPIC is unset.
func recordPaymentEvent(ctx context.Context, tx *gorm.DB, oldStatus PaymentStatus, p *Payment) error {
	if !config.PaymentEventsEnabled() || oldStatus == p.Status {
		return nil
	}
	payload, err := json.Marshal(paymentEventPayload{
		ID:           p.ID,
		Type:         p.Type,
		Amount:       p.Amount,
		PaidAmount:   p.PaidAmount,
		Date:         p.Date,
		PaidDate:     p.PaidDate,
		ClientId:     p.ClientId,
		ClientCaseId: p.ClientCaseId,
	})
	if err != nil {
		return err
	}
	event := PaymentEvent{
		PaymentId:     p.ID,
		EventType:     paymentEventType(p.Status),
		OldStatus:     oldStatus,
		NewStatus:     p.Status,
		Payload:       payload,
		CorrelationId: correlationIdFromContextOrNew(ctx),
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.WithContext(ctx).Create(&event).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func (e PaymentEvent) ToMessage() config.PaymentEventMessage {
	return config.PaymentEventMessage{
		EventId:       e.ID,
		PaymentId:     e.PaymentId,
		EventType:     string(e.EventType),
		OldStatus:     string(e.OldStatus),
		NewStatus:     string(e.NewStatus),
		OccurredAt:    e.CreatedAt,
		Payload:       e.Payload,
		CorrelationId: e.CorrelationId,
	}
}

// ReplayPaymentEvent re-queues a DEAD or FAILED event for immediate publishing.
func ReplayPaymentEvent(ctx context.Context, id int) (*PaymentEvent, error) {
	event, err := utils.FetchModel[PaymentEvent](ctx, id)
	if err != nil {
		return nil, err
	}
	if event.PublishStatus != OutboxPublishStatusDead && event.PublishStatus != OutboxPublishStatusFailed {
		return nil, utils.NewValidationError("publish_status", "only %s or %s events can be replayed",
			OutboxPublishStatusDead, OutboxPublishStatusFailed)
	}
	now := time.Now().UTC()
	err = config.GetDB().WithContext(ctx).Model(event).Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusFailed,
		"publish_attempts":   0,
		"next_attempt_at":    &now,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	}).Error
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PaymentEvent](ctx, id)
}

type PaymentEventFilter struct {
	PaymentId     *int
	PublishStatus OutboxPublishStatus
}

var paymentEventSort = sortSpec{
	table: "payment_events",
	columns: map[string]string{
		"createdat":     "payment_events.created_at",
		"publishstatus": "payment_events.publish_status",
	},
	def: "payment_events.id DESC",
}

func GetPaymentEventsPaginated(ctx context.Context, filter *PaymentEventFilter, sort SortParams, page PageParams) (*PagedResult[*PaymentEvent], error) {
	db := config.GetDB().WithContext(ctx).Model(&PaymentEvent{})
	if filter != nil {
		if filter.PaymentId != nil {
			db = db.Where("payment_id = ?", *filter.PaymentId)
		}
		if filter.PublishStatus != "" {
			db = db.Where("publish_status = ?", filter.PublishStatus)
		}
	}
	return paginateQuery[PaymentEvent](paymentEventSort.apply(db, sort), page)
}
