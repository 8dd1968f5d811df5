package models

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

// LedgerEvent is published after an invoice or payment write commits.
type LedgerEvent struct {
	Action        LedgerEventAction `json:"action"`
	InvoiceId     int               `json:"invoice_id"`
	PaymentId     *int              `json:"payment_id,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
	CorrelationId string            `json:"correlation_id,omitempty"`
	ActorId       *int              `json:"actor_id,omitempty"`
	Actor         string            `json:"actor,omitempty"`
	Payload       any               `json:"payload,omitempty"`
}

// publishJSON is swapped in tests.
var publishJSON = config.PublishJSON

func afterLedgerWrite(ctx context.Context, action LedgerEventAction, invoiceId int, paymentId *int, payload any) {
	invalidateReports(ctx)

	topic := config.LedgerTopic()
	if topic == "" {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	event := LedgerEvent{
		Action:        action,
		InvoiceId:     invoiceId,
		PaymentId:     paymentId,
		OccurredAt:    time.Now().UTC(),
		CorrelationId: cid,
		Payload:       payload,
	}
	if uid, ok := utils.GetUserIdFromContext(ctx); ok {
		event.ActorId = &uid
		event.Actor, _ = utils.GetUsernameFromContext(ctx)
	}
	attrs := map[string]string{
		"action":     string(action),
		"invoice_id": strconv.Itoa(invoiceId),
	}
	if _, err := publishJSON(ctx, topic, event, attrs); err != nil {
		// the write is committed; a lost event is logged, not surfaced
		config.LogError(config.GetLogger(), "models", "afterLedgerWrite", "publish ledger event", event, err)
	}
}

// invalidateReports bumps the report cache generation so cached rows are not served.
func invalidateReports(ctx context.Context) {
	config.BumpReportCacheGeneration(ctx)
}
