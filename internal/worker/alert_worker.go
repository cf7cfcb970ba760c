package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type StockAlertJobPayload struct {
	ProductID string `json:"product_id"`
}

// AlertSender delivers a low-stock alert. Implemented by infra.Mailer.
type AlertSender interface {
	Send(to []string, subject, body string) error
}

// StockAlertWorker mails the configured address when a product falls to or
// below its alert threshold. Sends go through a circuit breaker so a dead
// SMTP relay does not burn every retry of every alert.
type StockAlertWorker struct {
	products repository.ProductRepository
	sender   AlertSender
	cb       *infra.CircuitBreaker
	to       string
}

func NewStockAlertWorker(products repository.ProductRepository, sender AlertSender, cb *infra.CircuitBreaker, to string) *StockAlertWorker {
	return &StockAlertWorker{products: products, sender: sender, cb: cb, to: to}
}

func (w *StockAlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload StockAlertJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alert_worker: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.ProductID)
	if err != nil {
		return fmt.Errorf("alert_worker: invalid product_id %q", payload.ProductID)
	}

	p, err := w.products.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("alert_worker: load product: %w", err)
	}
	// Stock may have been replenished since the job was queued.
	if p.AggregateStock.GreaterThan(p.AlertThreshold) {
		log.Debug().Str("product_id", payload.ProductID).Msg("alert_worker: stock back above threshold, skipping")
		return nil
	}
	if w.sender == nil || w.to == "" {
		log.Warn().
			Str("product", p.Name).
			Str("stock", p.AggregateStock.String()).
			Msg("alert_worker: low stock (no alert recipient configured)")
		return nil
	}

	subject := fmt.Sprintf("Low stock: %s (%s)", p.Name, p.Reference)
	body := fmt.Sprintf("%s (%s) is at %s, alert threshold %s.\n",
		p.Name, p.Reference, p.AggregateStock.String(), p.AlertThreshold.String())
	send := func() error { return w.sender.Send([]string{w.to}, subject, body) }
	if w.cb != nil {
		err = w.cb.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		return err
	}
	log.Info().Str("product", p.Name).Str("to", w.to).Msg("alert_worker: low stock alert sent")
	return nil
}
