package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/rs/zerolog/log"
)

type ReceiptJobPayload struct {
	PurchaseID uint `json:"purchase_id"`
}

// ReceiptWorker renders the PDF receipt of a committed purchase.
type ReceiptWorker struct {
	purchases   repository.PurchaseRepository
	storeName   string
	storagePath string
}

func NewReceiptWorker(purchases repository.PurchaseRepository, storeName, storagePath string) *ReceiptWorker {
	return &ReceiptWorker{purchases: purchases, storeName: storeName, storagePath: storagePath}
}

func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("receipt_worker: invalid payload: %w", err)
	}

	p, err := w.purchases.FindByID(ctx, payload.PurchaseID)
	if err != nil {
		return fmt.Errorf("receipt_worker: load purchase %d: %w", payload.PurchaseID, err)
	}
	path, err := infra.GenerateReceiptPDF(p, w.storeName, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Uint("purchase_id", p.ID).Str("number", p.Number).Str("path", path).Msg("receipt_worker: receipt generated")
	return nil
}
