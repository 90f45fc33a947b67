// Package usecases - ingest.go turns receipt images into stored records.
package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
)

// Ingestion processes a receipt image end to end: OCR the image, extract
// a structured record via the generation service, store the record, and
// index its embedding.
//
// The receipt upsert and the index insert are two independent writes with
// no shared transaction. A failure between them leaves the receipt stored
// but unsearchable; that failure is returned, never reported as success.
type Ingestion struct {
	ocr      ports.OCRService
	llm      ports.GenerationService
	receipts ports.ReceiptRepository
	index    ports.EmbeddingIndex
	gate     sync.Locker
}

// NewIngestion creates an Ingestion with injected dependencies. The gate
// is the same serialization lock the pipeline uses.
func NewIngestion(
	ocr ports.OCRService,
	llm ports.GenerationService,
	receipts ports.ReceiptRepository,
	index ports.EmbeddingIndex,
	gate sync.Locker,
) *Ingestion {
	if gate == nil {
		gate = &sync.Mutex{}
	}
	return &Ingestion{
		ocr:      ocr,
		llm:      llm,
		receipts: receipts,
		index:    index,
		gate:     gate,
	}
}

// extraction is the schema the generation service must produce.
type extraction struct {
	DocID          string            `json:"doc_id"`
	DateOfPurchase string            `json:"date_of_purchase"`
	Vendor         string            `json:"vendor"`
	TotalAmount    float64           `json:"total_amount"`
	Currency       string            `json:"currency"`
	ItemsJSON      map[string]string `json:"items_json"`
}

// ProcessImage ingests one base64-encoded receipt image and returns the
// stored record.
func (in *Ingestion) ProcessImage(ctx context.Context, base64Image string) (*entities.Receipt, error) {
	in.gate.Lock()
	defer in.gate.Unlock()

	text, err := in.ocr.ExtractText(ctx, base64Image)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	receipt, err := in.extractReceipt(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := in.receipts.Upsert(ctx, *receipt); err != nil {
		return nil, fmt.Errorf("storing receipt %s: %w", receipt.DocID, err)
	}
	if _, err := in.index.Insert(ctx, receipt.DocID, receipt.SummaryText()); err != nil {
		// the record is stored but not searchable until re-ingested
		return nil, fmt.Errorf("indexing receipt %s: %w", receipt.DocID, err)
	}

	log.Printf("[INFO] ingested receipt %s (%s)", receipt.DocID, receipt.Vendor)
	return receipt, nil
}

// extractReceipt asks the generation service for structured fields and
// parses the reply strictly: one JSON parse, required fields validated,
// anything else is a GenerationError. No defaults are guessed; a missing
// doc_id in particular must not be papered over with a synthetic key.
func (in *Ingestion) extractReceipt(ctx context.Context, ocrText string) (*entities.Receipt, error) {
	raw, err := in.llm.Generate(ctx, extractionPrompt(ocrText))
	if err != nil {
		return nil, &ports.GenerationError{Op: "extract receipt fields", Err: err}
	}

	var ex extraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &ex); err != nil {
		return nil, &ports.GenerationError{Op: "parse extraction output", Err: err}
	}

	switch {
	case ex.DocID == "":
		return nil, &ports.GenerationError{Op: "validate extraction", Err: fmt.Errorf("missing doc_id")}
	case ex.Vendor == "":
		return nil, &ports.GenerationError{Op: "validate extraction", Err: fmt.Errorf("missing vendor")}
	case ex.Currency == "":
		return nil, &ports.GenerationError{Op: "validate extraction", Err: fmt.Errorf("missing currency")}
	}

	return &entities.Receipt{
		DocID:          ex.DocID,
		DateOfPurchase: ex.DateOfPurchase,
		Vendor:         ex.Vendor,
		TotalAmount:    ex.TotalAmount,
		Currency:       ex.Currency,
		Items:          ex.ItemsJSON,
	}, nil
}

func extractionPrompt(ocrText string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert at extracting structured data from receipt text.\n")
	sb.WriteString("Extract these fields from the receipt below:\n")
	sb.WriteString("  doc_id: a unique identifier for the receipt\n")
	sb.WriteString("  date_of_purchase: when the purchase was made\n")
	sb.WriteString("  vendor: the store name\n")
	sb.WriteString("  total_amount: the total paid, as a number\n")
	sb.WriteString("  currency: the currency used (e.g. USD, EUR)\n")
	sb.WriteString("  items_json: an object mapping item name to price\n")
	sb.WriteString("Receipt text:\n")
	sb.WriteString(ocrText)
	sb.WriteString("\nRespond with a single valid JSON object and nothing else:\n")
	sb.WriteString(`{"doc_id": "string", "date_of_purchase": "string", "vendor": "string", ` +
		`"total_amount": 0.0, "currency": "string", "items_json": {"item": "price"}}`)
	return sb.String()
}
