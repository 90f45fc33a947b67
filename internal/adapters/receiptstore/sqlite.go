// Package receiptstore provides the SQLite receipt repository.
// Clean Architecture: Adapter implementing ports.ReceiptRepository.
package receiptstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
)

// SQLiteStore implements ports.ReceiptRepository on a single SQLite file.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the receipts database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/receipts.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &ports.StorageError{Op: "create data directory", Err: err}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &ports.StorageError{Op: "open receipts db", Err: err}
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, &ports.StorageError{Op: "init receipts schema", Err: err}
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS receipts (
		doc_id TEXT PRIMARY KEY,
		date_of_purchase TEXT,
		vendor TEXT,
		total_amount REAL,
		currency TEXT,
		items_json TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or fully replaces the record at receipt.DocID.
func (s *SQLiteStore) Upsert(ctx context.Context, receipt entities.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, err := json.Marshal(receipt.Items)
	if err != nil {
		return &ports.StorageError{Op: "encode items", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO receipts (doc_id, date_of_purchase, vendor, total_amount, currency, items_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, receipt.DocID, receipt.DateOfPurchase, receipt.Vendor, receipt.TotalAmount, receipt.Currency, string(itemsJSON))
	if err != nil {
		return &ports.StorageError{Op: "upsert receipt", Err: err}
	}
	return nil
}

// Get returns the receipt for docID, or (nil, nil) when absent.
func (s *SQLiteStore) Get(ctx context.Context, docID string) (*entities.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, date_of_purchase, vendor, total_amount, currency, items_json
		FROM receipts WHERE doc_id = ?
	`, docID)

	receipt, err := scanReceipt(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &ports.StorageError{Op: "get receipt", Err: err}
	}
	return receipt, nil
}

// ListAll returns every stored receipt.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]entities.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, date_of_purchase, vendor, total_amount, currency, items_json
		FROM receipts
	`)
	if err != nil {
		return nil, &ports.StorageError{Op: "list receipts", Err: err}
	}
	defer rows.Close()

	var receipts []entities.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows.Scan)
		if err != nil {
			return nil, &ports.StorageError{Op: "scan receipt", Err: err}
		}
		receipts = append(receipts, *receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, &ports.StorageError{Op: "list receipts", Err: err}
	}
	return receipts, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanReceipt(scan func(dest ...any) error) (*entities.Receipt, error) {
	var r entities.Receipt
	var itemsJSON string
	if err := scan(&r.DocID, &r.DateOfPurchase, &r.Vendor, &r.TotalAmount, &r.Currency, &itemsJSON); err != nil {
		return nil, err
	}
	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &r.Items); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
