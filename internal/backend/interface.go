package backend

import (
	"context"

	"bankrecon/internal/core"
	"bankrecon/internal/services"
	"bankrecon/internal/sheets"
)

// Backend is the full set of store operations the HTTP layer needs.
type Backend interface {
	sheets.Store
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the backend instance and what was wired around it.
type BackendResult struct {
	Backend Backend

	// Publisher is set when ledger writes are announced to a mirror worker.
	Publisher services.SyncPublisher

	// Ready reports whether the backend can serve requests. Nil means always.
	Ready func(ctx context.Context) error

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worksheets maps each configured bank to its ledger worksheet.
	Worksheets map[core.BankID]string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
