package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LedgerSyncMessage announces that the stored rows of Bank on Dates were
// replaced. It carries no rows; the consumer reads them back from the
// database.
type LedgerSyncMessage struct {
	BatchID   string    `json:"batch_id"`
	Bank      string    `json:"bank"`
	Dates     []string  `json:"dates"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerSyncMessage creates a message with a fresh batch id.
func NewLedgerSyncMessage(bank string, dates []string, rows int) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		BatchID:   uuid.NewString(),
		Bank:      bank,
		Dates:     append([]string(nil), dates...),
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON decodes and validates a message.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Bank == "" {
		return nil, errors.New("ledger sync message without bank")
	}
	if _, err := uuid.Parse(msg.BatchID); err != nil {
		return nil, errors.New("ledger sync message with invalid batch id")
	}
	return &msg, nil
}
