package amqp

import (
	"encoding/json"
	"time"

	"pocketbook/internal/core"
)

// ReportJobMessage asks a worker to build and send one guardian report.
// It carries only the account ID and cadence; the worker fetches the
// profile and transactions from the database itself.
type ReportJobMessage struct {
	AccountID string             `json:"account_id"`
	Cadence   core.ReportCadence `json:"cadence"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewReportJobMessage creates a new report job for the given account
func NewReportJobMessage(accountID string, cadence core.ReportCadence) *ReportJobMessage {
	return &ReportJobMessage{
		AccountID: accountID,
		Cadence:   cadence,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportJobMessageFromJSON creates a message from JSON bytes
func ReportJobMessageFromJSON(data []byte) (*ReportJobMessage, error) {
	var msg ReportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
