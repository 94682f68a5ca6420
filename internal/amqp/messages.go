package amqp

import (
	"encoding/json"
	"time"
)

// AccountSyncMessage tells the worker that an account changed. It carries
// only the account id and the store version; the worker reads the account
// itself from storage.
type AccountSyncMessage struct {
	AccountID string    `json:"accountId"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAccountSyncMessage(accountID string, version uint64) *AccountSyncMessage {
	return &AccountSyncMessage{
		AccountID: accountID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *AccountSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AccountSyncMessageFromJSON(data []byte) (*AccountSyncMessage, error) {
	var msg AccountSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
