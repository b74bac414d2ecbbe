package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BankSyncMessage asks the worker to pull recent transactions for one user.
// It carries the access token directly so the worker stays stateless.
type BankSyncMessage struct {
	JobID       string    `json:"job_id"`
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBankSyncMessage(userID, accessToken string) *BankSyncMessage {
	return &BankSyncMessage{
		JobID:       uuid.NewString(),
		UserID:      userID,
		AccessToken: accessToken,
		Timestamp:   time.Now(),
	}
}

func (m *BankSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BankSyncMessageFromJSON(data []byte) (*BankSyncMessage, error) {
	var msg BankSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
