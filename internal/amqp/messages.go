package amqp

import (
	"encoding/json"
	"time"
)

// DatasetLoadedMessage announces that a new dataset became current.
type DatasetLoadedMessage struct {
	SessionID   string    `json:"session_id"`
	Source      string    `json:"source"`
	Fingerprint uint64    `json:"fingerprint"`
	Records     int       `json:"records"`
	Dropped     int       `json:"dropped"`
	Unresolved  []string  `json:"unresolved,omitempty"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// ToJSON converts the message to JSON bytes
func (m *DatasetLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetLoadedMessageFromJSON creates a message from JSON bytes
func DatasetLoadedMessageFromJSON(data []byte) (*DatasetLoadedMessage, error) {
	var msg DatasetLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReloadRequest asks the dashboard to re-read its source. Force reloads
// even when the source fingerprint is unchanged.
type ReloadRequest struct {
	Force       bool      `json:"force"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewReloadRequest creates a reload request stamped with the current time.
func NewReloadRequest(force bool, requestedBy string) *ReloadRequest {
	return &ReloadRequest{
		Force:       force,
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the request to JSON bytes
func (m *ReloadRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReloadRequestFromJSON creates a request from JSON bytes
func ReloadRequestFromJSON(data []byte) (*ReloadRequest, error) {
	var msg ReloadRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
