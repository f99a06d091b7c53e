package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageVersion is bumped when the payload shape changes incompatibly.
const MessageVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	AnalysisID string    `json:"analysisId"`
	UserID     string    `json:"userId"`
	RequestID  string    `json:"requestId,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Version    int       `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.AnalysisID == "" {
		return Message{}, fmt.Errorf("message missing analysisId")
	}
	return msg, nil
}
