// Package protocol defines the messages pushed to local API clients.
package protocol

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeHello is sent once after a client connects, with a status snapshot
	TypeHello MessageType = "hello"

	// TypeState is sent after every touchpad state change
	TypeState MessageType = "state"

	// TypeMonitor is sent when monitoring starts or stops
	TypeMonitor MessageType = "monitor"

	// TypeStrategy is sent after (re-)probing
	TypeStrategy MessageType = "strategy"

	// TypeError is sent when a state change fails
	TypeError MessageType = "error"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// StatePayload is the payload for TypeState
type StatePayload struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Strategy string `json:"strategy"`
	Forced   bool   `json:"forced"`
}

// MonitorPayload is the payload for TypeMonitor
type MonitorPayload struct {
	Running   bool   `json:"running"`
	SessionID string `json:"session_id,omitempty"`
}

// StrategyPayload is the payload for TypeStrategy
type StrategyPayload struct {
	Strategy   string   `json:"strategy"`
	Inspectors []string `json:"inspectors,omitempty"`
	Supported  bool     `json:"supported"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Error string `json:"error"`
}

// New stamps a message with the current time.
func New(t MessageType, payload any) Message {
	return Message{Type: t, Payload: payload, At: time.Now()}
}
