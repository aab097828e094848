package mq

import "time"

// NotificationDeadLetteredPayload is published to the DLQ for a notification
// that could not be processed.
type NotificationDeadLetteredPayload struct {
	AckID          string    `json:"ack_id"`
	TransportMsgID string    `json:"transport_message_id,omitempty"`
	HistoryID      uint64    `json:"history_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error"`
	Payload        string    `json:"payload"`
	Attempts       int64     `json:"attempts"`
	TraceID        string    `json:"trace_id,omitempty"`
	FailedAt       time.Time `json:"failed_at"`
}

// DeadLetterRoutingKey is the routing key of dead-lettered notifications.
const DeadLetterRoutingKey = "notification.gmail"
