package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Cursor is a mailbox history id. History ids only grow.
type Cursor uint64

// ParseCursor parses a decimal history id.
func ParseCursor(s string) (Cursor, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor %q: %w", s, err)
	}
	return Cursor(v), nil
}

func (c Cursor) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// UnmarshalJSON accepts both 12345 and "12345"; push payloads use the
// number form, hand-written test payloads often the string form.
func (c *Cursor) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseCursor(s)
		if err != nil {
			return err
		}
		*c = v
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Cursor(v)
	return nil
}

// Notification is one pulled change notification.
type Notification struct {
	AckID string
	// MessageID is the transport message id; stable across redeliveries.
	MessageID string
	Data      []byte
}

// Payload is the JSON document carried in Notification.Data.
type Payload struct {
	HistoryID    Cursor `json:"historyId"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// DecodePayload parses a notification payload. A payload without a history
// id is invalid.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if p.HistoryID == 0 {
		return Payload{}, fmt.Errorf("%w: missing historyId", ErrInvalidPayload)
	}
	return p, nil
}

type EventKind string

const (
	EventMessageAdded   EventKind = "messageAdded"
	EventMessageDeleted EventKind = "messageDeleted"
	EventLabelAdded     EventKind = "labelAdded"
	EventLabelRemoved   EventKind = "labelRemoved"
)

// HistoryEvent is one entry of a history delta. MessageID is empty for
// events that carry no message.
type HistoryEvent struct {
	Kind      EventKind
	MessageID string
}

type Header struct {
	Name  string
	Value string
}

// BodyPart holds URL-safe base64 data, padding optional. Charset is the
// charset parameter of the part's Content-Type; empty means unknown.
type BodyPart struct {
	MimeType string
	Charset  string
	Data     string
}

// RawMessage is a fetched message before decoding. Parts holds only the top
// level of the MIME tree; nested multiparts are not walked.
type RawMessage struct {
	ID      string
	Headers []Header
	Parts   []BodyPart
	Body    *BodyPart
}

type DecodedMessage struct {
	Valid     bool
	From      string
	Subject   string
	Body      string
	MessageID string
}

// Resolution is the outcome of resolving a cursor. An empty MessageID
// means nothing was added.
type Resolution struct {
	MessageID string
}

func (r Resolution) NoChange() bool { return r.MessageID == "" }

type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeDeliveryDropped Outcome = "delivery_dropped"
	OutcomeNoChange        Outcome = "no_change"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeInvalidPayload  Outcome = "invalid_payload"
	OutcomeResolveFailed   Outcome = "resolve_failed"
	OutcomeDecodeFailed    Outcome = "decode_failed"
)

// Result reports what happened to one notification.
type Result struct {
	Cursor    Cursor
	MessageID string
	Outcome   Outcome
	Err       error
}

// Failed reports whether the notification could not be processed.
// A dropped chat delivery is not a failure.
func (r Result) Failed() bool {
	switch r.Outcome {
	case OutcomeInvalidPayload, OutcomeResolveFailed, OutcomeDecodeFailed:
		return true
	}
	return false
}

// DeadLetter is a notification handed to a DeadLetterSink.
type DeadLetter struct {
	AckID          string
	TransportMsgID string
	Cursor         Cursor
	MessageID      string
	Outcome        Outcome
	Error          string
	Payload        []byte
	Attempts       int64
	FailedAt       time.Time
}
