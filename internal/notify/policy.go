package notify

import "fmt"

// AckPolicy decides which pulled notifications are acknowledged.
type AckPolicy string

const (
	// AckAll acknowledges every notification regardless of outcome.
	AckAll AckPolicy = "ack_all"
	// AckDeadLetter acknowledges every notification after writing failed
	// ones to the dead-letter sink. A failed write leaves it unacknowledged.
	AckDeadLetter AckPolicy = "dead_letter"
	// AckOnSuccess leaves failed notifications for redelivery until the
	// attempt limit, then dead-letters and acknowledges them.
	AckOnSuccess AckPolicy = "ack_on_success"
)

func ParseAckPolicy(s string) (AckPolicy, error) {
	switch p := AckPolicy(s); p {
	case AckAll, AckDeadLetter, AckOnSuccess:
		return p, nil
	case "":
		return AckDeadLetter, nil
	}
	return "", fmt.Errorf("unknown ack policy %q", s)
}

// ErrorMode decides whether one failed notification stops the batch.
type ErrorMode string

const (
	ContinueOnError ErrorMode = "continue"
	FailFast        ErrorMode = "fail_fast"
)

func ParseErrorMode(s string) (ErrorMode, error) {
	switch m := ErrorMode(s); m {
	case ContinueOnError, FailFast:
		return m, nil
	case "":
		return ContinueOnError, nil
	}
	return "", fmt.Errorf("unknown error mode %q", s)
}
