package notify

import "fmt"

const (
	DefaultBodyLimit    = 1000
	ConsoleBodyLimit    = 100
	truncationMarker    = "..."
	notificationPattern = "**New email:**\n_From:_ %s\n_Subject:_ %s\n_Text:_\n%s"
)

// Formatter renders a decoded message into chat text.
type Formatter struct {
	Limit int
}

func NewFormatter(limit int) Formatter {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return Formatter{Limit: limit}
}

// Format renders msg. A Limit of zero or less means DefaultBodyLimit.
func (f Formatter) Format(msg DecodedMessage) string {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return fmt.Sprintf(notificationPattern, msg.From, msg.Subject, Truncate(msg.Body, limit))
}

// Truncate cuts s to limit characters and appends "..." when it was cut.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncationMarker
}
