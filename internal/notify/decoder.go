package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	DefaultSubject = "No Subject"
	DefaultSender  = "Unknown Sender"
)

// Decoder extracts sender, subject and plaintext body from a message.
type Decoder struct {
	fetcher MessageFetcher
	logger  *zap.Logger
}

func NewDecoder(fetcher MessageFetcher, logger *zap.Logger) *Decoder {
	return &Decoder{fetcher: fetcher, logger: logger}
}

func (d *Decoder) Decode(ctx context.Context, messageID string) (DecodedMessage, error) {
	raw, err := d.fetcher.FetchMessage(ctx, messageID)
	if err != nil {
		return DecodedMessage{}, fmt.Errorf("%w: message %s: %w", ErrFetchFailed, messageID, err)
	}
	return d.DecodeRaw(messageID, raw), nil
}

// DecodeRaw decodes an already fetched message.
func (d *Decoder) DecodeRaw(messageID string, raw RawMessage) DecodedMessage {
	body, err := PlainTextBody(raw)
	if err != nil {
		d.logger.Warn("Undecodable message body",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		body = ""
	}

	return DecodedMessage{
		Valid:     true,
		From:      HeaderValue(raw.Headers, "From", DefaultSender),
		Subject:   HeaderValue(raw.Headers, "Subject", DefaultSubject),
		Body:      body,
		MessageID: messageID,
	}
}

// HeaderValue returns the value of the first header named exactly name.
func HeaderValue(headers []Header, name, def string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return def
}

// PlainTextBody returns the decoded text/plain content of raw. Only the top
// level of a multipart message is searched.
func PlainTextBody(raw RawMessage) (string, error) {
	if len(raw.Parts) > 0 {
		for _, p := range raw.Parts {
			if p.MimeType == "text/plain" {
				return decodePart(p)
			}
		}
		return "", nil
	}
	if raw.Body != nil && raw.Body.Data != "" {
		return decodePart(*raw.Body)
	}
	return "", nil
}

// decodePart decodes the part data and converts it to UTF-8. A known
// charset is transcoded; anything still invalid becomes U+FFFD.
func decodePart(p BodyPart) (string, error) {
	text, err := DecodeData(p.Data)
	if err != nil {
		return "", err
	}
	return ToUTF8(text, p.Charset), nil
}

// ToUTF8 transcodes s from charset. Unknown or empty charsets are treated as
// UTF-8 and invalid byte sequences are replaced with U+FFFD.
func ToUTF8(s, charset string) string {
	if cs := strings.ToLower(strings.TrimSpace(charset)); cs != "" && cs != "utf-8" && cs != "utf8" {
		if enc, err := htmlindex.Get(cs); err == nil {
			if out, err := enc.NewDecoder().String(s); err == nil {
				s = out
			}
		}
	}
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

// DecodeData decodes URL-safe base64 with or without padding. The result
// holds the raw bytes in the part's own charset.
func DecodeData(data string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(b), nil
}
