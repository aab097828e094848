package telegram

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ToMarkdownV2 converts the notification markup to Telegram MarkdownV2.
// A **bold** or _italic_ span is kept when it is non-empty, closed on the
// same line and stands apart from neighbouring delimiters; an _italic_ span
// also needs word boundaries on both sides, so snake_case and addresses stay
// literal. Every other reserved character is escaped.
func ToMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)

	var prev rune
	for len(s) > 0 {
		if strings.HasPrefix(s, "**") && prev != '*' {
			if inner, rest, ok := span(s[2:], "**"); ok && !strings.HasPrefix(rest, "*") {
				b.WriteString("*" + Escape(inner) + "*")
				s, prev = rest, '*'
				continue
			}
		} else if s[0] == '_' && prev != '_' && !isWordRune(prev) {
			if inner, rest, ok := span(s[1:], "_"); ok && !strings.HasPrefix(rest, "_") && !startsWithWord(rest) {
				b.WriteString("_" + Escape(inner) + "_")
				s, prev = rest, '_'
				continue
			}
		}

		next := strings.IndexAny(s[1:], "*_")
		if next < 0 {
			b.WriteString(Escape(s))
			break
		}
		chunk := s[:next+1]
		b.WriteString(Escape(chunk))
		prev, _ = utf8.DecodeLastRuneInString(chunk)
		s = s[next+1:]
	}
	return b.String()
}

func span(s, delim string) (inner, rest string, ok bool) {
	end := strings.Index(s, delim)
	if end <= 0 {
		return "", "", false
	}
	inner = s[:end]
	if strings.Contains(inner, "\n") {
		return "", "", false
	}
	return inner, s[end+len(delim):], true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func startsWithWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

// Escape escapes text for MarkdownV2, backslashes included.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, strings.ReplaceAll(s, `\`, `\\`))
}
