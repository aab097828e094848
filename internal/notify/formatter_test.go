package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Template(t *testing.T) {
	out := NewFormatter(DefaultBodyLimit).Format(DecodedMessage{
		Valid:   true,
		From:    "a@b.com",
		Subject: "Test",
		Body:    "Hi there",
	})
	assert.Equal(t, "**New email:**\n_From:_ a@b.com\n_Subject:_ Test\n_Text:_\nHi there", out)
}

func TestFormat_TruncatesLongBody(t *testing.T) {
	body := strings.Repeat("x", 1500)
	out := NewFormatter(1000).Format(DecodedMessage{From: "f", Subject: "s", Body: body})

	_, text, ok := strings.Cut(out, "_Text:_\n")
	assert.True(t, ok)
	assert.Equal(t, strings.Repeat("x", 1000)+"...", text)
	assert.Len(t, text, 1000+len("..."))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "shorter", in: "hello", limit: 10, want: "hello"},
		{name: "exact", in: "hello", limit: 5, want: "hello"},
		{name: "longer", in: "hello world", limit: 5, want: "hello..."},
		{name: "empty", in: "", limit: 5, want: ""},
		{name: "runes", in: "héllo wörld", limit: 7, want: "héllo w..."},
		{name: "multibyte fits", in: "日本語", limit: 3, want: "日本語"},
		{name: "console limit", in: strings.Repeat("y", 101), limit: ConsoleBodyLimit, want: strings.Repeat("y", 100) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.limit))
		})
	}
}

func TestNewFormatter_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultBodyLimit, NewFormatter(0).Limit)
}

func TestFormat_ZeroValueUsesDefaultLimit(t *testing.T) {
	out := Formatter{}.Format(DecodedMessage{From: "f", Subject: "s", Body: "short body"})
	assert.True(t, strings.HasSuffix(out, "_Text:_\nshort body"))

	out = Formatter{Limit: -1}.Format(DecodedMessage{Body: strings.Repeat("x", 1200)})
	_, text, _ := strings.Cut(out, "_Text:_\n")
	assert.Equal(t, strings.Repeat("x", DefaultBodyLimit)+"...", text)
}
