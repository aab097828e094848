package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMarkdownV2(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "notification",
			in:   "**New email:**\n_From:_ a@b.com\n_Subject:_ Test\n_Text:_\nHi there.",
			want: "*New email:*\n_From:_ a@b\\.com\n_Subject:_ Test\n_Text:_\nHi there\\.",
		},
		{name: "reserved characters", in: "1+1=2 (ok)! #tag [x] {y} a|b ~c `d` >e -f", want: "1\\+1\\=2 \\(ok\\)\\! \\#tag \\[x\\] \\{y\\} a\\|b \\~c \\`d\\` \\>e \\-f"},
		{name: "lone underscore", in: "snake_case", want: "snake\\_case"},
		{name: "lone asterisk", in: "a*b", want: "a\\*b"},
		{name: "unclosed bold", in: "**unclosed", want: "\\*\\*unclosed"},
		{name: "empty span", in: "__", want: "\\_\\_"},
		{name: "span across lines", in: "_a\nb_", want: "\\_a\nb\\_"},
		{name: "backslash", in: `C:\path`, want: `C:\\path`},
		{name: "bold with reserved inside", in: "**v1.2**", want: "*v1\\.2*"},
		{name: "touching italic spans", in: "_a__b_", want: "\\_a\\_\\_b\\_"},
		{name: "snake case with double underscore", in: "see my_var__name_ here", want: "see my\\_var\\_\\_name\\_ here"},
		{name: "underscores in address", in: "John_Doe <john_doe@x.com>", want: "John\\_Doe <john\\_doe@x\\.com\\>"},
		{name: "italic needs closing boundary", in: "_foo_bar", want: "\\_foo\\_bar"},
		{name: "italic in sentence", in: "a _b_ c", want: "a _b_ c"},
		{name: "touching bold spans", in: "**a****b**", want: "\\*\\*a\\*\\*\\*\\*b\\*\\*"},
		{name: "plain", in: "hello", want: "hello"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMarkdownV2(tt.in))
		})
	}
}
