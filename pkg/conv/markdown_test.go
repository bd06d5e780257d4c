package conv

import (
	"strings"
	"testing"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        []string
		wantAbsent  []string
	}{
		{
			name:  "bold and italic survive",
			input: "**breaking**: _ETH rallies_",
			want:  []string{"<strong>breaking</strong>", "<em>ETH rallies</em>"},
		},
		{
			name:       "headers stripped to text",
			input:      "# Market Update\nbody",
			want:       []string{"Market Update"},
			wantAbsent: []string{"<h1>"},
		},
		{
			name:  "links keep href",
			input: "[source](https://example.com/article)",
			want:  []string{`href="https://example.com/article"`},
		},
		{
			name:       "script tags removed",
			input:      "hello <script>alert(1)</script>",
			wantAbsent: []string{"<script>"},
		},
		{
			name:  "code block preserved",
			input: "```\ntotal_tvl = 42\n```",
			want:  []string{"<code", "total_tvl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownToTelegramHTML([]byte(tt.input))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output %q missing %q", got, w)
				}
			}
			for _, w := range tt.wantAbsent {
				if strings.Contains(got, w) {
					t.Errorf("output %q should not contain %q", got, w)
				}
			}
		})
	}
}
