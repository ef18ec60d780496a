package htmlutil

import "testing"

func TestCleanIntro(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "Irrigation outlook for the week.",
			want: "Irrigation outlook for the week.",
		},
		{
			name: "script block removed",
			in:   `Hello<script>alert("x")</script> world`,
			want: "Hello world",
		},
		{
			name: "style block removed",
			in:   `<style>p { color: red }</style>Note`,
			want: "Note",
		},
		{
			name: "script with attributes and mixed case",
			in:   `<SCRIPT src="evil.js"></SCRIPT>ok`,
			want: "ok",
		},
		{
			name: "unterminated script tag stripped",
			in:   `before<script src="x.js">after`,
			want: "beforeafter",
		},
		{
			name: "divs become br-separated lines",
			in:   `<div>first</div><div>second</div>`,
			want: "first<br>second",
		},
		{
			name: "div attributes dropped",
			in:   `<div class="intro" style="color:red">text</div>`,
			want: "text",
		},
		{
			name: "inline formatting preserved",
			in:   `<b>Dry week ahead</b> — plan <i>accordingly</i>`,
			want: `<b>Dry week ahead</b> — plan <i>accordingly</i>`,
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanIntro(tt.in); got != tt.want {
				t.Errorf("CleanIntro(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToText(t *testing.T) {
	got := ToText("<b>7-day</b> outlook &amp; totals")
	if got != "7-day outlook & totals" {
		t.Errorf("ToText() = %q", got)
	}
}
