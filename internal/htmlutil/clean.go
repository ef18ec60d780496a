package htmlutil

import (
	"regexp"
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts HTML to plain text using a proper HTML parser.
// Handles entities, strips tags, and preserves readable text.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

var (
	scriptRe   = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe    = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	danglingRe = regexp.MustCompile(`(?is)<(?:script|style)\b[^>]*>`)
	divOpenRe  = regexp.MustCompile(`(?i)<div\b[^>]*>`)
	divCloseRe = regexp.MustCompile(`(?i)</div>`)
)

// CleanIntro sanitizes user-supplied rich text for embedding in a report:
// script and style blocks are removed outright, and div wrappers become
// <br>-separated inline text. Inline formatting tags pass through.
func CleanIntro(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = danglingRe.ReplaceAllString(s, "")
	s = divOpenRe.ReplaceAllString(s, "")
	s = divCloseRe.ReplaceAllString(s, "<br>")

	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, "<br>") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "<br>"))
	}
	return s
}
