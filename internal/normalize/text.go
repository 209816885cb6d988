package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy keeps no markup at all. Stripped tags leave a space behind so
// adjacent block elements do not run together.
var textPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first (bodies are often double-encoded), then every
// tag is stripped, script and style content included, and whitespace is
// collapsed.
func extractText(content string) string {
	if content == "" {
		return ""
	}
	plain := textPolicy.Sanitize(html.UnescapeString(content))
	return strings.Join(strings.Fields(html.UnescapeString(plain)), " ")
}
