// Package phone canonicalizes recipient identifiers so that every component
// agrees on the key a conversation is bucketed under.
package phone

import "strings"

// Normalize reduces a recipient identifier to its digits-only canonical form.
// "+51 999-123-456" and "51999123456@s.whatsapp.net" both map to
// "51999123456". Channel suffixes (anything after '@') are discarded first so
// their digits never leak into the key.
func Normalize(recipient string) string {
	if at := strings.IndexByte(recipient, '@'); at >= 0 {
		recipient = recipient[:at]
	}

	var b strings.Builder
	b.Grow(len(recipient))
	for _, r := range recipient {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
