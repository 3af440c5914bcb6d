package service

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// stripMarkup removes tags from user text. The API returns JSON, so the
// entities the policy escapes are decoded back to plain characters.
func stripMarkup(policy *bluemonday.Policy, raw string) string {
	return html.UnescapeString(policy.Sanitize(raw))
}
