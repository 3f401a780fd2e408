// Package sanitizer cleans inbound HTML before it is stored as campaign content.
package sanitizer

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	emailPolicy *bluemonday.Policy
	initOnce    sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		// Newsletter HTML: user-generated content rules plus table layouts,
		// inline styles and cid: references to inline attachments.
		emailPolicy = bluemonday.UGCPolicy()
		emailPolicy.AllowURLSchemes("http", "https", "mailto", "cid")
		emailPolicy.AllowElements("center", "font", "span", "div")
		emailPolicy.AllowAttrs("align", "valign", "bgcolor", "width", "height", "border", "cellpadding", "cellspacing").
			OnElements("table", "tr", "td", "th", "img", "div", "p")
		emailPolicy.AllowAttrs("color", "face", "size").OnElements("font")
		emailPolicy.AllowStyles(
			"color", "background-color", "font-family", "font-size", "font-weight", "font-style",
			"text-align", "text-decoration", "line-height", "margin", "padding", "border",
			"width", "max-width", "height", "display",
		).Globally()
		emailPolicy.RequireNoFollowOnLinks(false)
	})
}

// EmailHTML strips scripts, event handlers, forms and dangerous URLs while
// keeping the markup newsletters rely on.
func EmailHTML(s string) string {
	initPolicies()
	return emailPolicy.Sanitize(s)
}

// Custom applies a custom bluemonday policy.
// Returns input unchanged if policy is nil.
func Custom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}
