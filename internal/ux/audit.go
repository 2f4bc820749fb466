// Package ux scores rendered preview HTML for layout quality and basic
// accessibility. The score feeds the risk vector when the caller did not
// supply its own ux/a11y signals.
package ux

import (
	"strings"

	"golang.org/x/net/html"
)

// Audit is the outcome of one HTML pass.
type Audit struct {
	Score    float64  `json:"score"` // 0..100
	Issues   []string `json:"issues"`
	A11yPass bool     `json:"a11y_pass"`
}

type check struct {
	issue   string
	penalty float64
	a11y    bool
}

var (
	checkMissingTitle    = check{"missing_title", 10, false}
	checkMissingViewport = check{"missing_viewport", 10, false}
	checkImgNoAlt        = check{"img_missing_alt", 10, true}
	checkImgUnsized      = check{"img_unsized", 5, false}
	checkInlineHandler   = check{"inline_event_handler", 15, false}
	checkDocWrite        = check{"document_write", 15, false}
)

// AuditHTML parses the document and applies the layout/a11y checks. Parse
// errors yield a zero-score audit rather than an error: a page we cannot
// parse is a page we cannot vouch for.
func AuditHTML(raw string) Audit {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Audit{Score: 0, Issues: []string{"unparseable_html"}, A11yPass: false}
	}

	var (
		hasTitle    bool
		hasViewport bool
		hits        []check
	)
	addOnce := func(c check) {
		for _, h := range hits {
			if h.issue == c.issue {
				return
			}
		}
		hits = append(hits, c)
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				hasTitle = true
			case "meta":
				if attr(n, "name") == "viewport" {
					hasViewport = true
				}
			case "img":
				if strings.TrimSpace(attr(n, "alt")) == "" {
					addOnce(checkImgNoAlt)
				}
				if attr(n, "width") == "" || attr(n, "height") == "" {
					addOnce(checkImgUnsized)
				}
			case "script":
				if n.FirstChild != nil && strings.Contains(n.FirstChild.Data, "document.write") {
					addOnce(checkDocWrite)
				}
			}
			for _, a := range n.Attr {
				if strings.HasPrefix(strings.ToLower(a.Key), "on") {
					addOnce(checkInlineHandler)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !hasTitle {
		addOnce(checkMissingTitle)
	}
	if !hasViewport {
		addOnce(checkMissingViewport)
	}

	score := 100.0
	issues := make([]string, 0, len(hits))
	a11yPass := true
	for _, h := range hits {
		score -= h.penalty
		issues = append(issues, h.issue)
		if h.a11y {
			a11yPass = false
		}
	}
	if score < 0 {
		score = 0
	}

	return Audit{Score: score, Issues: issues, A11yPass: a11yPass}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
