package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedkeeper/internal/model"
)

func (x *Extractor) content(node *goquery.Selection) string {
	for _, rule := range x.c.content {
		m := first(node, rule.match)
		if m.Length() == 0 {
			continue
		}
		scope := node
		if rule.withinMatch {
			scope = m
		}
		pairs := []string{"{match}", cleanText(m.Text())}
		for _, f := range rule.fields {
			val := f.def
			if el := first(scope, f.sel); el.Length() > 0 {
				val = f.prefix + cleanText(el.Text()) + f.suffix
			}
			pairs = append(pairs, "{"+f.key+"}", val)
		}
		if out := strings.TrimSpace(strings.NewReplacer(pairs...).Replace(rule.format)); out != "" {
			return out
		}
		return model.NoContent
	}

	text := cleanText(node.Text())
	if text == "" {
		return model.NoContent
	}
	return model.Excerpt(text, x.c.maxLen)
}

// cleanText trims s and collapses whitespace runs inside each line, dropping
// blank lines. Rendered markup carries a lot of indentation.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
