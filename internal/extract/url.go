package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedkeeper/internal/identity"
)

// UnknownURLFragment is appended to the page URL when no permalink is found.
const UnknownURLFragment = "#unknown-post-url"

func (x *Extractor) url(node *goquery.Selection, page string) string {
	if href, ok := first(node, x.c.permalink).Attr("href"); ok && href != "" {
		return resolve(page, href)
	}
	if _, id, ok := strings.Cut(identity.URN(node), "activity:"); ok && id != "" {
		return x.c.updateBase + "urn:li:activity:" + id
	}
	if first(node, x.c.actions).Length() > 0 {
		if id, ok := identity.Structural(node); ok && strings.Contains(id, "activity:") {
			return x.c.updateBase + id
		}
	}
	return page + UnknownURLFragment
}

// resolve makes href absolute against page. Unparseable input is returned
// as given.
func resolve(page, href string) string {
	if page == "" {
		return href
	}
	base, err := url.Parse(page)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
