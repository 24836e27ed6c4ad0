package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedkeeper/internal/model"
)

const bullet = "•"

func (x *Extractor) author(node *goquery.Selection, page string) model.Author {
	a := model.Author{Name: model.UnknownAuthor}

	if href, ok := first(node, x.c.link).Attr("href"); ok && href != "" {
		a.ProfileURL, _, _ = strings.Cut(resolve(page, href), "?")
		if m := x.c.profileID.FindStringSubmatch(a.ProfileURL); m != nil {
			a.ProfileID = m[1]
		}
	}

	if src, ok := first(node, x.c.avatar).Attr("src"); ok && src != "" {
		a.ImageURL = src
	} else if delayed, ok := first(node, x.c.delayed).Attr("data-delayed-url"); ok {
		a.ImageURL = delayed
	}

	nameEl := first(node, x.c.name)
	switch {
	case nameEl.Length() > 0:
		parts := splitTrim(cleanText(nameEl.Text()))
		if name := parts[0]; name != "" {
			if x.opts.RepairDuplicateNames {
				name = RepairName(name)
			}
			a.Name = name
		}
		a.ConnectionStatus = x.connection(parts[1:])
	case a.ProfileID != "":
		a.Name = a.ProfileID
	}

	if titleEl := first(node, x.c.title); titleEl.Length() > 0 {
		a.Title = strings.Join(uniq(splitTrim(cleanText(titleEl.Text()))), ", ")
	}
	return a
}

func (x *Extractor) connection(parts []string) string {
	for _, p := range parts {
		for _, m := range x.c.markers {
			if strings.Contains(p, m) {
				return p
			}
		}
	}
	return ""
}

// RepairName collapses a name that was rendered twice, such as
// "Ada LovelaceAda Lovelace". Names of 10 runes or fewer are left alone.
// The halves need not match exactly: the second half only has to start with
// the first three runes of the first.
func RepairName(name string) string {
	r := []rune(name)
	if len(r) <= 10 {
		return name
	}
	half := len(r) / 2
	firstHalf := []rune(strings.TrimSpace(string(r[:half])))
	secondHalf := strings.TrimSpace(string(r[half:]))
	if len(firstHalf) > 3 && strings.HasPrefix(secondHalf, string(firstHalf[:3])) {
		return string(firstHalf)
	}
	return name
}

// splitTrim splits on the bullet separator and trims each part. Always
// returns at least one element.
func splitTrim(s string) []string {
	parts := strings.Split(s, bullet)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// uniq drops repeated strings, keeping first-seen order.
func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
