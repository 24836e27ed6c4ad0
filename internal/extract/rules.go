package extract

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

//go:embed rules.json
var defaultRulesJSON []byte

// Rules is the data-driven description of where each field lives in a feed
// item. Markup drift is handled by editing a rules file, not code.
type Rules struct {
	Candidates    string        `json:"candidates"`
	Promoted      PromotedRules `json:"promoted"`
	Author        AuthorRules   `json:"author"`
	Content       []ContentRule `json:"content"`
	ContentMaxLen int           `json:"content_max_len"`
	Engagement    CountRules    `json:"engagement"`
	URL           URLRules      `json:"url"`
}

// PromotedRules detects sponsored items. Each selector's first match is
// checked for Marker.
type PromotedRules struct {
	Selectors []string `json:"selectors"`
	Marker    string   `json:"marker"`
}

type AuthorRules struct {
	Name              string   `json:"name"`
	Title             string   `json:"title"`
	Link              string   `json:"link"`
	Avatar            string   `json:"avatar"`
	DelayedImage      string   `json:"delayed_image"`
	ProfileIDPattern  string   `json:"profile_id_pattern"`
	ConnectionMarkers []string `json:"connection_markers"`
}

// ContentRule is one content strategy. Rules are tried in order and the
// first whose Match selector finds an element wins.
//
// Format is expanded with {match} (text of the matched element) and one
// placeholder per entry in Fields. Fields are looked up under the item root,
// or under the matched element when WithinMatch is set.
type ContentRule struct {
	Name        string               `json:"name"`
	Match       string               `json:"match"`
	Format      string               `json:"format"`
	WithinMatch bool                 `json:"within_match,omitempty"`
	Fields      map[string]FieldRule `json:"fields,omitempty"`
}

// FieldRule locates one placeholder value. Prefix and Suffix wrap the text
// only when the element is found; Default is used when it is not.
type FieldRule struct {
	Selector string `json:"selector"`
	Default  string `json:"default,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
}

type CountRules struct {
	Container string `json:"container"`
	Likes     string `json:"likes"`
	Comments  string `json:"comments"`
	Shares    string `json:"shares"`
}

type URLRules struct {
	Permalink  string `json:"permalink"`
	Actions    string `json:"actions"`
	UpdateBase string `json:"update_base"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() Rules {
	var r Rules
	if err := json.Unmarshal(defaultRulesJSON, &r); err != nil {
		panic("extract: embedded rules: " + err.Error())
	}
	return r
}

// LoadRules reads a rules file over the defaults. Keys absent from the file
// keep their default values; a present list replaces the default list.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	if err := r.overlay(data); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// overlay decodes data over r. Lists present in data are cleared first so
// their entries start from zero values instead of the default entries.
func (r *Rules) overlay(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	if _, ok := top["content"]; ok {
		r.Content = nil
	}
	if has(top["promoted"], "selectors") {
		r.Promoted.Selectors = nil
	}
	if has(top["author"], "connection_markers") {
		r.Author.ConnectionMarkers = nil
	}
	return json.Unmarshal(data, r)
}

// has reports whether the JSON object raw has key.
func has(raw json.RawMessage, key string) bool {
	if len(raw) == 0 {
		return false
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return false
	}
	_, ok := obj[key]
	return ok
}

// Validate compiles every selector and pattern without keeping the result.
func (r Rules) Validate() error {
	_, err := compile(r)
	return err
}

// compiled holds the rules with every selector parsed once.
type compiled struct {
	candidates cascadia.Selector
	promoted   []cascadia.Selector
	marker     string

	name, title, link, avatar, delayed cascadia.Selector
	profileID                          *regexp.Regexp
	markers                            []string

	content []compiledContent
	maxLen  int

	countBox, likes, comments, shares cascadia.Selector

	permalink, actions cascadia.Selector
	updateBase         string
}

type compiledContent struct {
	name        string
	match       cascadia.Selector
	format      string
	withinMatch bool
	fields      []compiledField
}

type compiledField struct {
	key                 string
	sel                 cascadia.Selector
	def, prefix, suffix string
}

func compile(r Rules) (*compiled, error) {
	var errs []string
	sel := func(field, s string) cascadia.Selector {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, field+": empty selector")
			return nil
		}
		c, err := cascadia.Compile(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", field, err))
			return nil
		}
		return c
	}

	c := &compiled{
		candidates: sel("candidates", r.Candidates),
		marker:     r.Promoted.Marker,
		name:       sel("author.name", r.Author.Name),
		title:      sel("author.title", r.Author.Title),
		link:       sel("author.link", r.Author.Link),
		avatar:     sel("author.avatar", r.Author.Avatar),
		delayed:    sel("author.delayed_image", r.Author.DelayedImage),
		markers:    r.Author.ConnectionMarkers,
		maxLen:     r.ContentMaxLen,
		countBox:   sel("engagement.container", r.Engagement.Container),
		likes:      sel("engagement.likes", r.Engagement.Likes),
		comments:   sel("engagement.comments", r.Engagement.Comments),
		shares:     sel("engagement.shares", r.Engagement.Shares),
		permalink:  sel("url.permalink", r.URL.Permalink),
		actions:    sel("url.actions", r.URL.Actions),
		updateBase: r.URL.UpdateBase,
	}
	for i, s := range r.Promoted.Selectors {
		c.promoted = append(c.promoted, sel(fmt.Sprintf("promoted.selectors[%d]", i), s))
	}
	if c.maxLen <= 0 {
		errs = append(errs, "content_max_len: must be positive")
	}
	if len(r.Content) == 0 {
		errs = append(errs, "content: no strategies")
	}

	re, err := regexp.Compile(r.Author.ProfileIDPattern)
	switch {
	case err != nil:
		errs = append(errs, fmt.Sprintf("author.profile_id_pattern: %v", err))
	case re.NumSubexp() < 1:
		errs = append(errs, "author.profile_id_pattern: needs a capture group")
	default:
		c.profileID = re
	}

	for i, cr := range r.Content {
		prefix := fmt.Sprintf("content[%d:%s]", i, cr.Name)
		cc := compiledContent{
			name:        cr.Name,
			match:       sel(prefix+".match", cr.Match),
			format:      cr.Format,
			withinMatch: cr.WithinMatch,
		}
		if cr.Format == "" {
			errs = append(errs, prefix+": empty format")
		}
		for key, f := range cr.Fields {
			cc.fields = append(cc.fields, compiledField{
				key:    key,
				sel:    sel(prefix+".fields."+key, f.Selector),
				def:    f.Default,
				prefix: f.Prefix,
				suffix: f.Suffix,
			})
		}
		c.content = append(c.content, cc)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid rules: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// first returns the first descendant of s matching m, in document order.
func first(s *goquery.Selection, m cascadia.Selector) *goquery.Selection {
	return s.FindMatcher(m).First()
}
