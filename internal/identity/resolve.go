// Package identity derives a key for each feed item.
//
// Resolution walks an ordered chain of signals, from markup IDs down to a
// content-derived key and finally a random one. The chain is total: every
// node gets a non-empty ID. Only the last step is unstable across passes.
package identity

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/abelbrown/feedkeeper/internal/model"
)

// Mode selects the fallback ID encoding.
type Mode string

const (
	// ModeBase64 is standard base64 of the seed with "+", "/" and "=" removed.
	// Keys stay compatible with histories collected by earlier versions.
	ModeBase64 Mode = "base64"
	// ModeHash is the xxhash64 of the seed, hex encoded with an "h:" prefix.
	ModeHash Mode = "hash"
)

// FallbackContentLen is how many runes of content go into the fallback seed.
const FallbackContentLen = 50

var (
	attrChain = []string{"data-urn", "data-id", "data-activity-urn"}

	articleIDRe = regexp.MustCompile(`articleId=([^&]+)`)
	updateRe    = regexp.MustCompile(`/feed/update/([^?/]+)`)

	unsafeB64 = strings.NewReplacer("+", "", "/", "", "=", "")
)

// Resolver assigns IDs. The zero value uses ModeBase64 and the real clock.
type Resolver struct {
	Mode Mode
	Now  func() time.Time
}

// Resolve returns the ID for node. rec supplies the already-extracted author
// and content for the content fallback, and its capture time for the last
// resort. Placeholder content is not a usable signal, so an empty or
// unparseable node always falls through to the last resort.
func (r *Resolver) Resolve(node *goquery.Selection, rec model.PostRecord) string {
	if id, ok := Structural(node); ok {
		return id
	}
	if model.HasContent(rec.Content) {
		return EncodeFallbackID(r.Mode, seed(rec))
	}
	return r.lastResort(rec)
}

// Structural returns an ID taken from markup: an ID attribute on node or a
// descendant, then an article link, then a feed update link.
func Structural(node *goquery.Selection) (string, bool) {
	for _, attr := range attrChain {
		if v := attrSelfOrDescendant(node, attr); v != "" {
			return v, true
		}
	}
	if href, ok := node.Find(`a[href*="articleId="]`).First().Attr("href"); ok {
		if m := articleIDRe.FindStringSubmatch(href); m != nil {
			return "article:" + m[1], true
		}
	}
	if href, ok := node.Find(`a[href*="/feed/update/"]`).First().Attr("href"); ok {
		if m := updateRe.FindStringSubmatch(href); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// URN returns the data-urn of node or its first descendant carrying one.
func URN(node *goquery.Selection) string {
	return attrSelfOrDescendant(node, "data-urn")
}

func attrSelfOrDescendant(node *goquery.Selection, attr string) string {
	if v, ok := node.Attr(attr); ok && v != "" {
		return v
	}
	v, _ := node.Find("[" + attr + "]").First().Attr(attr)
	return v
}

func seed(rec model.PostRecord) string {
	who := rec.Author.Name
	if who == "" {
		who = rec.Author.ProfileID
	}
	if who == "" {
		who = "unknown"
	}
	content := []rune(rec.Content)
	if len(content) > FallbackContentLen {
		content = content[:FallbackContentLen]
	}
	return who + "-" + string(content)
}

// EncodeFallbackID turns a content seed into a storage-safe key. Neither
// mode is collision-free. Base64 is reversible, so two seeds collide only
// when they differ in nothing but stripped characters; the hash mode trades
// that for fixed-length keys.
func EncodeFallbackID(mode Mode, seed string) string {
	if mode == ModeHash {
		return fmt.Sprintf("h:%016x", xxhash.Sum64String(seed))
	}
	return unsafeB64.Replace(base64.StdEncoding.EncodeToString([]byte(seed)))
}

// lastResort is unique but not stable: the same unidentifiable item seen
// in two passes yields two different IDs, and is recorded twice.
func (r *Resolver) lastResort(rec model.PostRecord) string {
	at := rec.CapturedAt()
	if at.IsZero() {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		at = now()
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("unknown-%d-%s", at.UnixMilli(), suffix)
}
