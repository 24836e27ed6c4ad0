// Package brain talks to hosted language models to write feed summaries.
package brain

import "context"

// Provider is one hosted model API.
type Provider interface {
	Name() string
	// Available reports whether credentials are present.
	Available() bool
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a single-turn completion. System may be empty, in which case
// the provider applies its own framing if it has one.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

type Response struct {
	Text  string
	Model string
	Raw   string // body as received; set on API errors too
}

// Router chooses which provider serves a call. With a preferred name only
// that provider is eligible, so a Claude model never silently falls over to
// OpenAI.
type Router struct {
	providers []Provider
	preferred string
}

// NewRouter returns a Router over ps. An empty preferred picks the first
// available provider.
func NewRouter(preferred string, ps ...Provider) *Router {
	return &Router{providers: ps, preferred: preferred}
}

// Pick returns the provider to use, or nil when none qualifies.
func (r *Router) Pick() Provider {
	for _, p := range r.providers {
		if !p.Available() {
			continue
		}
		if r.preferred == "" || p.Name() == r.preferred {
			return p
		}
	}
	return nil
}

// Configured lists the providers that have credentials, in registration
// order.
func (r *Router) Configured() []string {
	var names []string
	for _, p := range r.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}
