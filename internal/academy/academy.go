// Package academy serves the reference articles on orbital mechanics.
package academy

import (
	"embed"
	"errors"
	"fmt"
)

// ErrTopicNotFound is returned by Get for an unknown topic id.
var ErrTopicNotFound = errors.New("topic not found")

//go:embed content/*.md
var content embed.FS

// Topic is one academy article. Content is markdown.
type Topic struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Content  string `json:"content,omitempty"`
}

// catalog fixes the display order.
var catalog = []Topic{
	{ID: "keplers-laws", Title: "Kepler's Laws", Subtitle: "The foundation of orbital mechanics"},
	{ID: "rocket-equation", Title: "The Rocket Equation", Subtitle: "Tsiolkovsky's fundamental equation"},
	{ID: "lagrange-points", Title: "Lagrange Points", Subtitle: "Gravitational equilibrium positions"},
	{ID: "n-body", Title: "N-Body Problems", Subtitle: "When three isn't a crowd, it's chaos"},
}

// List returns topic summaries without content, in display order.
func List() []Topic {
	out := make([]Topic, len(catalog))
	copy(out, catalog)
	return out
}

// Get returns the topic with its markdown content.
func Get(id string) (Topic, error) {
	for _, t := range catalog {
		if t.ID != id {
			continue
		}
		body, err := content.ReadFile("content/" + id + ".md")
		if err != nil {
			return Topic{}, fmt.Errorf("reading topic %q: %w", id, err)
		}
		t.Content = string(body)
		return t, nil
	}
	return Topic{}, fmt.Errorf("%q: %w", id, ErrTopicNotFound)
}
