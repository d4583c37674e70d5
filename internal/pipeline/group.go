package pipeline

import (
	"context"
	"slices"

	"LinkScanner/internal/domain"
)

// Grouper collects references per exact URL string.
type Grouper struct {
	groups map[string][]domain.AnswerReference
}

// NewGrouper builds an empty grouper.
func NewGrouper() *Grouper {
	return &Grouper{groups: make(map[string][]domain.AnswerReference)}
}

// Add appends the pair's reference to its URL group.
func (g *Grouper) Add(pair domain.KeyedReference) {
	g.groups[pair.URL] = append(g.groups[pair.URL], pair.Reference)
}

// Len returns the number of distinct URLs seen so far.
func (g *Grouper) Len() int {
	return len(g.groups)
}

// Groups returns one group per URL, ordered by URL.
func (g *Grouper) Groups() []domain.URLGroup {
	keys := make([]string, 0, len(g.groups))
	for k := range g.groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]domain.URLGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.URLGroup{URL: k, References: g.groups[k]})
	}
	return out
}

// GroupStream drains in until it is closed and returns the groups.
func GroupStream(ctx context.Context, in <-chan domain.KeyedReference) ([]domain.URLGroup, error) {
	g := NewGrouper()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case pair, ok := <-in:
			if !ok {
				return g.Groups(), nil
			}
			g.Add(pair)
		}
	}
}
