package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"LinkScanner/internal/domain"
)

// Branch names double as the output file labels.
const (
	BranchAll      = "all_responses"
	BranchFailures = "failures"
)

// ExtractFunc fans one record out into (url, reference) pairs.
type ExtractFunc func(rec domain.SourceRecord) iter.Seq[domain.KeyedReference]

// CheckFunc probes one URL group. It must always return a result; failures
// are recorded on the result, never returned.
type CheckFunc func(ctx context.Context, group domain.URLGroup) domain.CheckResult

// Branch is one independently ranked view over the checked results.
type Branch struct {
	Name string
	Keep func(domain.CheckResult) bool
}

// Output is the ranked content of one branch.
type Output struct {
	Branch  string
	Results []domain.CheckResult
}

// Graph declares extract -> group -> check -> branch -> rank. Engines decide
// how the per-item stages are scheduled; the stage logic stays here.
type Graph struct {
	Extract  ExtractFunc
	Check    CheckFunc
	Branches []Branch
}

// NewGraph returns a graph with the all-results and failures branches.
func NewGraph(extract ExtractFunc, check CheckFunc) *Graph {
	return &Graph{
		Extract: extract,
		Check:   check,
		Branches: []Branch{
			{Name: BranchAll, Keep: func(domain.CheckResult) bool { return true }},
			{Name: BranchFailures, Keep: IsFailure},
		},
	}
}

// Validate reports graphs that cannot be executed.
func (g *Graph) Validate() error {
	if g == nil {
		return errors.New("graph is nil")
	}
	if g.Extract == nil {
		return errors.New("graph has no extract stage")
	}
	if g.Check == nil {
		return errors.New("graph has no check stage")
	}

	seen := make(map[string]struct{}, len(g.Branches))
	for _, b := range g.Branches {
		if b.Name == "" || b.Keep == nil {
			return fmt.Errorf("branch %q is incomplete", b.Name)
		}
		if _, ok := seen[b.Name]; ok {
			return fmt.Errorf("duplicate branch %q", b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}

// Finish is the barrier stage: it needs every result before it can rank.
func (g *Graph) Finish(results []domain.CheckResult) []Output {
	outputs := make([]Output, 0, len(g.Branches))
	for _, b := range g.Branches {
		outputs = append(outputs, Output{
			Branch:  b.Name,
			Results: Rank(Filter(results, b.Keep)),
		})
	}
	return outputs
}
