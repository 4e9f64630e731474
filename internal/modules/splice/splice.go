package splice

import (
	"context"
	"fmt"
	"sort"
)

// Prediction compares the missing symbols of a binary set before and after swapping in
// libraries from another set.
type Prediction struct {
	Missing  []string    `json:"missing"`
	Selected [][2]string `json:"selected"`
	WillWork bool        `json:"will_work"`
	Message  string      `json:"message,omitempty"`
}

// Predict replaces every library of original whose LibraryKey also appears in splices and
// reports the symbols that become missing only after the swap.
func Predict(ctx context.Context, solver Solver, original, splices []Corpus) (*Prediction, error) {
	if len(original) == 0 || len(splices) == 0 {
		return &Prediction{
			Missing:  []string{},
			Selected: [][2]string{},
			Message:  "One of the results does not have corpora, so the splice cannot be performed.",
		}, nil
	}

	before, err := solver.Solve(ctx, original)
	if err != nil {
		return nil, fmt.Errorf("solve original corpora: %w", err)
	}

	lookup := make(map[string]Corpus, len(original))
	order := make([]string, 0, len(original))
	for _, c := range original {
		key := LibraryKey(c.Path)
		if _, ok := lookup[key]; !ok {
			order = append(order, key)
		}
		lookup[key] = c
	}
	selected := [][2]string{}
	for _, c := range splices {
		key := LibraryKey(c.Path)
		prev, ok := lookup[key]
		if !ok {
			continue
		}
		selected = append(selected, [2]string{c.Path, prev.Path})
		lookup[key] = c
	}
	spliced := make([]Corpus, 0, len(order))
	for _, key := range order {
		spliced = append(spliced, lookup[key])
	}

	after, err := solver.Solve(ctx, spliced)
	if err != nil {
		return nil, fmt.Errorf("solve spliced corpora: %w", err)
	}

	known := map[string]struct{}{}
	for _, m := range before.MissingSymbols {
		known[missingKey(m)] = struct{}{}
	}
	missing := []string{}
	for _, m := range after.MissingSymbols {
		k := missingKey(m)
		if _, ok := known[k]; ok {
			continue
		}
		known[k] = struct{}{}
		missing = append(missing, k)
	}
	sort.Strings(missing)
	return &Prediction{Missing: missing, Selected: selected, WillWork: len(missing) == 0}, nil
}

func missingKey(m MissingSymbol) string {
	return LibraryKey(m.Library) + " " + m.Symbol
}
