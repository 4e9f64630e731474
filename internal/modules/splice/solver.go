package splice

import (
	"context"
	"sort"
)

type MissingSymbol struct {
	Library string `json:"library"`
	Symbol  string `json:"symbol"`
}

type Answers struct {
	MissingSymbols []MissingSymbol `json:"missing_symbols"`
}

// Solver finds symbols the given corpora need but none of them provide.
type Solver interface {
	Solve(ctx context.Context, corpora []Corpus) (Answers, error)
}

// SetSolver is the built in solver: a symbol is missing when some corpus references it
// undefined and no corpus in the set defines it.
type SetSolver struct{}

func (SetSolver) Solve(ctx context.Context, corpora []Corpus) (Answers, error) {
	defined := map[string]struct{}{}
	for _, c := range corpora {
		for _, s := range c.Symbols {
			if s.Defined {
				defined[s.Name] = struct{}{}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return Answers{}, err
	}
	seen := map[MissingSymbol]struct{}{}
	out := []MissingSymbol{}
	for _, c := range corpora {
		for _, s := range c.Symbols {
			if s.Defined || s.Name == "" {
				continue
			}
			if _, ok := defined[s.Name]; ok {
				continue
			}
			m := MissingSymbol{Library: c.Path, Symbol: s.Name}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Library != out[j].Library {
			return out[i].Library < out[j].Library
		}
		return out[i].Symbol < out[j].Symbol
	})
	return Answers{MissingSymbols: out}, nil
}
