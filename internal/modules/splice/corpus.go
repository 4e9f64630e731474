package splice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Symbol is one entry of an ELF symbol table as emitted by the symbolator analyzer.
type Symbol struct {
	Name    string `json:"name"`
	Defined bool   `json:"defined"`
}

// Corpus is the symbol table of one library or binary.
type Corpus struct {
	Path    string   `json:"path"`
	Symbols []Symbol `json:"symbols"`
}

// LibraryKey reduces a library path to the name splices match on: libz.so.1.2.11 -> libz.
func LibraryKey(p string) string {
	base := path.Base(strings.TrimSpace(p))
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// DecodeCorpora accepts a list of corpora, an object holding a "corpora" list, or a single
// corpus object.
func DecodeCorpora(raw []byte) ([]Corpus, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var out []Corpus
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode corpora: %w", err)
		}
		return out, nil
	case '{':
		var wrapped struct {
			Corpora []Corpus `json:"corpora"`
			Corpus
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode corpora: %w", err)
		}
		if wrapped.Corpora != nil {
			return wrapped.Corpora, nil
		}
		if wrapped.Path != "" {
			return []Corpus{wrapped.Corpus}, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("decode corpora: unexpected json %q", string(raw[:1]))
	}
}
