// Package lexicon holds the heuristic word lists used by the parser, the
// completeness classifier and the chat agent. The lists are configuration
// data, not code: the embedded defaults can be replaced wholesale by
// pointing LEXICON_PATH at another YAML document of the same shape.
package lexicon

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.yaml
var embedded []byte

type document struct {
	CookingVerbs  []string            `yaml:"cooking_verbs"`
	Units         []string            `yaml:"units"`
	Stopwords     []string            `yaml:"stopwords"`
	Substitutions map[string][]string `yaml:"substitutions"`
}

type Lexicon struct {
	verbs map[string]struct{}
	units map[string]struct{}
	stops map[string]struct{}
	subs  map[string][]string
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the lexicon built from the embedded YAML document.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Load(bytes.NewReader(embedded))
		if err != nil {
			// The embedded document is fixed at build time.
			panic(fmt.Sprintf("lexicon: embedded document invalid: %v", err))
		}
		defaultLex = lex
	})
	return defaultLex
}

// Load parses a lexicon document from r.
func Load(r io.Reader) (*Lexicon, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lexicon document: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	if len(doc.CookingVerbs) == 0 {
		return nil, fmt.Errorf("lexicon document has no cooking_verbs")
	}

	lex := &Lexicon{
		verbs: toSet(doc.CookingVerbs),
		units: toSet(doc.Units),
		stops: toSet(doc.Stopwords),
		subs:  make(map[string][]string, len(doc.Substitutions)),
	}
	for name, alternatives := range doc.Substitutions {
		lex.subs[strings.ToLower(strings.TrimSpace(name))] = alternatives
	}
	return lex, nil
}

// LoadFile parses a lexicon document from disk.
func LoadFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (l *Lexicon) IsCookingVerb(token string) bool {
	_, ok := l.verbs[strings.ToLower(token)]
	return ok
}

func (l *Lexicon) IsUnit(token string) bool {
	_, ok := l.units[strings.ToLower(token)]
	return ok
}

func (l *Lexicon) IsStopword(token string) bool {
	_, ok := l.stops[strings.ToLower(token)]
	return ok
}

// Substitutes returns replacement suggestions for an ingredient, matching
// the longest substitution key contained in the given name.
func (l *Lexicon) Substitutes(ingredient string) ([]string, bool) {
	needle := strings.ToLower(strings.TrimSpace(ingredient))
	if alternatives, ok := l.subs[needle]; ok {
		return alternatives, true
	}
	best := ""
	for key := range l.subs {
		if strings.Contains(needle, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return nil, false
	}
	return l.subs[best], true
}

func toSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}
