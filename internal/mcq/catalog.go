package mcq

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Template is a static option layout with a fixed correct answer.
type Template struct {
	Name              string   `json:"name"`
	Family            string   `json:"family"`
	Closing           string   `json:"closing"`
	Statements        int      `json:"statements"`
	Options           []string `json:"options"`
	CorrectAnswer     string   `json:"correctAnswer"`
	ExplanationFormat string   `json:"explanationFormat"`
}

// Layout is a combination template for K displayed statements. Options are
// the rendered phrases of Tokens.
type Layout struct {
	Name    string   `json:"name"`
	K       int      `json:"k"`
	Tokens  []string `json:"tokens"`
	Options []string `json:"options"`
}

// Contains reports whether phrase is one of the layout's options.
func (l Layout) Contains(phrase string) bool {
	return slices.Contains(l.Options, phrase)
}

type catalogFile struct {
	Families []struct {
		Family     string   `yaml:"family"`
		Closing    string   `yaml:"closing"`
		Statements int      `yaml:"statements"`
		Options    []string `yaml:"options"`
		Entries    []struct {
			CorrectAnswer     string `yaml:"correct_answer"`
			ExplanationFormat string `yaml:"explanation_format"`
		} `yaml:"entries"`
	} `yaml:"families"`
	Combinations map[int][]struct {
		Name    string   `yaml:"name"`
		Options []string `yaml:"options"`
	} `yaml:"combinations"`
}

// Catalog holds the static templates and the combination layouts. Static
// templates are read-only; layouts may be added with Register. A Catalog is
// safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	families []string
	static   map[string][]Template
	layouts  map[int][]Layout
}

// Counts are the numbers of statements a combination question may display.
var Counts = []int{2, 3, 4}

// LoadCatalog parses a catalog document and validates it.
func LoadCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		static:  make(map[string][]Template),
		layouts: make(map[int][]Layout),
	}
	for _, fam := range f.Families {
		if _, dup := c.static[fam.Family]; dup {
			return nil, fmt.Errorf("family %q declared twice", fam.Family)
		}
		c.families = append(c.families, fam.Family)
		for _, e := range fam.Entries {
			c.static[fam.Family] = append(c.static[fam.Family], Template{
				Name:              fam.Family + "/" + e.CorrectAnswer,
				Family:            fam.Family,
				Closing:           fam.Closing,
				Statements:        fam.Statements,
				Options:           slices.Clone(fam.Options),
				CorrectAnswer:     e.CorrectAnswer,
				ExplanationFormat: e.ExplanationFormat,
			})
		}
	}

	ks := make([]int, 0, len(f.Combinations))
	for k := range f.Combinations {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	for _, k := range ks {
		for _, l := range f.Combinations[k] {
			if err := c.Register(k, l.Name, l.Options); err != nil {
				return nil, err
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the embedded catalog. The embedded document is
// validated by tests, so a load failure panics.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadCatalog(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("mcq: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Register adds a combination layout for k displayed statements.
func (c *Catalog) Register(k int, name string, tokens []string) error {
	if !slices.Contains(Counts, k) {
		return fmt.Errorf("layout %q: unsupported statement count %d", name, k)
	}
	if len(tokens) != len(Letters) {
		return fmt.Errorf("layout %q: expected %d options, got %d", name, len(Letters), len(tokens))
	}
	opts := make([]string, len(tokens))
	for i, tok := range tokens {
		idx, err := parseToken(k, tok)
		if err != nil {
			return fmt.Errorf("layout %q: %w", name, err)
		}
		opts[i] = Phrase(k, idx)
		if slices.Contains(opts[:i], opts[i]) {
			return fmt.Errorf("layout %q: option %q repeated", name, opts[i])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		name = "k" + strconv.Itoa(k) + "-" + strconv.Itoa(len(c.layouts[k])+1)
	}
	c.layouts[k] = append(c.layouts[k], Layout{
		Name:    name,
		K:       k,
		Tokens:  slices.Clone(tokens),
		Options: opts,
	})
	return nil
}

// Layouts returns the combination layouts for k in registration order.
func (c *Catalog) Layouts(k int) []Layout {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.layouts[k])
}

// Families returns the static family names in catalog order.
func (c *Catalog) Families() []string {
	return slices.Clone(c.families)
}

// Templates returns the static templates of a family.
func (c *Catalog) Templates(family string) []Template {
	return slices.Clone(c.static[family])
}

// Lookup returns the static template of family keyed by correct answer.
func (c *Catalog) Lookup(family, correctAnswer string) (Template, bool) {
	for _, t := range c.static[family] {
		if t.CorrectAnswer == correctAnswer {
			return t, true
		}
	}
	return Template{}, false
}

// MissingPhrases returns the phrases reachable with k displayed statements
// that no layout for k offers.
func (c *Catalog) MissingPhrases(k int) []string {
	layouts := c.Layouts(k)
	var missing []string
	for _, p := range reachablePhrases(k) {
		covered := false
		for _, l := range layouts {
			if l.Contains(p) {
				covered = true
				break
			}
		}
		if !covered {
			missing = append(missing, p)
		}
	}
	return missing
}

// Validate checks every static template and that the layouts of each
// statement count cover every phrase that count can produce.
func (c *Catalog) Validate() error {
	var errs []error
	for _, fam := range c.families {
		seen := map[string]bool{}
		for _, t := range c.static[fam] {
			if len(t.Options) != len(Letters) {
				errs = append(errs, fmt.Errorf("template %s: expected %d options, got %d", t.Name, len(Letters), len(t.Options)))
			}
			if LetterIndex(t.CorrectAnswer) < 0 {
				errs = append(errs, fmt.Errorf("template %s: correct answer %q is not a letter A-D", t.Name, t.CorrectAnswer))
			}
			if seen[t.CorrectAnswer] {
				errs = append(errs, fmt.Errorf("template %s: duplicate correct answer", t.Name))
			}
			seen[t.CorrectAnswer] = true
			if t.ExplanationFormat == "" {
				errs = append(errs, fmt.Errorf("template %s: empty explanation format", t.Name))
			}
			for _, n := range slotNumbers(t.ExplanationFormat) {
				if n < 1 || n > t.Statements {
					errs = append(errs, fmt.Errorf("template %s: slot {statement_%d} outside 1..%d", t.Name, n, t.Statements))
				}
			}
		}
	}
	for _, k := range Counts {
		if missing := c.MissingPhrases(k); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("no layout for %d statements offers %q", k, missing))
		}
	}
	return errors.Join(errs...)
}

var slotRe = regexp.MustCompile(`\{statement_(\d+)\}`)

func slotNumbers(format string) []int {
	var out []int
	for _, m := range slotRe.FindAllStringSubmatch(format, -1) {
		n, _ := strconv.Atoi(m[1])
		out = append(out, n)
	}
	return out
}

// RenderExplanation fills the {statement_N} slots of t's explanation format
// with reasons[N-1].
func RenderExplanation(t Template, reasons []string) (string, error) {
	var missing []int
	out := slotRe.ReplaceAllStringFunc(t.ExplanationFormat, func(slot string) string {
		n, _ := strconv.Atoi(slotRe.FindStringSubmatch(slot)[1])
		if n < 1 || n > len(reasons) {
			missing = append(missing, n)
			return slot
		}
		return reasons[n-1]
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %s: no reason for slots %v", t.Name, missing)
	}
	return out, nil
}
