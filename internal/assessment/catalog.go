package assessment

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Test identifiers of the instruments shipped in the embedded catalog.
const (
	PersonalityProfiler = "personality_profiler"
	SelfEfficacyScale   = "self_efficacy_scale"
)

// Kind is the answer format of an instrument.
type Kind string

const (
	KindYesNo  Kind = "yes_no"
	KindLikert Kind = "likert"
)

// Definition describes one instrument.  Definitions are built once by
// LoadCatalog and must be treated as read-only afterwards.
type Definition struct {
	ID              string            `yaml:"id"`
	Title           string            `yaml:"title"`
	Kind            Kind              `yaml:"kind"`
	Keywords        []string          `yaml:"keywords"`
	Instructions    string            `yaml:"instructions"`
	Questions       []string          `yaml:"questions"`
	Scoring         []DimensionRule   `yaml:"scoring"`
	Scale           *Scale            `yaml:"scale"`
	Bands           []Band            `yaml:"bands"`
	Interpretations map[string]string `yaml:"interpretations"`
	General         string            `yaml:"general"`
}

// DimensionRule counts one point for every listed question answered with the
// expected value.  Question numbers are 1-based.
type DimensionRule struct {
	Dimension string     `yaml:"dimension"`
	Yes       []int      `yaml:"yes"`
	No        []int      `yaml:"no"`
	Threshold *Threshold `yaml:"threshold"`
}

// Max is the highest score the rule can produce.
func (r DimensionRule) Max() int { return len(r.Yes) + len(r.No) }

// Threshold picks between two interpretations: Above when the score is
// strictly greater than Value, Below otherwise.
type Threshold struct {
	Value int    `yaml:"value"`
	Above string `yaml:"above"`
	Below string `yaml:"below"`
}

// Scale is the rating range of a Likert instrument.
type Scale struct {
	Min    int      `yaml:"min"`
	Max    int      `yaml:"max"`
	Labels []string `yaml:"labels"`
}

// Band maps totals of at least Min to a label and narrative.
type Band struct {
	Min   int    `yaml:"min"`
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// Catalog is the immutable set of instruments known to the service.
type Catalog struct {
	defs []*Definition
	byID map[string]*Definition
}

type catalogFile struct {
	Assessments []*Definition `yaml:"assessments"`
}

// DefaultCatalog loads the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}

// MustDefaultCatalog is DefaultCatalog for tests and tooling; it panics on error.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalogFile reads a catalog from path.  An empty path selects the
// embedded catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assessment catalog: %w", err)
	}
	return LoadCatalog(data)
}

// LoadCatalog parses and validates a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse assessment catalog: %w", err)
	}
	if len(file.Assessments) == 0 {
		return nil, errors.New("assessment catalog is empty")
	}
	c := &Catalog{byID: make(map[string]*Definition, len(file.Assessments))}
	for _, def := range file.Assessments {
		if err := def.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("assessment %q defined twice", def.ID)
		}
		if def.Kind == KindLikert {
			sort.SliceStable(def.Bands, func(i, j int) bool { return def.Bands[i].Min > def.Bands[j].Min })
		}
		c.defs = append(c.defs, def)
		c.byID[def.ID] = def
	}
	return c, nil
}

func (d *Definition) validate() error {
	if d == nil || d.ID == "" {
		return errors.New("assessment without id")
	}
	if len(d.Questions) == 0 {
		return fmt.Errorf("assessment %q has no questions", d.ID)
	}
	switch d.Kind {
	case KindYesNo:
		if len(d.Scoring) == 0 {
			return fmt.Errorf("assessment %q has no scoring rules", d.ID)
		}
		for _, rule := range d.Scoring {
			for _, n := range append(append([]int{}, rule.Yes...), rule.No...) {
				if n < 1 || n > len(d.Questions) {
					return fmt.Errorf("assessment %q dimension %q references question %d", d.ID, rule.Dimension, n)
				}
			}
		}
	case KindLikert:
		if d.Scale == nil || d.Scale.Min < 1 || d.Scale.Max <= d.Scale.Min {
			return fmt.Errorf("assessment %q needs a scale", d.ID)
		}
		if len(d.Bands) == 0 {
			return fmt.Errorf("assessment %q needs score bands", d.ID)
		}
	default:
		return fmt.Errorf("assessment %q has unknown kind %q", d.ID, d.Kind)
	}
	return nil
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (*Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Definitions returns the instruments in catalog order.
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// ExtractTestName finds the instrument a message asks for by a
// case-insensitive keyword match.  It returns "" when nothing matches.
func (c *Catalog) ExtractTestName(text string) string {
	lower := strings.ToLower(text)
	for _, def := range c.defs {
		for _, kw := range def.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return def.ID
			}
		}
	}
	return ""
}

// MaxTotal is the highest possible Likert total.
func (d *Definition) MaxTotal() int {
	if d.Scale == nil {
		return 0
	}
	return d.Scale.Max * len(d.Questions)
}

// FormatQuestions renders the numbered question list shown to the employee.
func (d *Definition) FormatQuestions() string {
	var b strings.Builder
	b.WriteString("**" + d.Title + "**\n\n")
	if d.Instructions != "" {
		b.WriteString(strings.TrimSpace(d.Instructions) + "\n\n")
	}
	if d.Kind == KindLikert && d.Scale != nil && len(d.Scale.Labels) > 0 {
		parts := make([]string, 0, len(d.Scale.Labels))
		for i, label := range d.Scale.Labels {
			parts = append(parts, strconv.Itoa(d.Scale.Min+i)+" = "+label)
		}
		b.WriteString("Scale: " + strings.Join(parts, ", ") + "\n\n")
	}
	for i, q := range d.Questions {
		b.WriteString(strconv.Itoa(i+1) + ". " + q + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
