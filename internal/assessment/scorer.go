package assessment

import (
	"fmt"
	"strconv"
	"strings"
)

// DimensionScore is the raw count for one scored dimension of a yes/no
// instrument together with the interpretation picked for it.
type DimensionScore struct {
	Dimension string
	Score     int
	Max       int
	Label     string
	Text      string
}

// LikertScore is the total of a Likert instrument and the band it falls in.
type LikertScore struct {
	Total int
	Max   int
	Band  Band
}

// Scorer applies a catalog's scoring rules.  It holds no state besides the
// catalog, so one Scorer may be shared across requests.
type Scorer struct {
	catalog *Catalog
}

// NewScorer constructs a Scorer over the given catalog.
func NewScorer(catalog *Catalog) *Scorer {
	return &Scorer{catalog: catalog}
}

// Interpret scores answers for the named instrument and renders the
// narrative.  Unknown instruments yield "".
func (s *Scorer) Interpret(testName string, answers Answers) string {
	def, ok := s.catalog.Get(testName)
	if !ok {
		return ""
	}
	switch def.Kind {
	case KindYesNo:
		return formatYesNo(def, ScoreYesNo(def, answers.YesNo))
	case KindLikert:
		return formatLikert(def, ScoreLikert(def, answers.Ratings))
	}
	return ""
}

// ScoreYesNo counts, per dimension, the configured questions whose answer
// matches the expected value.  Missing or unexpected answers count nothing.
func ScoreYesNo(def *Definition, answers map[string]string) []DimensionScore {
	scores := make([]DimensionScore, 0, len(def.Scoring))
	for _, rule := range def.Scoring {
		score := countMatches(answers, rule.Yes, "yes") + countMatches(answers, rule.No, "no")
		label := rule.Dimension
		if rule.Threshold != nil {
			if score > rule.Threshold.Value {
				label = rule.Threshold.Above
			} else {
				label = rule.Threshold.Below
			}
		}
		scores = append(scores, DimensionScore{
			Dimension: rule.Dimension,
			Score:     score,
			Max:       rule.Max(),
			Label:     label,
			Text:      strings.TrimSpace(def.Interpretations[label]),
		})
	}
	return scores
}

func countMatches(answers map[string]string, questions []int, want string) int {
	n := 0
	for _, q := range questions {
		if strings.EqualFold(strings.TrimSpace(answers[strconv.Itoa(q)]), want) {
			n++
		}
	}
	return n
}

// ScoreLikert sums the ratings that fall on the instrument's scale, one per
// question, and picks the highest band whose minimum the total reaches.
func ScoreLikert(def *Definition, ratings []int) LikertScore {
	total := 0
	for _, r := range truncate(ratings, len(def.Questions)) {
		if r >= def.Scale.Min && r <= def.Scale.Max {
			total += r
		}
	}
	result := LikertScore{Total: total, Max: def.MaxTotal()}
	for _, band := range def.Bands {
		if total >= band.Min {
			result.Band = band
			break
		}
	}
	if result.Band.Label == "" && len(def.Bands) > 0 {
		result.Band = def.Bands[len(def.Bands)-1]
	}
	return result
}

func formatYesNo(def *Definition, scores []DimensionScore) string {
	var b strings.Builder
	b.WriteString("**" + def.Title + " Results**\n\n")
	for _, s := range scores {
		fmt.Fprintf(&b, "**%s** (score: %d out of %d)\n", s.Label, s.Score, s.Max)
		if s.Text != "" {
			b.WriteString(s.Text + "\n")
		}
		b.WriteString("\n")
	}
	if g := strings.TrimSpace(def.General); g != "" {
		b.WriteString(g)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLikert(def *Definition, score LikertScore) string {
	var b strings.Builder
	b.WriteString("**" + def.Title + " Results**\n\n")
	fmt.Fprintf(&b, "Total Score: %d out of %d\n\n", score.Total, score.Max)
	fmt.Fprintf(&b, "**%s**\n%s\n\n", score.Band.Label, strings.TrimSpace(score.Band.Text))
	b.WriteString(strings.TrimSpace(def.General))
	return strings.TrimRight(b.String(), "\n")
}
