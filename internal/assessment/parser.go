package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Strategy names how a set of answers was extracted from free text.
type Strategy string

const (
	StrategyLineAnchored Strategy = "line_anchored"
	StrategySequential   Strategy = "sequential"
	StrategyStructured   Strategy = "structured"
)

// Minimum number of bare tokens the sequential pass must find.
const (
	minSequentialYesNo   = 10
	minSequentialRatings = 5
)

var (
	lineYesNoRe  = regexp.MustCompile(`(?i)^\s*(\d+)\s*[.)]\s*(yes|no)\b`)
	lineRatingRe = regexp.MustCompile(`^\s*(\d+)\s*[.)]\s*([1-4])\b`)
	anyYesNoRe   = regexp.MustCompile(`(?i)\b(yes|no)\b`)
	anyRatingRe  = regexp.MustCompile(`\b([1-4])\b`)
)

// ErrAnswerShape is returned when structured answers cannot be read for an
// instrument.
var ErrAnswerShape = errors.New("answers do not match the instrument")

// Answers holds the parsed answers of one instrument.  YesNo is keyed by the
// 1-based question number as a string; Ratings is ordered by question.
type Answers struct {
	YesNo   map[string]string
	Ratings []int
}

// Len is the number of answers present.
func (a Answers) Len() int {
	return len(a.YesNo) + len(a.Ratings)
}

// ParseResult is a parsed answer set together with how much to trust it.
type ParseResult struct {
	Answers  Answers
	Strategy Strategy
	Found    int
	Expected int
}

// Ambiguous reports whether the answers came from the best-effort pass or
// do not cover every question.  Callers may want to ask for clarification.
func (r *ParseResult) Ambiguous() bool {
	return r.Strategy == StrategySequential || r.Found != r.Expected
}

// ParseAnswers extracts answers for def from free text.  It returns nil
// when neither the line-anchored nor the sequential pass finds enough.
func ParseAnswers(def *Definition, text string) *ParseResult {
	switch def.Kind {
	case KindYesNo:
		return ParseYesNo(text, len(def.Questions))
	case KindLikert:
		return ParseRatings(text, len(def.Questions))
	}
	return nil
}

// ParseYesNo extracts yes/no answers, first from numbered lines such as
// "3. yes" or "3) No", then from bare yes/no tokens in reading order.
func ParseYesNo(text string, expected int) *ParseResult {
	answers := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		m := lineYesNoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || !inRange(n, expected) {
			continue
		}
		answers[strconv.Itoa(n)] = strings.ToLower(m[2])
	}
	if len(answers) > 0 {
		return &ParseResult{
			Answers:  Answers{YesNo: answers},
			Strategy: StrategyLineAnchored,
			Found:    len(answers),
			Expected: expected,
		}
	}

	tokens := anyYesNoRe.FindAllString(text, -1)
	if len(tokens) < minSequentialYesNo {
		return nil
	}
	tokens = truncate(tokens, expected)
	for i, tok := range tokens {
		answers[strconv.Itoa(i+1)] = strings.ToLower(tok)
	}
	return &ParseResult{
		Answers:  Answers{YesNo: answers},
		Strategy: StrategySequential,
		Found:    len(answers),
		Expected: expected,
	}
}

// ParseRatings extracts 1-4 ratings, first from numbered lines such as
// "3. 4", then from bare digits in reading order.
func ParseRatings(text string, expected int) *ParseResult {
	byNumber := map[int]int{}
	for _, line := range strings.Split(text, "\n") {
		m := lineRatingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || !inRange(n, expected) {
			continue
		}
		v, _ := strconv.Atoi(m[2])
		byNumber[n] = v
	}
	if len(byNumber) > 0 {
		numbers := make([]int, 0, len(byNumber))
		for n := range byNumber {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		ratings := make([]int, 0, len(numbers))
		for _, n := range numbers {
			ratings = append(ratings, byNumber[n])
		}
		return &ParseResult{
			Answers:  Answers{Ratings: ratings},
			Strategy: StrategyLineAnchored,
			Found:    len(ratings),
			Expected: expected,
		}
	}

	tokens := anyRatingRe.FindAllString(text, -1)
	if len(tokens) < minSequentialRatings {
		return nil
	}
	tokens = truncate(tokens, expected)
	ratings := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		v, _ := strconv.Atoi(tok)
		ratings = append(ratings, v)
	}
	return &ParseResult{
		Answers:  Answers{Ratings: ratings},
		Strategy: StrategySequential,
		Found:    len(ratings),
		Expected: expected,
	}
}

// DecodeAnswers reads answers a client already structured.  Yes/no
// instruments accept {"1": "yes"} objects or ["yes", "no"] lists; Likert
// instruments accept [4, 3] lists or {"1": 4} objects.
func DecodeAnswers(def *Definition, raw json.RawMessage) (*ParseResult, error) {
	expected := len(def.Questions)
	switch def.Kind {
	case KindYesNo:
		var byNumber map[string]string
		if err := json.Unmarshal(raw, &byNumber); err == nil {
			answers := make(map[string]string, len(byNumber))
			for k, v := range byNumber {
				n, err := strconv.Atoi(strings.TrimSpace(k))
				if err != nil || !inRange(n, expected) {
					continue
				}
				answers[strconv.Itoa(n)] = strings.ToLower(strings.TrimSpace(v))
			}
			return structured(Answers{YesNo: answers}, expected), nil
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			list = truncate(list, expected)
			answers := make(map[string]string, len(list))
			for i, v := range list {
				answers[strconv.Itoa(i+1)] = strings.ToLower(strings.TrimSpace(v))
			}
			return structured(Answers{YesNo: answers}, expected), nil
		}
	case KindLikert:
		var list []int
		if err := json.Unmarshal(raw, &list); err == nil {
			return structured(Answers{Ratings: truncate(list, expected)}, expected), nil
		}
		var byNumber map[string]int
		if err := json.Unmarshal(raw, &byNumber); err == nil {
			numbers := make([]int, 0, len(byNumber))
			values := make(map[int]int, len(byNumber))
			for k, v := range byNumber {
				n, err := strconv.Atoi(strings.TrimSpace(k))
				if err != nil || !inRange(n, expected) {
					continue
				}
				numbers = append(numbers, n)
				values[n] = v
			}
			sort.Ints(numbers)
			ratings := make([]int, 0, len(numbers))
			for _, n := range numbers {
				ratings = append(ratings, values[n])
			}
			return structured(Answers{Ratings: ratings}, expected), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", def.ID, ErrAnswerShape)
}

func structured(a Answers, expected int) *ParseResult {
	return &ParseResult{Answers: a, Strategy: StrategyStructured, Found: a.Len(), Expected: expected}
}

// inRange reports whether n is a question number of an instrument with
// expected questions.
func inRange(n, expected int) bool {
	return n >= 1 && n <= expected
}

// truncate drops answers past the last question.
func truncate[T any](list []T, expected int) []T {
	if len(list) > expected {
		return list[:expected]
	}
	return list
}
