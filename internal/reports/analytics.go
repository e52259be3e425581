// Package reports turns stored wellness reports into aggregate analytics and
// the plain-text context blocks folded into the assistant's system prompt.
package reports

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"wellness-chatbot/pkg"
)

// Source reads stored reports.  The Postgres repository implements it.
type Source interface {
	GetRecentReports(ctx context.Context, companyID string, days int) ([]pkg.StoredReport, error)
	GetPersonalHistory(ctx context.Context, userID, companyID string, days int) ([]pkg.StoredReport, error)
}

// MinAnonymousGroup is the smallest number of distinct employees whose
// reports may be summarised for a company.  Smaller groups could identify
// individuals, so they produce no company context.
const MinAnonymousGroup = 3

// Scores of at least this much count as high stress / anxiety; moods at or
// below LowMoodThreshold count as low.
const (
	HighStressThreshold = 7
	LowMoodThreshold    = 4
)

// Averages holds the mean of each 1-10 field.
type Averages struct {
	Mood             float64 `json:"mood"`
	StressScore      float64 `json:"stress_score"`
	AnxiousLevel     float64 `json:"anxious_level"`
	WorkSatisfaction float64 `json:"work_satisfaction"`
	WorkLifeBalance  float64 `json:"work_life_balance"`
	EnergyLevel      float64 `json:"energy_level"`
	ConfidentLevel   float64 `json:"confident_level"`
	SleepQuality     float64 `json:"sleep_quality"`
}

// Analytics is an anonymized aggregate over a set of reports.
type Analytics struct {
	ReportCount        int       `json:"report_count"`
	EmployeeCount      int       `json:"employee_count"`
	Averages           Averages  `json:"averages"`
	HighStressCount    int       `json:"high_stress_count"`
	HighAnxietyCount   int       `json:"high_anxiety_count"`
	LowMoodCount       int       `json:"low_mood_count"`
	VoiceSessions      int       `json:"voice_sessions"`
	AvgSessionSeconds  float64   `json:"avg_session_seconds"`
	TopRecommendations []string  `json:"top_recommendations"`
	From               time.Time `json:"from,omitempty"`
	To                 time.Time `json:"to,omitempty"`
}

// Anonymous reports whether enough distinct employees contributed for the
// aggregate to be shared.
func (a Analytics) Anonymous() bool {
	return a.EmployeeCount >= MinAnonymousGroup
}

// GenerateAnalytics aggregates reports.  Averages are rounded to one decimal.
func GenerateAnalytics(reports []pkg.StoredReport) Analytics {
	a := Analytics{ReportCount: len(reports), TopRecommendations: []string{}}
	if len(reports) == 0 {
		return a
	}

	employees := map[string]struct{}{}
	recs := map[string]int{}
	var sum Averages
	var seconds float64
	for i, r := range reports {
		employees[r.UserID] = struct{}{}
		sum.Mood += float64(r.Mood)
		sum.StressScore += float64(r.StressScore)
		sum.AnxiousLevel += float64(r.AnxiousLevel)
		sum.WorkSatisfaction += float64(r.WorkSatisfaction)
		sum.WorkLifeBalance += float64(r.WorkLifeBalance)
		sum.EnergyLevel += float64(r.EnergyLevel)
		sum.ConfidentLevel += float64(r.ConfidentLevel)
		sum.SleepQuality += float64(r.SleepQuality)
		seconds += float64(r.SessionDuration)

		if r.StressScore >= HighStressThreshold {
			a.HighStressCount++
		}
		if r.AnxiousLevel >= HighStressThreshold {
			a.HighAnxietyCount++
		}
		if r.Mood <= LowMoodThreshold {
			a.LowMoodCount++
		}
		if r.SessionType == pkg.SessionVoice {
			a.VoiceSessions++
		}
		for _, rec := range r.Recommendations {
			if key := strings.TrimSpace(rec); key != "" {
				recs[key]++
			}
		}
		if i == 0 || r.CreatedAt.Before(a.From) {
			a.From = r.CreatedAt
		}
		if r.CreatedAt.After(a.To) {
			a.To = r.CreatedAt
		}
	}

	n := float64(len(reports))
	a.EmployeeCount = len(employees)
	a.Averages = Averages{
		Mood:             round1(sum.Mood / n),
		StressScore:      round1(sum.StressScore / n),
		AnxiousLevel:     round1(sum.AnxiousLevel / n),
		WorkSatisfaction: round1(sum.WorkSatisfaction / n),
		WorkLifeBalance:  round1(sum.WorkLifeBalance / n),
		EnergyLevel:      round1(sum.EnergyLevel / n),
		ConfidentLevel:   round1(sum.ConfidentLevel / n),
		SleepQuality:     round1(sum.SleepQuality / n),
	}
	a.AvgSessionSeconds = round1(seconds / n)
	a.TopRecommendations = topKeys(recs, 3)
	return a
}

// FormatReportsForAI renders the company block of the system prompt.  It
// contains aggregates only and is empty when the group is too small to stay
// anonymous.
func FormatReportsForAI(reports []pkg.StoredReport, a Analytics) string {
	if len(reports) == 0 || !a.Anonymous() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- %d check-ins from %d employees\n", a.ReportCount, a.EmployeeCount)
	fmt.Fprintf(&b, "- Average mood %.1f/10, stress %.1f/10, anxiety %.1f/10\n",
		a.Averages.Mood, a.Averages.StressScore, a.Averages.AnxiousLevel)
	fmt.Fprintf(&b, "- Average work satisfaction %.1f/10, work-life balance %.1f/10\n",
		a.Averages.WorkSatisfaction, a.Averages.WorkLifeBalance)
	fmt.Fprintf(&b, "- Average energy %.1f/10, confidence %.1f/10, sleep quality %.1f/10\n",
		a.Averages.EnergyLevel, a.Averages.ConfidentLevel, a.Averages.SleepQuality)
	fmt.Fprintf(&b, "- %s of check-ins reported high stress, %s reported low mood\n",
		percent(a.HighStressCount, a.ReportCount), percent(a.LowMoodCount, a.ReportCount))
	if len(a.TopRecommendations) > 0 {
		fmt.Fprintf(&b, "- Most common recommendations: %s\n", strings.Join(a.TopRecommendations, "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPersonalHistoryForAI renders the employee's own recent reports,
// newest first, at most five of them.
func FormatPersonalHistoryForAI(history []pkg.StoredReport) string {
	if len(history) == 0 {
		return ""
	}
	sorted := make([]pkg.StoredReport, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	var b strings.Builder
	fmt.Fprintf(&b, "- %d previous check-ins\n", len(sorted))
	for i, r := range sorted {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "- %s: mood %d, stress %d, anxiety %d, energy %d, sleep %d",
			r.CreatedAt.Format("2006-01-02"), r.Mood, r.StressScore, r.AnxiousLevel, r.EnergyLevel, r.SleepQuality)
		if len(r.KeyInsights) > 0 {
			fmt.Fprintf(&b, "; insights: %s", strings.Join(r.KeyInsights, "; "))
		}
		b.WriteString("\n")
	}
	if len(sorted) > 1 {
		newest, oldest := sorted[0], sorted[len(sorted)-1]
		fmt.Fprintf(&b, "- Mood trend: %s (%d -> %d), stress trend: %s (%d -> %d)\n",
			trend(oldest.Mood, newest.Mood), oldest.Mood, newest.Mood,
			trend(oldest.StressScore, newest.StressScore), oldest.StressScore, newest.StressScore)
	}
	return strings.TrimRight(b.String(), "\n")
}

func trend(from, to int) string {
	switch {
	case to > from:
		return "rising"
	case to < from:
		return "falling"
	default:
		return "steady"
	}
}

func percent(part, whole int) string {
	if whole == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(part)*100/float64(whole))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
