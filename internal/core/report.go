package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wellness-chatbot/internal/llm"
	"wellness-chatbot/pkg"
)

const (
	reportTemperature = 0.3
	reportMaxTokens   = 1500
)

// ReportSynthesizer turns the employee's side of a finished session into a
// structured wellness report with a single LLM call.
type ReportSynthesizer struct {
	LLM   llm.Client
	Model string
}

// NewReportSynthesizer constructs a synthesizer.  An empty model uses the
// client's default.
func NewReportSynthesizer(client llm.Client, model string) *ReportSynthesizer {
	return &ReportSynthesizer{LLM: client, Model: model}
}

// Synthesize asks the model for the report.  A failed call is returned as an
// error; an unparseable answer yields the default report, tagged degraded.
func (s *ReportSynthesizer) Synthesize(ctx context.Context, req *pkg.ChatRequest) (Result[pkg.WellnessReport], error) {
	sessionType := req.SessionType
	if sessionType != pkg.SessionVoice {
		sessionType = pkg.SessionText
	}

	raw, err := s.LLM.Complete(ctx, llm.Request{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: ReportSystemPrompt},
			{Role: llm.RoleUser, Content: BuildReportPrompt(req.Messages, sessionType, req.SessionDuration)},
		},
		Temperature: reportTemperature,
		MaxTokens:   reportMaxTokens,
	})
	if err != nil {
		return Result[pkg.WellnessReport]{}, fmt.Errorf("generate report: %w", err)
	}

	report, err := ParseReport(raw)
	if err != nil {
		return Degrade(DefaultReport(sessionType, req.SessionDuration), ReportParseFailed, err), nil
	}
	report.SessionType = sessionType
	report.SessionDuration = req.SessionDuration
	return Ok(report), nil
}

// BuildReportPrompt embeds the session metadata and every user-authored
// turn, joined by newlines.
func BuildReportPrompt(messages []pkg.ChatMessage, sessionType string, durationSeconds int) string {
	var turns []string
	for _, m := range messages {
		if m.Sender == pkg.SenderUser {
			turns = append(turns, m.Content)
		}
	}
	return fmt.Sprintf("%s\n\nSession type: %s\nSession duration: %d minutes %d seconds (%d seconds)\n\nEmployee messages:\n%s",
		ReportInstruction, sessionType, durationSeconds/60, durationSeconds%60, durationSeconds, strings.Join(turns, "\n"))
}

// ParseReport decodes the model output.  A surrounding markdown code fence is
// tolerated.  Scores outside 1-10 are clamped and a missing score becomes 5.
func ParseReport(raw string) (pkg.WellnessReport, error) {
	var report pkg.WellnessReport
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &report); err != nil {
		return pkg.WellnessReport{}, fmt.Errorf("parse report json: %w", err)
	}
	for _, score := range report.Scores() {
		switch {
		case *score == 0:
			*score = 5
		case *score < 1:
			*score = 1
		case *score > 10:
			*score = 10
		}
	}
	if report.KeyInsights == nil {
		report.KeyInsights = []string{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []string{}
	}
	return report, nil
}

// DefaultReport is returned when the analysis could not be read.  Every
// score is the neutral 5.
func DefaultReport(sessionType string, durationSeconds int) pkg.WellnessReport {
	return pkg.WellnessReport{
		Mood:             5,
		StressScore:      5,
		AnxiousLevel:     5,
		WorkSatisfaction: 5,
		WorkLifeBalance:  5,
		EnergyLevel:      5,
		ConfidentLevel:   5,
		SleepQuality:     5,
		CompleteReport:   DefaultCompleteReport,
		SessionType:      sessionType,
		SessionDuration:  durationSeconds,
		KeyInsights:      append([]string(nil), DefaultKeyInsights...),
		Recommendations:  append([]string(nil), DefaultRecommendations...),
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
