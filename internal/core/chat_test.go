package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness-chatbot/internal/assessment"
	"wellness-chatbot/internal/llm"
	"wellness-chatbot/pkg"
	"wellness-chatbot/pkg/logging"
)

type stubClient struct {
	reply string
	err   error
	calls []llm.Request
}

func (c *stubClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.calls = append(c.calls, req)
	return c.reply, c.err
}

type recordingObserver struct {
	requests map[string]int
	degraded map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{requests: map[string]int{}, degraded: map[string]int{}}
}

func (o *recordingObserver) ObserveRequest(flow, status string) { o.requests[flow+"/"+status]++ }
func (o *recordingObserver) ObserveDegraded(reason string)      { o.degraded[reason]++ }

func newService(t *testing.T, openai, perplexity llm.Client, assembler *ContextAssembler, obs Observer) *ChatService {
	t.Helper()
	return NewChatService(Options{
		Catalog:    assessment.MustDefaultCatalog(),
		OpenAI:     openai,
		Perplexity: perplexity,
		Context:    assembler,
		Logger:     logging.Discard(),
		Observer:   obs,
	})
}

func userSays(text ...string) []pkg.ChatMessage {
	out := make([]pkg.ChatMessage, 0, len(text))
	for _, t := range text {
		out = append(out, pkg.ChatMessage{Sender: pkg.SenderUser, Content: t})
	}
	return out
}

func TestHandleRequiresMessages(t *testing.T) {
	svc := newService(t, &stubClient{reply: "hi"}, nil, nil, nil)

	_, err := svc.Handle(context.Background(), &pkg.ChatRequest{})
	assert.ErrorIs(t, err, ErrMessagesRequired)

	_, err = svc.Handle(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMessagesRequired)
}

func TestHandleGetQuestions(t *testing.T) {
	openai := &stubClient{reply: "unused"}
	obs := newRecordingObserver()
	svc := newService(t, openai, nil, nil, obs)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:       userSays("I'd like to take the personality profiler"),
		AssessmentType: pkg.AssessmentGetQuestions,
	})
	require.NoError(t, err)

	q, ok := resp.(pkg.AssessmentQuestions)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "personality_profiler", q.Data.TestName)
	assert.Equal(t, pkg.SenderAI, q.Data.Sender)
	for i := 1; i <= 48; i++ {
		assert.Contains(t, q.Data.Content, "\n"+itoa(i)+". ")
	}
	assert.NotContains(t, q.Data.Content, "\n49. ")
	assert.Empty(t, openai.calls)
	assert.Equal(t, 1, obs.requests[FlowQuestions+"/ok"])
}

func TestHandleGetQuestionsUnknownFallsThrough(t *testing.T) {
	openai := &stubClient{reply: "Which assessment would you like to take?"}
	obs := newRecordingObserver()
	svc := newService(t, openai, nil, nil, obs)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:       userSays("give me a quiz"),
		AssessmentType: pkg.AssessmentGetQuestions,
	})
	require.NoError(t, err)

	msg, ok := resp.(pkg.Message)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "Which assessment would you like to take?", msg.Data.Content)
	assert.Len(t, openai.calls, 1)
	assert.Equal(t, 1, obs.degraded[string(AssessmentNotRecognized)])
}

func TestHandleInterpretStructuredLikert(t *testing.T) {
	svc := newService(t, &stubClient{}, nil, nil, nil)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:       userSays("done"),
		AssessmentType: pkg.AssessmentInterpretResults,
		AssessmentAnswers: &pkg.AssessmentAnswers{
			TestName: "self_efficacy_scale",
			Answers:  json.RawMessage(`[4,4,4,4,4,4,4,4,4,4]`),
		},
	})
	require.NoError(t, err)

	r, ok := resp.(pkg.AssessmentResults)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "self_efficacy_scale", r.Data.TestName)
	assert.Contains(t, r.Data.Content, "Total Score: 40 out of 40")
	assert.Contains(t, r.Data.Content, "High Self-Efficacy")
}

func TestHandleInterpretParsesLastUserMessage(t *testing.T) {
	svc := newService(t, &stubClient{}, nil, nil, nil)

	var lines []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, itoa(i)+". 2")
	}
	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:          userSays(strings.Join(lines, "\n")),
		AssessmentType:    pkg.AssessmentInterpretResults,
		AssessmentAnswers: &pkg.AssessmentAnswers{TestName: "self_efficacy_scale"},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.(pkg.AssessmentResults).Data.Content, "Total Score: 20 out of 40")
}

func TestHandleInterpretUnreadableAnswersStillScores(t *testing.T) {
	obs := newRecordingObserver()
	svc := newService(t, &stubClient{}, nil, nil, obs)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:       userSays("done"),
		AssessmentType: pkg.AssessmentInterpretResults,
		AssessmentAnswers: &pkg.AssessmentAnswers{
			TestName: "self_efficacy_scale",
			Answers:  json.RawMessage(`"lots"`),
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.(pkg.AssessmentResults).Data.Content, "Total Score: 0 out of 40")
	assert.Equal(t, 1, obs.degraded[string(AssessmentAnswersUnread)])
}

func TestHandleInterpretUnknownTest(t *testing.T) {
	openai := &stubClient{}
	svc := newService(t, openai, nil, nil, nil)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:          userSays("done"),
		AssessmentType:    pkg.AssessmentInterpretResults,
		AssessmentAnswers: &pkg.AssessmentAnswers{TestName: "enneagram"},
	})
	require.NoError(t, err)

	r := resp.(pkg.AssessmentResults)
	assert.Empty(t, r.Data.Content)
	assert.Equal(t, "enneagram", r.Data.TestName)
	assert.Empty(t, openai.calls)
}

func TestHandleEndSessionInvalidJSONReturnsDefault(t *testing.T) {
	obs := newRecordingObserver()
	openai := &stubClient{reply: "Sorry, I cannot produce JSON today."}
	svc := newService(t, openai, nil, nil, obs)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:        userSays("I'm tired", "work is fine"),
		EndSession:      true,
		SessionDuration: 125,
	})
	require.NoError(t, err)

	r, ok := resp.(pkg.Report)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, DefaultReport(pkg.SessionText, 125), r.Data)
	assert.Equal(t, []string{"Analysis temporarily unavailable"}, r.Data.KeyInsights)
	assert.Equal(t, 1, obs.degraded[string(ReportParseFailed)])
	require.Len(t, openai.calls, 1)
	assert.InDelta(t, 0.3, openai.calls[0].Temperature, 1e-6)
	assert.Equal(t, 1500, openai.calls[0].MaxTokens)
}

func TestHandleEndSessionProviderFailure(t *testing.T) {
	obs := newRecordingObserver()
	svc := newService(t, &stubClient{err: errors.New("boom")}, nil, nil, obs)

	_, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:   userSays("bye"),
		EndSession: true,
	})
	assert.Error(t, err)
	assert.Equal(t, 1, obs.requests[FlowReport+"/error"])
}

func TestHandleDeepSearchFallsBackToOpenAI(t *testing.T) {
	obs := newRecordingObserver()
	openai := &stubClient{reply: "Try a short walk after lunch."}
	perplexity := &stubClient{err: errors.New("perplexity: status 429")}
	svc := newService(t, openai, perplexity, nil, obs)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:   userSays("any research on afternoon slumps?"),
		DeepSearch: true,
		AIProvider: pkg.ProviderPerplexity,
	})
	require.NoError(t, err)

	msg := resp.(pkg.Message)
	assert.True(t, strings.HasSuffix(msg.Data.Content, DeepSearchUnavailableNote))
	assert.True(t, strings.HasPrefix(msg.Data.Content, "Try a short walk after lunch."))
	assert.Len(t, perplexity.calls, 1)
	require.Len(t, openai.calls, 1)
	assert.Contains(t, openai.calls[0].Messages[0].Content, DeepSearchDisclaimer)
	assert.Equal(t, 1, obs.degraded[string(DeepSearchUnavailable)])
}

func TestHandleDeepSearchEmptyReplyFallsBack(t *testing.T) {
	openai := &stubClient{reply: "fallback"}
	perplexity := &stubClient{reply: "   "}
	svc := newService(t, openai, perplexity, nil, nil)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:   userSays("hello"),
		DeepSearch: true,
		AIProvider: pkg.ProviderPerplexity,
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback"+DeepSearchUnavailableNote, resp.(pkg.Message).Data.Content)
}

func TestHandleDeepSearchUsesPerplexity(t *testing.T) {
	openai := &stubClient{reply: "unused"}
	perplexity := &stubClient{reply: "According to the WHO..."}
	svc := newService(t, openai, perplexity, nil, nil)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages: []pkg.ChatMessage{
			{Sender: pkg.SenderAI, Content: "Hi! How are you today?"},
			{Sender: pkg.SenderUser, Content: "stressed"},
			{Sender: pkg.SenderUser, Content: "deadlines"},
		},
		DeepSearch: true,
		AIProvider: pkg.ProviderPerplexity,
	})
	require.NoError(t, err)
	assert.Equal(t, "According to the WHO...", resp.(pkg.Message).Data.Content)
	assert.Empty(t, openai.calls)

	require.Len(t, perplexity.calls, 1)
	msgs := perplexity.calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "stressed\ndeadlines"}, msgs[1])
}

func TestHandleDeepSearchWithoutPerplexityProviderUsesOpenAI(t *testing.T) {
	openai := &stubClient{reply: "ok"}
	perplexity := &stubClient{reply: "unused"}
	svc := newService(t, openai, perplexity, nil, nil)

	_, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:   userSays("hello"),
		DeepSearch: true,
	})
	require.NoError(t, err)
	assert.Len(t, openai.calls, 1)
	assert.Empty(t, perplexity.calls)
}

func TestHandleConversationTokenBudget(t *testing.T) {
	openai := &stubClient{reply: "ok"}
	svc := newService(t, openai, nil, nil, nil)

	_, err := svc.Handle(context.Background(), &pkg.ChatRequest{Messages: userSays("hi"), SessionType: pkg.SessionVoice})
	require.NoError(t, err)
	_, err = svc.Handle(context.Background(), &pkg.ChatRequest{Messages: userSays("hi")})
	require.NoError(t, err)

	require.Len(t, openai.calls, 2)
	assert.Equal(t, 150, openai.calls[0].MaxTokens)
	assert.Contains(t, openai.calls[0].Messages[0].Content, VoicePrompt)
	assert.Equal(t, 300, openai.calls[1].MaxTokens)
	assert.Contains(t, openai.calls[1].Messages[0].Content, TextPrompt)
	assert.InDelta(t, 0.7, openai.calls[1].Temperature, 1e-6)
}

func TestHandleEmptyReplyIsAnError(t *testing.T) {
	obs := newRecordingObserver()
	svc := newService(t, &stubClient{reply: ""}, nil, nil, obs)

	_, err := svc.Handle(context.Background(), &pkg.ChatRequest{Messages: userSays("hi")})
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, 1, obs.requests[FlowMessage+"/error"])
}

func TestHandleContextFailureDegradesQuietly(t *testing.T) {
	obs := newRecordingObserver()
	openai := &stubClient{reply: "I'm here for you."}
	source := &stubSource{recentErr: errors.New("db down"), history: []pkg.StoredReport{
		storedReport("u1", 4, 8, day0),
	}}
	assembler := NewContextAssembler(source, ContextOptions{Logger: logging.Discard()})
	svc := newService(t, openai, nil, assembler, obs)

	resp, err := svc.Handle(context.Background(), &pkg.ChatRequest{
		Messages:  userSays("rough week"),
		UserID:    "u1",
		CompanyID: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "I'm here for you.", resp.(pkg.Message).Data.Content)
	assert.Equal(t, 1, obs.degraded[string(CompanyContextUnavailable)])

	system := openai.calls[0].Messages[0].Content
	assert.NotContains(t, system, CompanyContextHeader)
	assert.Contains(t, system, PersonalContextHeader)
	assert.Contains(t, system, "- 1 previous check-ins")
}
