package pkg

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Sender describes who authored a chat message.  The chat UI only knows two
// authors: the employee and the assistant.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one turn of a check-in conversation, in chronological order.
type ChatMessage struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

// Session types reported by the client.
const (
	SessionText  = "text"
	SessionVoice = "voice"
)

// Assessment request kinds carried in ChatRequest.AssessmentType.
const (
	AssessmentGetQuestions     = "get_questions"
	AssessmentInterpretResults = "interpret_results"
)

// ProviderPerplexity selects the deep-search provider when DeepSearch is set.
const ProviderPerplexity = "perplexity"

// AssessmentAnswers carries answers for a named test.  Answers is left raw
// because its shape depends on the test: an object of "1": "yes" pairs for
// yes/no instruments, a list of 1-4 ratings for Likert ones.  When Answers is
// absent the answers are parsed from the last user message.
type AssessmentAnswers struct {
	TestName string          `json:"testName"`
	Answers  json.RawMessage `json:"answers,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages          []ChatMessage      `json:"messages"`
	EndSession        bool               `json:"endSession,omitempty"`
	SessionType       string             `json:"sessionType,omitempty"`
	SessionDuration   int                `json:"sessionDuration,omitempty"`
	UserID            string             `json:"userId,omitempty"`
	CompanyID         string             `json:"companyId,omitempty"`
	DeepSearch        bool               `json:"deepSearch,omitempty"`
	AIProvider        string             `json:"aiProvider,omitempty"`
	AssessmentType    string             `json:"assessmentType,omitempty"`
	AssessmentAnswers *AssessmentAnswers `json:"assessmentAnswers,omitempty"`
}

// UnmarshalJSON reads the flag and duration fields the way browser clients
// send them: endSession and deepSearch are truthy tests, and a fractional or
// quoted sessionDuration is rounded to whole seconds.
func (r *ChatRequest) UnmarshalJSON(b []byte) error {
	type plain ChatRequest
	aux := struct {
		*plain
		EndSession      json.RawMessage `json:"endSession"`
		SessionDuration json.RawMessage `json:"sessionDuration"`
		DeepSearch      json.RawMessage `json:"deepSearch"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.EndSession = truthy(aux.EndSession)
	r.DeepSearch = truthy(aux.DeepSearch)
	r.SessionDuration = seconds(aux.SessionDuration)
	return nil
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return false
		}
		if v, err := strconv.ParseBool(s); err == nil {
			return v
		}
		return true
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && f != 0 && !math.IsNaN(f)
}

// seconds returns a non-negative whole number of seconds, or 0 when raw is
// not a number.
func seconds(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		raw = json.RawMessage(s)
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || f <= 0 || f > math.MaxInt32 {
		return 0
	}
	return int(math.Round(f))
}

// LastMessage returns the final message of the conversation, if any.
func (r *ChatRequest) LastMessage() (ChatMessage, bool) {
	if len(r.Messages) == 0 {
		return ChatMessage{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// LastUserMessage returns the most recent message authored by the employee.
func (r *ChatRequest) LastUserMessage() (ChatMessage, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Sender == SenderUser {
			return r.Messages[i], true
		}
	}
	return ChatMessage{}, false
}

// IsVoice reports whether the session is a voice session.
func (r *ChatRequest) IsVoice() bool {
	return r.SessionType == SessionVoice
}

// WellnessReport is produced once per ended session.  Every score is an
// integer between 1 and 10.
type WellnessReport struct {
	Mood             int      `json:"mood"`
	StressScore      int      `json:"stress_score"`
	AnxiousLevel     int      `json:"anxious_level"`
	WorkSatisfaction int      `json:"work_satisfaction"`
	WorkLifeBalance  int      `json:"work_life_balance"`
	EnergyLevel      int      `json:"energy_level"`
	ConfidentLevel   int      `json:"confident_level"`
	SleepQuality     int      `json:"sleep_quality"`
	CompleteReport   string   `json:"complete_report"`
	SessionType      string   `json:"session_type"`
	SessionDuration  int      `json:"session_duration"`
	KeyInsights      []string `json:"key_insights"`
	Recommendations  []string `json:"recommendations"`
}

// Scores returns pointers to the eight 1-10 fields keyed by their JSON name.
func (r *WellnessReport) Scores() map[string]*int {
	return map[string]*int{
		"mood":              &r.Mood,
		"stress_score":      &r.StressScore,
		"anxious_level":     &r.AnxiousLevel,
		"work_satisfaction": &r.WorkSatisfaction,
		"work_life_balance": &r.WorkLifeBalance,
		"energy_level":      &r.EnergyLevel,
		"confident_level":   &r.ConfidentLevel,
		"sleep_quality":     &r.SleepQuality,
	}
}

// StoredReport is a wellness report persisted for a user within a company.
type StoredReport struct {
	WellnessReport
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveReportRequest is the body of POST /api/reports.
type SaveReportRequest struct {
	UserID    string         `json:"userId"`
	CompanyID string         `json:"companyId"`
	Report    WellnessReport `json:"report"`
}

// Response is the result of one chat request.  It is a closed set: the
// concrete types below are the only implementations.
type Response interface {
	ResponseType() string
	isResponse()
}

// Response type discriminators.
const (
	TypeAssessmentQuestions = "assessment_questions"
	TypeAssessmentResults   = "assessment_results"
	TypeMessage             = "message"
	TypeReport              = "report"
)

// AssessmentData is the payload of both assessment responses.
type AssessmentData struct {
	Content  string `json:"content"`
	Sender   Sender `json:"sender"`
	TestName string `json:"testName"`
}

// MessageData is the payload of a conversational reply.
type MessageData struct {
	Content string `json:"content"`
	Sender  Sender `json:"sender"`
}

// AssessmentQuestions lists the items of a test.
type AssessmentQuestions struct{ Data AssessmentData }

// AssessmentResults holds the interpretation of a scored test.
type AssessmentResults struct{ Data AssessmentData }

// Message is an ordinary assistant reply.
type Message struct{ Data MessageData }

// Report wraps the wellness report of an ended session.
type Report struct{ Data WellnessReport }

func (AssessmentQuestions) ResponseType() string { return TypeAssessmentQuestions }
func (AssessmentResults) ResponseType() string   { return TypeAssessmentResults }
func (Message) ResponseType() string             { return TypeMessage }
func (Report) ResponseType() string              { return TypeReport }

func (AssessmentQuestions) isResponse() {}
func (AssessmentResults) isResponse()   {}
func (Message) isResponse()             {}
func (Report) isResponse()              {}

// Envelope is the wire form of a Response: {"type": ..., "data": ...}.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewEnvelope converts a Response to its wire form.
func NewEnvelope(r Response) Envelope {
	switch v := r.(type) {
	case AssessmentQuestions:
		return Envelope{Type: v.ResponseType(), Data: v.Data}
	case AssessmentResults:
		return Envelope{Type: v.ResponseType(), Data: v.Data}
	case Message:
		return Envelope{Type: v.ResponseType(), Data: v.Data}
	case Report:
		return Envelope{Type: v.ResponseType(), Data: v.Data}
	default:
		return Envelope{Type: r.ResponseType()}
	}
}

// ErrorResponse is written for 4xx/5xx replies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
