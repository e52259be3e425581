package core

import (
	"context"
	"errors"

	"wellness-chatbot/internal/assessment"
	"wellness-chatbot/internal/llm"
	"wellness-chatbot/pkg"
	"wellness-chatbot/pkg/logging"
)

// ErrMessagesRequired is returned when a request carries no messages.
var ErrMessagesRequired = errors.New("messages array is required")

// Flow labels used in logs and request metrics.
const (
	FlowQuestions = "assessment_questions"
	FlowResults   = "assessment_results"
	FlowReport    = "report"
	FlowMessage   = "message"
)

// Options wires a ChatService.  Catalog and OpenAI are required; the rest
// may be nil.
type Options struct {
	Catalog     *assessment.Catalog
	OpenAI      llm.Client
	Perplexity  llm.Client
	Context     *ContextAssembler
	ReportModel string
	Logger      *logging.Logger
	Observer    Observer
}

// ChatService routes a check-in request to exactly one flow: assessment
// questions, assessment results, the end-of-session report or an ordinary
// conversational turn.  It keeps no state between requests.
type ChatService struct {
	catalog      *assessment.Catalog
	scorer       *assessment.Scorer
	conversation *Conversation
	reports      *ReportSynthesizer
	context      *ContextAssembler
	logger       *logging.Logger
	observer     Observer
	deg          degradations
}

// NewChatService constructs a ChatService from opts.
func NewChatService(opts Options) *ChatService {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &ChatService{
		catalog:      opts.Catalog,
		scorer:       assessment.NewScorer(opts.Catalog),
		conversation: &Conversation{OpenAI: opts.OpenAI, Perplexity: opts.Perplexity},
		reports:      NewReportSynthesizer(opts.OpenAI, opts.ReportModel),
		context:      opts.Context,
		logger:       opts.Logger,
		observer:     opts.Observer,
		deg:          degradations{logger: opts.Logger, observer: opts.Observer},
	}
}

// Handle answers one chat request.
func (s *ChatService) Handle(ctx context.Context, req *pkg.ChatRequest) (pkg.Response, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, ErrMessagesRequired
	}

	if req.AssessmentType == pkg.AssessmentGetQuestions {
		last, _ := req.LastMessage()
		if name := s.catalog.ExtractTestName(last.Content); name != "" {
			def, _ := s.catalog.Get(name)
			s.observer.ObserveRequest(FlowQuestions, "ok")
			return pkg.AssessmentQuestions{Data: pkg.AssessmentData{
				Content:  def.FormatQuestions(),
				Sender:   pkg.SenderAI,
				TestName: name,
			}}, nil
		}
		s.deg.record(ctx, AssessmentNotRecognized, nil)
	}

	if req.AssessmentType == pkg.AssessmentInterpretResults && req.AssessmentAnswers != nil {
		resp := s.interpret(ctx, req)
		s.observer.ObserveRequest(FlowResults, "ok")
		return resp, nil
	}

	if req.EndSession {
		resp, err := s.report(ctx, req)
		s.observeResult(FlowReport, err)
		return resp, err
	}

	resp, err := s.converse(ctx, req)
	s.observeResult(FlowMessage, err)
	return resp, err
}

func (s *ChatService) observeResult(flow string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.observer.ObserveRequest(flow, status)
}

func (s *ChatService) interpret(ctx context.Context, req *pkg.ChatRequest) pkg.Response {
	name := req.AssessmentAnswers.TestName
	resp := pkg.AssessmentResults{Data: pkg.AssessmentData{Sender: pkg.SenderAI, TestName: name}}

	def, ok := s.catalog.Get(name)
	if !ok {
		s.logger.InfoContext(ctx, "unknown assessment", "test", name)
		return resp
	}

	answers := note(ctx, s.deg, s.readAnswers(ctx, req, def), "test", name)
	resp.Data.Content = s.scorer.Interpret(name, answers)
	return resp
}

// readAnswers prefers the structured answers and falls back to parsing the
// last user message.  Unreadable answers score as empty.
func (s *ChatService) readAnswers(ctx context.Context, req *pkg.ChatRequest, def *assessment.Definition) Result[assessment.Answers] {
	var (
		parsed *assessment.ParseResult
		err    error
	)
	if raw := req.AssessmentAnswers.Answers; len(raw) > 0 && string(raw) != "null" {
		parsed, err = assessment.DecodeAnswers(def, raw)
		if err != nil {
			return Degrade(assessment.Answers{}, AssessmentAnswersUnread, err)
		}
	} else {
		last, _ := req.LastUserMessage()
		parsed = assessment.ParseAnswers(def, last.Content)
		if parsed == nil {
			return Degrade(assessment.Answers{}, AssessmentAnswersUnread, errors.New("no answers found in message"))
		}
	}
	if parsed.Ambiguous() {
		s.logger.InfoContext(ctx, "assessment answers incomplete",
			"test", def.ID, "strategy", string(parsed.Strategy), "found", parsed.Found, "expected", parsed.Expected)
	}
	return Ok(parsed.Answers)
}

func (s *ChatService) report(ctx context.Context, req *pkg.ChatRequest) (pkg.Response, error) {
	res, err := s.reports.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	return pkg.Report{Data: note(ctx, s.deg, res)}, nil
}

func (s *ChatService) converse(ctx context.Context, req *pkg.ChatRequest) (pkg.Response, error) {
	var company, personal string
	if s.context != nil {
		blocks := s.context.Assemble(ctx, req.UserID, req.CompanyID)
		company = note(ctx, s.deg, blocks.Company, "company_id", req.CompanyID)
		personal = note(ctx, s.deg, blocks.Personal, "company_id", req.CompanyID)
	}

	res, err := s.conversation.Reply(ctx, req, BuildSystemPrompt(req.IsVoice(), company, personal))
	if err != nil {
		return nil, err
	}
	return pkg.Message{Data: pkg.MessageData{
		Content: note(ctx, s.deg, res, "provider", req.AIProvider),
		Sender:  pkg.SenderAI,
	}}, nil
}
