package core

import (
	"context"
	"fmt"
	"time"

	"wellness-chatbot/internal/cache"
	"wellness-chatbot/internal/reports"
	"wellness-chatbot/pkg/logging"
)

// ContextCache stores formatted context blocks between requests.
type ContextCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ContextAssembler builds the company-wide and personal context blocks
// folded into the system prompt.  Each block is fetched independently and a
// failure in either only empties that block.
type ContextAssembler struct {
	source       reports.Source
	cache        ContextCache
	cacheTTL     time.Duration
	companyDays  int
	personalDays int
	logger       *logging.Logger
}

// ContextOptions configures a ContextAssembler.  Zero day counts mean 7
// days of company reports and 30 days of personal history.
type ContextOptions struct {
	Cache        ContextCache
	CacheTTL     time.Duration
	CompanyDays  int
	PersonalDays int
	Logger       *logging.Logger
}

// NewContextAssembler constructs an assembler reading from source.
func NewContextAssembler(source reports.Source, opts ContextOptions) *ContextAssembler {
	a := &ContextAssembler{
		source:       source,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		companyDays:  opts.CompanyDays,
		personalDays: opts.PersonalDays,
		logger:       opts.Logger,
	}
	if a.companyDays <= 0 {
		a.companyDays = 7
	}
	if a.personalDays <= 0 {
		a.personalDays = 30
	}
	if a.logger == nil {
		a.logger = logging.Default()
	}
	return a
}

// ContextBlocks are the two optional sections of the system prompt.
type ContextBlocks struct {
	Company  Result[string]
	Personal Result[string]
}

// Assemble fetches both blocks, company first.  It never fails; degraded
// blocks carry an empty value and the reason.
func (a *ContextAssembler) Assemble(ctx context.Context, userID, companyID string) ContextBlocks {
	var blocks ContextBlocks
	if companyID == "" {
		return blocks
	}
	blocks.Company = a.company(ctx, companyID)
	if userID != "" {
		blocks.Personal = a.personal(ctx, userID, companyID)
	}
	return blocks
}

func (a *ContextAssembler) company(ctx context.Context, companyID string) (res Result[string]) {
	defer recoverInto(&res, CompanyContextUnavailable)

	key := cache.CompanyContextKey(companyID, a.companyDays)
	if a.cache != nil {
		if cached, ok, err := a.cache.Get(ctx, key); err != nil {
			a.logger.DebugContext(ctx, "context cache read failed", "error", err)
		} else if ok {
			return Ok(cached)
		}
	}

	recent, err := a.source.GetRecentReports(ctx, companyID, a.companyDays)
	if err != nil {
		return Degrade("", CompanyContextUnavailable, err)
	}
	block := reports.FormatReportsForAI(recent, reports.GenerateAnalytics(recent))

	if a.cache != nil && a.cacheTTL > 0 {
		if err := a.cache.Set(ctx, key, block, a.cacheTTL); err != nil {
			a.logger.DebugContext(ctx, "context cache write failed", "error", err)
		}
	}
	return Ok(block)
}

func (a *ContextAssembler) personal(ctx context.Context, userID, companyID string) (res Result[string]) {
	defer recoverInto(&res, PersonalContextUnavailable)

	history, err := a.source.GetPersonalHistory(ctx, userID, companyID, a.personalDays)
	if err != nil {
		return Degrade("", PersonalContextUnavailable, err)
	}
	return Ok(reports.FormatPersonalHistoryForAI(history))
}

// recoverInto turns a panic in a context fetch into a degraded empty block.
func recoverInto(res *Result[string], reason DegradedReason) {
	if r := recover(); r != nil {
		*res = Degrade("", reason, fmt.Errorf("panic: %v", r))
	}
}
