package core

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness-chatbot/pkg"
	"wellness-chatbot/pkg/logging"
)

var day0 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func itoa(i int) string { return strconv.Itoa(i) }

func storedReport(user string, mood, stress int, at time.Time) pkg.StoredReport {
	return pkg.StoredReport{
		UserID:    user,
		CompanyID: "acme",
		CreatedAt: at,
		WellnessReport: pkg.WellnessReport{
			Mood: mood, StressScore: stress, AnxiousLevel: 5, WorkSatisfaction: 5,
			WorkLifeBalance: 5, EnergyLevel: 5, ConfidentLevel: 5, SleepQuality: 5,
			SessionType: pkg.SessionText,
		},
	}
}

type stubSource struct {
	recent     []pkg.StoredReport
	recentErr  error
	history    []pkg.StoredReport
	historyErr error
	panicky    bool

	recentCalls  int
	historyCalls int
	lastDays     []int
}

func (s *stubSource) GetRecentReports(_ context.Context, _ string, days int) ([]pkg.StoredReport, error) {
	s.recentCalls++
	s.lastDays = append(s.lastDays, days)
	if s.panicky {
		panic("nil map")
	}
	return s.recent, s.recentErr
}

func (s *stubSource) GetPersonalHistory(_ context.Context, _, _ string, days int) ([]pkg.StoredReport, error) {
	s.historyCalls++
	s.lastDays = append(s.lastDays, days)
	return s.history, s.historyErr
}

type mapCache struct {
	values map[string]string
	getErr error
	sets   int
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.values[key] = value
	c.sets++
	return nil
}

func companyReports() []pkg.StoredReport {
	return []pkg.StoredReport{
		storedReport("a", 7, 3, day0),
		storedReport("b", 5, 8, day0),
		storedReport("c", 6, 4, day0),
	}
}

func TestAssembleBothBlocks(t *testing.T) {
	source := &stubSource{recent: companyReports(), history: []pkg.StoredReport{storedReport("a", 7, 3, day0)}}
	a := NewContextAssembler(source, ContextOptions{Logger: logging.Discard()})

	blocks := a.Assemble(context.Background(), "a", "acme")

	require.True(t, blocks.Company.OK())
	require.True(t, blocks.Personal.OK())
	assert.Contains(t, blocks.Company.Value, "3 check-ins from 3 employees")
	assert.Contains(t, blocks.Personal.Value, "1 previous check-ins")
	assert.Equal(t, []int{7, 30}, source.lastDays)
}

func TestAssembleWithoutIdentifiers(t *testing.T) {
	source := &stubSource{recent: companyReports()}
	a := NewContextAssembler(source, ContextOptions{Logger: logging.Discard()})

	blocks := a.Assemble(context.Background(), "a", "")
	assert.Empty(t, blocks.Company.Value)
	assert.Zero(t, source.recentCalls)

	blocks = a.Assemble(context.Background(), "", "acme")
	assert.NotEmpty(t, blocks.Company.Value)
	assert.Zero(t, source.historyCalls)
}

func TestAssembleFailuresAreIndependent(t *testing.T) {
	source := &stubSource{recent: companyReports(), historyErr: errors.New("timeout")}
	a := NewContextAssembler(source, ContextOptions{Logger: logging.Discard()})

	blocks := a.Assemble(context.Background(), "a", "acme")
	assert.True(t, blocks.Company.OK())
	assert.NotEmpty(t, blocks.Company.Value)
	assert.Equal(t, PersonalContextUnavailable, blocks.Personal.Degraded)
	assert.Empty(t, blocks.Personal.Value)
}

func TestAssembleRecoversFromPanic(t *testing.T) {
	a := NewContextAssembler(&stubSource{panicky: true}, ContextOptions{Logger: logging.Discard()})

	blocks := a.Assemble(context.Background(), "", "acme")
	assert.Equal(t, CompanyContextUnavailable, blocks.Company.Degraded)
	assert.Empty(t, blocks.Company.Value)
	assert.Error(t, blocks.Company.Err)
}

func TestAssembleUsesCache(t *testing.T) {
	source := &stubSource{recent: companyReports()}
	cache := &mapCache{values: map[string]string{}}
	a := NewContextAssembler(source, ContextOptions{Cache: cache, CacheTTL: time.Minute, Logger: logging.Discard()})

	first := a.Assemble(context.Background(), "", "acme")
	second := a.Assemble(context.Background(), "", "acme")

	assert.Equal(t, first.Company.Value, second.Company.Value)
	assert.Equal(t, 1, source.recentCalls)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.values, "wellness:context:company:acme:7")
}

func TestAssembleIgnoresCacheErrors(t *testing.T) {
	source := &stubSource{recent: companyReports()}
	cache := &mapCache{values: map[string]string{}, getErr: errors.New("connection refused")}
	a := NewContextAssembler(source, ContextOptions{Cache: cache, CacheTTL: time.Minute, Logger: logging.Discard()})

	blocks := a.Assemble(context.Background(), "", "acme")
	assert.True(t, blocks.Company.OK())
	assert.NotEmpty(t, blocks.Company.Value)
	assert.Equal(t, 1, source.recentCalls)
}
