package answer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radpushman/ct-knowledge/internal/search"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

type stubSearcher []search.Result

func (s stubSearcher) Search(context.Context, string, int, search.Filter) []search.Result {
	return s
}

type stubAnswerer struct {
	text    string
	err     error
	prompts []string
}

func (s *stubAnswerer) Answer(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

func results() stubSearcher {
	return stubSearcher{
		{Document: storage.Document{ID: "a", Title: "조영제 부작용 대응", Content: "즉시 투여 중단"}, Score: 58},
		{Document: storage.Document{ID: "b", Title: "CT 스캔 기본 프로토콜", Content: "환자 확인"}, Score: 11},
	}
}

func fixedUsage(t *testing.T, limit int, period Period, now time.Time) *Usage {
	t.Helper()
	u := NewUsage(filepath.Join(t.TempDir(), "api_usage.json"), limit, period)
	u.now = func() time.Time { return now }
	return u
}

func TestPrompt(t *testing.T) {
	p := Prompt(BuildContext(results()), "  조영제 부작용은?  ")

	assert.Contains(t, p, "CT실 전문 지식 어시스턴트")
	assert.Contains(t, p, "참고자료:\n즉시 투여 중단\n\n환자 확인\n")
	assert.Contains(t, p, "질문: 조영제 부작용은?\n")
	assert.Contains(t, p, `"참고자료에 없음"`)
}

func TestBuildContextEmpty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil))
}

func TestTruncateContext(t *testing.T) {
	long := strings.Repeat("가", 50)
	assert.Equal(t, strings.Repeat("가", 40), truncateContext(long, 10, slog.Default()))
	assert.Equal(t, long, truncateContext(long, 100, slog.Default()))
}

func TestUsageDailyReset(t *testing.T) {
	day := time.Date(2024, 6, 1, 23, 0, 0, 0, time.Local)
	u := fixedUsage(t, 2, PeriodDaily, day)

	n, err := u.Increment()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = u.Increment()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	allowed, err := u.Allow()
	require.NoError(t, err)
	assert.False(t, allowed)

	u.now = func() time.Time { return day.Add(2 * time.Hour) }
	state, err := u.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, state.Count)
	assert.Equal(t, "2024-06-02", state.Date)
	assert.Equal(t, 2, state.Remaining())
}

func TestUsageMonthly(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)
	u := fixedUsage(t, 0, PeriodMonthly, now)
	_, err := u.Increment()
	require.NoError(t, err)

	u.now = func() time.Time { return now.AddDate(0, 0, 20) }
	state, err := u.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Count)
	assert.Equal(t, "2024-06", state.Date)
	assert.Equal(t, DefaultLimit, state.Limit)

	u.now = func() time.Time { return now.AddDate(0, 1, 0) }
	state, err = u.Current()
	require.NoError(t, err)
	assert.Zero(t, state.Count)
}

func TestUsagePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "api_usage.json")
	first := NewUsage(path, 10, PeriodDaily)
	_, err := first.Increment()
	require.NoError(t, err)

	state, err := NewUsage(path, 10, PeriodDaily).Current()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Count)
}

func TestUsageWritesLeaveOnlyCounterFile(t *testing.T) {
	dir := t.TempDir()
	u := NewUsage(filepath.Join(dir, "api_usage.json"), 10, PeriodDaily)
	for i := 0; i < 3; i++ {
		_, err := u.Increment()
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "api_usage.json", entries[0].Name())

	state, err := NewUsage(filepath.Join(dir, "api_usage.json"), 10, PeriodDaily).Current()
	require.NoError(t, err)
	assert.Equal(t, 3, state.Count)
}

func TestUsageCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_usage.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	state, err := NewUsage(path, 10, PeriodDaily).Current()
	require.NoError(t, err)
	assert.Zero(t, state.Count)
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodMonthly, ParsePeriod("monthly"))
	assert.Equal(t, PeriodDaily, ParsePeriod("daily"))
	assert.Equal(t, PeriodDaily, ParsePeriod(""))
}

func TestAskAnswers(t *testing.T) {
	answerer := &stubAnswerer{text: "1. 투여를 중단합니다."}
	usage := fixedUsage(t, 5, PeriodDaily, time.Now())
	svc := NewService(results(), answerer, usage, nil)

	resp, err := svc.Ask(context.Background(), "조영제 부작용은?", 5)
	require.NoError(t, err)
	assert.Equal(t, "1. 투여를 중단합니다.", resp.Answer)
	assert.Empty(t, resp.Degraded)
	assert.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 1, resp.Usage.Count)
	require.Len(t, answerer.prompts, 1)
	assert.Contains(t, answerer.prompts[0], "즉시 투여 중단")
}

func TestAskEmptyQuestion(t *testing.T) {
	_, err := NewService(results(), nil, nil, nil).Ask(context.Background(), "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskWithoutAnswerer(t *testing.T) {
	resp, err := NewService(results(), nil, nil, nil).Ask(context.Background(), "조영제", 5)
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
	assert.Equal(t, ReasonDisabled, resp.Degraded)
	assert.Len(t, resp.Results, 2)
}

func TestAskDegradesOnFailure(t *testing.T) {
	usage := fixedUsage(t, 5, PeriodDaily, time.Now())
	svc := NewService(results(), &stubAnswerer{err: errors.New("503 overloaded")}, usage, nil)

	resp, err := svc.Ask(context.Background(), "조영제", 5)
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
	assert.Contains(t, resp.Degraded, "503 overloaded")
	assert.Len(t, resp.Results, 2)

	state, err := usage.Current()
	require.NoError(t, err)
	assert.Zero(t, state.Count)
}

func TestAskStopsAtLimit(t *testing.T) {
	answerer := &stubAnswerer{text: "ok"}
	usage := fixedUsage(t, 1, PeriodDaily, time.Now())
	svc := NewService(results(), answerer, usage, nil)

	_, err := svc.Ask(context.Background(), "조영제", 5)
	require.NoError(t, err)
	resp, err := svc.Ask(context.Background(), "조영제", 5)
	require.NoError(t, err)

	assert.Equal(t, ErrUsageLimit.Error(), resp.Degraded)
	assert.Len(t, answerer.prompts, 1)
}
