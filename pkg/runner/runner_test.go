package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldreader/pkg/account"
	"ldreader/pkg/config"
	"ldreader/pkg/reader"
)

type stubNotifier struct {
	titles   []string
	contents []string
}

func (n *stubNotifier) Push(title, content string) {
	n.titles = append(n.titles, title)
	n.contents = append(n.contents, content)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Reader.BaseTopicID = 1000000
	cfg.Reader.MaxPosts = 10
	return cfg
}

func TestRunOneResultPerAccount(t *testing.T) {
	accounts := []account.Account{
		{Username: "alice", Password: "a"},
		{Username: "bob", Password: "b"},
		{Username: "carol", Password: "c"},
	}
	notifier := &stubNotifier{}
	r := New(testConfig(), accounts, notifier)
	r.runAccount = func(ctx context.Context, acct account.Account) (reader.Result, error) {
		if acct.Username == "bob" {
			return reader.Result{}, errors.New("login failed")
		}
		return reader.Result{LastTopicID: 1000050, ReadCount: 12}, nil
	}

	results := r.Run(context.Background())

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.EqualError(t, results[1].Err, "login failed")
	assert.True(t, results[2].Success)
}

func TestRunFailureDoesNotStopLaterAccounts(t *testing.T) {
	var processed []string
	r := New(testConfig(), []account.Account{
		{Username: "alice", Password: "a"},
		{Username: "bob", Password: "b"},
	}, &stubNotifier{})
	r.runAccount = func(ctx context.Context, acct account.Account) (reader.Result, error) {
		processed = append(processed, acct.Username)
		return reader.Result{}, errors.New("boom")
	}

	results := r.Run(context.Background())

	assert.Equal(t, []string{"alice", "bob"}, processed)
	require.Len(t, results, 2)
}

func TestRunRecoversPanicIntoFailedResult(t *testing.T) {
	r := New(testConfig(), []account.Account{
		{Username: "alice", Password: "a"},
		{Username: "bob", Password: "b"},
	}, &stubNotifier{})
	r.runAccount = func(ctx context.Context, acct account.Account) (reader.Result, error) {
		if acct.Username == "alice" {
			panic("selector vanished")
		}
		return reader.Result{ReadCount: 5}, nil
	}

	results := r.Run(context.Background())

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Err.Error(), "selector vanished")
	assert.Equal(t, time.Duration(0), results[0].Duration, "panicked runs report zero duration")
	assert.True(t, results[1].Success, "panic in one account must not stop the next")
}

func TestRunPushesExactlyOneReport(t *testing.T) {
	notifier := &stubNotifier{}
	r := New(testConfig(), []account.Account{
		{Username: "alice", Password: "a"},
		{Username: "bob", Password: "b"},
	}, notifier)
	r.runAccount = func(ctx context.Context, acct account.Account) (reader.Result, error) {
		return reader.Result{LastTopicID: 1000100, ReadCount: 7}, nil
	}

	r.Run(context.Background())

	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "Linux.do Read Posts", notifier.titles[0])
	assert.Contains(t, notifier.contents[0], "Total posts read: 14")
}

func TestBuildReport(t *testing.T) {
	executedAt := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	results := []Result{
		{
			Account:     account.Account{Username: "alice"},
			Success:     true,
			ReadCount:   210,
			LastTopicID: 1050042,
			Duration:    95 * time.Second,
		},
		{
			Account:  account.Account{Username: "bob"},
			Err:      errors.New("login failed: still on login page"),
			Duration: 12 * time.Second,
		},
	}

	report := BuildReport(results, executedAt, "https://linux.do")

	assert.Contains(t, report, "🕒 Execution time: 2025-03-01 08:30:00")
	assert.Contains(t, report, "✅ a***e: Read 210 posts (00:01:35)")
	assert.Contains(t, report, "Last topic: https://linux.do/t/topic/1050042")
	assert.Contains(t, report, "❌ b**: login failed: still on login page (00:00:12)")
	assert.Contains(t, report, "📊 Total posts read: 210")

	assert.NotContains(t, report, "alice", "report must only carry masked names")
	assert.NotContains(t, report, "bob")
}

func TestBuildReportEmptyRun(t *testing.T) {
	report := BuildReport(nil, time.Now(), "https://linux.do")
	assert.Contains(t, report, "📊 Total posts read: 0")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Second, "00:01:01"},
		{3661 * time.Second, "01:01:01"},
		{25 * time.Hour, "25:00:00"},
		{-time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}

func TestReportAccountLineCount(t *testing.T) {
	notifier := &stubNotifier{}
	accounts := []account.Account{
		{Username: "alice", Password: "a"},
		{Username: "bob", Password: "b"},
		{Username: "carol", Password: "c"},
	}
	r := New(testConfig(), accounts, notifier)
	r.runAccount = func(ctx context.Context, acct account.Account) (reader.Result, error) {
		if acct.Username == "bob" {
			return reader.Result{}, errors.New("boom")
		}
		return reader.Result{ReadCount: 1}, nil
	}

	r.Run(context.Background())

	require.Len(t, notifier.contents, 1)
	report := notifier.contents[0]
	lines := strings.Count(report, "✅") + strings.Count(report, "❌")
	assert.Equal(t, len(accounts), lines, "every account gets exactly one report line")
}
