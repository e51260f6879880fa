// Package runner drives the full run: one isolated browser session per
// account, sequentially, then a single report over the notification kit.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"ldreader/pkg/account"
	"ldreader/pkg/browser"
	"ldreader/pkg/config"
	"ldreader/pkg/debug"
	"ldreader/pkg/logger"
	"ldreader/pkg/progress"
	"ldreader/pkg/reader"
	"ldreader/pkg/session"
)

// Result is the outcome for one account. Every account produces exactly one,
// whatever happened to it.
type Result struct {
	Account     account.Account
	Success     bool
	ReadCount   int
	LastTopicID int
	Err         error
	Duration    time.Duration
}

// Notifier delivers the end-of-run report.
type Notifier interface {
	Push(title, content string)
}

// Runner executes all accounts and reports once at the end.
type Runner struct {
	cfg      *config.Config
	accounts []account.Account
	notifier Notifier
	log      logger.Logger
	now      func() time.Time

	// runAccount is swapped out by tests to avoid a real browser.
	runAccount func(ctx context.Context, acct account.Account) (reader.Result, error)

	// launcher is created lazily on the first account so a misconfigured
	// notification-only invocation never pays the browser install cost.
	launcher *browser.Launcher
}

// New creates a Runner over the resolved configuration.
func New(cfg *config.Config, accounts []account.Account, notifier Notifier) *Runner {
	r := &Runner{
		cfg:      cfg,
		accounts: accounts,
		notifier: notifier,
		log:      logger.GetLogger(),
		now:      time.Now,
	}
	r.runAccount = r.runWithBrowser
	return r
}

// Run processes every account in order and pushes one report. It returns
// the per-account results for the caller's exit code decision.
func (r *Runner) Run(ctx context.Context) []Result {
	start := r.now()
	r.log.WithField("accounts", len(r.accounts)).Info("starting run")

	results := make([]Result, 0, len(r.accounts))
	for _, acct := range r.accounts {
		results = append(results, r.runOne(ctx, acct))
	}

	if r.launcher != nil {
		if err := r.launcher.Close(); err != nil {
			r.log.WithError(err).Warn("failed to stop browser runtime")
		}
	}

	r.notifier.Push(reportTitle, BuildReport(results, start, r.cfg.Reader.BaseURL))
	return results
}

// runOne isolates one account. A panic anywhere in the account's session is
// converted into a failed Result so the remaining accounts still run.
func (r *Runner) runOne(ctx context.Context, acct account.Account) (result Result) {
	result = Result{Account: acct}

	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("account", acct.Masked()).
				WithField("panic", fmt.Sprintf("%v", p)).
				Error("account run panicked")
			result = Result{Account: acct, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	log := r.log.WithField("account", acct.Masked())
	log.Info("processing account")

	start := r.now()
	res, err := r.runAccount(ctx, acct)
	result.Duration = r.now().Sub(start)
	result.ReadCount = res.ReadCount
	result.LastTopicID = res.LastTopicID

	if err != nil {
		log.WithError(err).Error("account run failed")
		result.Err = err
		return result
	}

	log.WithFields(map[string]interface{}{
		"read":          res.ReadCount,
		"last_topic_id": res.LastTopicID,
	}).Info("account done")
	result.Success = true
	return result
}

func (r *Runner) runWithBrowser(ctx context.Context, acct account.Account) (reader.Result, error) {
	if r.launcher == nil {
		launcher, err := browser.NewLauncher(r.cfg.Browser)
		if err != nil {
			return reader.Result{}, fmt.Errorf("failed to start browser runtime: %w", err)
		}
		r.launcher = launcher
	}

	if err := os.MkdirAll(r.cfg.Reader.StateDir, 0755); err != nil {
		return reader.Result{}, fmt.Errorf("failed to create state directory: %w", err)
	}
	statePath := r.cfg.StateFile(acct.Hash())

	sess, err := r.launcher.NewSession(statePath)
	if err != nil {
		return reader.Result{}, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer sess.Close()

	recorder := debug.NewRecorder(r.cfg.Debug)
	boot := session.NewBootstrapper(sess, acct, r.cfg.Reader.BaseURL, recorder)
	fresh, err := boot.EnsureLoggedIn(ctx)
	if err != nil {
		return reader.Result{}, err
	}
	if fresh {
		if err := sess.SaveStorageState(statePath); err != nil {
			r.log.WithError(err).Warn("failed to persist storage state")
		}
	}

	store, err := progress.NewStore(r.cfg.Reader.CacheDir, acct.Hash())
	if err != nil {
		return reader.Result{}, err
	}

	engine := reader.NewEngine(sess, store, reader.Options{
		BaseURL:        r.cfg.Reader.BaseURL,
		BaseTopicID:    r.cfg.Reader.BaseTopicID,
		Quota:          r.cfg.Reader.MaxPosts,
		MaxTopicVisits: r.cfg.Reader.MaxTopicVisits,
		MaxScrollSteps: r.cfg.Reader.MaxScrollSteps,
		AccountName:    acct.Masked(),
	})
	return engine.Run(ctx)
}
