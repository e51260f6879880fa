package reader

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"ldreader/pkg/browser"
	"ldreader/pkg/logger"
	"ldreader/pkg/progress"
)

const (
	// invalidJumpThreshold is how many consecutive dead topics trigger a
	// long jump out of what is probably a deleted ID range.
	invalidJumpThreshold = 5

	stepMin = 1
	stepMax = 5
	jumpMin = 50
	jumpMax = 100

	navigationSettle = 3 * time.Second

	topicPauseMinMs  = 1000
	topicPauseMaxMs  = 2000
	scrollPauseMinMs = 1000
	scrollPauseMaxMs = 3000

	defaultMaxTopicVisits = 2000
	defaultMaxScrollSteps = 500
)

// Options configures one traversal run.
type Options struct {
	BaseURL     string
	BaseTopicID int
	// Quota is the number of read credits to accumulate before stopping.
	Quota int
	// MaxTopicVisits bounds topic navigations per run; 0 means the default.
	MaxTopicVisits int
	// MaxScrollSteps bounds scroll iterations per topic; 0 means the default.
	MaxScrollSteps int
	// AccountName is the masked account name used in log output.
	AccountName string
}

// Result reports where a run ended up.
type Result struct {
	LastTopicID int
	ReadCount   int
}

// Engine walks topic IDs forward, reading each reachable topic to the end
// of its reply timeline, until the quota is met.
type Engine struct {
	page  browser.Page
	store *progress.Store
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewEngine creates an Engine over an authenticated page.
func NewEngine(page browser.Page, store *progress.Store, opts Options) *Engine {
	if opts.MaxTopicVisits <= 0 {
		opts.MaxTopicVisits = defaultMaxTopicVisits
	}
	if opts.MaxScrollSteps <= 0 {
		opts.MaxScrollSteps = defaultMaxScrollSteps
	}
	return &Engine{
		page:  page,
		store: store,
		opts:  opts,
		log:   logger.GetLogger().WithField("account", opts.AccountName),
		sleep: time.Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run traverses topics until the quota, the visit cap, or ctx cancellation
// stops it. The final topic ID is persisted in every case so the next run
// resumes where this one stopped.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	current := e.opts.BaseTopicID
	if cached := e.store.Load(); cached > current {
		e.log.WithField("topic_id", cached).Info("resuming from cached topic")
		current = cached
	}

	read := 0
	invalid := 0
	visits := 0

	for read < e.opts.Quota {
		if ctx.Err() != nil {
			break
		}
		if visits >= e.opts.MaxTopicVisits {
			e.log.WithField("visits", visits).Warn("topic visit cap reached, ending run")
			break
		}
		visits++

		if invalid >= invalidJumpThreshold {
			jump := e.randBetween(jumpMin, jumpMax)
			e.log.WithFields(map[string]interface{}{
				"invalid_streak": invalid,
				"jump":           jump,
			}).Info("too many dead topics, jumping ahead")
			current += jump
			invalid = 0
		} else {
			current += e.randBetween(stepMin, stepMax)
		}

		url := fmt.Sprintf("%s/t/topic/%d", e.opts.BaseURL, current)
		if err := e.page.Navigate(ctx, url); err != nil {
			e.log.WithError(err).WithField("topic_id", current).Debug("navigation failed")
			invalid++
			continue
		}
		e.sleep(navigationSettle)

		reading, status := ProbeReplyProgress(e.page)
		switch status {
		case ProbeMissing:
			invalid++
			continue
		case ProbeMalformed:
			invalid++
		case ProbeValid:
			invalid = 0
			if reading.CurrentPage < reading.TotalPages {
				// Credit is based on the position before scrolling.
				credit := reading.TotalPages - reading.CurrentPage
				e.scrollToEnd()
				read += credit
				e.log.WithFields(map[string]interface{}{
					"topic_id": current,
					"credit":   credit,
					"read":     read,
					"quota":    e.opts.Quota,
				}).Info("topic read")
			}
		}

		// The timeline element was present; linger like a reader would.
		e.pauseMillis(topicPauseMinMs, topicPauseMaxMs)
	}

	if err := e.store.Save(current); err != nil {
		return Result{LastTopicID: current, ReadCount: read}, fmt.Errorf("failed to persist progress: %w", err)
	}

	e.log.WithFields(map[string]interface{}{
		"last_topic_id": current,
		"read":          read,
	}).Info("run finished")

	return Result{LastTopicID: current, ReadCount: read}, ctx.Err()
}

// scrollToEnd pages through the current topic one viewport at a time until
// the timeline stops advancing or reaches its last page.
func (e *Engine) scrollToEnd() {
	last := Reading{}
	for i := 0; i < e.opts.MaxScrollSteps; i++ {
		if err := e.page.ScrollByViewport(); err != nil {
			e.log.WithError(err).Warn("scroll failed, leaving topic")
			return
		}
		e.pauseMillis(scrollPauseMinMs, scrollPauseMaxMs)

		reading, status := ProbeReplyProgress(e.page)
		if status != ProbeValid {
			return
		}
		if reading == last {
			return
		}
		if reading.CurrentPage >= reading.TotalPages {
			return
		}
		last = reading
	}
	e.log.WithField("steps", e.opts.MaxScrollSteps).Warn("scroll cap reached, leaving topic")
}

func (e *Engine) randBetween(min, max int) int {
	return min + e.rng.Intn(max-min+1)
}

func (e *Engine) pauseMillis(min, max int) {
	e.sleep(time.Duration(e.randBetween(min, max)) * time.Millisecond)
}
