package reader

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldreader/pkg/browser"
	"ldreader/pkg/browser/browsertest"
	"ldreader/pkg/progress"
)

const engineTestBase = "https://linux.do"

func newTestEngine(t *testing.T, page *browsertest.FakePage, opts Options) (*Engine, *progress.Store) {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = engineTestBase
	}
	if opts.AccountName == "" {
		opts.AccountName = "a***e"
	}

	store, err := progress.NewStore(t.TempDir(), "abcd1234")
	require.NoError(t, err)

	e := NewEngine(page, store, opts)
	e.sleep = func(time.Duration) {}
	e.rng = rand.New(rand.NewSource(1))
	return e, store
}

// topicIDs extracts the visited topic IDs from recorded navigations.
func topicIDs(t *testing.T, navigations []string) []int {
	t.Helper()
	var ids []int
	for _, url := range navigations {
		raw, found := strings.CutPrefix(url, engineTestBase+"/t/topic/")
		require.True(t, found, "unexpected navigation %q", url)
		id, err := strconv.Atoi(raw)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// scriptTopics makes the fake page answer the first probe after each
// navigation with the next scripted topic value, and every scroll re-probe
// within that topic with the scripted scroll sequence. A topic value of ""
// simulates a missing timeline.
func scriptTopics(page *browsertest.FakePage, topics []string, scrolls map[int][]string) {
	topicIdx := -1
	probedTopic := false
	scrollIdx := 0

	page.NavigateFunc = func(string) error {
		topicIdx++
		probedTopic = false
		scrollIdx = 0
		return nil
	}
	page.TextFunc = func(string) (string, error) {
		if !probedTopic {
			probedTopic = true
			if topics[topicIdx] == "" {
				return "", browser.ErrNoElement
			}
			return topics[topicIdx], nil
		}
		seq := scrolls[topicIdx]
		if scrollIdx >= len(seq) {
			return seq[len(seq)-1], nil
		}
		text := seq[scrollIdx]
		scrollIdx++
		return text, nil
	}
}

func TestRunStopsAtQuota(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page,
		[]string{"2/5", "2/5", "2/5"},
		map[int][]string{0: {"5/5"}, 1: {"5/5"}, 2: {"5/5"}},
	)
	e, store := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 7})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	// Each topic credits 3 pages; the quota of 7 is crossed on the third.
	assert.Equal(t, 9, result.ReadCount)
	assert.Len(t, page.Navigations, 3)
	assert.Equal(t, result.LastTopicID, store.Load(), "final topic persisted")
}

func TestRunCreditsPreScrollPageCount(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page,
		[]string{"2/5"},
		map[int][]string{0: {"3/5", "4/5", "5/5"}},
	)
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 3})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.ReadCount, "credit uses the position before scrolling")
	assert.Equal(t, 3, page.ScrollCount, "scrolled until the timeline reached its end")
}

func TestRunSkipsFullyReadTopic(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page,
		[]string{"5/5", "1/2"},
		map[int][]string{1: {"2/2"}},
	)
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 1})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ReadCount, "a topic already at its last page earns nothing")
	assert.Len(t, page.Navigations, 2)
}

func TestRunJumpsAfterFiveDeadTopics(t *testing.T) {
	page := &browsertest.FakePage{
		TextFunc: func(string) (string, error) { return "", browser.ErrNoElement },
	}
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 1, MaxTopicVisits: 12})

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ids := topicIDs(t, page.Navigations)
	require.Len(t, ids, 12)

	prev := 1000000
	for i, id := range ids {
		delta := id - prev
		// The 6th and 11th visits follow five consecutive dead topics.
		if i == 5 || i == 10 {
			assert.GreaterOrEqual(t, delta, 50, "visit %d should long-jump", i+1)
			assert.LessOrEqual(t, delta, 100, "visit %d should long-jump", i+1)
		} else {
			assert.GreaterOrEqual(t, delta, 1, "visit %d", i+1)
			assert.LessOrEqual(t, delta, 5, "visit %d", i+1)
		}
		prev = id
	}
}

func TestRunCountsMalformedTowardJump(t *testing.T) {
	page := &browsertest.FakePage{
		TextFunc: func(string) (string, error) { return "loading...", nil },
	}
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 1, MaxTopicVisits: 6})

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ids := topicIDs(t, page.Navigations)
	require.Len(t, ids, 6)
	delta := ids[5] - ids[4]
	assert.GreaterOrEqual(t, delta, 50)
	assert.LessOrEqual(t, delta, 100)
}

func TestRunCountsNavigationErrorTowardJump(t *testing.T) {
	page := &browsertest.FakePage{
		NavigateFunc: func(string) error { return assert.AnError },
	}
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 1, MaxTopicVisits: 6})

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ids := topicIDs(t, page.Navigations)
	require.Len(t, ids, 6)
	delta := ids[5] - ids[4]
	assert.GreaterOrEqual(t, delta, 50)
	assert.LessOrEqual(t, delta, 100)
}

func TestRunScrollStopsWhenReadingStalls(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page,
		[]string{"3/5"},
		map[int][]string{0: {"3/5", "3/5"}},
	)
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 2})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ReadCount)
	assert.Equal(t, 2, page.ScrollCount, "stall detected on the second unchanged reading")
}

func TestRunScrollCapEndsTopic(t *testing.T) {
	step := 0
	page := &browsertest.FakePage{}
	page.NavigateFunc = func(string) error { return nil }
	page.TextFunc = func(string) (string, error) {
		step++
		// Always advancing but never finishing.
		return strconv.Itoa(step) + "/1000000", nil
	}
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 1, MaxTopicVisits: 1, MaxScrollSteps: 7})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, page.ScrollCount)
	assert.Greater(t, result.ReadCount, 0)
}

func TestRunResumesFromCachedTopic(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page, []string{"1/2"}, map[int][]string{0: {"2/2"}})
	e, store := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 1})
	require.NoError(t, store.Save(2000000))

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	ids := topicIDs(t, page.Navigations)
	assert.Greater(t, ids[0], 2000000, "cached position beats the configured base")
	assert.Equal(t, result.LastTopicID, store.Load())
}

func TestRunForwardProgress(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page,
		[]string{"", "", "1/2", "1/2", "1/2"},
		map[int][]string{2: {"2/2"}, 3: {"2/2"}, 4: {"2/2"}},
	)
	e, _ := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 3})

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ids := topicIDs(t, page.Navigations)
	prev := 1000000
	for _, id := range ids {
		assert.Greater(t, id, prev, "topic IDs only move forward")
		prev = id
	}
}

func TestRunVisitCapPersistsProgress(t *testing.T) {
	page := &browsertest.FakePage{
		TextFunc: func(string) (string, error) { return "", browser.ErrNoElement },
	}
	e, store := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 100, MaxTopicVisits: 4})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.ReadCount)
	assert.Len(t, page.Navigations, 4)
	assert.Equal(t, result.LastTopicID, store.Load())
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &browsertest.FakePage{}
	e, store := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 10})

	result, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, page.Navigations)
	assert.Equal(t, result.LastTopicID, store.Load(), "progress persisted even when cancelled")
}

// Mirrors a full small run: two dead IDs, a partially read topic, a fully
// read topic, then a long topic that crosses the quota.
func TestRunEndToEndScenario(t *testing.T) {
	page := &browsertest.FakePage{}
	scriptTopics(page,
		[]string{"", "", "1/3", "2/2", "1/6"},
		map[int][]string{2: {"2/3", "3/3"}, 4: {"3/6", "6/6"}},
	)
	e, store := newTestEngine(t, page, Options{BaseTopicID: 1000000, Quota: 5})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, result.ReadCount, "credits 2 from the first readable topic and 5 from the last")
	assert.Len(t, page.Navigations, 5)
	assert.Equal(t, result.LastTopicID, store.Load())
	assert.Greater(t, result.LastTopicID, 1000000)
}
