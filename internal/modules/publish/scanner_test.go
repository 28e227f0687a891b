package publish

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/modules/platform"
	"github.com/social-agent/core/internal/pkg/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestScanner(t *testing.T, ig, fb platform.Result) (*Scanner, *gorm.DB) {
	d, db, _, _ := newTestDispatcher(t, ig, fb)
	s := NewScanner(db, d, keylock.New(), zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s, db
}

func seedScheduled(t *testing.T, db *gorm.DB, at time.Time, mutate func(*models.PostModel)) *models.PostModel {
	t.Helper()
	return seedPublishPost(t, db, func(p *models.PostModel) {
		p.Platforms = models.StringArray{"instagram"}
		p.ScheduledAt = &at
		if mutate != nil {
			mutate(p)
		}
	})
}

func TestRunDueSweepSelectsOnlyDuePosts(t *testing.T) {
	s, db := newTestScanner(t,
		platform.Result{Success: true}, platform.Result{Success: true})

	due1 := seedScheduled(t, db, fixedNow.Add(-time.Minute), nil)
	due2 := seedScheduled(t, db, fixedNow.Add(-2*time.Minute), nil)
	future := seedScheduled(t, db, fixedNow.Add(100*time.Minute), nil)

	results, err := s.RunDueSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	seen := map[string]int{}
	for _, r := range results {
		seen[r.PostID]++
	}
	assert.Equal(t, 1, seen[due1.ID], "each due post appears exactly once")
	assert.Equal(t, 1, seen[due2.ID])
	assert.Zero(t, seen[future.ID], "future posts never selected")

	var futureReloaded models.PostModel
	require.NoError(t, db.First(&futureReloaded, "id = ?", future.ID).Error)
	assert.Equal(t, models.PublishPending, futureReloaded.PublishState)
}

func TestRunDueSweepIgnoresNonPending(t *testing.T) {
	s, db := newTestScanner(t,
		platform.Result{Success: true}, platform.Result{Success: true})

	seedScheduled(t, db, fixedNow.Add(-time.Minute), func(p *models.PostModel) {
		p.PublishState = models.PublishPosted
	})
	seedScheduled(t, db, fixedNow.Add(-time.Minute), func(p *models.PostModel) {
		p.PublishState = models.PublishFailed
	})

	results, err := s.RunDueSweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunDueSweepSkipsLockedPost(t *testing.T) {
	s, db := newTestScanner(t,
		platform.Result{Success: true}, platform.Result{Success: true})
	post := seedScheduled(t, db, fixedNow.Add(-time.Minute), nil)

	// Simulate an in-flight transition holding the per-post lock.
	s.locks.Lock("post:" + post.ID)
	defer s.locks.Unlock("post:" + post.ID)

	results, err := s.RunDueSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)

	var reloaded models.PostModel
	require.NoError(t, db.First(&reloaded, "id = ?", post.ID).Error)
	assert.Equal(t, models.PublishPending, reloaded.PublishState, "skipped post stays pending for the next sweep")
}

// gateAdapter blocks the first call for blockURL until released, so a
// test can hold one sweep mid-publish while another sweep runs.
type gateAdapter struct {
	mu       sync.Mutex
	calls    map[string]int
	blockURL string
	started  chan struct{}
	release  chan struct{}
	once     sync.Once
}

func newGateAdapter(blockURL string) *gateAdapter {
	return &gateAdapter{
		calls:    map[string]int{},
		blockURL: blockURL,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (g *gateAdapter) post(u string) platform.Result {
	g.mu.Lock()
	g.calls[u]++
	g.mu.Unlock()
	if u == g.blockURL {
		g.once.Do(func() { close(g.started) })
		<-g.release
	}
	return platform.Result{Success: true, PostID: "ext-1", Kind: "image"}
}

func (g *gateAdapter) count(u string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[u]
}

func (g *gateAdapter) Name() string { return "instagram" }
func (g *gateAdapter) PostImage(ctx context.Context, c platform.Credentials, u, cap string) platform.Result {
	return g.post(u)
}
func (g *gateAdapter) PostCarousel(ctx context.Context, c platform.Credentials, u []string, cap string) platform.Result {
	return g.post(u[0])
}
func (g *gateAdapter) PostVideo(ctx context.Context, c platform.Credentials, u, cap string) platform.Result {
	return g.post(u)
}
func (g *gateAdapter) PostStory(ctx context.Context, c platform.Credentials, u string) platform.Result {
	return g.post(u)
}
func (g *gateAdapter) PostText(ctx context.Context, c platform.Credentials, txt string) platform.Result {
	return g.post(txt)
}

func TestOverlappingSweepsPublishEachPostOnce(t *testing.T) {
	db := newPublishDB(t)
	gate := newGateAdapter("https://cdn.example.com/x.png")
	d := NewDispatcher(db, platform.Registry{"instagram": gate}, testConfig(), zap.NewNop())
	s := NewScanner(db, d, keylock.New(), zap.NewNop())
	s.now = func() time.Time { return fixedNow }

	first := seedScheduled(t, db, fixedNow.Add(-2*time.Minute), func(p *models.PostModel) {
		p.MediaURLs = models.StringArray{"https://cdn.example.com/x.png"}
	})
	second := seedScheduled(t, db, fixedNow.Add(-time.Minute), func(p *models.PostModel) {
		p.MediaURLs = models.StringArray{"https://cdn.example.com/y.png"}
	})

	// Sweep A selects both posts and blocks inside the adapter on the
	// first one, holding its lock.
	type sweepOutcome struct {
		results []SweepResult
		err     error
	}
	doneA := make(chan sweepOutcome, 1)
	go func() {
		res, err := s.RunDueSweep(context.Background())
		doneA <- sweepOutcome{results: res, err: err}
	}()
	<-gate.started

	// Sweep B runs while A is stuck: skips the locked first post and
	// publishes the second.
	resB, err := s.RunDueSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, resB, 2)
	assert.True(t, resB[0].Skipped, "first post is locked by sweep A")
	assert.False(t, resB[1].Skipped)

	// Releasing A lets it finish the first post and reach the second,
	// which B already settled. A must skip it, not publish again.
	close(gate.release)
	outcomeA := <-doneA
	require.NoError(t, outcomeA.err)
	resA := outcomeA.results
	require.Len(t, resA, 2)
	assert.False(t, resA[0].Skipped)
	assert.True(t, resA[1].Skipped, "post settled by the other sweep is skipped")

	assert.Equal(t, 1, gate.count("https://cdn.example.com/y.png"),
		"second post reaches the platform exactly once")

	var logs []models.PublishLogModel
	require.NoError(t, db.Where("post_id = ?", second.ID).Find(&logs).Error)
	assert.Len(t, logs, 1)

	var firstLogs []models.PublishLogModel
	require.NoError(t, db.Where("post_id = ?", first.ID).Find(&firstLogs).Error)
	assert.Len(t, firstLogs, 1)
}

func TestForcePublishAllSkipsSettledPosts(t *testing.T) {
	s, db := newTestScanner(t,
		platform.Result{Success: true}, platform.Result{Success: true})

	settled := seedScheduled(t, db, fixedNow.Add(-time.Minute), nil)
	live := seedScheduled(t, db, fixedNow.Add(-time.Minute), nil)

	// Hold the settled post's lock, then mark it posted while the force
	// run is blocked waiting for it.
	key := "post:" + settled.ID
	s.locks.Lock(key)

	type forceOutcome struct {
		summary SweepSummary
		err     error
	}
	done := make(chan forceOutcome, 1)
	go func() {
		summary, err := s.ForcePublishAll(context.Background())
		done <- forceOutcome{summary: summary, err: err}
	}()

	require.NoError(t, db.Model(&models.PostModel{}).
		Where("id = ?", settled.ID).Update("publish_state", models.PublishPosted).Error)
	s.locks.Unlock(key)

	outcome := <-done
	require.NoError(t, outcome.err)
	summary := outcome.summary
	assert.Equal(t, 1, summary.Total, "already-settled post is not re-processed")
	assert.Equal(t, 1, summary.Published)

	var logs []models.PublishLogModel
	require.NoError(t, db.Where("post_id = ?", settled.ID).Find(&logs).Error)
	assert.Empty(t, logs)

	var liveLogs []models.PublishLogModel
	require.NoError(t, db.Where("post_id = ?", live.ID).Find(&liveLogs).Error)
	assert.Len(t, liveLogs, 1)
}

func TestForcePublishAllIgnoresSchedule(t *testing.T) {
	s, db := newTestScanner(t,
		platform.Result{Success: true}, platform.Result{Success: true})

	seedScheduled(t, db, fixedNow.Add(100*time.Minute), nil)
	// linkedin has no credentials in the test config, so this one fails.
	seedPublishPost(t, db, func(p *models.PostModel) {
		p.Platforms = models.StringArray{"linkedin"}
	})

	summary, err := s.ForcePublishAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Published)
	assert.Equal(t, 1, summary.Failed)
}

func TestPublishNowNotFound(t *testing.T) {
	s, _ := newTestScanner(t,
		platform.Result{Success: true}, platform.Result{Success: true})

	_, err := s.PublishNow(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishNowReturnsResultMap(t *testing.T) {
	s, db := newTestScanner(t,
		platform.Result{Success: true, PostID: "ig-9"}, platform.Result{Success: true})
	post := seedScheduled(t, db, fixedNow.Add(time.Hour), nil)

	results, err := s.PublishNow(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ig-9", results["instagram"].PostID)

	var reloaded models.PostModel
	require.NoError(t, db.First(&reloaded, "id = ?", post.ID).Error)
	assert.Equal(t, models.PublishPosted, reloaded.PublishState)
}
