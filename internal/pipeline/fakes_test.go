package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/service/publisher"
	"github.com/reelforge/reelforge/internal/service/render"
	"github.com/reelforge/reelforge/internal/store"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	failOn  map[int]bool // 1-based call numbers that fail
	payload models.Payload
}

func (g *fakeGenerator) next() (models.Payload, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failOn[g.calls] {
		return models.Payload{}, fmt.Errorf("generation failed on call %d", g.calls)
	}
	p := g.payload
	if p.Caption == "" {
		p = testPayload()
	}
	p.Caption = fmt.Sprintf("%s (take %d)", p.Caption, g.calls)
	return p, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) Generate(ctx context.Context, postType models.PostType, dayOfWeek, weekNumber int) (models.Payload, error) {
	return g.next()
}

func (g *fakeGenerator) Regenerate(ctx context.Context, post *models.Post) (models.Payload, error) {
	return g.next()
}

type fakeEngine struct {
	mu      sync.Mutex
	jobID   string
	err     error
	submits []render.Spec
}

func (e *fakeEngine) Submit(ctx context.Context, spec render.Spec) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.submits = append(e.submits, spec)
	if e.jobID == "" {
		return fmt.Sprintf("job-%d", len(e.submits)), nil
	}
	return e.jobID, nil
}

func (e *fakeEngine) submitted() []render.Spec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]render.Spec(nil), e.submits...)
}

type fakeSynthesizer struct {
	err error
}

func (s *fakeSynthesizer) Synthesize(ctx context.Context, script string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("audio:" + script), nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects []string
}

func (s *fakeStorage) Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = append(s.objects, objectName)
	return "https://cdn.test/" + objectName, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *fakePublisher) Publish(ctx context.Context, post *models.Post) (*publisher.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &publisher.PublishResult{
		PublishedItemID: "ig-" + post.ID,
		URL:             "https://instagram.test/p/" + post.ID,
	}, nil
}

func (p *fakePublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeInsights serves canned per-item metrics keyed by published item id.
type fakeInsights struct {
	mu      sync.Mutex
	metrics map[string]publisher.Insights
	failOn  map[string]bool
	calls   int
}

func (f *fakeInsights) Insights(ctx context.Context, itemID string) (*publisher.Insights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[itemID] {
		return nil, fmt.Errorf("insights unavailable for %s", itemID)
	}
	m := f.metrics[itemID]
	return &m, nil
}

// fakeNotifier records delivered notification names in order.
type fakeNotifier struct {
	mu      sync.Mutex
	events  []string
	digests []string
}

func (n *fakeNotifier) record(event string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) delivered() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *fakeNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

func (n *fakeNotifier) DraftReady(ctx context.Context, post *models.Post) error {
	return n.record("draft_ready")
}
func (n *fakeNotifier) PostApproved(ctx context.Context, post *models.Post) error {
	return n.record("post_approved")
}
func (n *fakeNotifier) VideoRequested(ctx context.Context, post *models.Post) error {
	return n.record("video_requested")
}
func (n *fakeNotifier) ReviewReady(ctx context.Context, post *models.Post) error {
	return n.record("review_ready")
}
func (n *fakeNotifier) RenderFailed(ctx context.Context, post *models.Post) error {
	return n.record("render_failed")
}
func (n *fakeNotifier) Published(ctx context.Context, post *models.Post) error {
	return n.record("published")
}
func (n *fakeNotifier) Digest(ctx context.Context, text string) error {
	n.mu.Lock()
	n.digests = append(n.digests, text)
	n.mu.Unlock()
	return n.record("digest")
}

func (n *fakeNotifier) lastDigest() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.digests) == 0 {
		return ""
	}
	return n.digests[len(n.digests)-1]
}

// testRig wires a router and correlator over a memory store with every
// collaborator faked out.
type testRig struct {
	store      *store.MemoryStore
	generator  *fakeGenerator
	engine     *fakeEngine
	publisher  *fakePublisher
	notifier   *fakeNotifier
	correlator *Correlator
	router     *Router
}

func newTestRig() *testRig {
	logger := zap.NewNop()
	mem := store.NewMemoryStore()
	gen := &fakeGenerator{}
	eng := &fakeEngine{}
	pub := &fakePublisher{}
	not := &fakeNotifier{}

	correlator := NewCorrelator(mem, eng, &fakeSynthesizer{}, &fakeStorage{}, not, logger)
	router := NewRouter(mem, gen, correlator, pub, not, 17, logger)

	return &testRig{
		store:      mem,
		generator:  gen,
		engine:     eng,
		publisher:  pub,
		notifier:   not,
		correlator: correlator,
		router:     router,
	}
}

func testPayload() models.Payload {
	return models.Payload{
		Caption:          "Morning routine that actually works",
		Hashtags:         models.StringArray{"fitness", "routine"},
		VoiceoverScript:  "Here is the one habit that changed everything.",
		ShotList:         "1. Close-up of alarm clock\n2. Wide shot stretching",
		EngagementScore:  8,
		EngagementReason: "strong hook",
		BestTime:         "7:00 AM",
		CTA:              "Follow for more",
	}
}

// seedPost creates a post for today's slot at the given status and applies
// any extra mutations before persisting.
func (r *testRig) seedPost(status models.PostStatus, mutate ...func(*models.Post)) *models.Post {
	day, week := slotNow()
	post := models.NewPost(models.TypeEducational, day, week, testPayload())
	post.Status = status
	for _, fn := range mutate {
		fn(post)
	}
	if err := r.store.Create(context.Background(), post); err != nil {
		panic(err)
	}
	return post
}

func slotNow() (int, int) {
	now := time.Now().UTC()
	_, week := now.ISOWeek()
	return int(now.Weekday()), week
}

func withClips(clips ...string) func(*models.Post) {
	return func(p *models.Post) {
		p.VideoClips = clips
	}
}

func withRenderJob(jobID string) func(*models.Post) {
	return func(p *models.Post) {
		p.RenderJobID = &jobID
	}
}

func withScheduledFor(t time.Time) func(*models.Post) {
	return func(p *models.Post) {
		p.ScheduledFor = &t
	}
}

func withPublished(itemID string, postedAt time.Time) func(*models.Post) {
	return func(p *models.Post) {
		p.PublishedItemID = itemID
		p.PostedAt = &postedAt
	}
}
