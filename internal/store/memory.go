package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reelforge/reelforge/internal/models"
)

// MemoryStore keeps posts in process memory. It backs tests and local
// development; the render-job map is a derived index rebuilt by full scan
// whenever a lookup misses, so it is never treated as a source of truth.
type MemoryStore struct {
	mu          sync.RWMutex
	posts       map[string]*models.Post
	renderIndex map[string]string // render job id -> post id, derived
	locks       *MutexMap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:       make(map[string]*models.Post),
		renderIndex: make(map[string]string),
		locks:       NewMutexMap(),
	}
}

func (s *MemoryStore) Create(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *post
	s.posts[post.ID] = &cp
	if post.RenderJobID != nil {
		s.renderIndex[*post.RenderJobID] = post.ID
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (s *MemoryStore) GetByRenderJobID(ctx context.Context, jobID string) (*models.Post, error) {
	s.mu.RLock()
	id, ok := s.renderIndex[jobID]
	if ok {
		if post, exists := s.posts[id]; exists && post.RenderJobID != nil && *post.RenderJobID == jobID {
			cp := *post
			s.mu.RUnlock()
			return &cp, nil
		}
	}
	s.mu.RUnlock()

	// Index miss: rebuild from the records themselves. Heals the case where
	// a post was persisted but the index entry was lost.
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, post := range s.posts {
		if post.RenderJobID != nil {
			s.renderIndex[*post.RenderJobID] = post.ID
		}
	}
	if id, ok := s.renderIndex[jobID]; ok {
		if post, exists := s.posts[id]; exists {
			cp := *post
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Post, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	s.mu.RLock()
	current, ok := s.posts[id]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	cp := *current
	s.mu.RUnlock()

	if err := fn(&cp); err != nil {
		return &cp, err
	}

	cp.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.posts[id] = &cp
	if cp.RenderJobID != nil {
		s.renderIndex[*cp.RenderJobID] = cp.ID
	}
	s.mu.Unlock()

	out := cp
	return &out, nil
}

func (s *MemoryStore) FindSlot(ctx context.Context, dayOfWeek, weekNumber int, status models.PostStatus) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var posts []*models.Post
	for _, post := range s.posts {
		if post.DayOfWeek != dayOfWeek || post.WeekNumber != weekNumber {
			continue
		}
		if status != "" && post.Status != status {
			continue
		}
		cp := *post
		posts = append(posts, &cp)
	}
	sortByGeneratedAt(posts)
	return posts, nil
}

func (s *MemoryStore) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var posts []*models.Post
	for _, post := range s.posts {
		// A post with a publish time set is due even if the schedule
		// transition itself was lost; publish is valid from both states.
		if post.Status != models.StatusScheduled && post.Status != models.StatusReadyForReview {
			continue
		}
		if post.ScheduledFor == nil {
			continue
		}
		if post.ScheduledFor.After(now) {
			continue
		}
		cp := *post
		posts = append(posts, &cp)
	}
	sortByGeneratedAt(posts)
	return posts, nil
}

func (s *MemoryStore) ListPostedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var posts []*models.Post
	for _, post := range s.posts {
		if post.Status != models.StatusPosted || post.PostedAt == nil {
			continue
		}
		if post.PostedAt.Before(since) {
			continue
		}
		cp := *post
		posts = append(posts, &cp)
	}
	sortByGeneratedAt(posts)
	return posts, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		cp := *post
		posts = append(posts, &cp)
	}
	sortByGeneratedAt(posts)
	return posts, nil
}

// DropRenderIndex clears the derived index. Exists so tests can exercise
// the rebuild-by-scan path.
func (s *MemoryStore) DropRenderIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderIndex = make(map[string]string)
}

func sortByGeneratedAt(posts []*models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].GeneratedAt.After(posts[j].GeneratedAt)
	})
}
