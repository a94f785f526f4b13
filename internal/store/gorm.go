package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reelforge/reelforge/internal/models"
)

// GormStore persists posts in PostgreSQL. Update serializes per Post id
// with an in-process keyed mutex and wraps the write in a transaction with
// a row lock, so a concurrent trigger always sees the committed status.
type GormStore struct {
	db    *gorm.DB
	locks *MutexMap
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:    db,
		locks: NewMutexMap(),
	}
}

func (s *GormStore) Create(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) GetByRenderJobID(ctx context.Context, jobID string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "render_job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Post, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	var updated *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&post, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := fn(&post); err != nil {
			updated = &post
			return err
		}

		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		updated = &post
		return nil
	})
	if err != nil && !errors.Is(err, ErrAbort) {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return updated, err
	}
	return updated, err
}

func (s *GormStore) FindSlot(ctx context.Context, dayOfWeek, weekNumber int, status models.PostStatus) ([]*models.Post, error) {
	q := s.db.WithContext(ctx).
		Where("day_of_week = ? AND week_number = ?", dayOfWeek, weekNumber)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var posts []*models.Post
	if err := q.Order("generated_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	err := s.db.WithContext(ctx).
		Where("status IN ? AND scheduled_for <= ?",
			[]models.PostStatus{models.StatusScheduled, models.StatusReadyForReview}, now).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) ListPostedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND posted_at >= ?", models.StatusPosted, since).
		Order("posted_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) List(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := s.db.WithContext(ctx).Order("generated_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
