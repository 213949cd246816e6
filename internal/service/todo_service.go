package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/cache"
	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/repo"
)

// loadTimeout bounds a shared cache fill once it no longer follows the caller's context.
const loadTimeout = 10 * time.Second

// ErrNotFound matches every *NotFoundError through errors.Is.
var ErrNotFound = errors.New("todo not found")

// NotFoundError is returned by mutations that target an id with no row.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("todo not found with id: %d", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type TodoService struct {
	repo   repo.TodoRepo
	cache  *cache.TodoCache
	sf     singleflight.Group
	now    func() time.Time
	logger *log.Logger
}

type Option func(*TodoService)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *TodoService) { s.now = now }
}

// WithLogger sets the logger used for cache failures.
func WithLogger(l *log.Logger) Option {
	return func(s *TodoService) { s.logger = l }
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache, opts ...Option) *TodoService {
	s := &TodoService{repo: r, cache: c, now: time.Now, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stamped returns a copy of t with both timestamps set to now.
func stamped(t dom.Todo, now time.Time) dom.Todo {
	t.CreatedAt = now
	t.UpdatedAt = now
	return t
}

// touched returns a copy of t with only UpdatedAt set to now.
func touched(t dom.Todo, now time.Time) dom.Todo {
	t.UpdatedAt = now
	return t
}

// timestamp is truncated to microseconds so it survives a database round trip.
func (s *TodoService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores t as a new todo. Any id or timestamps on t are ignored.
func (s *TodoService) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	t.ID = 0
	out, err := s.repo.Insert(ctx, stamped(t, s.timestamp()))
	if err != nil {
		return dom.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	s.invalidateCache(ctx)
	return out, nil
}

func (s *TodoService) List(ctx context.Context) ([]dom.Todo, error) {
	return s.cached(ctx, cache.ListKey(), s.repo.FindAll)
}

func (s *TodoService) ListByStatus(ctx context.Context, completed bool) ([]dom.Todo, error) {
	return s.cached(ctx, cache.StatusKey(completed), func(ctx context.Context) ([]dom.Todo, error) {
		return s.repo.FindByCompleted(ctx, completed)
	})
}

func (s *TodoService) SearchByTitle(ctx context.Context, q string) ([]dom.Todo, error) {
	return s.cached(ctx, cache.SearchKey(q), func(ctx context.Context) ([]dom.Todo, error) {
		return s.repo.FindByTitleContains(ctx, q)
	})
}

// Find looks a todo up by id. A missing id is reported through found, never as an error.
func (s *TodoService) Find(ctx context.Context, id int64) (dom.Todo, bool, error) {
	t, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dom.Todo{}, false, fmt.Errorf("find todo %d: %w", id, err)
	}
	return t, found, nil
}

// get is the failing lookup used by mutations.
func (s *TodoService) get(ctx context.Context, id int64) (dom.Todo, error) {
	t, found, err := s.Find(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if !found {
		return dom.Todo{}, &NotFoundError{ID: id}
	}
	return t, nil
}

// Update replaces title, description and completed of the todo with the given id.
// The id inside details is ignored.
func (s *TodoService) Update(ctx context.Context, id int64, details dom.Todo) (dom.Todo, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	patch := existing
	patch.Title = details.Title
	patch.Description = details.Description
	patch.Completed = details.Completed
	return s.save(ctx, touched(patch, s.timestamp()))
}

// Complete marks the todo as completed. Completing twice succeeds and re-stamps UpdatedAt.
func (s *TodoService) Complete(ctx context.Context, id int64) (dom.Todo, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	patch := existing
	patch.Completed = true
	return s.save(ctx, touched(patch, s.timestamp()))
}

func (s *TodoService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *TodoService) save(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	if err := s.repo.Update(ctx, t); err != nil {
		return dom.Todo{}, fmt.Errorf("update todo %d: %w", t.ID, err)
	}
	s.invalidateCache(ctx)
	return t, nil
}

// cached serves key from Redis when possible and fills it from load otherwise.
// Concurrent misses on the same key share one load, which runs detached from
// the first caller's cancellation. A fill is dropped when a write invalidated
// the cache while it was loading.
func (s *TodoService) cached(ctx context.Context, key string, load func(context.Context) ([]dom.Todo, error)) ([]dom.Todo, error) {
	if s.cache == nil {
		return load(ctx)
	}
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		if list, err := s.cache.Get(ctx, key); err == nil && list != nil {
			return list, nil
		} else if err != nil {
			s.logger.Warn("cache read failed", "key", key, "err", err)
		}
		gen, genErr := s.cache.Generation(ctx)
		if genErr != nil {
			s.logger.Warn("cache read failed", "key", key, "err", genErr)
		}
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			if _, err := s.cache.SetIfGeneration(ctx, key, list, gen); err != nil {
				s.logger.Warn("cache write failed", "key", key, "err", err)
			}
		}
		return list, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]dom.Todo), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InvalidateCache drops every cached result set. Used after writes that bypass
// the service, such as seeding.
func (s *TodoService) InvalidateCache(ctx context.Context) {
	s.invalidateCache(ctx)
}

func (s *TodoService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", "err", err)
	}
}
