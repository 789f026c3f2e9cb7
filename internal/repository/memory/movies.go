package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
)

type movies struct{ s *Store }

func (r *movies) Create(_ context.Context, movie *domain.Movie) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	movie.ID = newID()
	movie.CreatedAt = r.s.now()
	movie.UpdatedAt = movie.CreatedAt
	r.s.movies[movie.ID] = copyMovie(movie)
	return nil
}

func (r *movies) Update(_ context.Context, movie *domain.Movie) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.movies[movie.ID]
	if !ok {
		return repository.ErrNotFound
	}
	movie.CreatedAt = existing.CreatedAt
	movie.UpdatedAt = r.s.now()
	r.s.movies[movie.ID] = copyMovie(movie)
	return nil
}

func (r *movies) GetByID(_ context.Context, id string) (*domain.Movie, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	movie, ok := r.s.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyMovie(movie), nil
}

func (r *movies) List(_ context.Context, limit, offset int) ([]domain.Movie, error) {
	r.s.mu.Lock()
	result := make([]domain.Movie, 0, len(r.s.movies))
	for _, movie := range r.s.movies {
		result = append(result, *copyMovie(movie))
	}
	r.s.mu.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return page(result, limit, offset), nil
}

func (r *movies) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.movies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.movies, id)
	return nil
}

func copyMovie(m *domain.Movie) *domain.Movie {
	cp := *m
	cp.DetailImageKeys = append([]string(nil), m.DetailImageKeys...)
	return &cp
}
