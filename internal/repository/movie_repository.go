package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/streamhub/internal/domain"
)

// MovieRepository persists catalog entries.
type MovieRepository interface {
	Create(ctx context.Context, movie *domain.Movie) error
	Update(ctx context.Context, movie *domain.Movie) error
	GetByID(ctx context.Context, id string) (*domain.Movie, error)
	List(ctx context.Context, limit, offset int) ([]domain.Movie, error)
	Delete(ctx context.Context, id string) error
}

type movieRepository struct {
	pool *pgxpool.Pool
}

// NewMovieRepository returns a Postgres-backed implementation.
func NewMovieRepository(pool *pgxpool.Pool) MovieRepository {
	return &movieRepository{pool: pool}
}

const movieColumns = `id, title, description, cover_image_key, detail_image_keys, video_key, created_at, updated_at`

func (r *movieRepository) Create(ctx context.Context, movie *domain.Movie) error {
	const query = `
        INSERT INTO movies (title, description, cover_image_key, detail_image_keys, video_key)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	return classify(r.pool.QueryRow(ctx, query,
		movie.Title,
		movie.Description,
		movie.CoverImageKey,
		detailKeys(movie.DetailImageKeys),
		movie.VideoKey,
	).Scan(&movie.ID, &movie.CreatedAt, &movie.UpdatedAt))
}

func (r *movieRepository) Update(ctx context.Context, movie *domain.Movie) error {
	const query = `
        UPDATE movies
        SET title=$1, description=$2, cover_image_key=$3, detail_image_keys=$4, video_key=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	return classify(r.pool.QueryRow(ctx, query,
		movie.Title,
		movie.Description,
		movie.CoverImageKey,
		detailKeys(movie.DetailImageKeys),
		movie.VideoKey,
		movie.ID,
	).Scan(&movie.UpdatedAt))
}

func (r *movieRepository) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE id=$1`
	return scanMovie(r.pool.QueryRow(ctx, query, id))
}

func (r *movieRepository) List(ctx context.Context, limit, offset int) ([]domain.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies ORDER BY created_at DESC` + limitClause(limit, offset)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := []domain.Movie{}
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *movie)
	}
	return result, classify(rows.Err())
}

func (r *movieRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id=$1`, id)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMovie(row pgx.Row) (*domain.Movie, error) {
	var movie domain.Movie
	if err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Description,
		&movie.CoverImageKey,
		&movie.DetailImageKeys,
		&movie.VideoKey,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	); err != nil {
		return nil, classify(err)
	}
	return &movie, nil
}

func detailKeys(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
