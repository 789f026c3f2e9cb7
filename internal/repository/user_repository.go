package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/streamhub/internal/domain"
)

// UserOrder selects the sort key for user listings. Both sort descending.
type UserOrder int

const (
	OrderByCreatedAt UserOrder = iota
	OrderByAccessEnd
)

// UserFilter defines query params for entitlement listings.
type UserFilter struct {
	Status  *domain.EntitlementStatus
	OrderBy UserOrder
	Limit   int
	Offset  int
}

// UserRepository defines persistence access for entitlement records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	// ListLapsed returns every approved record whose window ended before now.
	ListLapsed(ctx context.Context, now time.Time) ([]domain.User, error)
	// UpdateAccess writes both window bounds and the recomputed status in one statement.
	UpdateAccess(ctx context.Context, id string, start, end time.Time, status domain.EntitlementStatus) (*domain.User, error)
	// ExpireIfLapsed flips an approved user to expired only while the stored
	// window has ended before now, and reports whether a row changed.
	ExpireIfLapsed(ctx context.Context, id string, now time.Time) (bool, error)
	// TransitionStatus writes to only while the stored status equals from and
	// reports whether a row changed.
	TransitionStatus(ctx context.Context, id string, from, to domain.EntitlementStatus) (bool, error)
	SetStatus(ctx context.Context, id string, status domain.EntitlementStatus) error
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, source_request_id, email, display_name, profile_name, password_hash, status,
        access_start_date, access_end_date, created_at, approved_at, approved_by, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, r.pool, user)
}

// rowQuerier is satisfied by both the pool and a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertUser(ctx context.Context, q rowQuerier, user *domain.User) error {
	const query = `
        INSERT INTO users (id, source_request_id, email, display_name, profile_name, password_hash, status,
            access_start_date, access_end_date, created_at, approved_at, approved_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING updated_at`

	err := q.QueryRow(ctx, query,
		user.ID,
		user.SourceRequestID,
		user.Email,
		user.DisplayName,
		user.ProfileName,
		user.PasswordHash,
		user.Status,
		user.AccessStartDate,
		user.AccessEndDate,
		user.CreatedAt,
		user.ApprovedAt,
		user.ApprovedBy,
	).Scan(&user.UpdatedAt)
	return classify(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	switch filter.OrderBy {
	case OrderByAccessEnd:
		query += " ORDER BY access_end_date DESC NULLS LAST, created_at DESC"
	default:
		query += " ORDER BY created_at DESC"
	}
	query += limitClause(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, classify(rows.Err())
}

func (r *userRepository) ListLapsed(ctx context.Context, now time.Time) ([]domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users
        WHERE status=$1 AND access_end_date IS NOT NULL AND access_end_date < $2
        ORDER BY access_end_date`

	rows, err := r.pool.Query(ctx, query, domain.EntitlementApproved, now)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, classify(rows.Err())
}

func (r *userRepository) UpdateAccess(ctx context.Context, id string, start, end time.Time, status domain.EntitlementStatus) (*domain.User, error) {
	query := `
        UPDATE users SET access_start_date=$1, access_end_date=$2, status=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, start, end, status, id))
}

func (r *userRepository) ExpireIfLapsed(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
        UPDATE users SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
          AND access_end_date IS NOT NULL AND access_end_date < $4`

	cmd, err := r.pool.Exec(ctx, query, domain.EntitlementExpired, id, domain.EntitlementApproved, now)
	if err != nil {
		return false, classify(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) TransitionStatus(ctx context.Context, id string, from, to domain.EntitlementStatus) (bool, error) {
	const query = `
        UPDATE users SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`

	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, classify(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) SetStatus(ctx context.Context, id string, status domain.EntitlementStatus) error {
	const query = `UPDATE users SET status=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user   domain.User
		status string
	)
	if err := row.Scan(
		&user.ID,
		&user.SourceRequestID,
		&user.Email,
		&user.DisplayName,
		&user.ProfileName,
		&user.PasswordHash,
		&status,
		&user.AccessStartDate,
		&user.AccessEndDate,
		&user.CreatedAt,
		&user.ApprovedAt,
		&user.ApprovedBy,
		&user.UpdatedAt,
	); err != nil {
		return nil, classify(err)
	}
	parsed, err := domain.ParseEntitlementStatus(status)
	if err != nil {
		return nil, err
	}
	user.Status = parsed
	return &user, nil
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
