package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/streamhub/internal/domain"
)

// RegistrationRepository persists signup requests awaiting review.
type RegistrationRepository interface {
	Create(ctx context.Context, req *domain.RegistrationRequest) error
	GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error)
	GetByEmail(ctx context.Context, email string) (*domain.RegistrationRequest, error)
	// ListPending hides requests that already have a user, which only linger
	// when an approval could not finish deleting them.
	ListPending(ctx context.Context, limit, offset int) ([]domain.RegistrationRequest, error)
	Delete(ctx context.Context, id string) error
	// Promote deletes the request and inserts user in one transaction. It
	// returns ErrNotFound when the request was already approved or rejected.
	Promote(ctx context.Context, requestID string, user *domain.User) error
	// PurgePromoted deletes requests that were already turned into users.
	PurgePromoted(ctx context.Context) (int, error)
}

type registrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository returns a Postgres-backed implementation.
func NewRegistrationRepository(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepository{pool: pool}
}

const registrationColumns = `id, email, display_name, profile_name, password_hash, status, created_at`

func (r *registrationRepository) Create(ctx context.Context, req *domain.RegistrationRequest) error {
	const query = `
        INSERT INTO registration_requests (email, display_name, profile_name, password_hash, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		req.Email,
		req.DisplayName,
		req.ProfileName,
		req.PasswordHash,
		domain.RegistrationStatus,
		req.CreatedAt,
	).Scan(&req.ID)
	if err != nil {
		return classify(err)
	}
	req.Status = domain.RegistrationStatus
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_requests WHERE id=$1`
	return scanRegistration(r.pool.QueryRow(ctx, query, id))
}

func (r *registrationRepository) GetByEmail(ctx context.Context, email string) (*domain.RegistrationRequest, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_requests WHERE lower(email)=lower($1)`
	return scanRegistration(r.pool.QueryRow(ctx, query, email))
}

func (r *registrationRepository) ListPending(ctx context.Context, limit, offset int) ([]domain.RegistrationRequest, error) {
	query := `SELECT ` + registrationColumns + `
        FROM registration_requests r
        WHERE r.status=$1
          AND NOT EXISTS (SELECT 1 FROM users u WHERE u.source_request_id = r.id)
        ORDER BY r.created_at DESC` + limitClause(limit, offset)

	rows, err := r.pool.Query(ctx, query, domain.RegistrationStatus)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := []domain.RegistrationRequest{}
	for rows.Next() {
		req, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, classify(rows.Err())
}

func (r *registrationRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM registration_requests WHERE id=$1`, id)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepository) Promote(ctx context.Context, requestID string, user *domain.User) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The row lock taken here serializes a concurrent approve or reject.
	cmd, err := tx.Exec(ctx, `DELETE FROM registration_requests WHERE id=$1`, requestID)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	return classify(tx.Commit(ctx))
}

func (r *registrationRepository) PurgePromoted(ctx context.Context) (int, error) {
	const query = `
        DELETE FROM registration_requests r
        USING users u
        WHERE u.source_request_id = r.id`

	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, classify(err)
	}
	return int(cmd.RowsAffected()), nil
}

func scanRegistration(row pgx.Row) (*domain.RegistrationRequest, error) {
	var (
		req    domain.RegistrationRequest
		status string
	)
	if err := row.Scan(
		&req.ID,
		&req.Email,
		&req.DisplayName,
		&req.ProfileName,
		&req.PasswordHash,
		&status,
		&req.CreatedAt,
	); err != nil {
		return nil, classify(err)
	}
	req.Status = domain.EntitlementStatus(status)
	return &req, nil
}
