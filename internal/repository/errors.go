package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store level failures. Repository implementations wrap driver errors into
// these so services never inspect driver types.
var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyPromoted  = errors.New("registration already promoted")
	ErrEmailTaken       = errors.New("email already in use")
	ErrDuplicate        = errors.New("record already exists")
	ErrPermissionDenied = errors.New("store permission denied")
	ErrUnavailable      = errors.New("store unavailable")
)

const (
	pgUniqueViolation     = "23505"
	pgInsufficientPrivs   = "42501"
	pgAdminShutdown       = "57P01"
	pgCannotConnectNow    = "57P03"
	pgTooManyConnections  = "53300"
	pgConnectionExcClass  = "08"
	pgQueryCanceled       = "57014"
	constraintSourceReq   = "users_source_request_id_key"
	constraintUserEmail   = "users_email_key"
	constraintPendingMail = "registration_requests_email_key"
	constraintAdminEmail  = "admins_email_key"
)

// classify maps a pgx error onto the sentinel set, keeping the cause wrapped.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintSourceReq:
				return ErrAlreadyPromoted
			case constraintUserEmail, constraintPendingMail, constraintAdminEmail:
				return ErrEmailTaken
			}
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgErr.Code == pgInsufficientPrivs:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
		case pgErr.Code == pgAdminShutdown, pgErr.Code == pgCannotConnectNow,
			pgErr.Code == pgTooManyConnections, pgErr.Code == pgQueryCanceled,
			len(pgErr.Code) == 5 && pgErr.Code[:2] == pgConnectionExcClass:
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
