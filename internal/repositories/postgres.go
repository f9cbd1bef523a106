package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pingup/backend/internal/db"
	"github.com/pingup/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, followers, following, connections, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, nonNil(user.Followers), nonNil(user.Following), nonNil(user.Connections), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user together with its member sets.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, followers, following, connections, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Followers, &user.Following, &user.Connections, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// AddMember appends memberID to the named set unless it is already present.
// The check and the append happen in one row update, so repeating the call is harmless.
func (r *PostgresUserRepository) AddMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error {
	column, err := memberColumn(set)
	if err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, fmt.Sprintf(`
        UPDATE users
        SET %[1]s = CASE WHEN $2::TEXT = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2::TEXT) END,
            updated_at = $3
        WHERE id = $1
    `, column), userID, memberID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add %s member: %w", set, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RemoveMember drops memberID from the named set; absence is not an error.
func (r *PostgresUserRepository) RemoveMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error {
	column, err := memberColumn(set)
	if err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, fmt.Sprintf(`
        UPDATE users
        SET %[1]s = array_remove(%[1]s, $2::TEXT),
            updated_at = $3
        WHERE id = $1
    `, column), userID, memberID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("remove %s member: %w", set, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresConnectionRepository provides PostgreSQL-backed persistence for connection requests.
type PostgresConnectionRepository struct {
	pool db.Pool
}

// NewPostgresConnectionRepository constructs a connection request repository backed by PostgreSQL.
func NewPostgresConnectionRepository(pool db.Pool) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{pool: pool}
}

// Create persists a new connection request. A second record for the same
// unordered pair is rejected by the pair_key unique index.
func (r *PostgresConnectionRepository) Create(ctx context.Context, request models.ConnectionRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	pairKey := request.PairKey
	if pairKey == "" {
		pairKey = models.PairKey(request.FromUserID, request.ToUserID)
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO connection_requests (id, from_user_id, to_user_id, pair_key, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, request.ID, request.FromUserID, request.ToUserID, pairKey, request.Status, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return ErrConflict
			case pgForeignKeyViolation:
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert connection request: %w", err)
	}

	return nil
}

// FindBetween returns the request for the unordered pair (a, b), whichever side initiated it.
func (r *PostgresConnectionRepository) FindBetween(ctx context.Context, a, b string) (models.ConnectionRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ConnectionRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, from_user_id, to_user_id, pair_key, status, created_at, updated_at
        FROM connection_requests
        WHERE pair_key = $1
    `, models.PairKey(a, b))

	var req models.ConnectionRequest
	if err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.PairKey, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ConnectionRequest{}, ErrNotFound
		}
		return models.ConnectionRequest{}, fmt.Errorf("select connection request: %w", err)
	}

	return req, nil
}

// MarkAccepted moves a pending request to accepted. It returns ErrNotFound when
// the request is missing or no longer pending.
func (r *PostgresConnectionRepository) MarkAccepted(ctx context.Context, requestID string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE connection_requests
        SET status = $2, updated_at = $3
        WHERE id = $1 AND status = $4
    `, requestID, models.RequestStatusAccepted, at.UTC(), models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("accept connection request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeletePending removes a request only while it is still pending.
func (r *PostgresConnectionRepository) DeletePending(ctx context.Context, requestID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM connection_requests
        WHERE id = $1 AND status = $2
    `, requestID, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("delete pending connection request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a request regardless of status. Deleting a missing request succeeds.
func (r *PostgresConnectionRepository) Delete(ctx context.Context, requestID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM connection_requests WHERE id = $1`, requestID); err != nil {
		return fmt.Errorf("delete connection request: %w", err)
	}

	return nil
}

// CountPendingFrom counts pending requests sent by userID created at or after since.
func (r *PostgresConnectionRepository) CountPendingFrom(ctx context.Context, userID string, since time.Time) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	err = conn.QueryRow(ctx, `
        SELECT count(*)
        FROM connection_requests
        WHERE from_user_id = $1 AND status = $2 AND created_at >= $3
    `, userID, models.RequestStatusPending, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending connection requests: %w", err)
	}

	return count, nil
}

// ListPendingTo returns pending requests received by userID, newest first.
func (r *PostgresConnectionRepository) ListPendingTo(ctx context.Context, userID string) ([]models.ConnectionRequest, error) {
	return r.listPending(ctx, "to_user_id", userID)
}

// ListPendingFrom returns pending requests sent by userID, newest first.
func (r *PostgresConnectionRepository) ListPendingFrom(ctx context.Context, userID string) ([]models.ConnectionRequest, error) {
	return r.listPending(ctx, "from_user_id", userID)
}

func (r *PostgresConnectionRepository) listPending(ctx context.Context, column, userID string) ([]models.ConnectionRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT id, from_user_id, to_user_id, pair_key, status, created_at, updated_at
        FROM connection_requests
        WHERE %s = $1 AND status = $2
        ORDER BY created_at DESC
    `, column), userID, models.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending connection requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ConnectionRequest
	for rows.Next() {
		var req models.ConnectionRequest
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.PairKey, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan connection request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connection requests: %w", err)
	}

	return requests, nil
}

func memberColumn(set models.MemberSet) (string, error) {
	if !set.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSet, set)
	}
	return string(set), nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ConnectionRepository = (*PostgresConnectionRepository)(nil)
