/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface: the users and wallets tables, the restricted projections for
 * login and recovery, the explicit set/unset patch update, and the
 * wallet-address membership join.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hernan-erasmo/stackup/internal/domain"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrUsernameTaken          = errors.New("username already taken")
	ErrWalletExists           = errors.New("user already has a wallet")
	ErrInvalidAddress         = errors.New("invalid chain address")
	ErrInvalidEncryptedSigner = errors.New("invalid encrypted signer encoding")
	ErrInvalidPatchField      = errors.New("field cannot be patched")
)

// Columns the patch update is allowed to touch. The username column is
// immutable through patches; identity changes go through support tooling.
var patchableUserColumns = map[string]bool{
	"email":     true,
	"wallet_id": true,
}

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository
// interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateUser inserts a new user row. A unique violation on the username
// column surfaces as ErrUsernameTaken so the handler can return 409.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (id, username, email)
        VALUES ($1, $2, $3)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, user.ID, user.Username, user.Email).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by their internal id.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, username, email, wallet_id, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&user.ID, &user.Username, &user.Email, &user.WalletID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername retrieves a user by their (normalized) username.
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, username, email, wallet_id, created_at, updated_at FROM users WHERE lower(btrim(username)) = lower(btrim($1))`
	err := r.db.QueryRow(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.WalletID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of users ordered by creation time.
func (r *PostgresRepository) ListUsers(ctx context.Context, opts domain.ListOptions) ([]domain.User, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	query := `
        SELECT id, username, email, wallet_id, created_at, updated_at
        FROM users
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	rows, err := r.db.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.WalletID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser applies an explicit patch in two deterministic passes: the
// set pass assigns columns, the unset pass nulls them afterwards, so an
// unset always wins over a same-call assignment.
func (r *PostgresRepository) UpdateUser(ctx context.Context, userID uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	assignments, args, err := buildUserPatchAssignments(userID, patch)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
        UPDATE users SET %s
        WHERE id = $1
        RETURNING id, username, email, wallet_id, created_at, updated_at
    `, strings.Join(assignments, ", "))

	var user domain.User
	err = r.db.QueryRow(ctx, query, args...).
		Scan(&user.ID, &user.Username, &user.Email, &user.WalletID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

// buildUserPatchAssignments turns a patch into the SET clause of a single
// UPDATE. Set assignments come first and unset assignments last; in a
// multi-assignment UPDATE the last assignment to a column takes effect,
// so an unset always wins over a same-call set of the same column.
func buildUserPatchAssignments(userID uuid.UUID, patch domain.UserPatch) ([]string, []any, error) {
	assignments := make([]string, 0, len(patch.Set)+len(patch.Unset)+1)
	args := make([]any, 0, len(patch.Set)+1)
	args = append(args, userID)

	// Map iteration order is random; sort for a stable statement.
	setColumns := make([]string, 0, len(patch.Set))
	for column := range patch.Set {
		setColumns = append(setColumns, column)
	}
	sort.Strings(setColumns)

	for _, column := range setColumns {
		if !patchableUserColumns[column] {
			return nil, nil, fmt.Errorf("%s: %w", column, ErrInvalidPatchField)
		}
		args = append(args, patch.Set[column])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	for _, column := range patch.Unset {
		if !patchableUserColumns[column] {
			return nil, nil, fmt.Errorf("%s: %w", column, ErrInvalidPatchField)
		}
		assignments = append(assignments, fmt.Sprintf("%s = NULL", column))
	}
	assignments = append(assignments, "updated_at = now()")
	return assignments, args, nil
}

// DeleteUser removes a user and cascades to their wallet row.
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateWallet validates and inserts a wallet row, then links it to the
// owning user. The unique constraint on user_id enforces one wallet per
// user; a violation surfaces as ErrWalletExists.
func (r *PostgresRepository) CreateWallet(ctx context.Context, wallet *domain.Wallet) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin wallet insert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO wallets (id, user_id, wallet_address, init_implementation, init_entry_point, init_owner, init_guardians, encrypted_signer)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at
    `
	err = tx.QueryRow(ctx, query,
		wallet.ID,
		wallet.UserID,
		wallet.WalletAddress,
		wallet.InitImplementation,
		wallet.InitEntryPoint,
		wallet.InitOwner,
		wallet.InitGuardians,
		wallet.EncryptedSigner,
	).Scan(&wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrWalletExists
		}
		return fmt.Errorf("insert wallet: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET wallet_id = $1, updated_at = now() WHERE id = $2`, wallet.ID, wallet.UserID)
	if err != nil {
		return fmt.Errorf("link wallet to user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return tx.Commit(ctx)
}

// FindWalletByOwner retrieves the full wallet row for a user.
func (r *PostgresRepository) FindWalletByOwner(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	query := `
        SELECT id, user_id, wallet_address, init_implementation, init_entry_point, init_owner, init_guardians, encrypted_signer, created_at, updated_at
        FROM wallets WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.WalletAddress, &w.InitImplementation, &w.InitEntryPoint,
		&w.InitOwner, &w.InitGuardians, &w.EncryptedSigner, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindWalletForLogin returns only the encrypted signer for a username.
// Login needs nothing else, and nothing else should leave the store here.
func (r *PostgresRepository) FindWalletForLogin(ctx context.Context, username string) (*domain.Wallet, error) {
	var w domain.Wallet
	query := `
        SELECT w.encrypted_signer
        FROM wallets w
        JOIN users u ON u.wallet_id = w.id
        WHERE lower(btrim(u.username)) = lower(btrim($1))
    `
	err := r.db.QueryRow(ctx, query, username).Scan(&w.EncryptedSigner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindWalletForRecovery returns the wallet without the encrypted signer.
// Recovery staging must never see the ciphertext.
func (r *PostgresRepository) FindWalletForRecovery(ctx context.Context, username string) (*domain.Wallet, error) {
	var w domain.Wallet
	query := `
        SELECT w.id, w.user_id, w.wallet_address, w.init_implementation, w.init_entry_point, w.init_owner, w.init_guardians, w.created_at
        FROM wallets w
        JOIN users u ON u.wallet_id = w.id
        WHERE lower(btrim(u.username)) = lower(btrim($1))
    `
	err := r.db.QueryRow(ctx, query, username).Scan(
		&w.ID, &w.UserID, &w.WalletAddress, &w.InitImplementation, &w.InitEntryPoint,
		&w.InitOwner, &w.InitGuardians, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindUsersByWalletAddresses resolves wallet addresses back to usernames.
// Addresses are matched case-insensitively since checksum casing varies
// between clients. The withUserID variant is for trusted callers only.
func (r *PostgresRepository) FindUsersByWalletAddresses(ctx context.Context, addresses []string, withUserID bool) ([]domain.WalletOwner, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(addresses))
	for i, a := range addresses {
		lowered[i] = strings.ToLower(strings.TrimSpace(a))
	}

	query := `
        SELECT u.id, u.username, w.wallet_address
        FROM users u
        JOIN wallets w ON u.wallet_id = w.id
        WHERE lower(w.wallet_address) = ANY($1)
    `
	rows, err := r.db.Query(ctx, query, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []domain.WalletOwner
	for rows.Next() {
		var (
			id    uuid.UUID
			owner domain.WalletOwner
		)
		if err := rows.Scan(&id, &owner.Username, &owner.WalletAddress); err != nil {
			return nil, err
		}
		if withUserID {
			ownerID := id
			owner.UserID = &ownerID
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
