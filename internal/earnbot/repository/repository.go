package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tmatveev/earnbot/internal/earnbot/models"
	_ "github.com/jackc/pgx/v4/stdlib"
)

// Sentinel errors for lookups
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
)

// Repository defines the interface for data access operations
type Repository interface {
	// Account ledger operations
	GetOrCreateAccount(ctx context.Context, userID string) (*models.UserAccount, error)
	GetAccount(ctx context.Context, userID string) (*models.UserAccount, error)
	ApplyAccountDelta(ctx context.Context, userID string, delta models.AccountDelta) error
	SetAccountFields(ctx context.Context, userID string, fields models.AccountFields) error
	SetReferredBy(ctx context.Context, userID, referrerID string) (bool, error)
	ClearShortlink(ctx context.Context, userID, correlationID string) (bool, error)
	DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (bool, error)
	ClaimChannel(ctx context.Context, userID, channelID string) (bool, error)
	GetLanguage(ctx context.Context, userID string) (string, error)
	SetLanguage(ctx context.Context, userID, language string) error

	// Withdrawal request operations
	CreateWithdrawal(ctx context.Context, userID string, points, rupees decimal.Decimal, method, details string) (string, error)
	GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	UpdateWithdrawalStatus(ctx context.Context, id string, status models.WithdrawalStatus, reason string) (models.WithdrawalStatus, error)
	RecordAdminMessageRef(ctx context.Context, id string, messageID int64) error
	PendingUnnotified(ctx context.Context, limit int) ([]models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error)

	// Initialize and close
	InitDB(databaseURI string) error
	Ping(ctx context.Context) error
	Close() error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository. The connection
// is established in InitDB.
func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

// InitDB initializes the database connection and schema
func (r *PostgresRepository) InitDB(databaseURI string) error {
	db, err := sql.Open("pgx", databaseURI)
	if err != nil {
		return err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	r.db = db

	// Create tables if they don't exist
	if err := r.createTables(); err != nil {
		db.Close()
		return err
	}

	return nil
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// createTables creates the necessary tables if they don't exist
func (r *PostgresRepository) createTables() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			user_id VARCHAR(64) PRIMARY KEY,
			balance NUMERIC(12, 2) NOT NULL DEFAULT 0,
			solved_count INTEGER NOT NULL DEFAULT 0,
			last_shortlink TEXT,
			last_correlation VARCHAR(64),
			referred_by VARCHAR(64),
			referral_count INTEGER NOT NULL DEFAULT 0,
			channel_joined_count INTEGER NOT NULL DEFAULT 0,
			language VARCHAR(8) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS claimed_channels (
			user_id VARCHAR(64) NOT NULL,
			channel_id VARCHAR(64) NOT NULL,
			claimed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, channel_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS withdrawals (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			amount_points NUMERIC(12, 2) NOT NULL,
			amount_rupees NUMERIC(12, 2) NOT NULL,
			method VARCHAR(32) NOT NULL,
			details TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			reject_reason TEXT,
			admin_message_id BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

const accountColumns = `user_id, balance, solved_count,
	COALESCE(last_shortlink, ''), COALESCE(last_correlation, ''),
	COALESCE(referred_by, ''), referral_count, channel_joined_count,
	language, created_at`

func scanAccount(row *sql.Row) (*models.UserAccount, error) {
	acc := &models.UserAccount{}
	err := row.Scan(
		&acc.UserID,
		&acc.Balance,
		&acc.SolvedCount,
		&acc.LastShortlink,
		&acc.LastCorrelation,
		&acc.ReferredBy,
		&acc.ReferralCount,
		&acc.ChannelJoinedCount,
		&acc.Language,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Account ledger methods

// GetOrCreateAccount returns the account for userID, inserting a fresh one
// with default values if none exists. A concurrent first access loses the
// insert race on the primary key and simply refetches the winner's row.
func (r *PostgresRepository) GetOrCreateAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING",
		userID,
	)
	if err != nil {
		return nil, err
	}

	return r.GetAccount(ctx, userID)
}

// GetAccount fetches an account by user ID
func (r *PostgresRepository) GetAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = $1",
		userID,
	)

	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

// ApplyAccountDelta increments the numeric account fields in a single
// statement, so concurrent deltas for the same user both land.
func (r *PostgresRepository) ApplyAccountDelta(ctx context.Context, userID string, delta models.AccountDelta) error {
	if delta.IsZero() {
		return nil
	}

	result, err := r.db.ExecContext(
		ctx,
		`UPDATE accounts SET
			balance = balance + $1,
			solved_count = solved_count + $2,
			referral_count = referral_count + $3,
			channel_joined_count = channel_joined_count + $4
		 WHERE user_id = $5`,
		delta.Balance, delta.Solved, delta.Referrals, delta.ChannelsJoined, userID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetAccountFields overwrites the supplied fields. An empty string for the
// shortlink fields clears the stored value.
func (r *PostgresRepository) SetAccountFields(ctx context.Context, userID string, fields models.AccountFields) error {
	set := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)

	if fields.LastShortlink != nil {
		args = append(args, *fields.LastShortlink)
		set = append(set, fmt.Sprintf("last_shortlink = NULLIF($%d, '')", len(args)))
	}
	if fields.LastCorrelation != nil {
		args = append(args, *fields.LastCorrelation)
		set = append(set, fmt.Sprintf("last_correlation = NULLIF($%d, '')", len(args)))
	}
	if fields.Language != nil {
		args = append(args, *fields.Language)
		set = append(set, fmt.Sprintf("language = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE user_id = $%d",
		joinSet(set), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// SetReferredBy records the referrer only if none is set yet and reports
// whether this call won. A lost race or an already-set referrer is not an
// error; the first referrer simply stays.
func (r *PostgresRepository) SetReferredBy(ctx context.Context, userID, referrerID string) (bool, error) {
	result, err := r.db.ExecContext(
		ctx,
		"UPDATE accounts SET referred_by = $1 WHERE user_id = $2 AND referred_by IS NULL",
		referrerID, userID,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ClearShortlink drops the outstanding shortlink, but only while the given
// correlation ID is still the current one. The winner of a concurrent
// double-check gets true and is the only caller allowed to credit.
func (r *PostgresRepository) ClearShortlink(ctx context.Context, userID, correlationID string) (bool, error) {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE accounts SET last_shortlink = NULL, last_correlation = NULL
		 WHERE user_id = $1 AND last_correlation = $2`,
		userID, correlationID,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// DebitBalance subtracts amount from the balance only when the balance
// covers it, so concurrent withdrawal attempts cannot push it negative.
func (r *PostgresRepository) DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	result, err := r.db.ExecContext(
		ctx,
		"UPDATE accounts SET balance = balance - $1 WHERE user_id = $2 AND balance >= $1",
		amount, userID,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ClaimChannel adds channelID to the user's claimed set and reports whether
// this was the first claim. Repeat claims are no-ops.
func (r *PostgresRepository) ClaimChannel(ctx context.Context, userID, channelID string) (bool, error) {
	result, err := r.db.ExecContext(
		ctx,
		"INSERT INTO claimed_channels (user_id, channel_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, channelID,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// GetLanguage is a read-only projection; it returns an empty string when the
// account does not exist or no language was chosen, and never creates a row.
func (r *PostgresRepository) GetLanguage(ctx context.Context, userID string) (string, error) {
	var language string
	err := r.db.QueryRowContext(
		ctx,
		"SELECT language FROM accounts WHERE user_id = $1",
		userID,
	).Scan(&language)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return language, nil
}

// SetLanguage stores the user's explicit language choice. The upsert keeps
// the operation idempotent even before the first /start created the account.
func (r *PostgresRepository) SetLanguage(ctx context.Context, userID, language string) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO accounts (user_id, language) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET language = $2`,
		userID, language,
	)
	return err
}

// Withdrawal request methods

const withdrawalColumns = `id, user_id, amount_points, amount_rupees, method, details,
	status, COALESCE(reject_reason, ''), COALESCE(admin_message_id, 0), created_at`

func scanWithdrawal(scan func(...interface{}) error) (*models.WithdrawalRequest, error) {
	w := &models.WithdrawalRequest{}
	err := scan(
		&w.ID,
		&w.UserID,
		&w.AmountPoints,
		&w.AmountRupees,
		&w.Method,
		&w.Details,
		&w.Status,
		&w.RejectReason,
		&w.AdminMessageID,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateWithdrawal inserts a new pending request and returns its ID. The
// amounts are fixed at creation and never updated afterwards.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, userID string, points, rupees decimal.Decimal, method, details string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO withdrawals (id, user_id, amount_points, amount_rupees, method, details, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, userID, points, rupees, method, details, models.StatusPending,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetWithdrawal fetches a withdrawal request by ID
func (r *PostgresRepository) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT "+withdrawalColumns+" FROM withdrawals WHERE id = $1",
		id,
	)

	w, err := scanWithdrawal(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return w, nil
}

// UpdateWithdrawalStatus transitions a request through the status state
// machine and returns the previous status. The row is locked for the check
// so concurrent admin actions cannot both apply; an edge outside the state
// machine fails without changing anything. reason is stored only for
// rejected.
func (r *PostgresRepository) UpdateWithdrawalStatus(ctx context.Context, id string, status models.WithdrawalStatus, reason string) (models.WithdrawalStatus, error) {
	if !models.ValidStatus(status) {
		return "", fmt.Errorf("unknown withdrawal status %q", status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var previous models.WithdrawalStatus
	err = tx.QueryRowContext(
		ctx,
		"SELECT status FROM withdrawals WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrWithdrawalNotFound
		}
		return "", err
	}

	if err := models.ValidateTransition(previous, status); err != nil {
		return "", err
	}

	if status != models.StatusRejected {
		reason = ""
	} else if reason == "" {
		return "", errors.New("a reason is required to reject a withdrawal")
	}

	_, err = tx.ExecContext(
		ctx,
		"UPDATE withdrawals SET status = $1, reject_reason = NULLIF($2, '') WHERE id = $3",
		status, reason, id,
	)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return previous, nil
}

// RecordAdminMessageRef attaches the admin-channel notification message to a
// request so later moderation can edit it in place.
func (r *PostgresRepository) RecordAdminMessageRef(ctx context.Context, id string, messageID int64) error {
	result, err := r.db.ExecContext(
		ctx,
		"UPDATE withdrawals SET admin_message_id = $1 WHERE id = $2",
		messageID, id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrWithdrawalNotFound
	}
	return nil
}

// PendingUnnotified returns pending requests whose admin notification has
// not been posted yet, oldest first.
func (r *PostgresRepository) PendingUnnotified(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+withdrawalColumns+`
		 FROM withdrawals
		 WHERE status = $1 AND admin_message_id IS NULL
		 ORDER BY created_at ASC
		 LIMIT $2`,
		models.StatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// ListWithdrawals returns requests newest first, optionally filtered by
// status (empty status means all).
func (r *PostgresRepository) ListWithdrawals(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+withdrawalColumns+`
		 FROM withdrawals
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

func collectWithdrawals(rows *sql.Rows) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
