package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"dealer-desk-go/internal/models"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

var ErrSubscriptionNotFound = errors.New("subscription not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates tables if they don't exist and applies schema updates
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}

	// Apply migrations for existing tables
	migrations := []string{
		`ALTER TABLE push_subscriptions ADD COLUMN IF NOT EXISTS device_type VARCHAR(32) NOT NULL DEFAULT 'desktop';`,
		`ALTER TABLE push_subscriptions ADD COLUMN IF NOT EXISTS user_agent TEXT NOT NULL DEFAULT '';`,
		`ALTER TABLE push_subscriptions ADD COLUMN IF NOT EXISTS last_used_at TIMESTAMP WITH TIME ZONE DEFAULT NOW();`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SaveSubscription registers or reactivates a subscription. A row that was
// previously deactivated (dead endpoint, explicit unsubscribe) is flipped back
// to active with fresh key material rather than inserted again, so repeated
// registration of the same endpoint is idempotent.
func (s *PostgresStore) SaveSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`UPDATE push_subscriptions
		 SET p256dh = $3, auth = $4, device_type = $5, user_agent = $6,
		     is_active = TRUE, last_used_at = NOW()
		 WHERE id = (
		     SELECT id FROM push_subscriptions
		     WHERE user_id = $1 AND endpoint = $2
		     ORDER BY created_at DESC, id DESC
		     LIMIT 1
		 )
		 RETURNING id`,
		sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.DeviceType, sub.UserAgent,
	).Scan(&id)

	if err == sql.ErrNoRows {
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, device_type, user_agent, is_active, created_at, last_used_at)
			 VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
			 RETURNING id`,
			sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.DeviceType, sub.UserAgent,
		).Scan(&id)
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, id int) (models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, device_type, user_agent, is_active, created_at, last_used_at
		 FROM push_subscriptions WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth,
		&sub.DeviceType, &sub.UserAgent, &sub.IsActive, &sub.CreatedAt, &sub.LastUsedAt)

	if err == sql.ErrNoRows {
		return models.Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return models.Subscription{}, err
	}

	return sub, nil
}

func (s *PostgresStore) GetActiveSubscriptions(ctx context.Context, userID int) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, device_type, user_agent, is_active, created_at, last_used_at
		 FROM push_subscriptions
		 WHERE user_id = $1 AND is_active
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth,
			&sub.DeviceType, &sub.UserAgent, &sub.IsActive, &sub.CreatedAt, &sub.LastUsedAt); err != nil {
			continue
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (s *PostgresStore) DeactivateSubscription(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET is_active = FALSE WHERE id = $1`,
		id,
	)
	return err
}

func (s *PostgresStore) DeactivateByEndpoint(ctx context.Context, userID int, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET is_active = FALSE WHERE user_id = $1 AND endpoint = $2`,
		userID, endpoint,
	)
	return err
}

func (s *PostgresStore) TouchSubscription(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET last_used_at = NOW() WHERE id = $1`,
		id,
	)
	return err
}

func (s *PostgresStore) CountActiveSubscriptions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM push_subscriptions WHERE is_active`,
	).Scan(&n)
	return n, err
}

// CollapseDuplicates deactivates every active row that shares (user_id,
// endpoint) with a more recently created active row. Returns the number of
// rows deactivated.
func (s *PostgresStore) CollapseDuplicates(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions p
		 SET is_active = FALSE
		 WHERE p.is_active AND EXISTS (
		     SELECT 1 FROM push_subscriptions q
		     WHERE q.user_id = p.user_id
		       AND q.endpoint = p.endpoint
		       AND q.is_active
		       AND (q.created_at > p.created_at OR (q.created_at = p.created_at AND q.id > p.id))
		 )`,
	)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// PurgeDeadDuplicates hard-deletes inactive duplicate rows that have been
// dead for over 30 days. The surviving row per (user_id, endpoint) is kept so
// re-registration of an old endpoint stays idempotent.
func (s *PostgresStore) PurgeDeadDuplicates(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions p
		 WHERE NOT p.is_active
		   AND p.last_used_at < NOW() - INTERVAL '30 days'
		   AND EXISTS (
		       SELECT 1 FROM push_subscriptions q
		       WHERE q.user_id = p.user_id
		         AND q.endpoint = p.endpoint
		         AND q.id > p.id
		   )`,
	)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
