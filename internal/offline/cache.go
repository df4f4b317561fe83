package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// StoreCacheData writes a cache entry with a per-entry TTL, replacing any
// previous entry under the same key.
func (q *Queue) StoreCacheData(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, timestamp, expires)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data,
		     timestamp = excluded.timestamp, expires = excluded.expires`,
		key, []byte(data), now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	return err
}

// GetCacheData returns the entry for key, or nil on a miss. An entry past its
// expiry is a miss even though the row is still physically present; eviction
// is lazy and read-triggered, which is fine for non-authoritative derived
// data. The expired row stays until overwritten.
func (q *Queue) GetCacheData(ctx context.Context, key string) (json.RawMessage, error) {
	var data []byte
	var expires int64
	err := q.db.QueryRowContext(ctx,
		`SELECT data, expires FROM cache_entries WHERE key = ?`, key,
	).Scan(&data, &expires)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if time.Now().UnixMilli() >= expires {
		return nil, nil
	}

	return json.RawMessage(data), nil
}
