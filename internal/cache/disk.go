package cache

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hilmishah-img/usms/internal/common/errors"
)

const databaseFile = "cache.db"

// DiskConfig configures a DiskTier
type DiskConfig struct {
	// Directory holds the database file and its WAL side files
	Directory            string
	SizeLimit            int64
	CompressionThreshold int
	OpTimeout            time.Duration
	Now                  func() time.Time
}

// DiskTier is the SQLite-backed persistent tier
type DiskTier struct {
	db        *sql.DB
	path      string
	sizeLimit int64
	threshold int
	timeout   time.Duration
	now       func() time.Time

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	// mu is held for reading by every operation and for writing by Close
	mu     sync.RWMutex
	closed bool
}

// OpenDiskTier opens or creates the database under cfg.Directory
func OpenDiskTier(cfg DiskConfig) (*DiskTier, error) {
	if cfg.Directory == "" {
		return nil, errors.ConfigError("disk tier directory is required")
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, errors.StorageError("failed to create cache directory", err).
			WithContext("directory", cfg.Directory)
	}

	path := filepath.Join(cfg.Directory, databaseFile)
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		path, cfg.OpTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.StorageError("failed to open cache database", err)
	}
	// One connection serialises writers.
	db.SetMaxOpenConns(1)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, errors.InternalError("failed to create zstd encoder", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, errors.InternalError("failed to create zstd decoder", err)
	}

	d := &DiskTier{
		db:        db,
		path:      path,
		sizeLimit: cfg.SizeLimit,
		threshold: cfg.CompressionThreshold,
		timeout:   cfg.OpTimeout,
		now:       cfg.Now,
		encoder:   encoder,
		decoder:   decoder,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		d.release()
		return nil, errors.StorageError("failed to ping cache database", err)
	}

	if err := d.migrate(ctx); err != nil {
		d.release()
		return nil, err
	}

	return d, nil
}

// Path returns the database file location
func (d *DiskTier) Path() string {
	return d.path
}

func (d *DiskTier) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			size INTEGER NOT NULL,
			compressed INTEGER NOT NULL DEFAULT 0,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_stored_at ON entries(stored_at)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_expires_at ON entries(expires_at)`,
	}

	for _, query := range queries {
		if _, err := d.db.ExecContext(ctx, query); err != nil {
			return errors.StorageError("failed to migrate cache database", err)
		}
	}
	return nil
}

// begin guards an operation against a concurrent Close and bounds it with the
// operation timeout. The returned func must be called when the operation ends.
func (d *DiskTier) begin(ctx context.Context) (context.Context, func(), error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, nil, errors.StorageError("disk tier is closed", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	return ctx, func() {
		cancel()
		d.mu.RUnlock()
	}, nil
}

// wrap converts driver errors into the cache error taxonomy
func (d *DiskTier) wrap(op, key string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError(op).WithContext("key", key)
	}
	appErr := errors.StorageError(op+" failed", err)
	if key != "" {
		appErr.WithContext("key", key)
	}
	return appErr
}

// Get reads key, deleting it when expired or corrupt
func (d *DiskTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer done()

	var (
		value      []byte
		compressed bool
		expiresAt  sql.NullInt64
	)
	err = d.db.QueryRowContext(ctx,
		`SELECT value, compressed, expires_at FROM entries WHERE key = ?`, key,
	).Scan(&value, &compressed, &expiresAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, d.wrap("disk get", key, err)
	}

	if expiresAt.Valid && d.now().UnixNano() > expiresAt.Int64 {
		// Match expires_at so a concurrent re-set of the key survives.
		if _, err := d.db.ExecContext(ctx,
			`DELETE FROM entries WHERE key = ? AND expires_at = ?`, key, expiresAt.Int64,
		); err != nil {
			return nil, false, d.wrap("disk expire", key, err)
		}
		return nil, false, nil
	}

	if !compressed {
		return value, true, nil
	}

	data, err := d.decoder.DecodeAll(value, nil)
	if err != nil {
		if _, delErr := d.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); delErr != nil {
			return nil, false, d.wrap("disk delete corrupt entry", key, delErr)
		}
		return nil, false, errors.StorageError("corrupt cache payload", err).WithContext("key", key)
	}
	return data, true, nil
}

// Set upserts key, compressing payloads above the threshold when that helps
func (d *DiskTier) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	value := data
	compressed := false
	if d.threshold >= 0 && len(data) > d.threshold {
		if encoded := d.encoder.EncodeAll(data, nil); len(encoded) < len(data) {
			value = encoded
			compressed = true
		}
	}

	now := d.now()
	var expiresAt sql.NullInt64
	if deadline := expiry(now, ttl); !deadline.IsZero() {
		expiresAt = sql.NullInt64{Int64: deadline.UnixNano(), Valid: true}
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, size, compressed, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			size = excluded.size,
			compressed = excluded.compressed,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		key, value, len(value), compressed, now.UnixNano(), expiresAt,
	)
	if err != nil {
		return d.wrap("disk set", key, err)
	}
	return nil
}

// Delete removes key; an expired leftover is removed but not counted
func (d *DiskTier) Delete(ctx context.Context, key string) (bool, error) {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return false, err
	}
	defer done()

	res, err := d.db.ExecContext(ctx,
		`DELETE FROM entries WHERE key = ? AND (expires_at IS NULL OR expires_at >= ?)`,
		key, d.now().UnixNano(),
	)
	if err != nil {
		return false, d.wrap("disk delete", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, d.wrap("disk delete", key, err)
	}

	if affected == 0 {
		if _, err := d.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
			return false, d.wrap("disk delete", key, err)
		}
	}
	return affected > 0, nil
}

// Keys lists every stored key
func (d *DiskTier) Keys(ctx context.Context) ([]string, error) {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := d.db.QueryContext(ctx, `SELECT key FROM entries`)
	if err != nil {
		return nil, d.wrap("disk keys", "", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, d.wrap("disk keys", "", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, d.wrap("disk keys", "", err)
	}
	return keys, nil
}

// Len counts rows that have not expired
func (d *DiskTier) Len(ctx context.Context) (int, error) {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	var count int
	err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE expires_at IS NULL OR expires_at >= ?`,
		d.now().UnixNano(),
	).Scan(&count)
	if err != nil {
		return 0, d.wrap("disk len", "", err)
	}
	return count, nil
}

// Bytes sums the stored payload sizes after compression
func (d *DiskTier) Bytes(ctx context.Context) (int64, error) {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	var total int64
	if err := d.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM entries`).Scan(&total); err != nil {
		return 0, d.wrap("disk bytes", "", err)
	}
	return total, nil
}

// Clear removes every row
func (d *DiskTier) Clear(ctx context.Context) error {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := d.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return d.wrap("disk clear", "", err)
	}
	return nil
}

// Cull removes expired rows, then the oldest rows until the size limit holds
func (d *DiskTier) Cull(ctx context.Context) (int, error) {
	ctx, done, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, d.wrap("disk cull", "", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE expires_at IS NOT NULL AND expires_at < ?`,
		d.now().UnixNano(),
	)
	if err != nil {
		return 0, d.wrap("disk cull", "", err)
	}
	expired, err := res.RowsAffected()
	if err != nil {
		return 0, d.wrap("disk cull", "", err)
	}

	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM entries`).Scan(&total); err != nil {
		return 0, d.wrap("disk cull", "", err)
	}

	var victims []string
	if total > d.sizeLimit {
		rows, err := tx.QueryContext(ctx, `SELECT key, size FROM entries ORDER BY stored_at ASC, key ASC`)
		if err != nil {
			return 0, d.wrap("disk cull", "", err)
		}
		for total > d.sizeLimit && rows.Next() {
			var (
				key  string
				size int64
			)
			if err := rows.Scan(&key, &size); err != nil {
				rows.Close()
				return 0, d.wrap("disk cull", "", err)
			}
			victims = append(victims, key)
			total -= size
		}
		rows.Close()
	}

	for _, key := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
			return 0, d.wrap("disk cull", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, d.wrap("disk cull", "", err)
	}
	return int(expired) + len(victims), nil
}

// Close releases the database. Calling it more than once is a no-op.
func (d *DiskTier) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.release()
}

func (d *DiskTier) release() error {
	d.encoder.Close()
	d.decoder.Close()
	if err := d.db.Close(); err != nil {
		return errors.StorageError("failed to close cache database", err)
	}
	return nil
}
