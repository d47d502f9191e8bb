// Package backup uploads encrypted snapshots of the database to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
)

var (
	ErrDisabled = errors.New("backup storage not configured")
	ErrNotFound = errors.New("backup not found")
)

// objectStore is the part of the S3 client the manager uses.
type objectStore interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config describes the bucket and the backup schedule.
type Config struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Prefix     string
	Passphrase string
	Interval   time.Duration
	Retention  time.Duration
}

// Enabled reports whether enough is configured to upload backups.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != "" && c.Passphrase != ""
}

// Manager takes, uploads, prunes and restores backups. Runs are serialised.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	db      *sql.DB
	records *store.BackupStore
	client  objectStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(cfg Config, db *sql.DB, records *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		records: records,
		logger:  logger.With("component", "backup"),
		now:     time.Now,
	}
	if cfg.Enabled() {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Run snapshots the database, encrypts the snapshot and uploads it. The
// attempt is recorded whether or not it succeeds.
func (m *Manager) Run(ctx context.Context) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	started := m.now().UTC()
	key := path.Join(m.cfg.Prefix, "ministryx-"+started.Format("20060102T150405Z")+".db.enc")
	record, err := m.records.Create(key, started)
	if err != nil {
		return nil, err
	}

	size, err := m.upload(ctx, record.ID, key)
	if err != nil {
		if markErr := m.records.MarkFailed(record.ID, err.Error()); markErr != nil {
			m.logger.Error("record failed backup", "backup_id", record.ID, "error", markErr)
		}
		m.logger.Error("backup failed", "backup_id", record.ID, "key", key, "error", err)
		return nil, err
	}

	if err := m.records.MarkCompleted(record.ID, size, m.now()); err != nil {
		return nil, err
	}
	m.logger.Info("backup uploaded", "backup_id", record.ID, "key", key, "bytes", size, "took", m.now().Sub(started))
	return m.records.GetByID(record.ID)
}

func (m *Manager) upload(ctx context.Context, id int64, key string) (int64, error) {
	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	if err := m.records.MarkUploading(id); err != nil {
		return 0, err
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

// snapshot copies the live database with VACUUM INTO, which is consistent
// while other connections keep writing.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "ministryx-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Restore downloads backup id, decrypts it, checks it is an intact SQLite
// database and writes it to dst. An existing dst is never overwritten; stop
// the server and move the restored file into place by hand.
func (m *Manager) Restore(ctx context.Context, id int64, dst string) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("restore target %s already exists", dst)
	}

	record, err := m.records.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read download: %w", err)
	}
	plaintext, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".partial"
	if err := os.WriteFile(tmp, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move restored database: %w", err)
	}
	m.logger.Info("backup restored", "backup_id", id, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open restored database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period, both the
// records and the uploaded objects. It returns how many objects it removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if !m.Enabled() || m.cfg.Retention <= 0 {
		return 0, nil
	}
	keys, err := m.records.DeleteOlderThan(m.now().Add(-m.cfg.Retention))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete expired backup object", "key", key, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("expired backups removed", "count", removed)
	}
	return removed, nil
}

// Schedule runs a backup and a cleanup every configured interval until ctx
// is done. It returns at once when backups are not configured.
func (m *Manager) Schedule(ctx context.Context) {
	if !m.Enabled() || m.cfg.Interval <= 0 {
		m.logger.Info("scheduled backups disabled")
		return
	}
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Run logs its own failures.
			m.Run(ctx)
			if _, err := m.Cleanup(ctx); err != nil {
				m.logger.Error("backup cleanup", "error", err)
			}
		}
	}
}
