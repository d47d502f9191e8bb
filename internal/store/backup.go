package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, object_key, status, size_bytes, error_message, started_at, completed_at`

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	var completedAt sql.NullTime
	if err := scanner.Scan(&b.ID, &b.ObjectKey, &b.Status, &b.SizeBytes, &b.ErrorMessage, &b.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

// Create records a pending backup that will be uploaded under objectKey.
func (s *BackupStore) Create(objectKey string, startedAt time.Time) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (object_key, status, started_at) VALUES (?, ?, ?)`,
		objectKey, model.BackupStatusPending, startedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get backup id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

// List returns the most recent backups first.
func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(`SELECT `+backupCols+` FROM backups ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) MarkUploading(id int64) error {
	_, err := s.db.Exec(`UPDATE backups SET status = ? WHERE id = ?`, model.BackupStatusUploading, id)
	if err != nil {
		return fmt.Errorf("mark backup %d uploading: %w", id, err)
	}
	return nil
}

func (s *BackupStore) MarkCompleted(id, sizeBytes int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark backup %d completed: %w", id, err)
	}
	return nil
}

func (s *BackupStore) MarkFailed(id int64, msg string) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, error_message = ? WHERE id = ?`,
		model.BackupStatusFailed, msg, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup %d failed: %w", id, err)
	}
	return nil
}

// DeleteOlderThan removes backup records started before the cutoff and
// returns the object keys of the completed ones so the caller can remove
// them from storage.
func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT object_key FROM backups WHERE started_at < ? AND status = ?`,
		before.UTC(), model.BackupStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("query old backups: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan backup key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate old backups: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM backups WHERE started_at < ?`, before.UTC()); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return keys, nil
}
