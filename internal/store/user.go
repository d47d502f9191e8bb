package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/ministryx/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var enabled int
	err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TOTPSecret, &enabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.TOTPEnabled = enabled != 0
	return &u, nil
}

const userCols = `id, username, password_hash, totp_secret, totp_enabled, created_at, updated_at`

// Create stores a new user with a bcrypt hash of password.
func (s *UserStore) Create(username, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	result, err := s.db.Exec(
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when the password matches, nil otherwise.
func (s *UserStore) Authenticate(username, password string) (*model.User, error) {
	u, err := s.GetByUsername(username)
	if err != nil || u == nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return u, nil
}

// SetPendingTOTP stores a freshly generated secret and disables two-factor
// until the user confirms a code generated from it.
func (s *UserStore) SetPendingTOTP(id int64, secret string) error {
	_, err := s.db.Exec(`UPDATE users SET totp_secret = ?, totp_enabled = 0 WHERE id = ?`, secret, id)
	if err != nil {
		return fmt.Errorf("set pending totp: %w", err)
	}
	return nil
}

func (s *UserStore) EnableTOTP(id int64) error {
	_, err := s.db.Exec(`UPDATE users SET totp_enabled = 1 WHERE id = ? AND totp_secret != ''`, id)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

func (s *UserStore) DisableTOTP(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE users SET totp_secret = '', totp_enabled = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("disable totp: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM recovery_codes WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete recovery codes: %w", err)
	}
	return tx.Commit()
}

// ReplaceRecoveryCodes hashes codes and swaps them in for any existing ones.
func (s *UserStore) ReplaceRecoveryCodes(userID int64, codes []string) error {
	hashes := make([]string, 0, len(codes))
	for _, c := range codes {
		h, err := bcrypt.GenerateFromPassword([]byte(c), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash recovery code: %w", err)
		}
		hashes = append(hashes, string(h))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recovery_codes WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete recovery codes: %w", err)
	}
	for _, h := range hashes {
		if _, err := tx.Exec(`INSERT INTO recovery_codes (user_id, code_hash) VALUES (?, ?)`, userID, h); err != nil {
			return fmt.Errorf("insert recovery code: %w", err)
		}
	}
	return tx.Commit()
}

// UseRecoveryCode marks the matching unused code as used. It reports
// whether a code matched.
func (s *UserStore) UseRecoveryCode(userID int64, code string) (bool, error) {
	rows, err := s.db.Query(`SELECT id, code_hash FROM recovery_codes WHERE user_id = ? AND used_at IS NULL`, userID)
	if err != nil {
		return false, fmt.Errorf("query recovery codes: %w", err)
	}
	var matched int64
	for rows.Next() {
		var id int64
		var hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan recovery code: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			matched = id
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate recovery codes: %w", err)
	}
	if matched == 0 {
		return false, nil
	}

	if _, err := s.db.Exec(`UPDATE recovery_codes SET used_at = ? WHERE id = ?`, time.Now().UTC(), matched); err != nil {
		return false, fmt.Errorf("mark recovery code used: %w", err)
	}
	return true, nil
}

func (s *UserStore) CountUnusedRecoveryCodes(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM recovery_codes WHERE user_id = ? AND used_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recovery codes: %w", err)
	}
	return n, nil
}
