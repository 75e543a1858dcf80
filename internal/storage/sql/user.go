package sql

import (
	"database/sql"
	"errors"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
)

// ========== User Repository ==========

// CreateUser 创建新用户。
func (s *Store) CreateUser(user *domain.User) error {
	query := s.rebind(`
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateErr(err) {
			return storage.ErrUsernameExists
		}
		return err
	}
	return nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	query := s.rebind(`
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE id = ?
	`)
	return s.scanUser(s.db.QueryRow(query, id))
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	query := s.rebind(`
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE username = ?
	`)
	return s.scanUser(s.db.QueryRow(query, username))
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
