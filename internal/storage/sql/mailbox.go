package sql

import (
	"database/sql"
	"errors"
	"time"

	"github.com/davidwuwu001/vmail/internal/domain"
	"github.com/davidwuwu001/vmail/internal/storage"
)

// ========== Mailbox Repository ==========

// CreateMailbox 创建邮箱。地址唯一性由数据库唯一索引保证，
// 并发创建同一地址时恰好一个成功。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	query := s.rebind(`
		INSERT INTO mailboxes (id, user_id, address, local_part, domain, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		mailbox.ID,
		mailbox.UserID,
		mailbox.Address,
		mailbox.LocalPart,
		mailbox.Domain,
		mailbox.ExpiresAt,
		mailbox.CreatedAt,
		mailbox.UpdatedAt,
	)
	if err != nil {
		if isDuplicateErr(err) {
			return storage.ErrAddressExists
		}
		return err
	}
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	query := s.rebind(`
		SELECT id, user_id, address, local_part, domain, expires_at, created_at, updated_at
		FROM mailboxes
		WHERE id = ?
	`)
	return scanMailbox(s.db.QueryRow(query, id))
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	query := s.rebind(`
		SELECT id, user_id, address, local_part, domain, expires_at, created_at, updated_at
		FROM mailboxes
		WHERE address = ?
	`)
	return scanMailbox(s.db.QueryRow(query, address))
}

// ListMailboxesByUser 按创建时间倒序返回用户的全部邮箱。
func (s *Store) ListMailboxesByUser(userID string) ([]domain.Mailbox, error) {
	query := s.rebind(`
		SELECT id, user_id, address, local_part, domain, expires_at, created_at, updated_at
		FROM mailboxes
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Mailbox, 0)
	for rows.Next() {
		var mb domain.Mailbox
		var expiresAt sql.NullTime
		if err := rows.Scan(
			&mb.ID,
			&mb.UserID,
			&mb.Address,
			&mb.LocalPart,
			&mb.Domain,
			&expiresAt,
			&mb.CreatedAt,
			&mb.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			mb.ExpiresAt = &expiresAt.Time
		}
		result = append(result, mb)
	}
	return result, rows.Err()
}

// DeleteMailbox 在同一事务内级联删除邮箱及其全部邮件，
// 返回删除的邮箱数量（不存在时为 0）。
func (s *Store) DeleteMailbox(id string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`DELETE FROM emails WHERE mailbox_id = ?`), id); err != nil {
		return 0, err
	}
	res, err := tx.Exec(s.rebind(`DELETE FROM mailboxes WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(affected), nil
}

// DeleteExpiredMailboxes 级联删除所有 expires_at 早于 now 的邮箱，
// 返回删除的邮箱数量。
func (s *Store) DeleteExpiredMailboxes(now time.Time) (int, error) {
	rows, err := s.db.Query(
		s.rebind(`SELECT id FROM mailboxes WHERE expires_at IS NOT NULL AND expires_at < ?`),
		now,
	)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	in := placeholders(len(ids))
	if _, err := tx.Exec(s.rebind(`DELETE FROM emails WHERE mailbox_id IN (`+in+`)`), args...); err != nil {
		return 0, err
	}
	res, err := tx.Exec(s.rebind(`DELETE FROM mailboxes WHERE id IN (`+in+`)`), args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(affected), nil
}

func scanMailbox(row *sql.Row) (*domain.Mailbox, error) {
	var mb domain.Mailbox
	var expiresAt sql.NullTime
	err := row.Scan(
		&mb.ID,
		&mb.UserID,
		&mb.Address,
		&mb.LocalPart,
		&mb.Domain,
		&expiresAt,
		&mb.CreatedAt,
		&mb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMailboxNotFound
		}
		return nil, err
	}
	if expiresAt.Valid {
		mb.ExpiresAt = &expiresAt.Time
	}
	return &mb, nil
}
