package sql

import (
	"github.com/davidwuwu001/vmail/internal/domain"
)

// ========== Email Repository ==========

// SaveEmail 保存邮件。
func (s *Store) SaveEmail(email *domain.Email) error {
	query := s.rebind(`
		INSERT INTO emails (id, mailbox_id, message_to, message_from, from_name, subject, text, html, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		email.ID,
		email.MailboxID,
		email.MessageTo,
		email.MessageFrom,
		email.FromName,
		email.Subject,
		email.Text,
		email.HTML,
		email.CreatedAt,
	)
	return err
}

// ListEmails 按创建时间倒序返回邮箱下的全部邮件。
func (s *Store) ListEmails(mailboxID string) ([]domain.Email, error) {
	query := s.rebind(`
		SELECT id, mailbox_id, message_to, message_from, from_name, subject, text, html, created_at
		FROM emails
		WHERE mailbox_id = ?
		ORDER BY created_at DESC
	`)
	rows, err := s.db.Query(query, mailboxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Email, 0)
	for rows.Next() {
		var e domain.Email
		if err := rows.Scan(
			&e.ID,
			&e.MailboxID,
			&e.MessageTo,
			&e.MessageFrom,
			&e.FromName,
			&e.Subject,
			&e.Text,
			&e.HTML,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// DeleteEmails 按 ID 集合批量删除邮件，返回删除数量。
func (s *Store) DeleteEmails(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := s.rebind(`DELETE FROM emails WHERE id IN (` + placeholders(len(ids)) + `)`)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
