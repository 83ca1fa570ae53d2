package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/store"
)

// SaveScan persists a scan and every profile and message in it as a new
// snapshot. It returns the snapshot's row ID.
func (s *DB) SaveScan(ctx context.Context, scan *domain.ScanResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (scan_date, total_messages, query) VALUES (?, ?, ?)`,
		scan.ScanDate.UTC().Format(time.RFC3339Nano), scan.TotalMessages, scan.Query,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan id: %w", err)
	}

	senderStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO senders (scan_id, email, name, message_count, score, sample_subjects)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sender insert: %w", err)
	}
	defer senderStmt.Close()

	msgStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (scan_id, id, position, sender_email, sender_raw, subject,
			labels, has_list_unsubscribe, precedence, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer msgStmt.Close()

	position := 0
	for email, p := range scan.Senders {
		subjects, err := json.Marshal(nonNil(p.SampleSubjects))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal sample subjects: %w", err)
		}
		if _, err := senderStmt.ExecContext(ctx, scanID, email, p.Name, p.MessageCount, p.Score, string(subjects)); err != nil {
			return 0, fmt.Errorf("failed to insert sender %s: %w", email, err)
		}

		for _, m := range p.Messages {
			labels, err := json.Marshal(nonNil(m.Labels))
			if err != nil {
				return 0, fmt.Errorf("failed to marshal labels: %w", err)
			}
			if _, err := msgStmt.ExecContext(ctx, scanID, m.ID, position, email, m.SenderRaw, m.Subject,
				string(labels), m.HasListUnsubscribe, m.Precedence, m.Date); err != nil {
				return 0, fmt.Errorf("failed to insert message %s: %w", m.ID, err)
			}
			position++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan: %w", err)
	}
	return scanID, nil
}

// LoadLatestScan reconstructs the most recently saved snapshot.
func (s *DB) LoadLatestScan(ctx context.Context) (*domain.ScanResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scan_date, total_messages, query FROM scans ORDER BY id DESC LIMIT 1`)
	return s.loadScan(ctx, row)
}

// LoadLatestScanForQuery reconstructs the most recent snapshot whose query
// equals query exactly.
func (s *DB) LoadLatestScanForQuery(ctx context.Context, query string) (*domain.ScanResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scan_date, total_messages, query FROM scans WHERE query = ? ORDER BY id DESC LIMIT 1`, query)
	return s.loadScan(ctx, row)
}

func (s *DB) loadScan(ctx context.Context, row *sql.Row) (*domain.ScanResult, error) {
	var (
		scanID  int64
		dateStr string
		scan    domain.ScanResult
	)
	err := row.Scan(&scanID, &dateStr, &scan.TotalMessages, &scan.Query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}
	scan.ScanDate, err = time.Parse(time.RFC3339Nano, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scan date: %w", err)
	}

	senders, err := s.loadSenders(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, scanID, senders); err != nil {
		return nil, err
	}

	scan.Senders = make(map[string]domain.SenderProfile, len(senders))
	for email, p := range senders {
		scan.Senders[email] = *p
	}
	return &scan, nil
}

func (s *DB) loadSenders(ctx context.Context, scanID int64) (map[string]*domain.SenderProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, message_count, score, sample_subjects FROM senders WHERE scan_id = ?`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query senders: %w", err)
	}
	defer rows.Close()

	senders := make(map[string]*domain.SenderProfile)
	for rows.Next() {
		var (
			p        domain.SenderProfile
			subjects string
		)
		if err := rows.Scan(&p.Email, &p.Name, &p.MessageCount, &p.Score, &subjects); err != nil {
			return nil, fmt.Errorf("failed to scan sender row: %w", err)
		}
		if err := json.Unmarshal([]byte(subjects), &p.SampleSubjects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample subjects for %s: %w", p.Email, err)
		}
		if len(p.SampleSubjects) == 0 {
			p.SampleSubjects = nil
		}
		senders[p.Email] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate senders: %w", err)
	}
	return senders, nil
}

func (s *DB) loadMessages(ctx context.Context, scanID int64, senders map[string]*domain.SenderProfile) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_email, sender_raw, subject, labels, has_list_unsubscribe, precedence, date
		FROM messages WHERE scan_id = ? ORDER BY position`, scanID)
	if err != nil {
		return fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      domain.MessageMeta
			labels string
		)
		if err := rows.Scan(&m.ID, &m.SenderEmail, &m.SenderRaw, &m.Subject, &labels,
			&m.HasListUnsubscribe, &m.Precedence, &m.Date); err != nil {
			return fmt.Errorf("failed to scan message row: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &m.Labels); err != nil {
			return fmt.Errorf("failed to unmarshal labels for %s: %w", m.ID, err)
		}
		if len(m.Labels) == 0 {
			m.Labels = nil
		}
		p, ok := senders[m.SenderEmail]
		if !ok {
			return fmt.Errorf("message %s references unknown sender %s", m.ID, m.SenderEmail)
		}
		p.Messages = append(p.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate messages: %w", err)
	}
	return nil
}

// MessageIDsForSender lists the IDs recorded for email in the most recent
// snapshot, in scan order. An unknown sender yields an empty list.
func (s *DB) MessageIDsForSender(ctx context.Context, email string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM messages
		WHERE scan_id = (SELECT MAX(id) FROM scans) AND sender_email = ?
		ORDER BY position`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query message ids for %s: %w", email, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message ids: %w", err)
	}
	return ids, nil
}

// Info reports cache statistics. Sender and message counts refer to the
// most recent snapshot.
func (s *DB) Info(ctx context.Context) (*store.Info, error) {
	info := &store.Info{Path: s.path}
	if s.path != ":memory:" {
		if fi, err := os.Stat(s.path); err == nil {
			info.SizeBytes = fi.Size()
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&info.Scans); err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	if info.Scans == 0 {
		return info, nil
	}

	var (
		scanID  int64
		dateStr string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scan_date, query FROM scans ORDER BY id DESC LIMIT 1`,
	).Scan(&scanID, &dateStr, &info.LastQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scan: %w", err)
	}
	if info.LastScan, err = time.Parse(time.RFC3339Nano, dateStr); err != nil {
		return nil, fmt.Errorf("failed to parse scan date: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM senders WHERE scan_id = ?`, scanID).Scan(&info.Senders); err != nil {
		return nil, fmt.Errorf("failed to count senders: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE scan_id = ?`, scanID).Scan(&info.Messages); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	return info, nil
}

// Clear deletes every snapshot.
func (s *DB) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"messages", "senders", "scans"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
