package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionRow is a persisted session record.
type SessionRow struct {
	ID         string
	Countries  int
	CreatedAt  time.Time
	LastActive time.Time
}

// TranscriptLine is one recorded utterance.
type TranscriptLine struct {
	ID            int64
	SessionID     string
	MeetingNumber int
	Speaker       string
	Content       string
	CreatedAt     time.Time
}

// OutcomeRow is a persisted meeting outcome. Stat and relationship
// changes are stored as the JSON they arrived in.
type OutcomeRow struct {
	ID                  int64
	SessionID           string
	MeetingNumber       int
	Summary             string
	StatChanges         string
	RelationshipChanges string
	CreatedAt           time.Time
}

// CreateSession records a new session.
func (s *Store) CreateSession(id string, countries int) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, countries, created_at, last_active)
		VALUES (?, ?, ?, ?)
	`, id, countries, now, now)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// TouchSession bumps a session's last-active time.
func (s *Store) TouchSession(id string) error {
	_, err := s.db.Exec(`UPDATE sessions SET last_active = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

// DeleteSession removes a session and, via cascade, its transcript and
// outcome rows.
func (s *Store) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *Store) ListSessions() ([]*SessionRow, error) {
	rows, err := s.db.Query(`
		SELECT id, countries, created_at, last_active
		FROM sessions
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.Countries, &r.CreatedAt, &r.LastActive); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &r)
	}

	return sessions, rows.Err()
}

// AddTranscriptLine records one utterance of a meeting.
func (s *Store) AddTranscriptLine(sessionID string, meetingNumber int, speaker, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO transcript_lines (session_id, meeting_number, speaker, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, meetingNumber, speaker, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add transcript line: %w", err)
	}
	return nil
}

// TranscriptLines retrieves the transcript of one meeting in speaking order.
func (s *Store) TranscriptLines(sessionID string, meetingNumber int) ([]*TranscriptLine, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, meeting_number, speaker, content, created_at
		FROM transcript_lines
		WHERE session_id = ? AND meeting_number = ?
		ORDER BY id ASC
	`, sessionID, meetingNumber)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var lines []*TranscriptLine
	for rows.Next() {
		var l TranscriptLine
		if err := rows.Scan(&l.ID, &l.SessionID, &l.MeetingNumber, &l.Speaker, &l.Content, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript line: %w", err)
		}
		lines = append(lines, &l)
	}

	return lines, rows.Err()
}

// RecordOutcome persists a meeting outcome. The stat and relationship
// change values are marshaled to JSON for storage.
func (s *Store) RecordOutcome(sessionID string, meetingNumber int, summary string, statChanges, relationshipChanges any) error {
	stats, err := json.Marshal(statChanges)
	if err != nil {
		return fmt.Errorf("marshal stat changes: %w", err)
	}
	rels, err := json.Marshal(relationshipChanges)
	if err != nil {
		return fmt.Errorf("marshal relationship changes: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO meeting_outcomes (session_id, meeting_number, summary, stat_changes, relationship_changes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, meetingNumber, summary, string(stats), string(rels), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Outcomes retrieves all recorded outcomes for a session in meeting order.
func (s *Store) Outcomes(sessionID string) ([]*OutcomeRow, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, meeting_number, summary, stat_changes, relationship_changes, created_at
		FROM meeting_outcomes
		WHERE session_id = ?
		ORDER BY meeting_number ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*OutcomeRow
	for rows.Next() {
		var o OutcomeRow
		if err := rows.Scan(&o.ID, &o.SessionID, &o.MeetingNumber, &o.Summary, &o.StatChanges, &o.RelationshipChanges, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, &o)
	}

	return outcomes, rows.Err()
}
