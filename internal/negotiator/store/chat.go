package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ChatRoom groups the messages of one negotiation run, or of a standalone
// company chat when no lead is attached.
type ChatRoom struct {
	ID        string
	LeadID    sql.NullInt64
	CreatedAt time.Time
}

// ChatMessage is one persisted turn. FromCompanyID is zero for assistant
// replies that speak for no company.
type ChatMessage struct {
	ID            int64     `json:"id"`
	RoomID        string    `json:"room_id"`
	FromCompanyID int64     `json:"from_company_id"`
	ToCompanyID   int64     `json:"to_company_id"`
	Contents      string    `json:"contents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateChatRoom inserts a room with the given ID for a lead.
func (s *Store) CreateChatRoom(ctx context.Context, id string, leadID int64) (*ChatRoom, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_rooms (id, lead_id, created_at)
		VALUES (?, ?, ?)
	`, id, leadID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat room: %w", err)
	}
	return &ChatRoom{ID: id, LeadID: sql.NullInt64{Int64: leadID, Valid: true}, CreatedAt: now}, nil
}

// CreateStandaloneChatRoom inserts a room with no lead attached.
func (s *Store) CreateStandaloneChatRoom(ctx context.Context, id string) (*ChatRoom, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_rooms (id, created_at)
		VALUES (?, ?)
	`, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat room: %w", err)
	}
	return &ChatRoom{ID: id, CreatedAt: now}, nil
}

// GetChatRoom retrieves a room by ID. Returns ErrNotFound when absent.
func (s *Store) GetChatRoom(ctx context.Context, id string) (*ChatRoom, error) {
	var r ChatRoom
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lead_id, created_at FROM chat_rooms WHERE id = ?
	`, id).Scan(&r.ID, &r.LeadID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chat room %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat room: %w", err)
	}
	return &r, nil
}

// CreateChatMessage appends one turn to a room and returns the stored row.
func (s *Store) CreateChatMessage(ctx context.Context, roomID string, fromCompanyID, toCompanyID int64, contents string) (*ChatMessage, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (room_id, from_company_id, to_company_id, contents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, roomID, fromCompanyID, toCompanyID, contents, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat message id: %w", err)
	}
	return &ChatMessage{
		ID:            id,
		RoomID:        roomID,
		FromCompanyID: fromCompanyID,
		ToCompanyID:   toCompanyID,
		Contents:      contents,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CreateAgentChatMessage appends an assistant reply addressed to a company.
// The sender column is left NULL; the reply speaks for no company.
func (s *Store) CreateAgentChatMessage(ctx context.Context, roomID string, toCompanyID int64, contents string) (*ChatMessage, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (room_id, to_company_id, contents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, roomID, toCompanyID, contents, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat message id: %w", err)
	}
	return &ChatMessage{
		ID:          id,
		RoomID:      roomID,
		ToCompanyID: toCompanyID,
		Contents:    contents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ListChatMessages returns all messages in a room in insertion order.
func (s *Store) ListChatMessages(ctx context.Context, roomID string) ([]*ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, from_company_id, to_company_id, contents, created_at, updated_at
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		var from sql.NullInt64
		if err := rows.Scan(&m.ID, &m.RoomID, &from, &m.ToCompanyID, &m.Contents, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.FromCompanyID = from.Int64
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	return messages, nil
}
