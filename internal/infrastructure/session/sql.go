package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/portal/internal/domain/identity"
)

// SessionModel is the persisted row of a session.
type SessionModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	SessionKey string    `gorm:"column:session_key;size:64;not null"`
	Payload    string    `gorm:"type:text;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (SessionModel) TableName() string {
	return "portal_sessions"
}

// SQLStore keeps sessions in a SQL table through GORM.
type SQLStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

var _ identity.SessionStore = (*SQLStore)(nil)

// NewSQLStore migrates the session table and returns the store.
func NewSQLStore(db *gorm.DB, ttl time.Duration) (*SQLStore, error) {
	if err := db.AutoMigrate(&SessionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session table: %w", err)
	}
	return &SQLStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Save implements identity.SessionStore
func (s *SQLStore) Save(ctx context.Context, sessionID string, user identity.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}
	row := SessionModel{
		ID:         sessionID,
		SessionKey: identity.SessionKey,
		Payload:    string(payload),
		ExpiresAt:  s.now().Add(s.ttl),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load implements identity.SessionStore
func (s *SQLStore) Load(ctx context.Context, sessionID string) (identity.User, error) {
	var row SessionModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND session_key = ? AND expires_at > ?", sessionID, identity.SessionKey, s.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return identity.User{}, identity.ErrSessionNotFound
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("failed to load session: %w", err)
	}
	var user identity.User
	if err := json.Unmarshal([]byte(row.Payload), &user); err != nil {
		return identity.User{}, fmt.Errorf("failed to decode session user: %w", err)
	}
	return user, nil
}

// Delete implements identity.SessionStore
func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired rows and returns how many were deleted.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&SessionModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
