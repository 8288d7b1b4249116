package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/spigell/interviewer/internal/interview"
)

type sessionRow struct {
	ID            string         `gorm:"primaryKey;size:64"`
	Stage         string         `gorm:"size:32;not null"`
	CandidateName string         `gorm:"size:191"`
	Position      string         `gorm:"size:191"`
	Payload       datatypes.JSON `gorm:"not null"`
	ExpiresAt     time.Time      `gorm:"index;not null"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

func (sessionRow) TableName() string {
	return "interview_sessions"
}

func sessionRowFrom(s interview.Session, expiresAt time.Time) (sessionRow, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return sessionRow{}, fmt.Errorf("encode session: %w", err)
	}
	return sessionRow{
		ID:            s.ID,
		Stage:         string(s.Stage),
		CandidateName: s.Candidate.Name,
		Position:      s.Candidate.Position,
		Payload:       datatypes.JSON(payload),
		ExpiresAt:     expiresAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, nil
}

func (r sessionRow) toSession() (interview.Session, error) {
	var s interview.Session
	if err := json.Unmarshal(r.Payload, &s); err != nil {
		return interview.Session{}, fmt.Errorf("decode session %s: %w", r.ID, err)
	}
	return s, nil
}

// GormStore persists sessions in sqlite or postgres, one row per session with
// the full session kept as a JSON payload.
type GormStore struct {
	db  *gorm.DB
	ttl time.Duration
	now clock
}

var _ Store = (*GormStore)(nil)

func NewGormStore(driver, dsn string, ttl time.Duration) (*GormStore, error) {
	gormDB, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open gorm store: %w", err)
	}

	store := &GormStore{db: gormDB, ttl: ttlOrDefault(ttl), now: utcNow}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return store, nil
}

func (s *GormStore) migrate() error {
	return s.db.AutoMigrate(&sessionRow{})
}

func (s *GormStore) Create(ctx context.Context, session interview.Session) error {
	row, err := sessionRowFrom(session, s.now().Add(s.ttl))
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", session.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if count > 0 {
		return ErrExists
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (interview.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return interview.Session{}, ErrNotFound
		}
		return interview.Session{}, fmt.Errorf("get session: %w", err)
	}

	if s.now().After(row.ExpiresAt) {
		return interview.Session{}, ErrExpired
	}
	return row.toSession()
}

func (s *GormStore) Update(ctx context.Context, session interview.Session) error {
	row, err := sessionRowFrom(session, s.now().Add(s.ttl))
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", session.ID).Updates(map[string]any{
		"stage":          row.Stage,
		"candidate_name": row.CandidateName,
		"position":       row.Position,
		"payload":        row.Payload,
		"expires_at":     row.ExpiresAt,
		"updated_at":     row.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionRow{})
	if res.Error != nil {
		return fmt.Errorf("delete session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) PurgeExpired(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&sessionRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
