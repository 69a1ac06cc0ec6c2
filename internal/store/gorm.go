package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/karkinos-edge/authserver/types"
	"gorm.io/gorm"
)

// accountRecord is the gorm model of the accounts table. The username column
// uses a binary collation so uniqueness stays case-sensitive on MySQL.
type accountRecord struct {
	ID           string    `gorm:"primaryKey;type:char(36)"`
	Username     string    `gorm:"type:varchar(191) COLLATE utf8mb4_bin;uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (accountRecord) TableName() string { return "accounts" }

type profileRecord struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	Firstname string `gorm:"type:varchar(255);not null;default:''"`
	Lastname  string `gorm:"type:varchar(255);not null;default:''"`
	Email     string `gorm:"type:varchar(255);not null;default:''"`
	PhoneNo   string `gorm:"type:varchar(64);not null;default:''"`
	Username  string `gorm:"type:varchar(191);not null"`
	AccountID string `gorm:"type:char(36);index;not null"`
	CreatedAt time.Time
}

func (profileRecord) TableName() string { return "profiles" }

// GormStore persists accounts and profiles through gorm (MySQL).
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: utcNow}
}

// AutoMigrate creates or updates the accounts and profiles tables.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&accountRecord{}, &profileRecord{})
}

func (s *GormStore) FindAccountByUsername(ctx context.Context, username string) (types.Account, error) {
	var rec accountRecord
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return rec.toAccount(), nil
}

func (s *GormStore) CreateAccount(ctx context.Context, username, passwordHash string) (types.Account, error) {
	now := s.now()
	rec := accountRecord{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.Account{}, ErrConflict
		}
		return types.Account{}, err
	}
	return rec.toAccount(), nil
}

func (s *GormStore) CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error) {
	rec := profileRecord{
		ID:        uuid.NewString(),
		Firstname: profile.Firstname,
		Lastname:  profile.Lastname,
		Email:     profile.Email,
		PhoneNo:   profile.PhoneNo,
		Username:  profile.Username,
		AccountID: profile.AccountID,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return types.Profile{}, err
	}
	profile.ID = rec.ID
	profile.CreatedAt = rec.CreatedAt
	return profile, nil
}

func (s *GormStore) UpdateAccountPassword(ctx context.Context, accountID, passwordHash string) error {
	result := s.db.WithContext(ctx).
		Model(&accountRecord{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    s.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r accountRecord) toAccount() types.Account {
	return types.Account{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
