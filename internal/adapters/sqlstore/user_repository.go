package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atvirokodosprendimai/userkeys/internal/adapters/sqlstore/gormdb"
	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/ports"
)

type userModel struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string    `gorm:"column:username;not null"`
	Role      string    `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (userModel) TableName() string {
	return "users"
}

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Role:      domain.Role(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db *gormdb.DB
}

func NewUserRepository(db *gormdb.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var model userModel
	err := r.db.ReadTX(ctx, func(tx *gormdb.Tx) error {
		return tx.Where("username = ?", username).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return model.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var models []userModel
	err := r.db.ReadTX(ctx, func(tx *gormdb.Tx) error {
		return tx.Order("id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, m.toDomain())
	}
	return users, nil
}

// Upsert creates the user or updates the role of an existing user with the
// same username.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	if err := domain.ValidateUsername(user.Username); err != nil {
		return domain.User{}, err
	}
	if !user.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, user.Role)
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	model := userModel{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: createdAt,
	}

	var stored userModel
	err := r.db.WriteTX(ctx, func(tx *gormdb.Tx) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).Create(&model).Error; err != nil {
			return err
		}
		return tx.Where("username = ?", user.Username).First(&stored).Error
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return stored.toDomain(), nil
}
