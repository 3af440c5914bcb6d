package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Baaaki/yamdb/internal/models"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

// Update saves the profile columns. CodeNonce and the login timestamps are only
// ever written by ConsumeCode.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	err := r.db.WithContext(ctx).
		Model(account).
		Select("username", "email", "role", "is_superuser", "is_staff", "first_name", "last_name", "bio", "updated_at").
		Updates(account).Error
	return translate(err)
}

func (r *AccountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *AccountRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where(query, args...).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// List returns accounts ordered by username, optionally filtered by a username substring.
func (r *AccountRepository) List(ctx context.Context, search string, page Page) ([]models.Account, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Account{})
		if search != "" {
			q = q.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []models.Account
	err := page.apply(query().Order("username")).Find(&accounts).Error
	return accounts, total, err
}

// ConsumeCode marks a confirmation code as used. It only succeeds while the stored
// nonce still equals the one the code was issued against, so two concurrent exchanges
// of the same code cannot both win.
func (r *AccountRepository) ConsumeCode(ctx context.Context, id uint, nonce uint64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND code_nonce = ?", id, nonce).
		Updates(map[string]interface{}{
			"code_nonce":   nonce + 1,
			"last_login":   now,
			"confirmed_at": gorm.Expr("COALESCE(confirmed_at, ?)", now),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the account together with its reviews and comments.
func (r *AccountRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authored := tx.Model(&models.Review{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("author_id = ? OR review_id IN (?)", id, authored).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Account{}, id).Error
	})
}
