package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// FindRequirement looks a requirement up by its (action, object) pair.
func FindRequirement(ctx context.Context, db *gorm.DB, action, object string) (*domain.Requirement, error) {
	var r domain.Requirement
	err := db.WithContext(ctx).
		Where("action = ? AND object = ?", action, object).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRequirement fetches a requirement by id.
func GetRequirement(ctx context.Context, db *gorm.DB, id uint) (*domain.Requirement, error) {
	var r domain.Requirement
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequirement inserts an empty requirement for the pair and returns
// ErrDuplicate when another writer created it first.
func CreateRequirement(ctx context.Context, db *gorm.DB, action, object string) (*domain.Requirement, error) {
	now := time.Now().UTC()
	r := &domain.Requirement{
		Action:         action,
		Object:         object,
		RequiredFields: datatypes.JSONSlice[string]{},
		Questions:      datatypes.NewJSONType(map[string]string{}),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return r, nil
}

// UpdateRequirement replaces the required fields and question templates.
func UpdateRequirement(ctx context.Context, db *gorm.DB, id uint, fields []string, questions map[string]string) error {
	if fields == nil {
		fields = []string{}
	}
	if questions == nil {
		questions = map[string]string{}
	}
	res := db.WithContext(ctx).
		Model(&domain.Requirement{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"required_fields": datatypes.JSONSlice[string](fields),
			"questions":       datatypes.NewJSONType(questions),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountRequirements returns the total number of requirements.
func CountRequirements(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Requirement{}).Count(&total).Error
	return total, err
}

// ListRequirementsPage returns requirements ordered by id.
func ListRequirementsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Requirement, error) {
	var out []domain.Requirement
	err := db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
