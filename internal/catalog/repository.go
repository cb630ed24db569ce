// Package catalog persists source definitions so runs can be driven
// from a shared database instead of a local config file.
package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"quickelt/internal/model"
)

// Common catalog errors
var (
	ErrSourceNotFound = errors.New("source definition not found")
	ErrSourceExists   = errors.New("source definition already exists")
)

// SourceRepository defines the interface for source definition storage.
type SourceRepository interface {
	// Create a new source definition
	Create(ctx context.Context, src *model.SourceDefinition) error

	// GetByID retrieves a source definition by its UUID
	GetByID(ctx context.Context, id string) (*model.SourceDefinition, error)

	// GetAll retrieves source definitions with pagination
	GetAll(ctx context.Context, limit, offset int) ([]*model.SourceDefinition, int64, error)

	// Update updates an existing source definition
	Update(ctx context.Context, src *model.SourceDefinition) error

	// Delete removes a source definition
	Delete(ctx context.Context, id string) error
}

type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new instance of SourceRepository.
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

// Migrate creates or updates the backing table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.SourceDefinition{})
}

func (r *sourceRepository) Create(ctx context.Context, src *model.SourceDefinition) error {
	return r.db.WithContext(ctx).Create(src).Error
}

func (r *sourceRepository) GetByID(ctx context.Context, id string) (*model.SourceDefinition, error) {
	var src model.SourceDefinition
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&src)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, result.Error
	}
	return &src, nil
}

func (r *sourceRepository) GetAll(ctx context.Context, limit, offset int) ([]*model.SourceDefinition, int64, error) {
	var sources []*model.SourceDefinition
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SourceDefinition{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := query.Limit(limit).Offset(offset).Order("created_at DESC").Find(&sources)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return sources, total, nil
}

func (r *sourceRepository) Update(ctx context.Context, src *model.SourceDefinition) error {
	return r.db.WithContext(ctx).Save(src).Error
}

func (r *sourceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SourceDefinition{}).Error
}
