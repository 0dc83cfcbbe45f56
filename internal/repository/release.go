package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/model"
)

// ReleaseStore is the persistence contract the pipeline services depend on.
// Updates are partial-field merges guarded by the record version: two
// concurrent stage updates cannot silently clobber each other.
type ReleaseStore interface {
	Create(ctx context.Context, rel *model.Release) error
	GetByID(ctx context.Context, id string) (*model.Release, error)
	FilterByOwner(ctx context.Context, owner string) ([]model.Release, error)
	FilterLiveByOwner(ctx context.Context, owner string) ([]model.Release, error)
	FilterAll(ctx context.Context) ([]model.Release, error)
	UpdateFields(ctx context.Context, id string, version int64, fields map[string]interface{}) error
	ApplyEarnings(ctx context.Context, id string, version int64, earnings float64, streamsDelta int64, at time.Time) error
	ApplyStats(ctx context.Context, id string, version int64, streamsDelta int64, earnings float64) error
}

type ReleaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

func (r *ReleaseRepository) Create(ctx context.Context, rel *model.Release) error {
	now := time.Now().UTC()
	rel.CreatedAt = now
	rel.UpdatedAt = now
	rel.Version = 1
	return r.db.WithContext(ctx).Create(rel).Error
}

func (r *ReleaseRepository) GetByID(ctx context.Context, id string) (*model.Release, error) {
	var rel model.Release
	result := r.db.WithContext(ctx).First(&rel, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFoundError{Entity: "release", ID: id}
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &rel, nil
}

func (r *ReleaseRepository) FilterByOwner(ctx context.Context, owner string) ([]model.Release, error) {
	var releases []model.Release
	err := r.db.WithContext(ctx).
		Where("created_by = ?", owner).
		Order("created_at").
		Find(&releases).Error
	return releases, err
}

func (r *ReleaseRepository) FilterLiveByOwner(ctx context.Context, owner string) ([]model.Release, error) {
	var releases []model.Release
	err := r.db.WithContext(ctx).
		Where("created_by = ? AND status = ?", owner, model.ReleaseStatusLive).
		Order("created_at").
		Find(&releases).Error
	return releases, err
}

func (r *ReleaseRepository) FilterAll(ctx context.Context) ([]model.Release, error) {
	var releases []model.Release
	err := r.db.WithContext(ctx).Order("created_at").Find(&releases).Error
	return releases, err
}

// UpdateFields merges the given fields into the release iff its version is
// still the one the caller read. Zero rows affected means either the record
// is gone or a concurrent writer bumped the version first.
func (r *ReleaseRepository) UpdateFields(ctx context.Context, id string, version int64, fields map[string]interface{}) error {
	merged := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		merged[k] = v
	}
	merged["version"] = gorm.Expr("version + 1")
	merged["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&model.Release{}).
		Where("id = ? AND version = ?", id, version).
		Updates(merged)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

// ApplyEarnings overwrites estimated earnings (last report wins) and adds
// streams atomically so total_streams never decreases.
func (r *ReleaseRepository) ApplyEarnings(ctx context.Context, id string, version int64, earnings float64, streamsDelta int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Release{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"estimated_earnings":       earnings,
			"total_streams":            gorm.Expr("total_streams + ?", streamsDelta),
			"reconciliation_status":    model.ReconciliationReconciled,
			"last_reconciliation_date": at,
			"version":                  gorm.Expr("version + 1"),
			"updated_at":               at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

// ApplyStats folds a stats-sync delta in: streams add (never decrease),
// earnings overwrite with the caller's recomputed figure.
func (r *ReleaseRepository) ApplyStats(ctx context.Context, id string, version int64, streamsDelta int64, earnings float64) error {
	result := r.db.WithContext(ctx).Model(&model.Release{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"total_streams":      gorm.Expr("total_streams + ?", streamsDelta),
			"estimated_earnings": earnings,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *ReleaseRepository) classifyMiss(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Release{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &apperr.NotFoundError{Entity: "release", ID: id}
	}
	return &apperr.ConflictError{Entity: "release", ID: id}
}
