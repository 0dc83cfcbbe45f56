package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/model"
)

// CampaignStore persists pitch campaigns and their target rows.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *model.PitchCampaign) error
	GetCampaign(ctx context.Context, id string) (*model.PitchCampaign, error)
	SetCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error
	UpdateTargetStatus(ctx context.Context, targetID string, status model.TargetStatus, errMsg string, at time.Time) error
}

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// CreateCampaign inserts the campaign and its targets in one transaction;
// either the whole campaign exists or none of it does.
func (r *CampaignRepository) CreateCampaign(ctx context.Context, campaign *model.PitchCampaign) error {
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	for i := range campaign.Targets {
		campaign.Targets[i].CreatedAt = now
		campaign.Targets[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, id string) (*model.PitchCampaign, error) {
	var campaign model.PitchCampaign
	result := r.db.WithContext(ctx).
		Preload("Targets", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		First(&campaign, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFoundError{Entity: "campaign", ID: id}
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &campaign, nil
}

func (r *CampaignRepository) SetCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	return r.db.WithContext(ctx).Model(&model.PitchCampaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *CampaignRepository) UpdateTargetStatus(ctx context.Context, targetID string, status model.TargetStatus, errMsg string, at time.Time) error {
	fields := map[string]interface{}{
		"status":     status,
		"last_error": errMsg,
		"updated_at": at,
	}
	if status == model.TargetPitched {
		fields["pitched_at"] = at
	}
	return r.db.WithContext(ctx).Model(&model.PlaylistTarget{}).
		Where("id = ?", targetID).
		Updates(fields).Error
}
