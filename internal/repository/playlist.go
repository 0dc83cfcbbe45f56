package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/slaptrapper/distribution-api/internal/model"
)

// PlaylistCatalog lists candidate playlists for pitching. Catalog order is
// significant: the campaign builder truncates in this order, it does not
// rank by score.
type PlaylistCatalog interface {
	ListActive(ctx context.Context) ([]model.Playlist, error)
	TouchPitched(ctx context.Context, playlistID string, at time.Time) error
}

type PlaylistRepository struct {
	db *gorm.DB
}

func NewPlaylistRepository(db *gorm.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

func (r *PlaylistRepository) ListActive(ctx context.Context) ([]model.Playlist, error) {
	var playlists []model.Playlist
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at").
		Find(&playlists).Error
	return playlists, err
}

func (r *PlaylistRepository) TouchPitched(ctx context.Context, playlistID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Playlist{}).
		Where("id = ?", playlistID).
		Updates(map[string]interface{}{
			"last_pitched": at,
			"updated_at":   at,
		}).Error
}
