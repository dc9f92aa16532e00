package postgres

import (
	"context"
	"errors"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresVideoRepo struct {
	db *gorm.DB
}

func NewPostgresVideoRepo(db *gorm.DB) *PostgresVideoRepo {
	return &PostgresVideoRepo{db: db}
}

func (p *PostgresVideoRepo) Create(ctx context.Context, v model.Video) (model.Video, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	// Select("*") so an explicit IsPublished=false is written instead of the column default.
	if err := p.db.WithContext(ctx).Select("*").Create(&v).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Video{}, customErrors.ErrAlreadyExists
		}
		return model.Video{}, customErrors.WrapInternal(err, "CreateVideo")
	}
	return v, nil
}

func (p *PostgresVideoRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Video, error) {
	var v model.Video
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&v)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.Video{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.Video{}, customErrors.WrapInternal(err, "GetVideoByID")
	}
	return v, nil
}

func (p *PostgresVideoRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, req model.PageRequest) (model.Page[model.Video], error) {
	req = req.Normalize()

	q := p.db.WithContext(ctx).Model(&model.Video{}).Where("owner_id = ?", ownerID)
	if !req.IncludeUnpublished {
		q = q.Where("is_published = ?", true)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "CountVideos")
	}

	var items []model.Video
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(req.Offset()).
		Limit(req.Limit).
		Find(&items).Error
	if err != nil {
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "ListVideos")
	}
	return model.NewPage(items, req, total), nil
}
