package service

import (
	"context"
	"errors"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/google/uuid"
)

type VideoService interface {
	// ListChannelVideos pages through a channel's videos, newest first.
	// Unpublished videos are only visible to the channel owner; pass
	// uuid.Nil as viewerID for anonymous callers.
	ListChannelVideos(ctx context.Context, ownerID, viewerID uuid.UUID, page, limit int) (model.Page[model.Video], error)
}

type videoService struct {
	users  repo.UserRepo
	videos repo.VideoRepo
}

func NewVideoService(ur repo.UserRepo, vr repo.VideoRepo) VideoService {
	return &videoService{users: ur, videos: vr}
}

func (s *videoService) ListChannelVideos(ctx context.Context, ownerID, viewerID uuid.UUID, page, limit int) (model.Page[model.Video], error) {
	if ownerID == uuid.Nil {
		return model.Page[model.Video]{}, customErrors.NewValidation("channel id is required", map[string]string{"id": "is required"})
	}

	_, err := s.users.FindByID(ctx, ownerID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.Page[model.Video]{}, customErrors.NewNotFound("channel does not exist")
	case err != nil:
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "ListChannelVideos")
	}

	req := model.PageRequest{
		Page:               page,
		Limit:              limit,
		IncludeUnpublished: viewerID != uuid.Nil && viewerID == ownerID,
	}.Normalize()

	out, err := s.videos.ListByOwner(ctx, ownerID, req)
	if err != nil {
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "ListChannelVideos")
	}
	return out, nil
}
