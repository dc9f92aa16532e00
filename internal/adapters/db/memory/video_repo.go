package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type VideoRepo struct {
	mu     sync.RWMutex
	videos map[uuid.UUID]model.Video
	now    func() time.Time
}

func NewVideoRepo() *VideoRepo {
	return &VideoRepo{videos: make(map[uuid.UUID]model.Video), now: time.Now}
}

func (r *VideoRepo) Create(_ context.Context, v model.Video) (model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if _, ok := r.videos[v.ID]; ok {
		return model.Video{}, customErrors.ErrAlreadyExists
	}
	now := r.now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	r.videos[v.ID] = v
	return v, nil
}

func (r *VideoRepo) FindByID(_ context.Context, id uuid.UUID) (model.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.videos[id]
	if !ok {
		return model.Video{}, customErrors.ErrNotFound
	}
	return v, nil
}

func (r *VideoRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, req model.PageRequest) (model.Page[model.Video], error) {
	req = req.Normalize()

	r.mu.RLock()
	matched := make([]model.Video, 0)
	for _, v := range r.videos {
		if v.OwnerID != ownerID || (!v.IsPublished && !req.IncludeUnpublished) {
			continue
		}
		matched = append(matched, v)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := req.Offset()
	if start < 0 || start > len(matched) {
		start = len(matched)
	}
	end := start + req.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return model.NewPage(matched[start:end], req, total), nil
}
