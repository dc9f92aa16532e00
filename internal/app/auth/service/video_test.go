package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/memory"
	appsvc "github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/service"
	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestVideoService_ListChannelVideos(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepo()
	videos := memory.NewVideoRepo()
	svc := appsvc.NewVideoService(users, videos)

	owner, err := users.Create(ctx, model.User{ID: uuid.New(), Username: "chan", Email: "c@example.com"})
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := videos.Create(ctx, model.Video{
			ID: uuid.New(), OwnerID: owner.ID, Title: "v", IsPublished: i > 0,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, err := svc.ListChannelVideos(ctx, owner.ID, uuid.Nil, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, model.DefaultPageLimit, page.Limit)

	page, err = svc.ListChannelVideos(ctx, owner.ID, owner.ID, 1, 1000)
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Equal(t, model.MaxPageLimit, page.Limit)

	_, err = svc.ListChannelVideos(ctx, uuid.New(), uuid.Nil, 1, 10)
	require.True(t, authErrors.IsNotFound(err))

	_, err = svc.ListChannelVideos(ctx, uuid.Nil, uuid.Nil, 1, 10)
	require.True(t, authErrors.IsInvalidArgument(err))
}
