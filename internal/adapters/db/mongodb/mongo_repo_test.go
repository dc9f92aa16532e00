package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)

	db := client.Database("test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoUserRepo(t *testing.T) {
	db := testDB(t)
	repo := NewMongoUserRepo(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	u, err := repo.Create(ctx, model.User{ID: uuid.New(), Username: "annl", Email: "ann@example.com", Avatar: "a"})
	require.NoError(t, err)

	got, err := repo.FindByUsernameOrEmail(ctx, "", "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = repo.FindByUsernameOrEmail(ctx, "", "")
	require.True(t, customErrors.IsNotFound(err))

	_, err = repo.Create(ctx, model.User{ID: uuid.New(), Username: "annl", Email: "x@example.com"})
	require.True(t, customErrors.IsAlreadyExists(err))

	tok := "rt"
	require.NoError(t, repo.UpdateRefreshToken(ctx, u.ID, &tok))
	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "rt", *got.RefreshToken)

	require.NoError(t, repo.RotateRefreshToken(ctx, u.ID, "rt", "rt2"))
	require.True(t, customErrors.IsNotFound(repo.RotateRefreshToken(ctx, u.ID, "rt", "rt3")))
	got, _ = repo.FindByID(ctx, u.ID)
	require.Equal(t, "rt2", *got.RefreshToken)

	require.NoError(t, repo.UpdateRefreshToken(ctx, u.ID, nil))
	got, _ = repo.FindByID(ctx, u.ID)
	require.Nil(t, got.RefreshToken)

	_, err = repo.FindByID(ctx, uuid.New())
	require.True(t, customErrors.IsNotFound(err))
}

func TestMongoVideoRepo(t *testing.T) {
	db := testDB(t)
	repo := NewMongoVideoRepo(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	owner := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, model.Video{OwnerID: owner, Title: "v", IsPublished: i != 0,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	page, err := repo.ListByOwner(ctx, owner, model.PageRequest{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	require.True(t, page.HasNext)

	page, err = repo.ListByOwner(ctx, owner, model.PageRequest{IncludeUnpublished: true})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
}
