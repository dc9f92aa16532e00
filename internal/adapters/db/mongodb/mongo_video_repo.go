package mongodb

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const videosCollection = "videos"

type videoDocument struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	VideoFile   string    `bson:"video_file"`
	Thumbnail   string    `bson:"thumbnail"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Duration    float64   `bson:"duration"`
	Views       int64     `bson:"views"`
	IsPublished bool      `bson:"is_published"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d videoDocument) toModel() (model.Video, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return model.Video{}, err
	}
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return model.Video{}, err
	}
	return model.Video{
		ID:          id,
		OwnerID:     owner,
		VideoFile:   d.VideoFile,
		Thumbnail:   d.Thumbnail,
		Title:       d.Title,
		Description: d.Description,
		Duration:    d.Duration,
		Views:       d.Views,
		IsPublished: d.IsPublished,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type MongoVideoRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoVideoRepo(db *mongo.Database) *MongoVideoRepo {
	return &MongoVideoRepo{coll: db.Collection(videosCollection), now: time.Now}
}

func (r *MongoVideoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return customErrors.WrapInternal(err, "EnsureVideoIndexes")
	}
	return nil
}

func (r *MongoVideoRepo) Create(ctx context.Context, v model.Video) (model.Video, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	doc := videoDocument{
		ID: v.ID.String(), OwnerID: v.OwnerID.String(),
		VideoFile: v.VideoFile, Thumbnail: v.Thumbnail,
		Title: v.Title, Description: v.Description, Duration: v.Duration,
		Views: v.Views, IsPublished: v.IsPublished,
		CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Video{}, customErrors.ErrAlreadyExists
		}
		return model.Video{}, customErrors.WrapInternal(err, "CreateVideo")
	}
	return v, nil
}

func (r *MongoVideoRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Video, error) {
	var doc videoDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Video{}, customErrors.ErrNotFound
	}
	if err != nil {
		return model.Video{}, customErrors.WrapInternal(err, "GetVideoByID")
	}
	v, err := doc.toModel()
	if err != nil {
		return model.Video{}, customErrors.WrapInternal(err, "GetVideoByID")
	}
	return v, nil
}

func (r *MongoVideoRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, req model.PageRequest) (model.Page[model.Video], error) {
	req = req.Normalize()

	filter := bson.M{"owner_id": ownerID.String()}
	if !req.IncludeUnpublished {
		filter["is_published"] = true
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "CountVideos")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(req.Offset())).
		SetLimit(int64(req.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "ListVideos")
	}
	defer cur.Close(ctx)

	var docs []videoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return model.Page[model.Video]{}, customErrors.WrapInternal(err, "ListVideos")
	}

	items := make([]model.Video, 0, len(docs))
	for _, d := range docs {
		v, err := d.toModel()
		if err != nil {
			return model.Page[model.Video]{}, customErrors.WrapInternal(err, "ListVideos")
		}
		items = append(items, v)
	}
	return model.NewPage(items, req, total), nil
}
