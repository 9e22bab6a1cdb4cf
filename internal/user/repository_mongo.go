// AngelaMos | 2026
// repository_mongo.go

package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Hiranx/WorldCountries/internal/core"
)

const usersCollection = "users"

var withoutSecret = bson.M{"password_hash": 0}

// mongoRepository keeps each user as one document with favorites embedded.
type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(usersCollection)}
}

// EnsureMongoIndexes creates the unique email index that backs duplicate
// detection.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_key"),
		},
	)
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *mongoRepository) Create(ctx context.Context, user *User) error {
	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	if user.Favorites == nil {
		user.Favorites = []Favorite{}
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "get user", bson.M{"_id": id}, withoutSecret)
}

func (r *mongoRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.findOne(ctx, "get user by email", bson.M{"email": email}, withoutSecret)
}

func (r *mongoRepository) GetWithSecretByID(
	ctx context.Context,
	id string,
) (*User, error) {
	return r.findOne(ctx, "get user", bson.M{"_id": id}, nil)
}

func (r *mongoRepository) GetWithSecretByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.findOne(ctx, "get user by email", bson.M{"email": email}, nil)
}

func (r *mongoRepository) findOne(
	ctx context.Context,
	op string,
	filter bson.M,
	projection bson.M,
) (*User, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var user User
	err := r.coll.FindOne(ctx, filter, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Favorites == nil {
		user.Favorites = []Favorite{}
	}
	return &user, nil
}

func (r *mongoRepository) Update(
	ctx context.Context,
	id string,
	fields UpdateFields,
) (*User, error) {
	set := bson.M{"updated_at": now()}
	if fields.Name != nil {
		set["name"] = *fields.Name
	}
	if fields.Email != nil {
		set["email"] = *fields.Email
	}
	if fields.PasswordHash != nil {
		set["password_hash"] = *fields.PasswordHash
	}
	if fields.Role != nil {
		set["role"] = *fields.Role
	}

	update := bson.M{"$set": set}
	if fields.BumpTokenVersion {
		update["$inc"] = bson.M{"token_version": 1}
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutSecret)

	var user User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).
		Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("update user: %w", core.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if user.Favorites == nil {
		user.Favorites = []Favorite{}
	}
	return &user, nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	return nil
}

func (r *mongoRepository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	filter := bson.M{}
	if params.Search != "" {
		pattern := bson.M{
			"$regex":   regexp.QuoteMeta(params.Search),
			"$options": "i",
		}
		filter["$or"] = bson.A{
			bson.M{"email": pattern},
			bson.M{"name": pattern},
		}
	}
	if params.Role != "" {
		filter["role"] = params.Role
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetProjection(bson.M{"password_hash": 0, "favorites": 0}).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.PageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	users := []User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, int(total), nil
}

func (r *mongoRepository) ListFavorites(
	ctx context.Context,
	id string,
) ([]Favorite, error) {
	return r.favorites(ctx, "list favorites", id)
}

// AddFavorite pushes fav only when no entry with the same country exists.
// The filter and the push are one atomic document update.
func (r *mongoRepository) AddFavorite(
	ctx context.Context,
	id string,
	fav Favorite,
) ([]Favorite, error) {
	if fav.AddedAt.IsZero() {
		fav.AddedAt = now()
	}

	filter := bson.M{
		"_id":               id,
		"favorites.country": bson.M{"$ne": fav.Country},
	}
	update := bson.M{
		"$push": bson.M{"favorites": fav},
		"$set":  bson.M{"updated_at": now()},
	}

	user, err := r.updateFavorites(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.favorites(ctx, "add favorite", id)
	}
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}

	return user.Favorites, nil
}

func (r *mongoRepository) RemoveFavorite(
	ctx context.Context,
	id, country string,
) ([]Favorite, error) {
	update := bson.M{
		"$pull": bson.M{"favorites": bson.M{"country": country}},
		"$set":  bson.M{"updated_at": now()},
	}

	user, err := r.updateFavorites(ctx, bson.M{"_id": id}, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("remove favorite: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("remove favorite: %w", err)
	}

	return user.Favorites, nil
}

func (r *mongoRepository) updateFavorites(
	ctx context.Context,
	filter, update bson.M,
) (*User, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"favorites": 1})

	var user User
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).
		Decode(&user); err != nil {
		return nil, err
	}

	if user.Favorites == nil {
		user.Favorites = []Favorite{}
	}
	return &user, nil
}

func (r *mongoRepository) favorites(
	ctx context.Context,
	op, id string,
) ([]Favorite, error) {
	opts := options.FindOne().SetProjection(bson.M{"favorites": 1})

	var user User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Favorites == nil {
		return []Favorite{}, nil
	}
	return user.Favorites, nil
}
