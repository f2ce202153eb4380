package mongostore

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/studybuddy/core/notes"
)

type profileRepository struct {
	coll *mongo.Collection
}

// NewProfileRepository stores one document per UserProfile, keyed by the user id.
func NewProfileRepository(coll *mongo.Collection) notes.ProfileRepository {
	return &profileRepository{coll: coll}
}

func (repo *profileRepository) GetProfile(ctx context.Context, userID string) (notes.UserProfile, error) {
	var p notes.UserProfile
	if err := repo.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return notes.UserProfile{}, notes.ErrProfileNotFound
		}
		return notes.UserProfile{}, errors.Wrap(err, "finding profile")
	}
	if p.Subjects == nil {
		p.Subjects = []notes.Subject{}
	}
	return p, nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p notes.UserProfile) (notes.UserProfile, error) {
	p.Version = 1
	if _, err := repo.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return notes.UserProfile{}, notes.ErrProfileExists
		}
		return notes.UserProfile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}

// SaveProfile replaces the whole document, filtered on the version it was loaded at.
func (repo *profileRepository) SaveProfile(ctx context.Context, p notes.UserProfile) (notes.UserProfile, error) {
	loaded := p.Version
	p.Version++
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": p.UUID, "version": loaded}, p)
	if err != nil {
		return notes.UserProfile{}, errors.Wrap(err, "replacing profile")
	}
	if res.MatchedCount == 0 {
		return notes.UserProfile{}, notes.ErrVersionConflict
	}
	return p, nil
}
