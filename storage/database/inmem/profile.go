package inmemdb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core/notes"
)

type profileRepository struct {
	db *profileTable
}

func NewProfileRepository(db *DB) notes.ProfileRepository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) GetProfile(_ context.Context, userID string) (notes.UserProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	p, ok := repo.db.table[userID]
	if !ok {
		return notes.UserProfile{}, notes.ErrProfileNotFound
	}
	return cloneProfile(p)
}

func (repo *profileRepository) CreateProfile(_ context.Context, p notes.UserProfile) (notes.UserProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[p.UUID]; ok {
		return notes.UserProfile{}, notes.ErrProfileExists
	}
	p.Version = 1
	return repo.store(p)
}

func (repo *profileRepository) SaveProfile(_ context.Context, p notes.UserProfile) (notes.UserProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.table[p.UUID]
	if !ok {
		return notes.UserProfile{}, notes.ErrProfileNotFound
	}
	if stored.Version != p.Version {
		return notes.UserProfile{}, notes.ErrVersionConflict
	}
	p.Version++
	return repo.store(p)
}

// store keeps a private copy of p, so that callers never share slices with the table.
func (repo *profileRepository) store(p notes.UserProfile) (notes.UserProfile, error) {
	cp, err := cloneProfile(p)
	if err != nil {
		return notes.UserProfile{}, err
	}
	repo.db.table[p.UUID] = cp
	return p, nil
}

func cloneProfile(p notes.UserProfile) (notes.UserProfile, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return notes.UserProfile{}, errors.Wrap(err, "marshalling profile")
	}
	var cp notes.UserProfile
	if err := json.Unmarshal(data, &cp); err != nil {
		return notes.UserProfile{}, errors.Wrap(err, "unmarshalling profile")
	}
	return cp, nil
}
