package users

import (
	"errors"

	"chatd/pkg/models"
	"chatd/pkg/store"
)

// ErrUnknownUser is returned when no profile summary is stored for an id.
var ErrUnknownUser = errors.New("users: unknown user")

// Directory resolves user ids to public profile summaries. The store-backed
// implementation serves mirrored profiles; tests substitute fakes.
type Directory interface {
	Resolve(id string) (models.UserSummary, error)
}

// StoreDirectory resolves profiles from the local store mirror.
type StoreDirectory struct{}

func (StoreDirectory) Resolve(id string) (models.UserSummary, error) {
	u, err := store.GetUser(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.UserSummary{}, ErrUnknownUser
		}
		return models.UserSummary{}, err
	}
	return u, nil
}

// Upsert stores or replaces the mirrored profile summary for u.ID.
func Upsert(u models.UserSummary) error {
	return store.PutUser(u)
}
