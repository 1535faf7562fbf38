package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

var defaultUserOrdering = []core.DBOrdering{{Field: "created_at"}, {Field: "user_id"}}

func (repo *userRepository) emailTaken(email string, excludedID int64) bool {
	for _, u := range repo.db.users {
		if u.Email == email && u.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.emailTaken(usr.Email, 0) {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = repo.db.nextID("users")
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int64) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if filter.Search != "" && !(containsFold(usr.Name, filter.Search) || containsFold(usr.Email, filter.Search)) {
				continue
			}
			if len(filter.Roles) > 0 && !usr.Roles.HasAny(filter.Roles...) {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
		}
		users = append(users, usr)
	}

	if len(ordering) == 0 {
		ordering = defaultUserOrdering
	} else {
		ordering = append(append([]core.DBOrdering{}, ordering...), core.DBOrdering{Field: "user_id", Ascending: true})
	}
	sort.SliceStable(users, orderedLess(ordering, func(i, j int, column string) int {
		a, b := users[i], users[j]
		switch column {
		case "user_id":
			return cmpInt64(a.ID, b.ID)
		case "name":
			return cmpString(a.Name, b.Name)
		case "email":
			return cmpString(a.Email, b.Email)
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		case "last_login":
			return cmpTimePtr(a.LastLogin, b.LastLogin)
		}
		return 0
	}))
	return users, nil
}

func (repo *userRepository) EmailExists(_ context.Context, email string, excludedID int64) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.emailTaken(email, excludedID), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	orig.Name = usr.Name
	orig.Email = usr.Email
	orig.Roles = usr.Roles
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	orig.UpdatedAt = usr.UpdatedAt
	repo.db.users[usr.ID] = orig
	return orig, nil
}

func (repo *userRepository) SetUserActive(_ context.Context, id int64, active bool) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.IsActive = active
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[id] = usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id int64, at time.Time) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	at = at.UTC()
	usr.LastLogin = &at
	repo.db.users[id] = usr
	return usr, nil
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// cmpTimePtr sorts nil last, like postgres NULLS LAST in ascending order.
func cmpTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmpTime(*a, *b)
}
