package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"DMChat/module/user/model"
	"DMChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemoryStore struct {
	mu    sync.RWMutex
	users []*model.User // creation order
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Create(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.users {
		if strings.EqualFold(o.Email, u.Email) {
			return errs.ErrRecordExist.WrapMsg("email exists", "email", u.Email)
		}
		if o.Username == u.Username && o.Discriminator == u.Discriminator {
			return errs.ErrRecordExist.WrapMsg("tag exists", "tag", u.Tag())
		}
	}
	now := time.Now()
	u.ID = primitive.NewObjectIDFromTimestamp(now).Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	c := *u
	s.users = append(s.users, &c)
	return nil
}

func (s *MemoryStore) find(pred func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if pred(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrUserNotFound.Wrap()
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id })
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username })
}

func (s *MemoryStore) TagExists(ctx context.Context, username, discriminator string) (bool, error) {
	_, err := s.find(func(u *model.User) bool { return u.Username == username && u.Discriminator == discriminator })
	return existsResult(err)
}

func (s *MemoryStore) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	_, err := s.find(func(u *model.User) bool { return u.Username == username && u.ID != exceptID })
	return existsResult(err)
}

func (s *MemoryStore) Update(ctx context.Context, id string, up model.Update) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID != id {
			continue
		}
		if up.Username != nil {
			u.Username = *up.Username
		}
		if up.Bio != nil {
			u.Bio = *up.Bio
		}
		if up.ProfilePicture != nil {
			u.ProfilePicture = *up.ProfilePicture
		}
		if up.Status != nil {
			u.Status = *up.Status
		}
		if up.LastLogin != nil {
			t := *up.LastLogin
			u.LastLogin = &t
		}
		u.UpdatedAt = time.Now()
		c := *u
		return &c, nil
	}
	return nil, errs.ErrUserNotFound.WrapMsg("update", "id", id)
}

func (s *MemoryStore) ListExcept(ctx context.Context, id string) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != id {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func existsResult(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errs.ErrUserNotFound.Is(err) {
		return false, nil
	}
	return false, err
}
