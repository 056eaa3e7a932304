package service

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"DMChat/logger"
	"DMChat/module/upload"
	"DMChat/module/user/model"
	"DMChat/module/user/store"
	"DMChat/tools/errs"
	"DMChat/tools/safe"
	"DMChat/tools/security"

	"go.uber.org/zap"
)

// MaxTagAttempts bounds the discriminator search on signup.
const MaxTagAttempts = 10

var (
	ErrFieldsRequired = errs.NewCodeError(errs.ArgsError, "All fields are required.")
	ErrEmailExists    = errs.NewCodeError(errs.ArgsError, "Account with this email already exists.")
	ErrLoginArgs      = errs.NewCodeError(errs.ArgsError, "Username or email and password are required.")
	ErrEmptyUpdate    = errs.NewCodeError(errs.ArgsError, "At least one field (username, bio, or profile picture) must be provided to update.")
	ErrInvalidStatus  = errs.NewCodeError(errs.ArgsError, "Invalid status value.")
	ErrTagExhausted   = errs.NewCodeError(errs.ServerInternalError, "Unable to generate a unique user tag.")
	ErrPictureUpload  = errs.NewCodeError(errs.ServerInternalError, "Profile picture upload failed.")
)

type SignupInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

type UpdateInput struct {
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User     *model.User
	Token    string
	ExpireAt time.Time
}

type Service struct {
	store    store.Store
	uploader upload.Uploader
	jwt      security.Options

	// discriminator draws a 4-digit tag; replaced in tests
	discriminator func() string
}

func NewService(st store.Store, up upload.Uploader, jwt security.Options) *Service {
	safe.MustNotNil(st, "user store")
	safe.MustNotNil(up, "uploader")
	return &Service{
		store:         st,
		uploader:      up,
		jwt:           jwt,
		discriminator: randomDiscriminator,
	}
}

func randomDiscriminator() string {
	return strconv.Itoa(1000 + rand.IntN(9000))
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" || in.Email == "" || in.Bio == "" {
		return nil, ErrFieldsRequired.Wrap()
	}

	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailExists.Wrap()
	} else if !errs.ErrUserNotFound.Is(err) {
		return nil, err
	}

	var tag string
	for attempt := 0; attempt < MaxTagAttempts; attempt++ {
		candidate := s.discriminator()
		taken, err := s.store.TagExists(ctx, in.Username, candidate)
		if err != nil {
			return nil, err
		}
		if !taken {
			tag = candidate
			break
		}
	}
	if tag == "" {
		return nil, ErrTagExhausted.WrapMsg("", "username", in.Username)
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, errs.WrapMsg(err, "hash password")
	}
	u := &model.User{
		Username:      in.Username,
		Discriminator: tag,
		Email:         in.Email,
		Password:      hash,
		Bio:           in.Bio,
		Status:        model.StatusOnline,
		IsActive:      true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errs.ErrRecordExist.Is(err) {
			return nil, ErrEmailExists.WrapMsg(err.Error())
		}
		return nil, err
	}
	logger.Info("user signed up", zap.String("user", u.ID), zap.String("tag", u.Tag()))
	return s.issue(u)
}

// Login accepts an email when identifier contains '@', a username otherwise.
func (s *Service) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrLoginArgs.Wrap()
	}
	var (
		u   *model.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.store.FindByEmail(ctx, identifier)
	} else {
		u, err = s.store.FindByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if !security.CheckPassword(u.Password, password) {
		return nil, errs.ErrPassword.Wrap()
	}
	now := time.Now()
	if u, err = s.store.Update(ctx, u.ID, model.Update{LastLogin: &now}); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) issue(u *model.User) (*AuthResult, error) {
	token, exp, err := security.Generate(s.jwt, u.ID, u.Username)
	if err != nil {
		return nil, errs.WrapMsg(err, "sign token")
	}
	return &AuthResult{User: u, Token: token, ExpireAt: exp}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	return s.store.FindByID(ctx, id)
}

// Others lists every user except id, for the sidebar.
func (s *Service) Others(ctx context.Context, id string) ([]*model.User, error) {
	return s.store.ListExcept(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" && in.Bio == "" && in.ProfilePicture == "" {
		return nil, ErrEmptyUpdate.Wrap()
	}
	var up model.Update
	if in.Username != "" {
		taken, err := s.store.UsernameTaken(ctx, in.Username, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errs.ErrUsernameTaken.Wrap()
		}
		up.Username = &in.Username
	}
	if in.Bio != "" {
		up.Bio = &in.Bio
	}
	if in.ProfilePicture != "" {
		att, err := s.uploader.Upload(ctx, in.ProfilePicture, "image")
		if err != nil {
			return nil, ErrPictureUpload.WrapMsg(err.Error())
		}
		up.ProfilePicture = &att.URL
	}
	return s.store.Update(ctx, id, up)
}

func (s *Service) SetStatus(ctx context.Context, id, status string) (*model.User, error) {
	if !model.ValidStatus(status) {
		return nil, ErrInvalidStatus.WrapMsg("", "status", status)
	}
	return s.store.Update(ctx, id, model.Update{Status: &status})
}
