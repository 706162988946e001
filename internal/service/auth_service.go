package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/skycial/config"
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/repository"
)

const minAge = 13

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterInput 注册参数；age 与 birthDate 至少提供一个
type RegisterInput struct {
	FullName   string `json:"fullName" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Age        int    `json:"age" validate:"omitempty,max=130"`
	BirthDate  string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	BirthTime  string `json:"birthTime" validate:"omitempty,max=16"`
	BirthPlace string `json:"birthPlace" validate:"omitempty,max=255"`
	Gender     string `json:"gender" validate:"required,oneof=female male other"`
	SkinType   string `json:"skinType" validate:"required,oneof=oily dry combo"`
	ZodiacSign string `json:"zodiacSign" validate:"omitempty,max=32"`
}

// Session 登录结果
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Viewer    *model.Viewer `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.Viewer, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// ParseToken 校验签名与过期时间，返回用户 ID
	ParseToken(token string) (string, error)
	Viewer(ctx context.Context, userID string) (*model.Viewer, error)
}

type authService struct {
	users   repository.UserRepository
	friends repository.FriendRepository
	jwtCfg  config.JWTConfig
	signup  int64
	now     func() time.Time
}

func NewAuthService(users repository.UserRepository, friends repository.FriendRepository, jwtCfg config.JWTConfig, signupPoints int) AuthService {
	if jwtCfg.TTL <= 0 {
		jwtCfg.TTL = 7 * 24 * time.Hour
	}
	return &authService{
		users:   users,
		friends: friends,
		jwtCfg:  jwtCfg,
		signup:  int64(signupPoints),
		now:     time.Now,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.Viewer, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	u := &model.User{
		Email:      in.Email,
		FullName:   in.FullName,
		Gender:     in.Gender,
		SkinType:   in.SkinType,
		ZodiacSign: in.ZodiacSign,
		Age:        in.Age,
		BirthTime:  in.BirthTime,
		BirthPlace: in.BirthPlace,
		Points:     s.signup,
	}
	if in.BirthDate != "" {
		bd, _ := time.Parse("2006-01-02", in.BirthDate)
		u.BirthDate = &bd
		u.Age = AgeOn(bd, s.now())
		if u.ZodiacSign == "" {
			u.ZodiacSign = ZodiacSign(bd)
		}
	}
	if in.Age == 0 && in.BirthDate == "" {
		return nil, fmt.Errorf("%w: age or birthDate is required", ErrInvalidInput)
	}
	if u.Age < minAge {
		return nil, fmt.Errorf("%w: you must be at least %d years old", ErrInvalidInput, minAge)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u.Password = string(hash)

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return model.NewViewer(u, nil), nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	exp := now.Add(s.jwtCfg.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		Issuer:    s.jwtCfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	friends, err := s.friends.FriendIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Viewer: model.NewViewer(u, friends)}, nil
}

func (s *authService) ParseToken(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.jwtCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwtCfg.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if claims.Subject == "" {
		return "", ErrNotAuthenticated
	}
	return claims.Subject, nil
}

func (s *authService) Viewer(ctx context.Context, userID string) (*model.Viewer, error) {
	return loadViewer(ctx, s.users, s.friends, userID)
}

// loadViewer 在存储边界一次性组装当前用户
func loadViewer(ctx context.Context, users repository.UserRepository, friends repository.FriendRepository, userID string) (*model.Viewer, error) {
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids, err := friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return model.NewViewer(u, ids), nil
}
