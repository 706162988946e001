package service

import (
	"errors"

	"github.com/d60-Lab/skycial/internal/imagehost"
	"github.com/d60-Lab/skycial/internal/repository"
)

var (
	ErrNotAuthenticated   = errors.New("sign in required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmptyPost          = errors.New("post content is required")
	ErrInvalidVisibility  = errors.New("visibility must be global, friends or private")
	ErrEmptyComment       = errors.New("comment text is required")
	ErrCommentTooLong     = errors.New("comment is too long")
	ErrSelfRequest        = errors.New("cannot send a friend request to yourself")
	ErrNotRecipient       = errors.New("only the recipient can answer this request")
	ErrUnknownReward      = errors.New("unknown reward")
	ErrUnknownReport      = errors.New("unknown report")
	ErrInvalidInput       = errors.New("invalid input")
)

// 仓储层错误在服务层原样透出，调用方只需引用 service 包
var (
	ErrNotFound           = repository.ErrNotFound
	ErrEmailTaken         = repository.ErrEmailTaken
	ErrRequestExists      = repository.ErrRequestExists
	ErrAlreadyFriends     = repository.ErrAlreadyFriends
	ErrInsufficientPoints = repository.ErrInsufficientPoints
	ErrReferralExists     = repository.ErrReferralExists
	ErrInvalidImage       = imagehost.ErrInvalidImage
	ErrImageTooLarge      = imagehost.ErrImageTooLarge
	ErrUploadFailed       = imagehost.ErrUploadFailed
)
