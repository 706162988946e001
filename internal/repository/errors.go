package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRequestExists      = errors.New("a friend request already exists between these users")
	ErrAlreadyFriends     = errors.New("users are already friends")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrReferralExists     = errors.New("email has already been referred")
)

// notFound maps gorm's not-found error onto ErrNotFound and leaves others untouched.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
