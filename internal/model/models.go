package model

// All lists every persisted model for migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&PostLike{},
		&Comment{},
		&CommentLike{},
		&PostReport{},
		&FriendRequest{},
		&Friendship{},
		&PointsEntry{},
		&Redemption{},
		&Referral{},
		&AstrologyContent{},
	}
}
