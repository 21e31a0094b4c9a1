package service

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// GiftService picks the chat member who receives a gift after a miss.
type GiftService struct {
	activity ActivityStore
	intn     func(n int) int
}

// NewGiftService creates a new GiftService instance.
func NewGiftService(activity ActivityStore) *GiftService {
	return &GiftService{activity: activity, intn: rand.IntN}
}

// Pick returns a random other user with ledger activity in the chat.
// ok is false when the requester is alone.
func (s *GiftService) Pick(ctx context.Context, chatID, requesterID int64) (userID int64, ok bool, err error) {
	candidates, err := s.activity.OtherUsers(ctx, chatID, requesterID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to list chat members: %w", err)
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}
	return candidates[s.intn(len(candidates))], true, nil
}
