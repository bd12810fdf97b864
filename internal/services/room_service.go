package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/repositories/redisrepo"
	"github.com/babelroom/babelroom/internal/utils"
)

type RoomService interface {
	Create(ctx context.Context) (*models.Room, error)
	Get(ctx context.Context, roomID string) (*models.Room, error)
	GetByCode(ctx context.Context, code string) (*models.Room, error)
	Touch(ctx context.Context, roomID string) error
}

type roomService struct {
	rooms redisrepo.RoomRepository
	ttl   time.Duration
}

func NewRoomService(rooms redisrepo.RoomRepository, ttl time.Duration) RoomService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &roomService{rooms: rooms, ttl: ttl}
}

// Join codes skip ambiguous characters (0/O, 1/I) so they survive being read
// out loud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

func shortCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func (s *roomService) Create(ctx context.Context) (*models.Room, error) {
	const op = "RoomService.Create"

	for attempt := 0; attempt < 5; attempt++ {
		code, err := shortCode()
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to generate join code", err)
		}
		room := &models.Room{
			RoomID:    uuid.NewString(),
			Code:      code,
			CreatedAt: time.Now().UTC(),
		}
		err = s.rooms.Create(ctx, room, s.ttl)
		if err == nil {
			return room, nil
		}
		if utils.IsCode(err, utils.CodeConflict) {
			continue // code collision, reroll
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create room", err)
	}
	return nil, utils.E(utils.CodeInternal, op, "could not allocate a unique join code", nil)
}

func (s *roomService) Get(ctx context.Context, roomID string) (*models.Room, error) {
	const op = "RoomService.Get"

	if roomID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "room_id is required", nil)
	}
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "room not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get room", err)
	}
	return room, nil
}

func (s *roomService) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	const op = "RoomService.GetByCode"

	if code == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "code is required", nil)
	}
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "room not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to look up room", err)
	}
	return room, nil
}

// Touch refreshes the room's expiry; called on join and on room activity so
// only genuinely abandoned rooms expire.
func (s *roomService) Touch(ctx context.Context, roomID string) error {
	const op = "RoomService.Touch"

	if err := s.rooms.Touch(ctx, roomID, s.ttl); err != nil && !errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeInternal, op, "failed to refresh room ttl", err)
	}
	return nil
}
