// Package redisrepo persists room records and join codes in Redis. A room
// lives under room:{id} with its short code indexed at roomcode:{code}; both
// keys carry a TTL that Touch refreshes on activity, so abandoned rooms
// expire on a time basis without any sweeper.
package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/utils"
)

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room, ttl time.Duration) error
	Get(ctx context.Context, roomID string) (*models.Room, error)
	GetByCode(ctx context.Context, code string) (*models.Room, error)
	Touch(ctx context.Context, roomID string, ttl time.Duration) error
}

type roomRepo struct {
	rdb *redis.Client
}

func NewRoomRepository(rdb *redis.Client) RoomRepository {
	return &roomRepo{rdb: rdb}
}

func roomKey(id string) string   { return "room:" + id }
func codeKey(code string) string { return "roomcode:" + code }

func (r *roomRepo) Create(ctx context.Context, room *models.Room, ttl time.Duration) error {
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// The code index is claimed first with NX so two rooms can never share a
	// join code.
	ok, err := r.rdb.SetNX(ctx, codeKey(room.Code), room.RoomID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return utils.E(utils.CodeConflict, "roomRepo.Create", "join code already in use", nil)
	}
	return r.rdb.Set(ctx, roomKey(room.RoomID), b, ttl).Err()
}

func (r *roomRepo) Get(ctx context.Context, roomID string) (*models.Room, error) {
	s, err := r.rdb.Get(ctx, roomKey(roomID)).Result()
	if err == redis.Nil {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var room models.Room
	if err := json.Unmarshal([]byte(s), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	id, err := r.rdb.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *roomRepo) Touch(ctx context.Context, roomID string, ttl time.Duration) error {
	room, err := r.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if err := r.rdb.Expire(ctx, roomKey(roomID), ttl).Err(); err != nil {
		return err
	}
	return r.rdb.Expire(ctx, codeKey(room.Code), ttl).Err()
}
