package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/utils"
)

type memRoomRepo struct {
	byID    map[string]*models.Room
	byCode  map[string]*models.Room
	touched map[string]int

	// conflictsLeft makes the next N creates collide on the join code.
	conflictsLeft int
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{
		byID:    make(map[string]*models.Room),
		byCode:  make(map[string]*models.Room),
		touched: make(map[string]int),
	}
}

func (r *memRoomRepo) Create(ctx context.Context, room *models.Room, ttl time.Duration) error {
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return utils.E(utils.CodeConflict, "memRoomRepo.Create", "join code already claimed", nil)
	}
	if _, ok := r.byCode[room.Code]; ok {
		return utils.E(utils.CodeConflict, "memRoomRepo.Create", "join code already claimed", nil)
	}
	r.byID[room.RoomID] = room
	r.byCode[room.Code] = room
	return nil
}

func (r *memRoomRepo) Get(ctx context.Context, roomID string) (*models.Room, error) {
	room, ok := r.byID[roomID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return room, nil
}

func (r *memRoomRepo) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	room, ok := r.byCode[code]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return room, nil
}

func (r *memRoomRepo) Touch(ctx context.Context, roomID string, ttl time.Duration) error {
	if _, ok := r.byID[roomID]; !ok {
		return utils.ErrNotFound
	}
	r.touched[roomID]++
	return nil
}

func TestCreateRoomGeneratesReadableCode(t *testing.T) {
	repo := newMemRoomRepo()
	svc := NewRoomService(repo, time.Hour)

	room, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.RoomID == "" {
		t.Error("expected room id")
	}
	if len(room.Code) != codeLength {
		t.Fatalf("expected %d-char code, got %q", codeLength, room.Code)
	}
	for _, c := range room.Code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("code %q uses character outside alphabet", room.Code)
		}
	}
}

func TestCreateRoomRerollsOnCodeCollision(t *testing.T) {
	repo := newMemRoomRepo()
	repo.conflictsLeft = 2
	svc := NewRoomService(repo, time.Hour)

	room, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("create should survive collisions: %v", err)
	}
	if room.Code == "" {
		t.Error("expected a code after reroll")
	}
}

func TestCreateRoomGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMemRoomRepo()
	repo.conflictsLeft = 100
	svc := NewRoomService(repo, time.Hour)

	_, err := svc.Create(context.Background())
	if utils.CodeOf(err) != utils.CodeInternal {
		t.Fatalf("expected INTERNAL after exhausted rerolls, got %v", err)
	}
}

func TestGetByCode(t *testing.T) {
	repo := newMemRoomRepo()
	svc := NewRoomService(repo, time.Hour)
	room, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByCode(context.Background(), room.Code)
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.RoomID != room.RoomID {
		t.Errorf("got %q, want %q", got.RoomID, room.RoomID)
	}

	if _, err := svc.GetByCode(context.Background(), "NOPE99"); utils.CodeOf(err) != utils.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := svc.GetByCode(context.Background(), ""); utils.CodeOf(err) != utils.CodeInvalidArgument {
		t.Errorf("expected INVALID_ARGUMENT for empty code, got %v", err)
	}
}

func TestTouchIgnoresMissingRoom(t *testing.T) {
	repo := newMemRoomRepo()
	svc := NewRoomService(repo, time.Hour)

	if err := svc.Touch(context.Background(), "ghost"); err != nil {
		t.Fatalf("touch of a missing room must be silent: %v", err)
	}

	room, _ := svc.Create(context.Background())
	if err := svc.Touch(context.Background(), room.RoomID); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if repo.touched[room.RoomID] != 1 {
		t.Errorf("expected one touch, got %d", repo.touched[room.RoomID])
	}
}
