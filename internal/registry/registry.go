// Package registry tracks live room membership and per-connection metadata.
// It is the only state mutated by more than one connection concurrently, so
// every operation is a single critical section: join is an atomic
// check-then-insert, which keeps rejoin idempotent even under concurrent
// joins from the same identity.
package registry

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/protocol"
	"github.com/babelroom/babelroom/internal/utils"
)

// Sender delivers one server message to a participant's connection. The
// websocket handler supplies the implementation.
type Sender interface {
	Send(msg protocol.ServerMessage) error
}

type entry struct {
	participant models.Participant
	sender      Sender
}

type room struct {
	members map[string]*entry // keyed by user identity
}

type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room

	maxParticipants int
	log             *logrus.Entry
}

func New(maxParticipants int, log *logrus.Logger) *Registry {
	if maxParticipants <= 0 {
		maxParticipants = 8
	}
	return &Registry{
		rooms:           make(map[string]*room),
		maxParticipants: maxParticipants,
		log:             log.WithField("component", "registry"),
	}
}

// JoinResult reports the outcome of a Join. AlreadyJoined means the identity
// was present and nothing changed except presence and the connection handle.
type JoinResult struct {
	AlreadyJoined bool
	Participant   models.Participant
	Members       []models.Participant
}

// Join adds p to the room, or refreshes its connection when the identity is
// already a member. A full room rejects with ROOM_FULL.
func (r *Registry) Join(roomID string, p models.Participant, s Sender) (JoinResult, error) {
	const op = "Registry.Join"

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[string]*entry)}
		r.rooms[roomID] = rm
	}

	if existing, ok := rm.members[p.UserID]; ok {
		// Rejoin: keep original membership, swap in the new connection.
		existing.participant.Present = true
		existing.participant.DisplayName = p.DisplayName
		if p.Language != "" {
			existing.participant.Language = p.Language
		}
		existing.sender = s
		return JoinResult{
			AlreadyJoined: true,
			Participant:   existing.participant,
			Members:       rm.membersLocked(),
		}, nil
	}

	if len(rm.members) >= r.maxParticipants {
		return JoinResult{}, utils.E(utils.CodeRoomFull, op, "room is full", nil)
	}

	p.RoomID = roomID
	p.Present = true
	p.JoinedAt = time.Now().UTC()
	rm.members[p.UserID] = &entry{participant: p, sender: s}

	r.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": p.UserID,
		"members": len(rm.members),
	}).Info("participant joined")

	return JoinResult{Participant: p, Members: rm.membersLocked()}, nil
}

// Leave removes the identity from the room entirely.
func (r *Registry) Leave(roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(rm.members, userID)
	if len(rm.members) == 0 {
		// The room record itself expires by TTL in the store, not here.
		delete(r.rooms, roomID)
	}
}

// MarkAbsent flips presence off on disconnect, keeping the membership so a
// reconnect resumes it.
func (r *Registry) MarkAbsent(roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if e, ok := rm.members[userID]; ok {
		e.participant.Present = false
		e.sender = nil
	}
}

// Present returns the present participants of a room.
func (r *Registry) Present(roomID string) []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	var out []models.Participant
	for _, e := range rm.members {
		if e.participant.Present {
			out = append(out, e.participant)
		}
	}
	return out
}

// Get returns the participant record for an identity in a room.
func (r *Registry) Get(roomID, userID string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return models.Participant{}, false
	}
	e, ok := rm.members[userID]
	if !ok {
		return models.Participant{}, false
	}
	return e.participant, true
}

// Send delivers msg to one participant's connection, if present.
func (r *Registry) Send(roomID, userID string, msg protocol.ServerMessage) error {
	const op = "Registry.Send"

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return utils.E(utils.CodeNotFound, op, "room not found", nil)
	}
	e, ok := rm.members[userID]
	if !ok || e.sender == nil {
		r.mu.Unlock()
		return utils.E(utils.CodeNotFound, op, "participant not connected", nil)
	}
	s := e.sender
	r.mu.Unlock()

	// Send outside the lock: a slow connection must not stall the room table.
	return s.Send(msg)
}

// Broadcast delivers msg to every present participant except exclude.
func (r *Registry) Broadcast(roomID, exclude string, msg protocol.ServerMessage) {
	r.mu.Lock()
	var targets []Sender
	if rm, ok := r.rooms[roomID]; ok {
		for id, e := range rm.members {
			if id == exclude || e.sender == nil || !e.participant.Present {
				continue
			}
			targets = append(targets, e.sender)
		}
	}
	r.mu.Unlock()

	for _, s := range targets {
		if err := s.Send(msg); err != nil {
			r.log.WithError(err).Debug("broadcast send failed")
		}
	}
}

func (rm *room) membersLocked() []models.Participant {
	out := make([]models.Participant, 0, len(rm.members))
	for _, e := range rm.members {
		out = append(out, e.participant)
	}
	return out
}
