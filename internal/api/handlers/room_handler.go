package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/babelroom/babelroom/internal/registry"
	"github.com/babelroom/babelroom/internal/services"
)

// RoomHandler is the thin REST boundary that feeds the session registry:
// create a room, look one up by id or short code. Membership itself happens
// over the websocket join message.
type RoomHandler struct {
	rooms    services.RoomService
	registry *registry.Registry
}

func NewRoomHandler(rooms services.RoomService, reg *registry.Registry) *RoomHandler {
	return &RoomHandler{rooms: rooms, registry: reg}
}

func (h *RoomHandler) Create(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	room, err := h.rooms.Create(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

type lookupResponse struct {
	RoomID       string `json:"room_id"`
	Code         string `json:"code"`
	Participants int    `json:"participants"`
}

func (h *RoomHandler) Get(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	room, err := h.rooms.Get(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse{
		RoomID:       room.RoomID,
		Code:         room.Code,
		Participants: len(h.registry.Present(room.RoomID)),
	})
}

func (h *RoomHandler) GetByCode(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	room, err := h.rooms.GetByCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse{
		RoomID:       room.RoomID,
		Code:         room.Code,
		Participants: len(h.registry.Present(room.RoomID)),
	})
}
