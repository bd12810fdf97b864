package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/registry"
	"github.com/babelroom/babelroom/internal/utils"
)

func newRoomRouter(t *testing.T) (*gin.Engine, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	reg := registry.New(8, log)
	h := NewRoomHandler(&fakeRoomService{room: models.Room{RoomID: "room-1", Code: "ABC234"}}, reg)

	r := gin.New()
	r.POST("/rooms", h.Create)
	r.GET("/rooms/lookup", h.GetByCode)
	r.GET("/rooms/:room_id", h.Get)
	return r, reg
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, dst any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User-Id", "alice")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if dst != nil && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w
}

func TestCreateRoom(t *testing.T) {
	r, _ := newRoomRouter(t)

	var room models.Room
	w := doJSON(t, r, http.MethodPost, "/rooms", &room)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if room.RoomID == "" || room.Code == "" {
		t.Errorf("incomplete room payload: %+v", room)
	}
}

func TestCreateRoomRequiresIdentity(t *testing.T) {
	r, _ := newRoomRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/rooms", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLookupByCode(t *testing.T) {
	r, reg := newRoomRouter(t)
	reg.Join("room-1", models.Participant{UserID: "bob", Language: "es"}, nil)

	var res lookupResponse
	w := doJSON(t, r, http.MethodGet, "/rooms/lookup?code=ABC234", &res)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if res.RoomID != "room-1" || res.Participants != 1 {
		t.Errorf("unexpected lookup response: %+v", res)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	r, _ := newRoomRouter(t)

	var apiErr APIError
	w := doJSON(t, r, http.MethodGet, "/rooms/lookup?code=NOPE99", &apiErr)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if apiErr.Code != utils.CodeNotFound {
		t.Errorf("expected NOT_FOUND code, got %+v", apiErr)
	}
}

func TestGetRoomByID(t *testing.T) {
	r, _ := newRoomRouter(t)

	var res lookupResponse
	w := doJSON(t, r, http.MethodGet, "/rooms/room-1", &res)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if res.Code != "ABC234" {
		t.Errorf("unexpected room: %+v", res)
	}
}
