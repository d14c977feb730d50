package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/priyanshu442004/WatchParty/internal/directory"
	"github.com/priyanshu442004/WatchParty/internal/protocol"
	"github.com/priyanshu442004/WatchParty/internal/signaling"
)

// Handler serves the room directory API and the websocket upgrade endpoint.
type Handler struct {
	log   *slog.Logger
	rooms directory.Repository
	hub   *signaling.Hub
}

func NewHandler(log *slog.Logger, rooms directory.Repository, hub *signaling.Hub) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, rooms: rooms, hub: hub}
}

// Router wires all routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/ws", h.serveWs)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", h.createRoom)
		r.Get("/", h.listRooms)
		r.Get("/{roomID}", h.getRoom)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := directory.NewRoom(req.Name)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rooms.Create(r.Context(), room); err != nil {
		h.log.Error("create room", "error", err)
		h.writeError(w, http.StatusInternalServerError, "could not create room")
		return
	}

	h.writeJSON(w, http.StatusCreated, room)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.List(r.Context())
	if err != nil {
		h.log.Error("list rooms", "error", err)
		h.writeError(w, http.StatusInternalServerError, "could not list rooms")
		return
	}
	h.writeJSON(w, http.StatusOK, rooms)
}

// roomDetail joins the directory record with the live session, mirroring
// what a lobby screen needs before joining.
type roomDetail struct {
	Room             *directory.Room                     `json:"room"`
	Participants     map[string]protocol.ParticipantInfo `json:"participants"`
	ParticipantCount int                                 `json:"participant_count"`
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")

	room, err := h.rooms.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrRoomNotFound) {
			h.writeError(w, http.StatusNotFound, "room not found")
			return
		}
		h.log.Error("get room", "room_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "could not fetch room")
		return
	}

	participants := h.hub.Participants(id)
	if participants == nil {
		participants = map[string]protocol.ParticipantInfo{}
	}

	h.writeJSON(w, http.StatusOK, roomDetail{
		Room:             room,
		Participants:     participants,
		ParticipantCount: len(participants),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, text string) {
	h.writeJSON(w, status, map[string]string{"error": text})
}
