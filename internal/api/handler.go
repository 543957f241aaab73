package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/scheduler"
	"github.com/vtftk/app/internal/store/sqlite"
)

// Pagination defaults and limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

type Store interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	UpdateEvent(ctx context.Context, event domain.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)

	CreateCommand(ctx context.Context, command domain.Command) error
	UpdateCommand(ctx context.Context, command domain.Command) error
	DeleteCommand(ctx context.Context, id uuid.UUID) error
	GetCommandByID(ctx context.Context, id uuid.UUID) (domain.Command, error)
	ListCommands(ctx context.Context) ([]domain.Command, error)

	ListExecutions(ctx context.Context, automationID uuid.UUID, query domain.ExecutionsQuery) ([]domain.Execution, error)

	CreateItem(ctx context.Context, item domain.ItemWithImpactSounds) error
	ListItems(ctx context.Context) ([]domain.Item, error)

	CreateSound(ctx context.Context, sound domain.Sound) error
	ListSounds(ctx context.Context) ([]domain.Sound, error)
}

// SchedulerControl receives the rebuilt timer schedule after any event
// mutation.
type SchedulerControl interface {
	UpdateSchedule(ctx context.Context, tasks []scheduler.Task)
}

type Handler struct {
	store Store
	sched SchedulerControl
	log   *zap.SugaredLogger
}

func NewHandler(store Store, sched SchedulerControl, log *zap.SugaredLogger) *Handler {
	return &Handler{store: store, sched: sched, log: log}
}

// Router builds the HTTP route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/events", h.createEvent).Methods(http.MethodPost)
	r.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", h.getEvent).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", h.updateEvent).Methods(http.MethodPut)
	r.HandleFunc("/events/{id}", h.deleteEvent).Methods(http.MethodDelete)

	r.HandleFunc("/commands", h.createCommand).Methods(http.MethodPost)
	r.HandleFunc("/commands", h.listCommands).Methods(http.MethodGet)
	r.HandleFunc("/commands/{id}", h.getCommand).Methods(http.MethodGet)
	r.HandleFunc("/commands/{id}", h.updateCommand).Methods(http.MethodPut)
	r.HandleFunc("/commands/{id}", h.deleteCommand).Methods(http.MethodDelete)

	r.HandleFunc("/automations/{id}/executions", h.listExecutions).Methods(http.MethodGet)

	r.HandleFunc("/items", h.createItem).Methods(http.MethodPost)
	r.HandleFunc("/items", h.listItems).Methods(http.MethodGet)

	r.HandleFunc("/sounds", h.createSound).Methods(http.MethodPost)
	r.HandleFunc("/sounds", h.listSounds).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateEventRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := domain.Event{
		ID:        uuid.New(),
		Enabled:   req.Enabled,
		Name:      req.Name,
		Config:    req.Config,
		Order:     req.Order,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.CreateEvent(r.Context(), event); err != nil {
		h.log.Errorw("api: create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.rebuildSchedule(r.Context())
	writeJSON(w, http.StatusCreated, eventResponse(event))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListEvents(r.Context())
	if err != nil {
		h.log.Errorw("api: list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	resp := ListEventsResponse{Events: make([]EventResponse, len(events))}
	for i, event := range events {
		resp.Events[i] = eventResponse(event)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	event, err := h.store.GetEventByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.log.Errorw("api: get event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, eventResponse(event))
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req EventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateEventRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.store.GetEventByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.log.Errorw("api: get event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	event := domain.Event{
		ID:        existing.ID,
		Enabled:   req.Enabled,
		Name:      req.Name,
		Config:    req.Config,
		Order:     req.Order,
		CreatedAt: existing.CreatedAt,
	}

	if err := h.store.UpdateEvent(r.Context(), event); err != nil {
		h.log.Errorw("api: update event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	h.rebuildSchedule(r.Context())
	writeJSON(w, http.StatusOK, eventResponse(event))
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.log.Errorw("api: delete event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	h.rebuildSchedule(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateCommandRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	command := domain.Command{
		ID:          uuid.New(),
		Enabled:     req.Enabled,
		Name:        req.Name,
		Command:     req.Command,
		Aliases:     req.Aliases,
		Outcome:     req.Outcome,
		Cooldown:    req.Cooldown,
		RequireRole: req.RequireRole,
		Order:       req.Order,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.store.CreateCommand(r.Context(), command); err != nil {
		h.log.Errorw("api: create command", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create command")
		return
	}
	writeJSON(w, http.StatusCreated, commandResponse(command))
}

func (h *Handler) listCommands(w http.ResponseWriter, r *http.Request) {
	commands, err := h.store.ListCommands(r.Context())
	if err != nil {
		h.log.Errorw("api: list commands", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list commands")
		return
	}

	resp := ListCommandsResponse{Commands: make([]CommandResponse, len(commands))}
	for i, command := range commands {
		resp.Commands[i] = commandResponse(command)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	command, err := h.store.GetCommandByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "command not found")
			return
		}
		h.log.Errorw("api: get command", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get command")
		return
	}
	writeJSON(w, http.StatusOK, commandResponse(command))
}

func (h *Handler) updateCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CommandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateCommandRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.store.GetCommandByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "command not found")
			return
		}
		h.log.Errorw("api: get command", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update command")
		return
	}

	command := domain.Command{
		ID:          existing.ID,
		Enabled:     req.Enabled,
		Name:        req.Name,
		Command:     req.Command,
		Aliases:     req.Aliases,
		Outcome:     req.Outcome,
		Cooldown:    req.Cooldown,
		RequireRole: req.RequireRole,
		Order:       req.Order,
		CreatedAt:   existing.CreatedAt,
	}

	if err := h.store.UpdateCommand(r.Context(), command); err != nil {
		h.log.Errorw("api: update command", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update command")
		return
	}
	writeJSON(w, http.StatusOK, commandResponse(command))
}

func (h *Handler) deleteCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteCommand(r.Context(), id); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "command not found")
			return
		}
		h.log.Errorw("api: delete command", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete command")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listExecutions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := domain.ExecutionsQuery{
		Limit:  int64(limit),
		Offset: int64(offset),
	}
	if start, err := parseTimeParam(r, "start_date"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if start != nil {
		query.StartDate = start
	}
	if end, err := parseTimeParam(r, "end_date"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if end != nil {
		query.EndDate = end
	}

	executions, err := h.store.ListExecutions(r.Context(), id, query)
	if err != nil {
		h.log.Errorw("api: list executions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	resp := ListExecutionsResponse{Executions: make([]ExecutionResponse, len(executions))}
	for i, exec := range executions {
		resp.Executions[i] = ExecutionResponse{
			ID:           exec.ID.String(),
			AutomationID: exec.AutomationID.String(),
			Kind:         string(exec.Kind),
			User:         exec.User,
			Input:        exec.Input,
			CreatedAt:    formatTime(exec.CreatedAt),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Image.Src == "" {
		writeError(w, http.StatusBadRequest, "image src is required")
		return
	}

	soundIDs := make([]uuid.UUID, 0, len(req.ImpactSoundIDs))
	for _, raw := range req.ImpactSoundIDs {
		soundID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid impact sound id")
			return
		}
		soundIDs = append(soundIDs, soundID)
	}

	image := req.Image
	if image.Weight == 0 {
		image.Weight = 1
	}
	if image.Scale == 0 {
		image.Scale = 1
	}

	item := domain.ItemWithImpactSounds{
		Item: domain.Item{
			ID:        uuid.New(),
			Name:      req.Name,
			Image:     image,
			Order:     req.Order,
			CreatedAt: time.Now().UTC(),
		},
		ImpactSoundIDs: soundIDs,
	}

	if err := h.store.CreateItem(r.Context(), item); err != nil {
		h.log.Errorw("api: create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		h.log.Errorw("api: list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, ListItemsResponse{Items: items})
}

func (h *Handler) createSound(w http.ResponseWriter, r *http.Request) {
	var req SoundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Src == "" {
		writeError(w, http.StatusBadRequest, "src is required")
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "volume must be between 0 and 1")
		return
	}

	sound := domain.Sound{
		ID:        uuid.New(),
		Name:      req.Name,
		Src:       req.Src,
		Volume:    req.Volume,
		Order:     req.Order,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.CreateSound(r.Context(), sound); err != nil {
		h.log.Errorw("api: create sound", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create sound")
		return
	}
	writeJSON(w, http.StatusCreated, sound)
}

func (h *Handler) listSounds(w http.ResponseWriter, r *http.Request) {
	sounds, err := h.store.ListSounds(r.Context())
	if err != nil {
		h.log.Errorw("api: list sounds", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sounds")
		return
	}
	writeJSON(w, http.StatusOK, ListSoundsResponse{Sounds: sounds})
}

// rebuildSchedule replaces the scheduler's task list from the current
// set of enabled timer events. Called after every event mutation; a
// wholesale replace makes always-rebuilding correct.
func (h *Handler) rebuildSchedule(ctx context.Context) {
	if h.sched == nil {
		return
	}

	events, err := h.store.ListEvents(ctx)
	if err != nil {
		h.log.Errorw("api: rebuild schedule", "error", err)
		return
	}

	var tasks []scheduler.Task
	for _, event := range events {
		trigger := event.Config.Trigger
		if !event.Enabled || trigger.Type != domain.TriggerTypeTimer || trigger.IntervalSeconds <= 0 {
			continue
		}
		tasks = append(tasks, scheduler.Task{
			EventID:         event.ID,
			IntervalSeconds: trigger.IntervalSeconds,
		})
	}
	h.sched.UpdateSchedule(ctx, tasks)
}

func eventResponse(event domain.Event) EventResponse {
	return EventResponse{
		ID:        event.ID.String(),
		Name:      event.Name,
		Enabled:   event.Enabled,
		Config:    event.Config,
		Order:     event.Order,
		CreatedAt: formatTime(event.CreatedAt),
	}
}

func commandResponse(command domain.Command) CommandResponse {
	return CommandResponse{
		ID:          command.ID.String(),
		Name:        command.Name,
		Enabled:     command.Enabled,
		Command:     command.Command,
		Aliases:     command.Aliases,
		Outcome:     command.Outcome,
		Cooldown:    command.Cooldown,
		RequireRole: command.RequireRole,
		Order:       command.Order,
		CreatedAt:   formatTime(command.CreatedAt),
	}
}

// decodeBody decodes a size-limited JSON request body into v. On
// failure it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultLimit
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
		if limit < 0 {
			return 0, 0, strconv.ErrRange
		}
		if limit > MaxLimit {
			return 0, 0, &limitExceededError{max: MaxLimit}
		}
		if limit == 0 {
			limit = DefaultLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
		if offset < 0 {
			return 0, 0, strconv.ErrRange
		}
	}

	return limit, offset, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("api: json encode", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
