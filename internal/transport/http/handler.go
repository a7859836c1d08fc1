package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"learnworld-service/internal/app"
	"learnworld-service/internal/config"
	"learnworld-service/internal/domain"
	"learnworld-service/internal/logger"
)

// UserHeader carries the caller's ID; authentication happens upstream.
const UserHeader = "X-User-ID"

// Handler serves the REST API over the progression use cases.
type Handler struct {
	service *app.ProgressService
	limits  config.Leaderboard
	log     *logger.Logger
}

func NewHandler(service *app.ProgressService, limits config.Leaderboard, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{service: service, limits: limits.Defaults(), log: log}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users", h.register)
	mux.HandleFunc("GET /api/users/me/profile", h.profile)
	mux.HandleFunc("PUT /api/users/me/profile", h.updateProfile)
	mux.HandleFunc("GET /api/users/me/progress", h.progress)
	mux.HandleFunc("POST /api/users/me/coins", h.grantCoins)

	mux.HandleFunc("GET /api/worlds", h.worlds)
	mux.HandleFunc("GET /api/levels", h.levels)
	mux.HandleFunc("GET /api/lessons/{world}/{level}", h.listLessons)
	mux.HandleFunc("GET /api/lessons/{id}", h.getLesson)
	mux.HandleFunc("POST /api/lessons/{id}/submit", h.submitLesson)

	mux.HandleFunc("GET /api/leaderboard/global", h.globalLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/world/{world}", h.worldLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/my-rank", h.myRank)
	mux.HandleFunc("GET /api/leaderboard/top-performers", h.topPerformers)
}

type registerRequest struct {
	Name string `json:"name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	user, err := h.service.Register(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "user": user})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	progress, total, err := h.service.Progress(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress, "totalScore": total})
}

type grantRequest struct {
	Coins int    `json:"coins"`
	World string `json:"world"`
}

func (h *Handler) grantCoins(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var world *domain.World
	if req.World != "" {
		parsed, err := domain.ParseWorld(req.World)
		if err != nil {
			h.writeError(w, err)
			return
		}
		world = &parsed
	}
	summary, err := h.service.GrantCoins(r.Context(), userID, req.Coins, world)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		domain.GrantSummary
	}{"Coins added successfully", summary})
}

func (h *Handler) worlds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"worlds": domain.Catalogue()})
}

func (h *Handler) levels(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	levels, err := h.service.Levels(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"levels": levels})
}

func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	world, err := domain.ParseWorld(r.PathValue("world"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil || level < 1 {
		writeMessage(w, http.StatusBadRequest, "invalid level")
		return
	}
	lessons, err := h.service.ListLessons(r.Context(), userID, world, level)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

func (h *Handler) getLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.service.GetLesson(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lesson": lesson})
}

type submitRequest struct {
	Answers []json.RawMessage `json:"answers"`
}

func (h *Handler) submitLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	summary, err := h.service.SubmitLesson(r.Context(), userID, r.PathValue("id"), ParseAnswers(req.Answers))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		domain.CompletionSummary
	}{"Lesson completed successfully", summary})
}

func (h *Handler) globalLeaderboard(w http.ResponseWriter, r *http.Request) {
	size, index := h.pageParams(r, h.limits.DefaultPageSize)
	page, err := h.service.Leaderboard(r.Context(), nil, size, index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse(page))
}

func (h *Handler) worldLeaderboard(w http.ResponseWriter, r *http.Request) {
	world, err := domain.ParseWorld(r.PathValue("world"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	size, index := h.pageParams(r, h.limits.WorldPageSize)
	page, err := h.service.Leaderboard(r.Context(), &world, size, index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := pageResponse(page)
	resp["world"] = world.Key()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) myRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rank, err := h.service.Rank(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}

func (h *Handler) topPerformers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.TopPerformers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topPerformers": entries})
}

// pageParams reads limit and 1-based page, falling back to defaults on bad input.
func (h *Handler) pageParams(r *http.Request, defaultSize int) (int, int) {
	size := defaultSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		size = v
	}
	if size > h.limits.MaxPageSize {
		size = h.limits.MaxPageSize
	}
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	return size, page - 1
}

func pageResponse(page domain.Page) map[string]any {
	return map[string]any{
		"leaderboard": page.Entries,
		"pagination": map[string]any{
			"currentPage": page.PageIndex + 1,
			"pageSize":    page.PageSize,
			"totalPages":  page.TotalPages,
			"totalUsers":  page.TotalEntries,
			"hasNext":     page.HasNext,
			"hasPrev":     page.HasPrev,
		},
	}
}

// ParseAnswers turns raw JSON answer slots into option indices. Anything that
// is not an integral number (null, strings, fractions, objects) becomes NoAnswer.
func ParseAnswers(raw []json.RawMessage) domain.AnswerSubmission {
	answers := make(domain.AnswerSubmission, len(raw))
	for i, slot := range raw {
		answers[i] = parseAnswer(slot)
	}
	return answers
}

// parseAnswer decodes through a pointer so that null stays distinguishable
// from option 0.
func parseAnswer(slot json.RawMessage) int {
	var f *float64
	if err := json.Unmarshal(slot, &f); err != nil || f == nil {
		return domain.NoAnswer
	}
	if *f != math.Trunc(*f) || *f < 0 || *f > math.MaxInt32 {
		return domain.NoAnswer
	}
	return int(*f)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
		return "", false
	}
	return userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
		writeMessage(w, status, "internal error")
		return
	}
	writeMessage(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuplicateCompletion), errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrLessonNotFound), errors.Is(err, domain.ErrNotRanked):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidProfile),
		errors.Is(err, domain.ErrUnknownWorld),
		errors.Is(err, domain.ErrInvalidCoinAmount),
		errors.Is(err, domain.ErrInvalidPagination):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type messagePayload struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messagePayload{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
