package handlers

//go:generate mockgen -source=handlers.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/auth"
	"github.com/Totarae/psabot/internal/middleware"
	"github.com/Totarae/psabot/internal/model"
	"github.com/Totarae/psabot/internal/selection"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Resolver сервис получения ссылок и журнал запросов.
type Resolver interface {
	Resolve(ctx context.Context, userID int64, pageURL, code string) (model.Batch, error)
	History(ctx context.Context, userID int64, limit int) ([]*model.Resolution, error)
	Ping(ctx context.Context) error
}

// Authorizer проверка участия в разрешённом чате.
type Authorizer interface {
	Check(ctx context.Context, userID int64) error
}

type Handler struct {
	Service Resolver
	Members Authorizer
	Logger  *zap.Logger
	Mode    string
}

func NewHandler(service Resolver, members Authorizer, logger *zap.Logger, mode string) *Handler {
	return &Handler{
		Service: service,
		Members: members,
		Logger:  logger,
		Mode:    mode,
	}
}

// Ping проверяет доступность журнала.
func (h *Handler) Ping(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	if err := h.Service.Ping(ctx); err != nil {
		h.Logger.Error("Ping failed", zap.String("mode", h.Mode), zap.Error(err))
		http.Error(res, "Storage unavailable", http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "text/plain")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write([]byte("OK"))
}

// Resolve принимает {"url","selection"} и возвращает найденные ссылки с подписями.
func (h *Handler) Resolve(res http.ResponseWriter, req *http.Request) {
	userID, ok := middleware.UserIDFromContext(req.Context())
	if !ok {
		http.Error(res, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Members.Check(req.Context(), userID); err != nil {
		if errors.Is(err, auth.ErrNotAllowed) {
			http.Error(res, err.Error(), http.StatusForbidden)
			return
		}
		h.Logger.Error("Membership check failed", zap.Int64("user", userID), zap.Error(err))
		http.Error(res, "Membership check failed", http.StatusBadGateway)
		return
	}

	var request model.ResolveRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		http.Error(res, "Invalid JSON", http.StatusBadRequest)
		return
	}
	request.URL = strings.TrimSpace(request.URL)
	request.Selection = strings.TrimSpace(request.Selection)
	if request.URL == "" || request.Selection == "" {
		http.Error(res, "url and selection are required", http.StatusBadRequest)
		return
	}

	batch, err := h.Service.Resolve(req.Context(), userID, request.URL, request.Selection)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNoResults):
		http.Error(res, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, selection.ErrEmptySelection):
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, context.Canceled):
		return
	default:
		h.Logger.Error("Resolve failed", zap.String("url", request.URL), zap.Error(err))
		http.Error(res, err.Error(), http.StatusBadGateway)
		return
	}

	resp := model.ResolveResponse{Links: make([]model.LinkItem, 0, len(batch.Links))}
	for _, link := range batch.Links {
		title, err := selection.Humanize(link)
		if err != nil {
			title = link
		}
		resp.Links = append(resp.Links, model.LinkItem{Title: title, URL: link})
	}

	writeJSON(res, http.StatusOK, resp, h.Logger)
}

// History возвращает последние запросы пользователя. Для пустого журнала 204.
func (h *Handler) History(res http.ResponseWriter, req *http.Request) {
	userID, ok := middleware.UserIDFromContext(req.Context())
	if !ok {
		http.Error(res, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultHistoryLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(res, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.Service.History(req.Context(), userID, limit)
	if err != nil {
		h.Logger.Error("History failed", zap.Int64("user", userID), zap.Error(err))
		http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	items := make([]model.HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, model.HistoryItem{
			ID:        r.ID,
			PageURL:   r.PageURL,
			Selection: r.Selection,
			Accepted:  r.Accepted,
			Scanned:   r.Scanned,
			Error:     r.Error,
			Started:   r.Started,
			Millis:    r.Duration.Milliseconds(),
		})
	}
	writeJSON(res, http.StatusOK, items, h.Logger)
}

func writeJSON(res http.ResponseWriter, status int, v any, logger *zap.Logger) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
