package handlers

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/cache"
	"github.com/user/packhub-back/internal/engagement"
	"github.com/user/packhub-back/internal/feed"
	"github.com/user/packhub-back/internal/packs"
	"github.com/user/packhub-back/internal/views"
)

// View recording is cheap to spam; cap per client per minute.
const (
	viewRateLimit  = 60
	viewRateWindow = time.Minute
)

type FeedsHandler struct {
	engine   *feed.Engine
	tracker  *views.Tracker
	counters *engagement.Store
	repo     *packs.Repository
	cache    *cache.RedisCache
}

func NewFeedsHandler(engine *feed.Engine, tracker *views.Tracker, counters *engagement.Store, repo *packs.Repository, redisCache *cache.RedisCache) *FeedsHandler {
	return &FeedsHandler{
		engine:   engine,
		tracker:  tracker,
		counters: counters,
		repo:     repo,
		cache:    redisCache,
	}
}

// GetHome returns all three feeds in one response.
func (h *FeedsHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.engine.Home(r.Context(), optionalUserID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build home feed")
		return
	}
	respondJSON(w, http.StatusOK, home)
}

// GetRecommended returns the personalized recommendations.
func (h *FeedsHandler) GetRecommended(w http.ResponseWriter, r *http.Request) {
	packs, err := h.engine.Recommended(r.Context(), optionalUserID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build recommended feed")
		return
	}
	respondJSON(w, http.StatusOK, packs)
}

// GetTrending returns a page of the trending feed. page is 0-based; an
// optional category filters candidates before ranking.
func (h *FeedsHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	var categoryID *uuid.UUID
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid category ID")
			return
		}
		categoryID = &id
	}

	page := queryInt(r, "page", 0)

	packs, err := h.engine.Trending(r.Context(), optionalUserID(r), categoryID, page)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build trending feed")
		return
	}
	respondJSON(w, http.StatusOK, packs)
}

// GetSuggested returns a page of the suggested feed with pagination
// metadata. page is 1-based.
func (h *FeedsHandler) GetSuggested(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)

	suggested, err := h.engine.Suggested(r.Context(), optionalUserID(r), page, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build suggested feed")
		return
	}
	respondJSON(w, http.StatusOK, suggested)
}

// RecordView records a pack view. Known users are counted at most once per
// dedup window; anonymous views always count.
func (h *FeedsHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	userID := optionalUserID(r)

	if h.cache != nil {
		allowed, err := h.cache.CheckRateLimit(r.Context(), "views:"+clientKey(r, userID), viewRateLimit, viewRateWindow)
		if err == nil && !allowed {
			respondError(w, http.StatusTooManyRequests, "Too many view requests")
			return
		}
	}

	if _, err := h.repo.GetPack(r.Context(), packID); err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to record view")
		return
	}

	counted := h.tracker.ShouldCount(r.Context(), packID, userID)
	if counted {
		if err := h.counters.IncrementPack(r.Context(), packID, engagement.FieldViews); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to record view")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]bool{"counted": counted})
}

// RecordDownload bumps the pack's download counter and returns the pack.
// Downloads are not deduplicated.
func (h *FeedsHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	if err := h.counters.IncrementPack(r.Context(), packID, engagement.FieldDownloads); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to record download")
		return
	}

	pack, err := h.repo.GetPack(r.Context(), packID)
	if err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to record download")
		return
	}

	respondJSON(w, http.StatusOK, pack)
}

// optionalUserID extracts the user ID set by OptionalAuth, nil when
// anonymous.
func optionalUserID(r *http.Request) *uuid.UUID {
	if userID, ok := r.Context().Value("userID").(uuid.UUID); ok {
		return &userID
	}
	return nil
}

// clientKey identifies the rate-limit bucket: user id when known, client
// address otherwise.
func clientKey(r *http.Request, userID *uuid.UUID) string {
	if userID != nil {
		return userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
