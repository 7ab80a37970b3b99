package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/cache"
	"github.com/user/packhub-back/internal/favorites"
	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/packs"
	"github.com/user/packhub-back/internal/realtime"
)

type FavoritesHandler struct {
	list     *favorites.List
	repo     *packs.Repository
	cache    *cache.RedisCache
	notifier *realtime.Notifier
}

func NewFavoritesHandler(list *favorites.List, repo *packs.Repository, redisCache *cache.RedisCache, notifier *realtime.Notifier) *FavoritesHandler {
	return &FavoritesHandler{
		list:     list,
		repo:     repo,
		cache:    redisCache,
		notifier: notifier,
	}
}

// Toggle adds the sticker to the user's favorites if absent, removes it if
// present. Adding to a full list evicts the oldest favorite.
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stickerID, err := uuid.Parse(r.PathValue("stickerId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	if _, err := h.repo.GetSticker(r.Context(), stickerID); err != nil {
		if errors.Is(err, packs.ErrStickerNotFound) {
			respondError(w, http.StatusNotFound, "Sticker not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to toggle favorite")
		return
	}

	result, err := h.list.Toggle(r.Context(), userID, stickerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to toggle favorite")
		return
	}

	if h.cache != nil {
		_ = h.cache.InvalidateProfile(r.Context(), userID.String())
	}
	if h.notifier != nil {
		_ = h.notifier.NotifyUser(userID, "FAVORITES_UPDATED", &models.FavoritesUpdatedEvent{
			StickerID:        stickerID,
			Favorited:        result.Favorited,
			Evicted:          result.Evicted,
			EvictedStickerID: result.EvictedStickerID,
			ListSize:         result.ListSize,
		})
	}

	respondJSON(w, http.StatusOK, models.ToggleFavoriteResponse{
		Favorited:        result.Favorited,
		Favorites:        result.Favorites,
		Evicted:          result.Evicted,
		EvictedStickerID: result.EvictedStickerID,
		ListSize:         result.ListSize,
	})
}

// GetFavorites returns the user's favorite stickers, oldest first.
func (h *FavoritesHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stickers, err := h.repo.GetFavoriteStickers(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get favorites")
		return
	}
	if stickers == nil {
		stickers = []*models.Sticker{}
	}

	respondJSON(w, http.StatusOK, stickers)
}
