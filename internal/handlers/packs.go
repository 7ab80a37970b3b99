package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/cache"
	"github.com/user/packhub-back/internal/engagement"
	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/packs"
	"github.com/user/packhub-back/internal/realtime"
	"github.com/user/packhub-back/internal/storage"
)

type PacksHandler struct {
	repo      *packs.Repository
	storage   *storage.S3Storage
	counters  *engagement.Store
	cache     *cache.RedisCache
	notifier  *realtime.Notifier
	validator *validator.Validate
}

func NewPacksHandler(repo *packs.Repository, s3 *storage.S3Storage, counters *engagement.Store, redisCache *cache.RedisCache, notifier *realtime.Notifier) *PacksHandler {
	return &PacksHandler{
		repo:      repo,
		storage:   s3,
		counters:  counters,
		cache:     redisCache,
		notifier:  notifier,
		validator: validator.New(),
	}
}

// CreatePack creates a private draft pack with its category set.
func (h *PacksHandler) CreatePack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	categoryIDs := make([]uuid.UUID, len(req.CategoryIDs))
	for i, raw := range req.CategoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid category ID")
			return
		}
		categoryIDs[i] = id
	}

	pack, err := h.repo.CreatePack(r.Context(), userID, req.Name, req.Description, categoryIDs)
	if err != nil {
		switch {
		case errors.Is(err, packs.ErrCategoryRequired):
			respondError(w, http.StatusBadRequest, "At least one category is required")
		case errors.Is(err, packs.ErrTooManyCategories):
			respondError(w, http.StatusBadRequest, "Too many categories")
		case errors.Is(err, packs.ErrCategoryNotFound):
			respondError(w, http.StatusBadRequest, "Unknown category")
		default:
			respondError(w, http.StatusInternalServerError, "Failed to create pack")
		}
		return
	}

	respondJSON(w, http.StatusCreated, pack)
}

// GetPack returns a pack with its stickers in position order, through the
// short-TTL Redis cache when available.
func (h *PacksHandler) GetPack(w http.ResponseWriter, r *http.Request) {
	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	if h.cache != nil {
		var cached models.StickerPack
		if err := h.cache.GetJSON(r.Context(), cache.PackKey(packID.String()), &cached); err == nil {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	pack, err := h.repo.GetPack(r.Context(), packID)
	if err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get pack")
		return
	}

	if h.cache != nil {
		_ = h.cache.SetJSON(r.Context(), cache.PackKey(packID.String()), pack, cache.PackTTL)
	}

	respondJSON(w, http.StatusOK, pack)
}

// ListCategories returns all categories.
func (h *PacksHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.repo.ListCategories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get categories")
		return
	}
	if cats == nil {
		cats = []*models.Category{}
	}
	respondJSON(w, http.StatusOK, cats)
}

// UploadSticker uploads a sticker file and appends it to the pack.
func (h *PacksHandler) UploadSticker(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	pack, err := h.repo.GetPack(r.Context(), packID)
	if err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get pack")
		return
	}

	if pack.CreatorID == nil || *pack.CreatorID != userID {
		respondError(w, http.StatusForbidden, "Not the pack owner")
		return
	}

	// Limit upload size to 512KB for stickers
	r.Body = http.MaxBytesReader(w, r.Body, 512<<10)

	if err := r.ParseMultipartForm(512 << 10); err != nil {
		respondError(w, http.StatusBadRequest, "File too large (max 512KB)")
		return
	}

	file, header, err := r.FormFile("sticker")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "Sticker name is required")
		return
	}

	contentType := header.Header.Get("Content-Type")
	fileType, contentType, err := stickerFileType(contentType, header.Filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	isAnimated := fileType == "tgs" || fileType == "webm"

	fileURL, err := h.storage.UploadSticker(r.Context(), packID, header.Filename, contentType, file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to upload sticker")
		return
	}

	sticker, err := h.repo.AddSticker(r.Context(), packID, packs.NewSticker{
		Name:       name,
		Emojis:     splitList(r.FormValue("emojis")),
		Tags:       splitList(r.FormValue("tags")),
		IsAnimated: isAnimated,
		FileURL:    fileURL,
		FileType:   fileType,
		FileSize:   header.Size,
		Width:      512,
		Height:     512,
	})
	if err != nil {
		_ = h.storage.Delete(r.Context(), fileURL)
		switch {
		case errors.Is(err, packs.ErrPackFull):
			respondError(w, http.StatusConflict, "Pack is full")
		case errors.Is(err, packs.ErrAnimatedMismatch):
			respondError(w, http.StatusConflict, "Sticker animation type does not match the pack")
		case errors.Is(err, packs.ErrDuplicateStickerName):
			respondError(w, http.StatusConflict, "Sticker name already used in this pack")
		case errors.Is(err, packs.ErrTooManyTags):
			respondError(w, http.StatusBadRequest, "Too many tags")
		case errors.Is(err, packs.ErrTooManyEmojis):
			respondError(w, http.StatusBadRequest, "Too many emojis")
		default:
			respondError(w, http.StatusInternalServerError, "Failed to save sticker")
		}
		return
	}

	h.invalidatePack(r.Context(), packID)
	h.notifyPackChanged(userID, packID, "stickers_changed")
	respondJSON(w, http.StatusCreated, sticker)
}

// RemoveSticker deletes one sticker; survivors shift down to close the gap.
func (h *PacksHandler) RemoveSticker(w http.ResponseWriter, r *http.Request) {
	userID, packID, ok := h.ownedPack(w, r)
	if !ok {
		return
	}

	stickerID, err := uuid.Parse(r.PathValue("stickerId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	sticker, err := h.repo.GetSticker(r.Context(), stickerID)
	if err == nil {
		_ = h.storage.Delete(r.Context(), sticker.FileURL)
	}

	if err := h.repo.RemoveSticker(r.Context(), packID, stickerID); err != nil {
		if errors.Is(err, packs.ErrStickerNotFound) {
			respondError(w, http.StatusNotFound, "Sticker not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to remove sticker")
		return
	}

	h.invalidatePack(r.Context(), packID)
	h.notifyPackChanged(userID, packID, "stickers_changed")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sticker removed"})
}

// RemoveStickers deletes a set of stickers in one operation.
func (h *PacksHandler) RemoveStickers(w http.ResponseWriter, r *http.Request) {
	userID, packID, ok := h.ownedPack(w, r)
	if !ok {
		return
	}

	var req models.BulkRemoveStickersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	ids, err := parseUUIDs(req.StickerIDs)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	if err := h.repo.RemoveStickers(r.Context(), packID, ids); err != nil {
		if errors.Is(err, packs.ErrStickerNotFound) {
			respondError(w, http.StatusNotFound, "Sticker not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to remove stickers")
		return
	}

	h.invalidatePack(r.Context(), packID)
	h.notifyPackChanged(userID, packID, "stickers_changed")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Stickers removed"})
}

// MoveSticker moves a sticker to a new position within its pack.
func (h *PacksHandler) MoveSticker(w http.ResponseWriter, r *http.Request) {
	userID, packID, ok := h.ownedPack(w, r)
	if !ok {
		return
	}

	stickerID, err := uuid.Parse(r.PathValue("stickerId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	var req models.MoveStickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.repo.MoveSticker(r.Context(), packID, stickerID, req.Position); err != nil {
		if errors.Is(err, packs.ErrInvalidPosition) {
			respondError(w, http.StatusBadRequest, "Invalid position")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to move sticker")
		return
	}

	h.invalidatePack(r.Context(), packID)
	h.notifyPackChanged(userID, packID, "stickers_changed")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sticker moved"})
}

// ReorderStickers replaces the pack's ordering with the given permutation.
func (h *PacksHandler) ReorderStickers(w http.ResponseWriter, r *http.Request) {
	userID, packID, ok := h.ownedPack(w, r)
	if !ok {
		return
	}

	var req models.ReorderStickersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	sequence, err := parseUUIDs(req.StickerIDs)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	if err := h.repo.ReorderStickers(r.Context(), packID, sequence); err != nil {
		if errors.Is(err, packs.ErrIncompleteSet) {
			respondError(w, http.StatusBadRequest, "Reorder must include every sticker exactly once")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to reorder stickers")
		return
	}

	h.invalidatePack(r.Context(), packID)
	h.notifyPackChanged(userID, packID, "stickers_changed")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Stickers reordered"})
}

// PublishPack makes a pack publicly visible.
func (h *PacksHandler) PublishPack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	if err := h.repo.PublishPack(r.Context(), packID, userID); err != nil {
		h.respondOwnershipError(w, err, "Failed to publish pack")
		return
	}

	h.invalidatePack(r.Context(), packID)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Pack published"})
}

// DeletePack deletes a pack and its files.
func (h *PacksHandler) DeletePack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	if err := h.repo.DeletePack(r.Context(), packID, userID); err != nil {
		h.respondOwnershipError(w, err, "Failed to delete pack")
		return
	}

	// Best effort: orphaned files are harmless.
	_ = h.storage.DeleteFolder(r.Context(), "stickers/"+packID.String())

	h.invalidatePack(r.Context(), packID)
	h.notifyPackChanged(userID, packID, "deleted")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Pack deleted"})
}

// SavePack adds a pack to the user's collection and bumps its favorites
// counter on first save.
func (h *PacksHandler) SavePack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	saved, err := h.repo.SavePack(r.Context(), userID, packID)
	if err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to save pack")
		return
	}

	if saved {
		_ = h.counters.IncrementPack(r.Context(), packID, engagement.FieldFavorites)
		h.invalidateProfile(r.Context(), userID)
		h.notifyPackChanged(userID, packID, "saved")
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Pack saved"})
}

// UnsavePack removes a pack from the user's collection.
func (h *PacksHandler) UnsavePack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	removed, err := h.repo.UnsavePack(r.Context(), userID, packID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to unsave pack")
		return
	}

	if removed {
		_ = h.counters.DecrementPack(r.Context(), packID, engagement.FieldFavorites)
		h.invalidateProfile(r.Context(), userID)
		h.notifyPackChanged(userID, packID, "unsaved")
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Pack unsaved"})
}

// GetSavedPacks returns the user's collection, newest save first.
func (h *PacksHandler) GetSavedPacks(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	saved, err := h.repo.GetSavedPacks(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get saved packs")
		return
	}
	if saved == nil {
		saved = []*models.StickerPack{}
	}

	respondJSON(w, http.StatusOK, saved)
}

// HidePack removes a pack from the user's trending feed.
func (h *PacksHandler) HidePack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	if err := h.repo.HidePack(r.Context(), userID, packID); err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to hide pack")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Pack hidden"})
}

func (h *PacksHandler) UnhidePack(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return
	}

	if err := h.repo.UnhidePack(r.Context(), userID, packID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to unhide pack")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Pack unhidden"})
}

// ownedPack parses the pack ID and verifies the caller owns it.
func (h *PacksHandler) ownedPack(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := r.Context().Value("userID").(uuid.UUID)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	packID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid pack ID")
		return uuid.Nil, uuid.Nil, false
	}

	pack, err := h.repo.GetPack(r.Context(), packID)
	if err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, "Pack not found")
			return uuid.Nil, uuid.Nil, false
		}
		respondError(w, http.StatusInternalServerError, "Failed to get pack")
		return uuid.Nil, uuid.Nil, false
	}

	if pack.CreatorID == nil || *pack.CreatorID != userID {
		respondError(w, http.StatusForbidden, "Not the pack owner")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, packID, true
}

func (h *PacksHandler) respondOwnershipError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, packs.ErrPackNotFound):
		respondError(w, http.StatusNotFound, "Pack not found")
	case errors.Is(err, packs.ErrNotOwner):
		respondError(w, http.StatusForbidden, "Not the pack owner")
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// invalidateProfile drops the cached preference profile after a collection
// change so the next feed request rebuilds it.
func (h *PacksHandler) invalidateProfile(ctx context.Context, userID uuid.UUID) {
	if h.cache != nil {
		_ = h.cache.InvalidateProfile(ctx, userID.String())
	}
}

// invalidatePack drops the cached pack snapshot after a mutation.
func (h *PacksHandler) invalidatePack(ctx context.Context, packID uuid.UUID) {
	if h.cache != nil {
		_ = h.cache.Delete(ctx, cache.PackKey(packID.String()))
	}
}

func (h *PacksHandler) notifyPackChanged(userID, packID uuid.UUID, action string) {
	if h.notifier == nil {
		return
	}
	_ = h.notifier.NotifyUser(userID, "PACK_UPDATED", &models.PackUpdatedEvent{
		PackID: packID,
		Action: action,
	})
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// splitList parses a comma-separated form value into a trimmed list.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stickerFileType maps the upload's content type (or extension fallback) to
// the stored file type.
func stickerFileType(contentType, filename string) (string, string, error) {
	switch contentType {
	case "application/gzip", "application/x-tgsticker":
		return "tgs", "application/gzip", nil
	case "image/webp":
		return "webp", contentType, nil
	case "image/png":
		return "png", contentType, nil
	case "video/webm":
		return "webm", contentType, nil
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".tgs":
		return "tgs", "application/gzip", nil
	case ".webm":
		return "webm", "video/webm", nil
	case ".webp":
		return "webp", "image/webp", nil
	case ".png":
		return "png", "image/png", nil
	}

	return "", "", errors.New("invalid file type, use .tgs, .webm, .webp, or .png")
}
