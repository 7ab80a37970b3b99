package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/packhub-back/internal/auth"
	"github.com/user/packhub-back/internal/models"
	"github.com/user/packhub-back/internal/packs"
)

// Provider implements DataProvider interface
type Provider struct {
	authRepo  *auth.Repository
	packsRepo *packs.Repository
}

func NewProvider(authRepo *auth.Repository, packsRepo *packs.Repository) *Provider {
	return &Provider{
		authRepo:  authRepo,
		packsRepo: packsRepo,
	}
}

func (p *Provider) GetReadyState(ctx context.Context, userID uuid.UUID) (*models.ReadyEvent, error) {
	type result struct {
		user       *models.User
		savedPacks []*models.StickerPack
		favorites  []*models.Sticker
		err        error
	}

	ch := make(chan result, 1)

	go func() {
		var r result

		r.user, r.err = p.authRepo.GetUserByID(ctx, userID)
		if r.err != nil {
			ch <- r
			return
		}

		r.savedPacks, _ = p.packsRepo.GetSavedPacks(ctx, userID)
		if r.savedPacks == nil {
			r.savedPacks = []*models.StickerPack{}
		}

		r.favorites, _ = p.packsRepo.GetFavoriteStickers(ctx, userID)
		if r.favorites == nil {
			r.favorites = []*models.Sticker{}
		}

		ch <- r
	}()

	r := <-ch
	if r.err != nil {
		return nil, r.err
	}

	return &models.ReadyEvent{
		User:       r.user,
		SavedPacks: r.savedPacks,
		Favorites:  r.favorites,
	}, nil
}
