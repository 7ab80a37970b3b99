package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/packhub-back/internal/config"
	"github.com/user/packhub-back/internal/storage"
)

// Seeds one public, approved pack from a directory of sticker files.
// Usage: seed-packs <dir> [pack name] [category]
func main() {
	ctx := context.Background()
	cfg := config.Load()

	stickerDir := "./stickers"
	packName := "Starter Pack"
	categoryName := "misc"
	if len(os.Args) > 1 {
		stickerDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		packName = os.Args[2]
	}
	if len(os.Args) > 3 {
		categoryName = os.Args[3]
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	s3Storage, err := storage.NewS3Storage(storage.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		CDNURL:          cfg.S3CDNURL,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 storage: %v", err)
	}

	var categoryID uuid.UUID
	err = pool.QueryRow(ctx, `SELECT id FROM categories WHERE name = $1`, categoryName).Scan(&categoryID)
	if err != nil {
		log.Fatalf("Unknown category %q: %v", categoryName, err)
	}

	packID := uuid.New()
	_, err = pool.Exec(ctx, `
		INSERT INTO sticker_packs (id, name, description, is_public, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, true, true, NOW(), NOW())
	`, packID, packName, "Official sticker pack")
	if err != nil {
		log.Fatalf("Failed to create sticker pack: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO pack_categories (pack_id, category_id) VALUES ($1, $2)
	`, packID, categoryID)
	if err != nil {
		log.Fatalf("Failed to link category: %v", err)
	}
	log.Printf("Created sticker pack: %s (%s)", packName, packID)

	files, err := os.ReadDir(stickerDir)
	if err != nil {
		log.Fatalf("Failed to read sticker directory: %v", err)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})

	emojis := []string{"😺", "😸", "😹", "😻", "😼", "😽", "🙀", "😿", "😾", "🐱",
		"👋", "✨", "💕", "💖", "💗", "💝", "💘", "❤️", "🧡", "💛",
		"💚", "💙", "💜", "🖤", "💯", "💢", "💥", "💫", "🎉", "🎈"}

	var firstStickerURL string
	packAnimated := false
	position := 0

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		filename := file.Name()
		ext := strings.ToLower(filepath.Ext(filename))

		var fileType, contentType string
		switch ext {
		case ".tgs":
			fileType = "tgs"
			contentType = "application/gzip"
		case ".webm":
			fileType = "webm"
			contentType = "video/webm"
		case ".webp":
			fileType = "webp"
			contentType = "image/webp"
		case ".png":
			fileType = "png"
			contentType = "image/png"
		default:
			log.Printf("Skipping unsupported file: %s", filename)
			continue
		}
		isAnimated := fileType == "tgs" || fileType == "webm"

		fileData, err := os.Open(filepath.Join(stickerDir, filename))
		if err != nil {
			log.Printf("Failed to open %s: %v", filename, err)
			continue
		}

		fileURL, err := s3Storage.UploadSticker(ctx, packID, filename, contentType, fileData)
		fileData.Close()
		if err != nil {
			log.Printf("Failed to upload %s: %v", filename, err)
			continue
		}

		if firstStickerURL == "" {
			firstStickerURL = fileURL
			packAnimated = isAnimated
		}

		name := strings.TrimSuffix(filename, ext)
		emoji := "😺"
		if position < len(emojis) {
			emoji = emojis[position]
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO stickers (pack_id, name, emojis, tags, is_animated, file_url, file_type, file_size, width, height, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 512, 512, $8)
		`, packID, name, []string{emoji}, []string{categoryName}, isAnimated, fileURL, fileType, position)
		if err != nil {
			log.Printf("Failed to insert sticker %s: %v", filename, err)
			continue
		}

		position++
		log.Printf("Uploaded: %s (%s)", filename, emoji)
	}

	_, err = pool.Exec(ctx, `
		UPDATE sticker_packs SET sticker_count = $2, is_animated = $3, cover_url = $4 WHERE id = $1
	`, packID, position, packAnimated, firstStickerURL)
	if err != nil {
		log.Printf("Warning: failed to finalize pack: %v", err)
	}

	log.Printf("Done! Uploaded %d stickers to pack '%s'", position, packName)
}
