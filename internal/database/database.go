package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) Migrate(ctx context.Context) error {
	schema := `
		CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			username VARCHAR(32) UNIQUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS refresh_tokens (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token VARCHAR(255) UNIQUE NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token ON refresh_tokens(token);
		CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);

		CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(32) UNIQUE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		-- Sticker packs. Counters are mutated only through the engagement
		-- store; the CHECK constraints back up its never-negative contract.
		CREATE TABLE IF NOT EXISTS sticker_packs (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(64) NOT NULL,
			description VARCHAR(256),
			cover_url TEXT,
			creator_id UUID REFERENCES users(id) ON DELETE SET NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			is_approved BOOLEAN NOT NULL DEFAULT FALSE,
			is_animated BOOLEAN NOT NULL DEFAULT FALSE,
			sticker_count INT NOT NULL DEFAULT 0,
			downloads INT NOT NULL DEFAULT 0 CHECK (downloads >= 0),
			views INT NOT NULL DEFAULT 0 CHECK (views >= 0),
			favorites INT NOT NULL DEFAULT 0 CHECK (favorites >= 0),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS pack_categories (
			pack_id UUID NOT NULL REFERENCES sticker_packs(id) ON DELETE CASCADE,
			category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (pack_id, category_id)
		);

		-- Stickers. Position is a contiguous permutation of [0, n) per pack,
		-- maintained by the ordering operations under a per-pack lock.
		CREATE TABLE IF NOT EXISTS stickers (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			pack_id UUID NOT NULL REFERENCES sticker_packs(id) ON DELETE CASCADE,
			name VARCHAR(64) NOT NULL,
			emojis TEXT[] NOT NULL DEFAULT '{}',
			tags TEXT[] NOT NULL DEFAULT '{}',
			is_animated BOOLEAN NOT NULL DEFAULT FALSE,
			file_url TEXT NOT NULL,
			file_type VARCHAR(10) NOT NULL DEFAULT 'webp',
			file_size BIGINT NOT NULL DEFAULT 0,
			width INT NOT NULL DEFAULT 512,
			height INT NOT NULL DEFAULT 512,
			position INT NOT NULL,
			favorites INT NOT NULL DEFAULT 0 CHECK (favorites >= 0),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (pack_id, name)
		);

		CREATE INDEX IF NOT EXISTS idx_stickers_pack_position ON stickers(pack_id, position);

		-- User's saved pack collection (pack-level favorites).
		CREATE TABLE IF NOT EXISTS user_pack_saves (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			pack_id UUID NOT NULL REFERENCES sticker_packs(id) ON DELETE CASCADE,
			added_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (user_id, pack_id)
		);

		CREATE INDEX IF NOT EXISTS idx_user_pack_saves_user ON user_pack_saves(user_id);

		-- Packs a user hid from trending.
		CREATE TABLE IF NOT EXISTS user_hidden_packs (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			pack_id UUID NOT NULL REFERENCES sticker_packs(id) ON DELETE CASCADE,
			hidden_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (user_id, pack_id)
		);

		-- Bounded per-user favorite stickers. seq gives the FIFO order.
		CREATE TABLE IF NOT EXISTS user_favorite_stickers (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			sticker_id UUID NOT NULL REFERENCES stickers(id) ON DELETE CASCADE,
			seq BIGINT GENERATED ALWAYS AS IDENTITY,
			added_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (user_id, sticker_id)
		);

		CREATE INDEX IF NOT EXISTS idx_user_favorite_stickers_seq ON user_favorite_stickers(user_id, seq);

		-- Append-only view events for the dedup window.
		CREATE TABLE IF NOT EXISTS pack_view_events (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			pack_id UUID NOT NULL REFERENCES sticker_packs(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			viewed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_pack_view_events_lookup ON pack_view_events(pack_id, user_id, viewed_at DESC);

		CREATE INDEX IF NOT EXISTS idx_sticker_packs_public ON sticker_packs(is_public, is_approved);
		CREATE INDEX IF NOT EXISTS idx_sticker_packs_created ON sticker_packs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_pack_categories_category ON pack_categories(category_id);

		INSERT INTO categories (name) VALUES
			('animals'), ('memes'), ('anime'), ('reactions'), ('holidays'), ('games'), ('misc')
		ON CONFLICT (name) DO NOTHING;
	`

	_, err := db.Pool.Exec(ctx, schema)
	return err
}
