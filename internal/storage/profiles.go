package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

// GetProfile loads the interest profile of username.
func (db *DB) GetProfile(ctx context.Context, username string) (domain.Profile, error) {
	var (
		p         domain.Profile
		interests string
		updatedAt pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT username, interests, updated_at FROM profiles WHERE username = $1
	`, username).Scan(&p.Username, &interests, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("profile %q: %w", username, coreerrors.ErrProfileNotFound)
	}

	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile %q: %w", username, err)
	}

	p.Interests = domain.ParseInterests(interests)
	p.UpdatedAt = fromTimestamptz(updatedAt)

	return p, nil
}

// SaveProfile creates or replaces a profile. Interests are stored as one
// joined string. The last write wins.
func (db *DB) SaveProfile(ctx context.Context, p domain.Profile) error {
	if p.Username == "" {
		p.Username = domain.DefaultUsername
	}

	interests := make([]string, 0, len(p.Interests))
	for _, term := range p.Interests {
		interests = append(interests, SanitizeUTF8(term))
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO profiles (username, interests, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET interests = EXCLUDED.interests, updated_at = EXCLUDED.updated_at
	`, p.Username, domain.JoinInterests(interests), db.now().UTC())
	if err != nil {
		return fmt.Errorf("save profile %q: %w", p.Username, err)
	}

	return nil
}
