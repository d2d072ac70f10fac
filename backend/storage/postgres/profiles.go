// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/campusforum/chatlink/backend/models"
)

// GetProfile resolves a forum user's display identity. Unknown and
// malformed ids fail with ErrNotFound rather than returning an empty
// profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: empty user id", models.ErrNotFound)
	}

	var p models.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, profile_photo
		FROM forum_users
		WHERE id = $1
	`, userID).Scan(&p.ID, &p.Username, &p.ProfilePhoto)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchProfiles is the "start a new chat" lookup: case-insensitive
// username substring match.
func (s *Store) SearchProfiles(ctx context.Context, term string, limit int) ([]models.Profile, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, profile_photo
		FROM forum_users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT $2
	`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.ProfilePhoto); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
