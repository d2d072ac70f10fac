// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	redisfeed "github.com/campusforum/chatlink/backend/storage/redis"
)

// Store is the postgres implementation of storage.Store. Message writes
// publish their row through the redis feed after commit, and unread
// bookkeeping is delegated to redis the same way.
type Store struct {
	db   *sql.DB
	feed *redisfeed.Feed
	log  zerolog.Logger
}

func NewStore(db *sql.DB, feed *redisfeed.Feed, log zerolog.Logger) *Store {
	return &Store{
		db:   db,
		feed: feed,
		log:  log.With().Str("component", "store").Logger(),
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
