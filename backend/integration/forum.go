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

// Package integration wires the chat module into a host forum server.
// The forum embeds ChatIntegration and mounts its routes under an
// existing router; standalone mode in cmd/server uses the same entry
// point.
package integration

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/chat"
	"github.com/campusforum/chatlink/backend/handlers"
	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/middleware"
	"github.com/campusforum/chatlink/backend/storage/postgres"
	redisfeed "github.com/campusforum/chatlink/backend/storage/redis"
	"github.com/campusforum/chatlink/backend/telemetry"
)

// Config holds everything the chat module needs from the host.
type Config struct {
	DB           *sql.DB
	Redis        *redis.Client
	JWTSecret    string
	JWTIssuer    string
	UploadURL    string
	UploadPreset string
	SendRPS      float64
	SendBurst    int
	Log          zerolog.Logger
}

// ChatIntegration provides the messaging backend as an embeddable
// module for the campus forum.
type ChatIntegration struct {
	store     *postgres.Store
	feed      *redisfeed.Feed
	directory *chat.Directory
	composer  *chat.Composer
	lifecycle *chat.Lifecycle

	convHandler  *handlers.ConversationHandler
	msgHandler   *handlers.MessageHandler
	mediaHandler *handlers.MediaHandler
	userHandler  *handlers.UserHandler

	limiter   *middleware.RateLimiter
	jwtSecret string
	jwtIssuer string
	log       zerolog.Logger
}

// NewChatIntegration builds the full component graph and runs the
// schema migrations.
func NewChatIntegration(config *Config) (*ChatIntegration, error) {
	feed := redisfeed.NewFeed(config.Redis, config.Log)
	store := postgres.NewStore(config.DB, feed, config.Log)

	if err := store.Migrate(); err != nil {
		return nil, err
	}

	uploader := media.NewHTTPUploader(config.UploadURL, config.UploadPreset, config.Log)

	directory := chat.NewDirectory(store, config.Log)
	composer := chat.NewComposer(store, uploader, config.Log)
	lifecycle := chat.NewLifecycle(store, directory, config.Log)

	rps := config.SendRPS
	if rps <= 0 {
		rps = 5
	}
	burst := config.SendBurst
	if burst <= 0 {
		burst = 10
	}

	return &ChatIntegration{
		store:        store,
		feed:         feed,
		directory:    directory,
		composer:     composer,
		lifecycle:    lifecycle,
		convHandler:  handlers.NewConversationHandler(directory, store, config.Log),
		msgHandler:   handlers.NewMessageHandler(composer, lifecycle, config.Log),
		mediaHandler: handlers.NewMediaHandler(uploader, config.Log),
		userHandler:  handlers.NewUserHandler(store, config.Log),
		limiter:      middleware.NewRateLimiter(rps, burst),
		jwtSecret:    config.JWTSecret,
		jwtIssuer:    config.JWTIssuer,
		log:          config.Log,
	}, nil
}

// RegisterRoutes adds the chat routes to an existing router. If
// authMiddleware is nil the built-in JWT validation is used.
func (c *ChatIntegration) RegisterRoutes(router *mux.Router, authMiddleware func(http.Handler) http.Handler) {
	api := router.PathPrefix("/api/chat").Subrouter()

	if authMiddleware != nil {
		api.Use(authMiddleware)
	} else {
		api.Use(middleware.NewAuthMiddleware(c.jwtSecret, c.jwtIssuer))
	}
	api.Use(c.limiter.Middleware)
	api.Use(c.instrument)

	// Conversation directory
	api.HandleFunc("/conversations", c.convHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/conversations/direct", c.convHandler.CreateDirect).Methods("POST", "OPTIONS")
	api.HandleFunc("/conversations/group", c.convHandler.CreateGroup).Methods("POST", "OPTIONS")
	api.HandleFunc("/conversations/{conversationId}", c.convHandler.Delete).Methods("DELETE", "OPTIONS")

	// Messages
	api.HandleFunc("/conversations/{conversationId}/messages", c.convHandler.History).Methods("GET", "OPTIONS")
	api.HandleFunc("/conversations/{conversationId}/messages", c.msgHandler.Send).Methods("POST", "OPTIONS")
	api.HandleFunc("/messages/{messageId}", c.msgHandler.Edit).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/messages/{messageId}", c.msgHandler.DeleteForEveryone).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/messages/{messageId}/delete-for-me", c.msgHandler.DeleteForMe).Methods("POST", "OPTIONS")
	api.HandleFunc("/messages/{messageId}/forward", c.msgHandler.Forward).Methods("POST", "OPTIONS")
	api.HandleFunc("/messages/{messageId}/read", c.msgHandler.MarkRead).Methods("POST", "OPTIONS")

	// Media
	api.HandleFunc("/media/upload", c.mediaHandler.Upload).Methods("POST", "OPTIONS")

	// Users
	api.HandleFunc("/users/search", c.userHandler.Search).Methods("GET", "OPTIONS")
	api.HandleFunc("/users/{userId}", c.userHandler.GetProfile).Methods("GET", "OPTIONS")
}

// instrument counts requests per route template and status class.
func (c *ChatIntegration) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		telemetry.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.status/100*100)).Inc()
		c.log.Debug().
			Str("route", route).
			Str("method", r.Method).
			Int("status", sw.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// GetStore returns the underlying storage implementation.
func (c *ChatIntegration) GetStore() *postgres.Store {
	return c.store
}

// GetFeed returns the realtime change feed, for hosts that attach
// their own websocket fanout.
func (c *ChatIntegration) GetFeed() *redisfeed.Feed {
	return c.feed
}

// NewController builds a conversation view controller bound to one
// user session.
func (c *ChatIntegration) NewController(userID string) *chat.Controller {
	return chat.NewController(userID, c.store, c.feed, c.directory, c.composer, c.log)
}

// ValidateSetup checks that the module is properly configured.
func (c *ChatIntegration) ValidateSetup() error {
	if c.jwtSecret == "" {
		return &ValidationError{Message: "JWT secret is not configured"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
