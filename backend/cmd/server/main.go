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

package main

import (
	"database/sql"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/integration"
	"github.com/campusforum/chatlink/backend/middleware"
	"github.com/campusforum/chatlink/backend/telemetry"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") == "1" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Database connection
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost/chatlink?sslmode=disable"
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Redis connection
	redisAddr := os.Getenv("REDIS_URL")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable is required")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "campusforum"
	}

	// Media upload endpoint (Cloudinary-style unsigned upload)
	uploadURL := os.Getenv("MEDIA_UPLOAD_URL")
	if uploadURL == "" {
		log.Fatal().Msg("MEDIA_UPLOAD_URL environment variable is required")
	}
	uploadPreset := os.Getenv("MEDIA_UPLOAD_PRESET")

	chatModule, err := integration.NewChatIntegration(&integration.Config{
		DB:           db,
		Redis:        rdb,
		JWTSecret:    jwtSecret,
		JWTIssuer:    jwtIssuer,
		UploadURL:    uploadURL,
		UploadPreset: uploadPreset,
		Log:          log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat module")
	}

	if err := chatModule.ValidateSetup(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Setup router
	r := mux.NewRouter()

	origins := []string{
		"https://campusforum.net",
		"https://app.campusforum.net",
		"http://localhost:3000", // Development
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}
	r.Use(middleware.CORS(origins))

	chatModule.RegisterRoutes(r, nil)

	// Health check (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Database unavailable"))
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Redis unavailable"))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus scrape endpoint (no auth required)
	r.Handle("/metrics", telemetry.Handler()).Methods("GET")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	log.Info().Str("port", port).Str("issuer", jwtIssuer).Msg("chat server starting")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
