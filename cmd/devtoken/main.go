// cmd/devtoken registers a staff user and prints a bearer token for it.
// Usage: go run ./cmd/devtoken -username admin -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/config"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/middleware"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	username := flag.String("username", "admin", "staff username")
	name := flag.String("name", "Admin Demo", "display name")
	role := flag.String("role", middleware.RoleAdmin, "admin | cashier")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *role != middleware.RoleAdmin && *role != middleware.RoleCashier {
		log.Fatal().Str("role", *role).Msg("unknown role")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	if err := users.Upsert(ctx, &model.User{Username: *username, Name: *name, Role: *role, Active: true}); err != nil {
		log.Fatal().Err(err).Msg("upsert user")
	}
	u, err := users.FindByUsername(ctx, *username)
	if err != nil {
		log.Fatal().Err(err).Msg("reload user")
	}

	token, err := signToken(u, cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("sign token")
	}
	fmt.Println(token)
}

func signToken(u *model.User, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := middleware.JWTClaims{
		UserID:   u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
