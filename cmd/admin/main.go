// Package main is the administrative CLI: schema migrations, teacher
// accounts and bearer tokens.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/englishlessons/lessons-hub/config"
	"github.com/englishlessons/lessons-hub/internal/application/command"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/security"
	"github.com/englishlessons/lessons-hub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	errAndDie(err)

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logger.FormatText,
		Output: os.Stderr,
	}).With(logger.String("service", "admin"))

	ctx := context.Background()
	store, err := persistence.Open(ctx, cfg.Database, log)
	errAndDie(err)

	cli := commandLine{
		store:    store,
		accounts: command.NewCreateAccountHandler(store.Students, nil, security.NewBcryptHasher(0), log),
		tokens:   security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		out:      os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	store.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}
