package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/gearguard/backend/internal/config"
	"github.com/gearguard/backend/internal/repository"
	"github.com/gearguard/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var n int
	var emailDomain string

	flag.IntVar(&n, "n", 5, "number of random users to insert")
	flag.StringVar(&emailDomain, "email-domain", "example.com", "domain for generated addresses")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("unable to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("unable to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect, ping explicitly
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("unable to reach database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	inserted := 0
	for inserted < n {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, emailDomain)
		if err != nil {
			logger.Error("unable to generate user", "error", err)
			return
		}

		if err := repo.CreateUser(user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				// generated address collided, roll again
				continue
			}
			logger.Error("unable to insert user", "error", err)
			return
		}

		logger.Info("user inserted", "id", user.ID, "email", user.Email)
		inserted++
	}
}
