package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/reserva/libs/config"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
)

type settings struct {
	Service        string
	Port           string
	GRPCPort       string
	Store          string
	DatabaseURL    string
	MigrateOnStart bool
	Policy         rules.Policy
	InitialState   model.State
	RedisAddr      string
	RateLimit      int
	KafkaBrokers   string
	CORSOrigins    []string
	ClientIDs      []string
	RequestTimeout time.Duration
}

func loadSettings() (settings, error) {
	s := settings{
		Service:      config.String("SERVICE_NAME", "booking-service"),
		Store:        strings.ToLower(config.String("STORE", "postgres")),
		RedisAddr:    config.String("REDIS_ADDR", ""),
		KafkaBrokers: config.String("KAFKA_BROKERS", ""),
		CORSOrigins:  config.List("CORS_ALLOWED_ORIGINS"),
		ClientIDs:    config.List("CLIENT_IDS"),
		InitialState: model.State(strings.ToLower(config.String("INITIAL_RESERVATION_STATE", string(model.StateConfirmed)))),
	}
	var err error
	if s.Port, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9083"); err != nil {
		return s, err
	}
	switch s.Store {
	case "memory":
	case "postgres":
		if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return s, err
		}
	default:
		return s, fmt.Errorf("STORE must be postgres or memory (got %q)", s.Store)
	}
	if s.MigrateOnStart, err = config.Bool("MIGRATE_ON_START", false); err != nil {
		return s, err
	}
	if s.InitialState != model.StateConfirmed && s.InitialState != model.StatePending {
		return s, fmt.Errorf("INITIAL_RESERVATION_STATE must be confirmed or pending (got %q)", s.InitialState)
	}

	pol := rules.DefaultPolicy()
	if pol.Location, err = config.Location("SHOP_TIMEZONE", "UTC"); err != nil {
		return s, err
	}
	notice, err := config.Int("ADVANCE_NOTICE_MINUTES", 120, 0, 7*24*60)
	if err != nil {
		return s, err
	}
	pol.AdvanceNotice = time.Duration(notice) * time.Minute
	if pol.SameDayCutoffHour, err = config.Int("SAME_DAY_CUTOFF_HOUR", 0, 0, 23); err != nil {
		return s, err
	}
	if pol.DefaultStepMinutes, err = config.Int("DEFAULT_SLOT_STEP_MINUTES", 30, 5, 240); err != nil {
		return s, err
	}
	s.Policy = pol

	if s.RateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 60, 0, 100000); err != nil {
		return s, err
	}
	if s.RequestTimeout, err = config.Duration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return s, err
	}
	return s, nil
}
