package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

type Config struct {
	Token             string        `ff:"long: token, usage: Session JWT for the authenticated user"`
	GigAPIURL         string        `ff:"long: gig-api-url, default: http://localhost:4000/api, usage: Base URL for the gig messaging API"`
	MarketplaceAPIURL string        `ff:"long: marketplace-api-url, default: http://localhost:4100/api, usage: Base URL for the marketplace messaging API"`
	ProfileAPIURL     string        `ff:"long: profile-api-url, default: http://localhost:4200/api, usage: Base URL for the profile API"`
	NATSURL           string        `ff:"long: nats-url, default: nats://127.0.0.1:4222, usage: URL for the NATS row-change feed"`
	MetricsPort       uint32        `ff:"long: metrics-port, default: 9090, usage: Port for the Prometheus metrics server"`
	ReconnectDelay    time.Duration `ff:"long: reconnect-delay, default: 5s, usage: Delay before retrying a failed realtime connection"`
	TypingDebounce    time.Duration `ff:"long: typing-debounce, default: 1s, usage: Idle time before a typing indicator is withdrawn"`
	TypingTTL         time.Duration `ff:"long: typing-ttl, default: 3s, usage: Age at which a remote typing indicator expires"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	fs := ff.NewFlagSetFrom("inboxwatch", &cfg)
	err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("LENSHARE"))
	if errors.Is(err, ff.ErrHelp) {
		fmt.Println(ffhelp.Flags(fs))
		os.Exit(0)
	}
	if err != nil {
		return cfg, err
	}

	if cfg.Token == "" {
		return cfg, errors.New("missing session token")
	}
	if cfg.TypingTTL < cfg.TypingDebounce {
		return cfg, errors.New("typing TTL must not be below the typing debounce")
	}

	return cfg, nil
}
