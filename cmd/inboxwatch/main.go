package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "charm.land/log/v2"
	"github.com/hako/durafmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lenshareapp/inbox/config"
	"github.com/lenshareapp/inbox/inbox"
	"github.com/lenshareapp/inbox/natsfeed"
	"github.com/lenshareapp/inbox/realtime"
	"github.com/lenshareapp/inbox/rest"
	"github.com/lenshareapp/inbox/session"
	"github.com/lenshareapp/inbox/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	errLogger := slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	}))
	infoLogger := slog.New(charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		ReportTimestamp: true,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sess, err := session.FromToken(cfg.Token)
	if err != nil {
		return fmt.Errorf("parse session token: %w", err)
	}
	if sess.Expired() {
		return session.ErrExpiredToken
	}

	nc, err := natsfeed.Connect(cfg.NATSURL, errLogger)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	defer nc.Close()

	feed := natsfeed.New(nc, errLogger)

	gig := rest.NewGigClient(cfg.GigAPIURL, sess)
	market := rest.NewMarketplaceClient(cfg.MarketplaceAPIURL, sess)
	profiles := rest.NewProfileClient(cfg.ProfileAPIURL, sess)

	// The service and the realtime client reference each other; svc is
	// assigned before Connect runs, so the closures never see it nil.
	var svc *inbox.Service

	rt := realtime.New(realtime.Config{
		Feed:           feed,
		Session:        sess,
		Profiles:       profiles,
		Logger:         errLogger,
		ReconnectDelay: cfg.ReconnectDelay,
		OnMessage: func(row realtime.MessageRow) {
			svc.ApplyNewMessage(row)
		},
		OnStatusUpdate: func(u realtime.StatusUpdate) {
			svc.ApplyStatusUpdate(u)
		},
		OnTyping: func(ts types.TypingState) {
			svc.ApplyTyping(ts)
		},
		OnConnChange: func(state realtime.ConnState, err error) {
			if err != nil {
				errLogger.Error("realtime connection", "state", state, "error", err)
				return
			}
			infoLogger.Info("realtime connection", "state", state)
		},
	})

	svc = inbox.New(inbox.Config{
		Gig:            gig,
		Marketplace:    market,
		Channel:        rt,
		Session:        sess,
		Logger:         errLogger,
		TypingDebounce: cfg.TypingDebounce,
		TypingTTL:      cfg.TypingTTL,
		OnNotify: func(conv types.Conversation, msg types.Message) {
			name := "someone"
			if conv.OtherUser != nil {
				name = conv.OtherUser.DisplayName
			}
			infoLogger.Info("new message", "from", name, "conversation_id", conv.ID, "body", msg.Body)
		},
	})

	go func() {
		for err := range svc.Errs() {
			errLogger.Error("inbox error", "error", err)
		}
	}()

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errLogger.Error("metrics server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Connect(ctx, ""); err != nil {
		// Retry is scheduled; the REST side works in the meantime.
		errLogger.Error("realtime connect", "error", err)
	}

	if err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh conversations: %w", err)
	}

	for _, conv := range svc.Conversations() {
		name := "someone"
		if conv.OtherUser != nil {
			name = conv.OtherUser.DisplayName
		}
		age := durafmt.ParseShort(time.Since(conv.Recency())).String()
		infoLogger.Info("conversation",
			"with", name,
			"domain", conv.Domain,
			"last_activity", age+" ago",
			"unread", conv.UnreadCount,
		)
	}
	infoLogger.Info("watching inbox", "unread", svc.Unread(), "metrics", fmt.Sprintf("http://localhost:%d/metrics", cfg.MetricsPort))

	<-ctx.Done()

	rt.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		errLogger.Error("shutdown metrics server", "error", err)
	}

	return svc.Close()
}
