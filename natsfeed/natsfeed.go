// Package natsfeed implements the realtime.Feed contract over NATS subjects.
// Each row change is published once per filterable column under
// rowchange.<table>.<column>.<value>, so an equality-filtered subscription is
// just a plain subject subscription.
package natsfeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lenshareapp/inbox/realtime"
)

const subjectPrefix = "rowchange"

func subject(table, column, value string) string {
	return fmt.Sprintf("%s.%s.%s.%s", subjectPrefix, table, column, value)
}

// Connect dials NATS with retry-forever semantics and connection-state
// logging.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats error", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

type Feed struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func New(nc *nats.Conn, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Feed{nc: nc, logger: logger}
}

type handle struct {
	sub *nats.Subscription
}

func (h handle) Unsubscribe() error {
	return h.sub.Unsubscribe()
}

func (f *Feed) Subscribe(ctx context.Context, sub realtime.Subscription, fn func(realtime.Envelope)) (realtime.Handle, error) {
	s, err := f.nc.Subscribe(subject(sub.Table, sub.Column, sub.Value), func(msg *nats.Msg) {
		var env realtime.Envelope
		if err := msgpack.Unmarshal(msg.Data, &env); err != nil {
			f.logger.Error("decode change envelope", "subject", msg.Subject, "error", err)
			return
		}
		if !sub.Wants(env.Type) {
			return
		}
		fn(env)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject(sub.Table, sub.Column, sub.Value), err)
	}

	return handle{sub: s}, nil
}

func (f *Feed) Publish(ctx context.Context, table, column, value string, env realtime.Envelope) error {
	b, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal change envelope: %w", err)
	}

	if err := f.nc.Publish(subject(table, column, value), b); err != nil {
		return fmt.Errorf("publish %s: %w", subject(table, column, value), err)
	}
	return nil
}
