package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"icsguard/internal/config"
	"icsguard/internal/model"
)

// StreamControls is the driver surface exposed to subscriber commands.
type StreamControls interface {
	Start(ctx context.Context)
	Stop()
	Reset()
}

// Publisher pushes each pipeline result to NATS subscribers and accepts
// stream start/stop/reset commands on the command subjects.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

func Connect(cfg config.NotifyConfig, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{prefix: cfg.SubjectPrefix, logger: logger}
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil && p.logger != nil {
				p.logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if p.logger != nil {
				p.logger.Info("nats reconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	p.nc = nc
	return p, nil
}

// PublishResult pushes one aggregated result to <prefix>.results.
func (p *Publisher) PublishResult(res *model.AggregatedResult) error {
	if p == nil || p.nc == nil || res == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return p.nc.Publish(p.prefix+".results", data)
}

// SubscribeCommands wires <prefix>.stream.{start,stop,reset} to the
// streaming driver. Subscriptions are dropped when ctx is canceled.
func (p *Publisher) SubscribeCommands(ctx context.Context, controls StreamControls) error {
	if p == nil || p.nc == nil {
		return nil
	}
	subs := make([]*nats.Subscription, 0, 3)
	subscribe := func(subject string, handler func()) error {
		sub, err := p.nc.Subscribe(p.prefix+".stream."+subject, func(_ *nats.Msg) {
			if p.logger != nil {
				p.logger.Info("stream command received", "command", subject)
			}
			handler()
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
		return nil
	}

	if err := subscribe("start", func() { controls.Start(ctx) }); err != nil {
		return err
	}
	if err := subscribe("stop", controls.Stop); err != nil {
		return err
	}
	if err := subscribe("reset", controls.Reset); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
	}()
	return nil
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
