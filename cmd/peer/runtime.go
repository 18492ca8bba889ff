package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/peerlink/internal/adapters/rtc"
	sig "github.com/dkeye/peerlink/internal/adapters/signal"
	"github.com/dkeye/peerlink/internal/config"
	"github.com/dkeye/peerlink/internal/domain"
)

const joinTimeout = 10 * time.Second

// peer bundles the hub client and the transport of one process.
type peer struct {
	cfg       *config.Config
	self      domain.PeerID
	hub       *sig.Client
	transport *rtc.Transport
}

func setup(cmd *cobra.Command) (*peer, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Millisecond
	}
	if url, _ := cmd.Flags().GetString("signal"); url != "" {
		cfg.SignalURL = url
	}

	self := domain.NewPeerID()
	if raw, _ := cmd.Flags().GetString("id"); raw != "" {
		if self, err = domain.ParsePeerID(raw); err != nil {
			return nil, err
		}
	}
	name, _ := cmd.Flags().GetString("name")

	hub, err := sig.Dial(cmd.Context(), cfg.SignalURL, self, name)
	if err != nil {
		return nil, err
	}
	t := rtc.New(self, hub, rtc.Options{
		ICEServers:     cfg.ICEServers,
		ConnectTimeout: cfg.Net.ConnectTimeout,
		LingerTimeout:  cfg.Net.LingerTimeout,
		MaxInbound:     cfg.Net.MaxInbound,
		MaxBuffered:    cfg.Net.MaxBuffered,
	})
	hub.SubscribeSignal(func(in sig.Incoming) { t.HandleSignal(in.From, in.Signal) })

	log.Info().Str("module", "cmd.peer").Str("peer", self.String()).Str("hub", cfg.SignalURL).Msg("peer ready")
	return &peer{cfg: cfg, self: self, hub: hub, transport: t}, nil
}

func (p *peer) pump() {
	p.transport.PumpEvents()
	p.hub.PumpEvents()
}

// join enters room and waits for the first room state.
func (p *peer) join(ctx context.Context, room string) error {
	if err := p.hub.Join(domain.NormalizeRoomName(room)); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()
	for !p.hub.IsInRoom() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("join %s: %w", room, ctx.Err())
		case <-ticker.C:
			p.pump()
		}
	}
	log.Info().Str("module", "cmd.peer").Str("room", room).Str("owner", p.hub.OwnerID().String()).Msg("joined room")
	return nil
}

// loop runs step once per tick until ctx ends or step fails.
func (p *peer) loop(ctx context.Context, step func() error) error {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := step(); err != nil {
				return err
			}
		}
	}
}

func (p *peer) close() {
	p.transport.Shutdown()
	if err := p.hub.Close(); err != nil {
		log.Warn().Err(err).Str("module", "cmd.peer").Msg("close hub connection")
	}
}

// stdinLines feeds typed lines into a channel. The reader is never joined:
// a blocked stdin read cannot be cancelled.
func stdinLines(ctx context.Context) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func drainLines(lines <-chan []byte, send func([]byte)) {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			send(line)
		default:
			return
		}
	}
}
