package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/peerlink/internal/app/session"
)

var errRoomClosed = errors.New("left the room")

var hostCmd = &cobra.Command{
	Use:   "host <room>",
	Short: "Own a room and relay messages between its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := setup(cmd)
		if err != nil {
			return err
		}
		defer p.close()

		ctx := cmd.Context()
		if err := p.join(ctx, args[0]); err != nil {
			return err
		}

		relay := session.NewRelay(p.transport, p.hub, p.cfg.ChannelOptions(),
			session.WithAutoAccept(),
			session.WithPolicy(session.NewStrikePolicy(3)),
		)
		defer relay.Close()

		stopped := false
		relay.Subscribe(func(ev session.ServerEvent) {
			switch ev.Kind {
			case session.MessagesReceived:
				for _, msg := range ev.Messages {
					fmt.Printf("<%s> %s\n", ev.Peer, msg)
				}
			case session.ClientConnectionAccepted, session.ClientConnectionClosedByClient, session.ClientConnectionClosedByServer:
				log.Info().Str("module", "cmd.peer").Str("peer", ev.Peer.String()).Stringer("event", ev.Kind).Msg("client")
			case session.Stopped:
				stopped = true
			}
		})
		if err := relay.Start(); err != nil {
			return fmt.Errorf("start relay: %w", err)
		}

		lines := stdinLines(ctx)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return p.loop(gctx, func() error {
				p.pump()
				if stopped {
					return errRoomClosed
				}
				drainLines(lines, func(line []byte) {
					if _, err := relay.BroadcastMessage(line); err != nil {
						log.Warn().Err(err).Str("module", "cmd.peer").Msg("broadcast")
					}
				})
				return relay.Update()
			})
		})
		err = g.Wait()
		if relay.IsRunning() {
			_ = relay.Stop()
		}
		if errors.Is(err, errRoomClosed) {
			log.Info().Str("module", "cmd.peer").Msg("room closed")
			return nil
		}
		return err
	},
}
