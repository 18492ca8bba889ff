package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/peerlink/internal/app/session"
)

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Join a room and connect to its owner",
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

		client := session.NewClient(p.transport, p.hub, p.cfg.ChannelOptions())
		var ended error
		client.Subscribe(func(ev session.ClientEvent) {
			switch ev.Kind {
			case session.RequestAccepted:
				log.Info().Str("module", "cmd.peer").Str("server", ev.Server.String()).Msg("connected to room owner")
			case session.RequestRejected, session.ClosedByServer, session.ClosedByClient:
				ended = fmt.Errorf("%w: %s", errRoomClosed, ev.Kind)
			}
		})
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect to owner: %w", err)
		}

		lines := stdinLines(ctx)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return p.loop(gctx, func() error {
				p.pump()
				if ended != nil {
					return ended
				}
				if !client.IsConnected() {
					return nil
				}
				drainLines(lines, func(line []byte) {
					if err := client.Send(line); err != nil {
						log.Warn().Err(err).Str("module", "cmd.peer").Msg("send")
					}
				})
				msgs, err := client.Poll()
				if err != nil {
					return err
				}
				for _, msg := range msgs {
					fmt.Printf("%s\n", msg)
				}
				return nil
			})
		})
		err = g.Wait()
		if client.IsConnected() {
			_ = client.Disconnect()
		}
		return err
	},
}
