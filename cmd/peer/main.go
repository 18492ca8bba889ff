package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "peerlink",
	Short: "Join a room and talk to its members over direct connections.",
	Long: `peerlink connects to a hub for room membership and negotiation,
then talks to the room owner over WebRTC data channels.

The room owner runs "host"; every other member runs "join".
Lines typed on stdin are sent; received messages are printed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	rootCmd.PersistentFlags().String("id", "", "peer id (random when empty)")
	rootCmd.PersistentFlags().String("name", "", "display name")
	rootCmd.PersistentFlags().String("signal", "", "hub websocket url, overrides signal_url")
	rootCmd.AddCommand(hostCmd, joinCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("peerlink failed")
		os.Exit(1)
	}
}
