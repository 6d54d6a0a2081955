package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/StoreStation/VibeShitCraft/pkg/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "connect4",
		Short: "Connect-Four network core",
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the matchmaking/game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(v)
		},
	}

	flags := cmd.Flags()
	flags.String("address", server.DefaultConfig().Address, "TCP address to listen on")
	flags.Duration("idle-timeout", 0, "per-connection read deadline (0 disables)")
	flags.Int("new-conn-backlog", server.DefaultConfig().NewConnBacklog, "accepted-connection queue depth")

	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindPFlag("idle_timeout", flags.Lookup("idle-timeout"))
	_ = v.BindPFlag("new_conn_backlog", flags.Lookup("new-conn-backlog"))
	v.SetEnvPrefix("CONNECT4")
	v.AutomaticEnv()
	v.SetConfigName("connect4")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			panic(fmt.Sprintf("connect4: reading config file: %v", err))
		}
	}

	return cmd
}

func runServe(v *viper.Viper) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("connect4: build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	config := server.Config{
		Address:        v.GetString("address"),
		IdleTimeout:    v.GetDuration("idle_timeout"),
		NewConnBacklog: v.GetInt("new_conn_backlog"),
	}

	srv := server.New(config, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting server", zap.String("address", config.Address), zap.Duration("idle_timeout", config.IdleTimeout))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("connect4: server: %w", err)
	}
	log.Info("server stopped")
	return nil
}
