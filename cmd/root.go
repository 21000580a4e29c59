package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cartCmd "github.com/Alturino/shopcart/cart/cmd"
	"github.com/Alturino/shopcart/internal"
	"github.com/Alturino/shopcart/internal/config"
	"github.com/Alturino/shopcart/internal/constants"
	"github.com/Alturino/shopcart/internal/infra"
	"github.com/Alturino/shopcart/internal/log"
)

// loadConfig reads env/<app>.yaml and switches the context logger to the configured one.
func loadConfig(c context.Context, app string) (context.Context, *config.Config, error) {
	cfg, err := config.InitConfig(c, app)
	if err != nil {
		return c, nil, err
	}
	logger := log.InitLogger(cfg.Application.LogFilePath, cfg.Application.Env).
		With().
		Str(log.KeyAppName, app).
		Logger()
	return logger.WithContext(c), cfg, nil
}

func Start() {
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str(log.KeyAppName, constants.AppMain).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	var (
		tokenUser string
		tokenTTL  time.Duration
	)

	rootCmd := &cobra.Command{Use: constants.AppMain, SilenceUsage: true}
	cartCommand := &cobra.Command{
		Use:   "cart",
		Short: "Run cart service",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := loadConfig(cmd.Context(), constants.AppCartService)
			if err != nil {
				return err
			}
			cartCmd.RunCartService(c, cfg)
			return nil
		},
	}
	migrateCommand := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := loadConfig(cmd.Context(), constants.AppCartService)
			if err != nil {
				return err
			}
			pool, err := infra.NewDatabaseClient(c, cfg.Database)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
	}
	tokenCommand := &cobra.Command{
		Use:   "token",
		Short: "Issue a shopper token signed with the configured secret key",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd.Context(), constants.AppCartService)
			if err != nil {
				return err
			}
			userID := uuid.New()
			if tokenUser != "" {
				if userID, err = uuid.Parse(tokenUser); err != nil {
					return fmt.Errorf("failed parsing user=%s with error=%w", tokenUser, err)
				}
			}
			token, err := internal.SignToken(cfg.Application.SecretKey, userID, tokenTTL)
			if err != nil {
				return fmt.Errorf("failed signing token with error=%w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCommand.Flags().StringVar(&tokenUser, "user", "", "shopper id, random when empty")
	tokenCommand.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(cartCommand, migrateCommand, tokenCommand)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
