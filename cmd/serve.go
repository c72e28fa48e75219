package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/erranza/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, release, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching service", zap.Error(err))
	}
	defer release()

	logger.Info("starting the erranza api", zap.String("version", version))

	if err := server.New(svc, logger).Run(ctx, config.Server.Addr); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
}
