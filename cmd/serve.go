package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/ecomdash/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr   string
	srvModel  string
	srvStrict bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opts := server.OptionsFromConfig(c)
		if cmd.Flags().Changed("addr") {
			opts.Addr = srvAddr
		}
		if cmd.Flags().Changed("model") {
			opts.ModelPath = srvModel
		}
		if cmd.Flags().Changed("strict-schema") {
			opts.StrictSchema = srvStrict
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(opts).ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "127.0.0.1:8501", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&srvModel, "model", "xgb_model.json", "model artifact path (overrides config)")
	serveCmd.Flags().BoolVar(&srvStrict, "strict-schema", true, "reject categories unknown to the model (overrides config)")
}
