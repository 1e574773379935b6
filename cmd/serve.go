package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/analysis"
	"github.com/fitscreen/fitscreen/internal/pdftext"
	"github.com/fitscreen/fitscreen/internal/server"
)

const (
	defaultAddress    = ":8080"
	defaultUploadsDir = "uploads"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for uploads, analysis runs and reports",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default :8080)")
	serveCmd.Flags().String("uploads-dir", "", "directory for uploaded PDFs (default ./uploads)")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
	viper.BindPFlag("server.uploads-dir", serveCmd.Flags().Lookup("uploads-dir"))
}

func serve() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		log.Fatal("opening the database", zap.Error(err))
	}

	evaluator, err := newEvaluator(config, log)
	if err != nil {
		log.Fatal("building the ai evaluator", zap.Error(err))
	}

	extractor := pdftext.New(log)
	svc := analysis.New(st, extractor, evaluator, log)

	address := viper.GetString("server.address")
	if address == "" {
		address = defaultAddress
	}
	uploadsDir := viper.GetString("server.uploads-dir")
	if uploadsDir == "" {
		uploadsDir = defaultUploadsDir
	}

	log.Info("starting the fitscreen api",
		zap.String("version", version),
		zap.String("address", address),
		zap.String("uploads_dir", uploadsDir),
	)

	srv := server.New(st, svc, uploadsDir, log)
	if err := srv.Run(address); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
