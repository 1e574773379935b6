package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the analysis results of a job as an Excel workbook",
	Run: func(cmd *cobra.Command, _ []string) {
		runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Uint("job", 0, "job to export (required)")
	exportCmd.Flags().StringP("out", "o", "", "output file (default fit-report-job-<id>.xlsx)")
	exportCmd.MarkFlagRequired("job")
}

func runExport(cmd *cobra.Command) {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		log.Fatal("opening the database", zap.Error(err))
	}

	jobID, _ := cmd.Flags().GetUint("job")

	job, err := st.GetJob(ctx, jobID)
	if err != nil {
		log.Fatal("loading the job", zap.Error(err))
	}

	candidates, err := st.CandidatesRanked(ctx, jobID)
	if err != nil {
		log.Fatal("listing candidates", zap.Error(err))
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = fmt.Sprintf("fit-report-job-%d.xlsx", jobID)
	}

	report := export.Report{Job: job, Candidates: candidates, Generated: time.Now()}
	path, err := export.Save(out, report)
	if err != nil {
		log.Fatal("exporting the report", zap.Error(err))
	}

	log.Info("report exported",
		zap.String("file", path),
		zap.Int("candidates", len(candidates)),
	)
}
