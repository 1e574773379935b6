package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/analysis"
	"github.com/fitscreen/fitscreen/internal/pdftext"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the AI fit analysis for a job or a single candidate",
	Run: func(cmd *cobra.Command, _ []string) {
		process(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Uint("job", 0, "analyze every candidate of this job")
	processCmd.Flags().Uint("candidate", 0, "analyze a single candidate")
	processCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before calling the AI service")
}

func process(cmd *cobra.Command) {
	ctx := context.Background()
	log := newLogger()

	jobID, _ := cmd.Flags().GetUint("job")
	candidateID, _ := cmd.Flags().GetUint("candidate")

	if (jobID == 0) == (candidateID == 0) {
		log.Fatal("exactly one of --job or --candidate is required")
	}

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

	svc := analysis.New(st, pdftext.New(log), evaluator, log)

	if candidateID != 0 {
		candidate, err := st.GetCandidate(ctx, candidateID)
		if err != nil {
			log.Fatal("loading the candidate", zap.Error(err))
		}

		if !confirm(cmd, fmt.Sprintf("Run the AI analysis for %s?", candidate.Name), log) {
			log.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}

		if err := svc.RunCandidate(ctx, candidateID); err != nil {
			log.Fatal("analysis failed", zap.Error(err))
		}

		log.Info("analysis completed", zap.Uint("candidate_id", candidateID))
		return
	}

	job, err := st.GetJob(ctx, jobID)
	if err != nil {
		log.Fatal("loading the job", zap.Error(err))
	}

	candidates, err := st.ListCandidatesWithLatestResume(ctx, jobID)
	if err != nil {
		log.Fatal("listing candidates", zap.Error(err))
	}

	question := fmt.Sprintf("Run the AI analysis for %q (%d candidate(s))?", job.Title, len(candidates))
	if !confirm(cmd, question, log) {
		log.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	result, err := svc.RunJob(ctx, jobID)
	if err != nil {
		log.Fatal("analysis failed", zap.Error(err))
	}

	for _, msg := range result.Errors {
		log.Warn(msg)
	}

	log.Info(result.Summary(),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)

	if result.Outcome == analysis.OutcomeFailed {
		log.Fatal("no candidate could be analyzed")
	}
}

func confirm(cmd *cobra.Command, question string, log *zap.Logger) bool {
	if auto, _ := cmd.Flags().GetBool("auto-approve"); auto {
		return true
	}

	prompt := promptui.Select{
		Label: question,
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		log.Fatal("prompt failed", zap.Error(err))
	}

	return answer == PromptYes
}
