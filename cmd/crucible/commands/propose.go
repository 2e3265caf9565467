package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/probelab/crucible/internal/models"
	"github.com/probelab/crucible/internal/producer"
)

var (
	proposeDescription string
	proposeObservedAt  string
	proposeSymptoms    []string
	proposeServices    []string
	proposeModel       string
	proposeMax         int
	proposeOutputPath  string
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Generate candidate hypotheses for an incident",
	Long: `Asks the configured model for falsifiable root-cause hypotheses
given an incident description. The output is a hypotheses YAML-ready
JSON document; every hypothesis starts in the PROPOSED state and earns
confidence only under validation.

Requires ANTHROPIC_API_KEY to be set.`,
	Run: func(cmd *cobra.Command, args []string) {
		HandleError(runPropose(), "proposal failed")
	},
}

func init() {
	proposeCmd.Flags().StringVarP(&proposeDescription, "description", "d", "", "Incident description (required)")
	proposeCmd.Flags().StringVar(&proposeObservedAt, "observed-at", "", "When the incident was noticed (RFC3339, default now)")
	proposeCmd.Flags().StringArrayVar(&proposeSymptoms, "symptom", nil, "Observed symptom (repeatable)")
	proposeCmd.Flags().StringArrayVar(&proposeServices, "service", nil, "Service known to be involved (repeatable)")
	proposeCmd.Flags().StringVar(&proposeModel, "model", "", "Model identifier override")
	proposeCmd.Flags().IntVar(&proposeMax, "max", 5, "Maximum number of hypotheses to request")
	proposeCmd.Flags().StringVarP(&proposeOutputPath, "output", "o", "-", "Output destination ('-' for stdout)")
	_ = proposeCmd.MarkFlagRequired("description")
}

func runPropose() error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}

	observedAt := time.Now().UTC()
	if proposeObservedAt != "" {
		t, err := time.Parse(time.RFC3339, proposeObservedAt)
		if err != nil {
			return fmt.Errorf("invalid --observed-at %q: %w", proposeObservedAt, err)
		}
		observedAt = t.UTC()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prod := producer.NewAnthropicProducer(producer.AnthropicConfig{
		Model:        proposeModel,
		MaxProposals: proposeMax,
	})

	hypotheses, err := prod.Propose(ctx, producer.Incident{
		Description: proposeDescription,
		ObservedAt:  observedAt,
		Symptoms:    proposeSymptoms,
		Services:    proposeServices,
	})
	if err != nil {
		return err
	}

	snapshots := make([]models.Snapshot, 0, len(hypotheses))
	for _, h := range hypotheses {
		snapshots = append(snapshots, h.Snapshot())
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode proposals: %w", err)
	}
	data = append(data, '\n')

	if proposeOutputPath == "-" || proposeOutputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(proposeOutputPath, data, 0o644)
}
