package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/statements"
	"github.com/abhisek/mcqforge/internal/ui/components"
)

var transformCmd = &cobra.Command{
	Use:   "transform [file|-]",
	Short: "Turn a statement batch into a combination MCQ",
	Long: "Reads a statement batch as printed by the statements command and renders it " +
		"as a UPSC-style question. No LLM call is made.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("statements")
		asJSON, _ := cmd.Flags().GetBool("json")

		var b statements.Batch
		if err := readJSONInput(cmd, optionalArg(args, 0), &b); err != nil {
			return err
		}

		t := mcq.NewTransformer(mcq.DefaultCatalog(), nil, nil)
		var (
			q   *mcq.MCQ
			err error
		)
		if k == 0 {
			q, err = t.Transform(&b)
		} else {
			q, err = t.TransformWithCount(&b, k)
		}
		if err != nil {
			return fmt.Errorf("transform: %w", err)
		}

		if asJSON {
			return printJSON(cmd, q)
		}
		card := components.NewMCQCard(q, 0)
		card.Reveal = true
		fmt.Fprintln(cmd.OutOrStdout(), card.View())
		return nil
	},
}

func init() {
	transformCmd.Flags().IntP("statements", "k", 0, "Statements to display: 2, 3 or 4 (default: random)")
	transformCmd.Flags().Bool("json", false, "Print the question as JSON")
}
