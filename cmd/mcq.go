package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/store"
	"github.com/abhisek/mcqforge/internal/ui/components"
	"github.com/abhisek/mcqforge/internal/ui/practice"
	"github.com/abhisek/mcqforge/internal/ui/theme"
)

var mcqCmd = &cobra.Command{
	Use:   "mcq",
	Short: "Inspect and review stored questions",
}

var mcqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored questions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.MCQFilter{}
		f.Category, _ = cmd.Flags().GetString("category")
		f.Chapter, _ = cmd.Flags().GetString("chapter")
		f.Session, _ = cmd.Flags().GetString("session")
		f.Limit, _ = cmd.Flags().GetInt("limit")
		stage, _ := cmd.Flags().GetString("stage")
		f.Stage = evaluation.Stage(stage)
		if f.Stage != "" && !f.Stage.Valid() {
			return fmt.Errorf("unknown stage %q", stage)
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		recs, err := env.store.MCQRepo().ListMCQs(ctx, f)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("No questions found.")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-24s  %-10s  %3s  %s\n",
			"ID", "Created", "Node", "Stage", "Rev", "Answer")
		fmt.Println(strings.Repeat("─", 110))
		for _, r := range recs {
			fmt.Printf("%-36s  %-16s  %-24s  %-10s  %3d  %s\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				truncate(r.Node, 24),
				r.Stage,
				r.Revisions,
				r.MCQ.CorrectAnswer,
			)
		}

		counts, err := env.store.MCQRepo().CountByStage(ctx)
		if err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		fmt.Println(strings.Repeat("─", 110))
		var parts []string
		for _, s := range []evaluation.Stage{evaluation.StageGenerated, evaluation.StageApproved, evaluation.StageRepaired, evaluation.StageRejected} {
			parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
		}
		fmt.Println(strings.Join(parts, "  "))
		return nil
	},
}

var mcqViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show a stored question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		interactive, _ := cmd.Flags().GetBool("practice")

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.store.MCQRepo().GetMCQ(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get question: %w", err)
		}

		switch {
		case asJSON:
			return printJSON(cmd, rec)
		case interactive:
			_, err := practice.Run(practice.New(rec.Category+" / "+rec.Chapter, rec.MCQ))
			return err
		}

		fmt.Printf("%s  %s / %s / %s  (revisions %d)\n\n",
			theme.StageStyle(rec.Stage).Render(string(rec.Stage)),
			rec.Category, rec.Chapter, rec.Node, rec.Revisions)
		card := components.NewMCQCard(rec.MCQ, 0)
		card.Reveal = true
		fmt.Println(card.View())
		return nil
	},
}

var mcqEvaluateCmd = &cobra.Command{
	Use:   "evaluate <id>...",
	Short: "Review stored questions with the LLM and record the outcome",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		loop, err := env.reviewer(ctx)
		if err != nil {
			return err
		}

		repo := env.store.MCQRepo()
		var failed int
		for _, id := range args {
			rec, err := repo.GetMCQ(ctx, id)
			if err != nil {
				return fmt.Errorf("get question %s: %w", id, err)
			}
			out, err := loop.Run(ctx, rec.MCQ)
			if err != nil {
				env.log.Error("evaluate", "id", id, "error", err)
				failed++
				continue
			}
			if err := repo.UpdateMCQ(ctx, id, out.Stage, out.Revisions, out.MCQ); err != nil {
				return fmt.Errorf("update question %s: %w", id, err)
			}
			line := fmt.Sprintf("%s  %s  revisions %d", id, out.Stage, out.Revisions)
			if len(out.Faults) > 0 {
				line += "  " + strings.Join(out.Faults, "; ")
			}
			fmt.Println(line)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d evaluations failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	mcqListCmd.Flags().StringP("category", "c", "", "Filter by category")
	mcqListCmd.Flags().String("chapter", "", "Filter by chapter")
	mcqListCmd.Flags().String("session", "", "Filter by batch session id")
	mcqListCmd.Flags().String("stage", "", "Filter by stage (generated, approved, repaired, rejected)")
	mcqListCmd.Flags().IntP("limit", "n", 20, "Number of questions to show")
	mcqViewCmd.Flags().Bool("json", false, "Print the record as JSON")
	mcqViewCmd.Flags().Bool("practice", false, "Answer the question interactively")

	mcqCmd.AddCommand(mcqListCmd)
	mcqCmd.AddCommand(mcqViewCmd)
	mcqCmd.AddCommand(mcqEvaluateCmd)
}
