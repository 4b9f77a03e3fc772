package cmd

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/statements"
)

var statementsCmd = &cobra.Command{
	Use:   "statements <category> <chapter>",
	Short: "Generate one true/false statement batch for a chapter node",
	Long: "Generates exactly four statements with the requested number of false ones. " +
		"Without --node a random node of the stored chapter is used.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, _ := cmd.Flags().GetString("node")
		falseCount, _ := cmd.Flags().GetInt("false")
		if falseCount < 0 {
			falseCount = rand.IntN(statements.BatchSize + 1)
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		if node == "" {
			tree, err := env.loadTree(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			seed := uint64(time.Now().UnixNano())
			if node, err = contenttree.NewSelector(rand.New(rand.NewPCG(seed, seed>>1))).Select(tree); err != nil {
				return err
			}
		}

		gen, err := env.generator(ctx)
		if err != nil {
			return err
		}
		batch, err := gen.Generate(ctx, statements.TopicContext{Category: args[0], Chapter: args[1], Node: node}, falseCount)
		if err != nil {
			return fmt.Errorf("generate statements: %w", err)
		}
		return printJSON(cmd, batch)
	},
}

func init() {
	statementsCmd.Flags().String("node", "", "Node label to write about (default: random node)")
	statementsCmd.Flags().Int("false", -1, "Number of false statements, 0-4 (default: random)")
}
