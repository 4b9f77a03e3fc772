package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/contenttree"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Manage chapter content trees",
}

var treeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored chapters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		chapters, err := env.store.MappingRepo().ListChapters(cmd.Context(), category)
		if err != nil {
			return fmt.Errorf("list chapters: %w", err)
		}
		if len(chapters) == 0 {
			fmt.Println("No chapters stored.")
			return nil
		}

		fmt.Printf("%-20s  %-32s  %6s  %s\n", "Category", "Chapter", "Nodes", "Updated")
		fmt.Println(strings.Repeat("─", 80))
		for _, c := range chapters {
			fmt.Printf("%-20s  %-32s  %6d  %s\n",
				truncate(c.Category, 20), truncate(c.Chapter, 32), c.NodeCount,
				c.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var treeShowCmd = &cobra.Command{
	Use:   "show <category> <chapter>",
	Short: "Print a chapter outline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		tree, err := env.loadTree(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, tree)
		}
		printOutline(cmd.OutOrStdout(), tree)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d nodes, depth %d\n", tree.NodeCount(), tree.Depth())
		return nil
	},
}

var treeImportCmd = &cobra.Command{
	Use:   "import <category> <chapter> [file|-]",
	Short: "Replace a chapter outline with a JSON tree",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var tree contenttree.Tree
		if err := readJSONInput(cmd, optionalArg(args, 2), &tree); err != nil {
			return err
		}
		if err := tree.Validate(); err != nil && !errors.Is(err, contenttree.ErrEmptyTree) {
			return fmt.Errorf("invalid tree: %w", err)
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.store.MappingRepo().SaveMapping(cmd.Context(), args[0], args[1], &tree); err != nil {
			return fmt.Errorf("save chapter: %w", err)
		}
		fmt.Printf("Saved %s/%s: %d nodes.\n", args[0], args[1], tree.NodeCount())
		return nil
	},
}

var treeMergeCmd = &cobra.Command{
	Use:   "merge <category> <chapter> [file|-]",
	Short: "Append new entries to a chapter outline",
	Long: "Reads a JSON object with topics, subtopics, details, subdetails and particulars. " +
		"Every non-topic entry names its parent with parentPath, e.g. \"topics[0].subtopics[1]\". " +
		"Entries with bad paths are skipped and reported.",
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries contenttree.NewEntries
		if err := readJSONInput(cmd, optionalArg(args, 2), &entries); err != nil {
			return err
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		current, err := env.store.MappingRepo().FindMapping(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("load chapter: %w", err)
		}
		merged, mergeErr := contenttree.MergeNewEntries(current, entries)
		if err := env.store.MappingRepo().SaveMapping(ctx, args[0], args[1], merged); err != nil {
			return fmt.Errorf("save chapter: %w", err)
		}
		reportSkipped(mergeErr)
		fmt.Printf("Saved %s/%s: %d nodes.\n", args[0], args[1], merged.NodeCount())
		return nil
	},
}

var treeGenerateCmd = &cobra.Command{
	Use:   "generate <category> <chapter>",
	Short: "Build a chapter outline with the LLM and store it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := readNotes(cmd)
		if err != nil {
			return err
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		b, err := env.builder(ctx)
		if err != nil {
			return err
		}
		tree, err := b.Build(ctx, contenttree.ChapterInput{Category: args[0], Chapter: args[1], Notes: notes})
		if err != nil {
			return fmt.Errorf("build outline: %w", err)
		}
		if err := env.store.MappingRepo().SaveMapping(ctx, args[0], args[1], tree); err != nil {
			return fmt.Errorf("save chapter: %w", err)
		}
		printOutline(cmd.OutOrStdout(), tree)
		return nil
	},
}

var treeExpandCmd = &cobra.Command{
	Use:   "expand <category> <chapter>",
	Short: "Ask the LLM for missing entries and merge them into a stored outline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := readNotes(cmd)
		if err != nil {
			return err
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		current, err := env.loadTree(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		b, err := env.builder(ctx)
		if err != nil {
			return err
		}
		merged, mergeErr := b.Expand(ctx, current, contenttree.ChapterInput{Category: args[0], Chapter: args[1], Notes: notes})
		if merged == nil {
			return fmt.Errorf("expand outline: %w", mergeErr)
		}
		if err := env.store.MappingRepo().SaveMapping(ctx, args[0], args[1], merged); err != nil {
			return fmt.Errorf("save chapter: %w", err)
		}
		reportSkipped(mergeErr)
		fmt.Printf("Saved %s/%s: %d nodes (was %d).\n", args[0], args[1], merged.NodeCount(), current.NodeCount())
		return nil
	},
}

var treePickCmd = &cobra.Command{
	Use:   "pick <category> <chapter>",
	Short: "Pick random nodes from a chapter outline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("count")
		seed, _ := cmd.Flags().GetUint64("seed")
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		tree, err := env.loadTree(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		sel := contenttree.NewSelector(rand.New(rand.NewPCG(seed, seed>>1)))
		for range max(n, 1) {
			node, err := sel.Select(tree)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), node)
		}
		return nil
	},
}

var treeDeleteCmd = &cobra.Command{
	Use:   "delete <category> <chapter>",
	Short: "Delete a stored chapter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.store.MappingRepo().DeleteMapping(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("delete chapter: %w", err)
		}
		fmt.Printf("Deleted %s/%s.\n", args[0], args[1])
		return nil
	},
}

// printOutline writes the tree as an indented list.
func printOutline(w io.Writer, t *contenttree.Tree) {
	if t.IsEmpty() {
		fmt.Fprintln(w, "(empty)")
		return
	}
	line := func(depth int, label string) {
		fmt.Fprintf(w, "%s- %s\n", strings.Repeat("  ", depth), label)
	}
	for _, tp := range t.Topics {
		line(0, tp.Topic)
		for _, st := range tp.Subtopics {
			line(1, st.Subtopic)
			for _, d := range st.Details {
				line(2, d.Detail)
				for _, sd := range d.Subdetails {
					line(3, sd.Subdetail)
					for _, p := range sd.Particulars {
						line(4, p)
					}
				}
			}
		}
	}
}

func reportSkipped(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Skipped entries:")
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			fmt.Fprintln(os.Stderr, "  -", e)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "  -", err)
}

func readNotes(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("notes")
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read notes: %w", err)
	}
	return string(b), nil
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func init() {
	treeListCmd.Flags().StringP("category", "c", "", "Only list chapters of this category")
	treeShowCmd.Flags().Bool("json", false, "Print the tree as JSON")
	treeGenerateCmd.Flags().String("notes", "", "File with source notes for the chapter")
	treeExpandCmd.Flags().String("notes", "", "File with source notes for the chapter")
	treePickCmd.Flags().IntP("count", "n", 1, "Number of nodes to pick")
	treePickCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one from the clock)")

	treeCmd.AddCommand(treeListCmd)
	treeCmd.AddCommand(treeShowCmd)
	treeCmd.AddCommand(treeImportCmd)
	treeCmd.AddCommand(treeMergeCmd)
	treeCmd.AddCommand(treeGenerateCmd)
	treeCmd.AddCommand(treeExpandCmd)
	treeCmd.AddCommand(treePickCmd)
	treeCmd.AddCommand(treeDeleteCmd)
}
