package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/mcq"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the combination layouts and answer templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := mcq.DefaultCatalog()
		if err := c.Validate(); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}

		for _, k := range mcq.Counts {
			fmt.Printf("Layouts for %d statements\n", k)
			fmt.Println(strings.Repeat("─", 72))
			for _, l := range c.Layouts(k) {
				fmt.Printf("  %-24s  %s\n", l.Name, strings.Join(l.Options, " | "))
			}
			fmt.Println()
		}

		for _, family := range c.Families() {
			fmt.Printf("Templates: %s\n", family)
			fmt.Println(strings.Repeat("─", 72))
			for _, t := range c.Templates(family) {
				fmt.Printf("  %-24s  answer %s  %s\n", t.Name, t.CorrectAnswer, strings.Join(t.Options, " | "))
			}
			fmt.Println()
		}
		return nil
	},
}
