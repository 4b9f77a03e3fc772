package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/batch"
	"github.com/abhisek/mcqforge/internal/ui/monitor"
)

var produceCmd = &cobra.Command{
	Use:   "produce <category> <chapter>",
	Short: "Mass-produce questions for a chapter",
	Long: "Runs select, generate, transform and (optionally) review cycles against one stored " +
		"chapter. Every question is saved as soon as it is produced. Interrupting stops the " +
		"batch after the items in flight.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := batch.Request{Category: args[0], Chapter: args[1]}
		req.Count, _ = cmd.Flags().GetInt("count")
		req.Workers, _ = cmd.Flags().GetInt("workers")
		req.StatementCount, _ = cmd.Flags().GetInt("statements")
		req.Evaluate, _ = cmd.Flags().GetBool("evaluate")
		if cmd.Flags().Changed("false") {
			n, _ := cmd.Flags().GetInt("false")
			req.FalseCount = &n
		}
		watch, _ := cmd.Flags().GetBool("watch")
		if err := req.Validate(); err != nil {
			return err
		}

		env, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		if watch {
			return produceWatched(cmd, env, req)
		}

		p, err := env.producer(ctx, progressPrinter{w: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		// Interrupts cancel between items; the session still ends with a
		// terminal event.
		stop := context.AfterFunc(ctx, func() { p.Sessions().CancelAll() })
		defer stop()

		sess, final, err := p.Run(context.WithoutCancel(ctx), req)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), sess.ID, final)
		return nil
	},
}

// produceWatched runs the batch in the background and follows it in the
// terminal monitor.
func produceWatched(cmd *cobra.Command, env *appEnv, req batch.Request) error {
	ctx := cmd.Context()
	hub := batch.NewHub(env.log)
	events, unsubscribe := hub.Subscribe(batch.AllSessions)
	defer unsubscribe()

	p, err := env.producer(ctx, hub)
	if err != nil {
		return err
	}
	sess, err := p.Start(ctx, req)
	if err != nil {
		return err
	}

	m := monitor.New(req.Category+" / "+req.Chapter, req.Count, events, sess.Cancel, env.store.MCQRepo())
	final, err := monitor.Run(m)
	if err != nil {
		sess.Cancel()
		<-sess.Done()
		return fmt.Errorf("monitor: %w", err)
	}
	if !final.Done() {
		// Quit before the end: stop producing and wait for the item in flight.
		sess.Cancel()
	}
	<-sess.Done()
	printSummary(cmd.OutOrStdout(), sess.ID, sess.Last())
	return nil
}

// progressPrinter writes one line per progress event.
type progressPrinter struct {
	w io.Writer
}

func (pp progressPrinter) Publish(p batch.Progress) {
	switch p.Status {
	case batch.StatusError:
		fmt.Fprintf(pp.w, "[%d/%d] failed  %s: %s\n", p.Done(), p.Requested, p.Node, p.Message)
	case batch.StatusProgress:
		fmt.Fprintf(pp.w, "[%d/%d] saved   %s  %s\n", p.Done(), p.Requested, p.MCQID, p.Node)
	}
}

func printSummary(w io.Writer, session string, p batch.Progress) {
	fmt.Fprintf(w, "Session %s %s: %d produced, %d rejected, %d failed of %d requested.\n",
		session, p.Status, p.Produced, p.Rejected, p.Failed, p.Requested)
}

func init() {
	produceCmd.Flags().IntP("count", "n", 10, "Number of questions to produce")
	produceCmd.Flags().IntP("workers", "w", 1, fmt.Sprintf("Parallel LLM threads (max %d)", batch.MaxWorkers))
	produceCmd.Flags().Int("false", 0, "Fix the number of false statements per batch, 0-4 (default: random)")
	produceCmd.Flags().IntP("statements", "k", 0, "Statements per question: 2, 3 or 4 (default: random)")
	produceCmd.Flags().Bool("evaluate", false, "Review each question with the LLM before saving")
	produceCmd.Flags().Bool("watch", false, "Follow progress in the terminal monitor")
}
