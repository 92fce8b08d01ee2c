package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/amalgam/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the amalgamation whenever a module changes",
		Long: `Build once, then watch the source directory and rebuild after every burst
of changes to declaration or implementation files.

Changes are debounced (watch.debounce in amalgam.yaml, default 200ms). A
failed rebuild is reported and the previous output is kept; watching
continues until interrupted.`,
		Example: `  # Watch the current directory
  amalgam watch

  # Watch with debug logging
  amalgam watch -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}

	return cmd
}

func runWatch(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &BuildOptions{}
	report := func(out *BuildOutput, err error) {
		if err != nil {
			r.Error(err.Error())
			return
		}
		r.Success(fmt.Sprintf("Wrote %s (%d modules inlined, %d excluded)",
			displayPath(out.Dest), out.Included, out.Excluded))
	}

	report(build(cmdCtx, opts, "initial"))

	w, err := watch.New(watch.Options{
		Dir:        cfg.SourceDir,
		Extensions: []string{cfg.DeclExt, cfg.ImplExt},
		Ignore:     []string{cfg.Dest},
		Debounce:   cfg.Watch.Debounce,
		Logger:     cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", displayPath(cfg.SourceDir)))
	return w.Run(ctx, func(_ context.Context, changed []string) error {
		report(build(cmdCtx, opts, strings.Join(changed, ",")))
		return nil
	})
}
