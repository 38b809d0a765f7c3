// Command quilt is a thin CLI front end over the stack package: argument
// parsing, colorized progress output, and process exit codes live here;
// every actual patch-stack decision is made by stack.Ops.
package main

import (
	"fmt"
	stdlog "log/slog"
	"os"

	"github.com/deepnoodle-ai/quilt/cli"
	"github.com/deepnoodle-ai/quilt/color"
	"github.com/deepnoodle-ai/quilt/patchdb"
	"github.com/deepnoodle-ai/quilt/qconfig"
	"github.com/deepnoodle-ai/quilt/qerrors"
	qslog "github.com/deepnoodle-ai/quilt/slog"
	"github.com/deepnoodle-ai/quilt/signals"
	"github.com/deepnoodle-ai/quilt/stack"
)

func main() {
	cfg, err := qconfig.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "quilt: invalid configuration:", err)
		os.Exit(2)
	}

	lock, err := patchdb.AcquireLock(cfg.PC)
	if err != nil {
		fmt.Fprintln(os.Stderr, "quilt: another process is already operating on", cfg.PC)
		os.Exit(2)
	}
	defer lock.Release()

	logger := stdlog.New(qslog.NewHandler(os.Stdout, &qslog.Options{NoColor: !cfg.Color}))
	app := newApp(cfg, logger)

	if err := app.Run(); err != nil {
		if !cli.IsHelpRequested(err) {
			printError(os.Stderr, logger, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

func newApp(cfg qconfig.Config, logger *stdlog.Logger) *cli.App {
	app := cli.New("quilt", "Manage a stack of patches over a source tree")

	app.Command("push", "Apply the next patch, or all patches up to one named").
		Args("patch?").
		Flags(
			cli.Bool("all", "a").Help("Apply every remaining patch"),
			cli.Bool("force", "f").Help("Apply past a conflict, marking the patch for refresh"),
		).
		Run(func(ctx *cli.Context) error {
			ops := newOps(cfg, logger)
			target := ctx.Arg(0)
			force := ctx.Bool("force")
			if ctx.Bool("all") {
				for {
					if err := ops.Push(ctx.Context(), "", force); err != nil {
						if qerrors.HasError[*qerrors.AllPatchesAppliedError](err) {
							return nil
						}
						return err
					}
				}
			}
			return ops.Push(ctx.Context(), target, force)
		})

	app.Command("pop", "Unapply the topmost patch, or all patches down to one named").
		Args("patch?").
		Flags(
			cli.Bool("all", "a").Help("Unapply every applied patch"),
			cli.Bool("force", "f").Help("Pop past a pending refresh marker"),
		).
		Run(func(ctx *cli.Context) error {
			ops := newOps(cfg, logger)
			return ops.Pop(ctx.Arg(0), ctx.Bool("all"), ctx.Bool("force"))
		})

	app.Command("new", "Create an empty patch and add it to the series").
		Args("patch").
		ExactArgs(1).
		Run(func(ctx *cli.Context) error {
			return newOps(cfg, logger).New(ctx.Arg(0))
		})

	app.Command("add", "Start tracking files under the current (or named) patch").
		Args("file").
		Flags(cli.String("patch", "P").Help("Operate on a specific applied patch")).
		Run(func(ctx *cli.Context) error {
			return newOps(cfg, logger).Add(ctx.Args(), ctx.String("patch"))
		})

	app.Command("remove", "Revert files to the content recorded in a patch's backup").
		Args("file").
		Flags(cli.String("patch", "P").Help("Operate on a specific applied patch")).
		Run(func(ctx *cli.Context) error {
			return newOps(cfg, logger).Revert(ctx.Args(), ctx.String("patch"))
		})

	app.Command("refresh", "Regenerate a patch from the current working tree").
		Args("patch?").
		Run(func(ctx *cli.Context) error {
			return newOps(cfg, logger).Refresh(ctx.Arg(0))
		})

	app.Command("diff", "Show the patch that refresh would write, without writing it").
		Args("patch?").
		Flags(cli.Bool("stat", "s").Help("Show a summary instead of the full diff")).
		Run(func(ctx *cli.Context) error {
			ops := newOps(cfg, logger)
			if ctx.Bool("stat") {
				stat, err := ops.DiffStat(ctx.Arg(0))
				if err != nil {
					return err
				}
				ctx.Printf("%d file(s) changed, +%d -%d\n", stat.FilesChanged, stat.Additions, stat.Deletions)
				return nil
			}
			data, err := ops.Diff(ctx.Arg(0))
			if err != nil {
				return err
			}
			ctx.Print(string(data))
			return nil
		})

	app.Command("delete", "Remove a patch from the series").
		Args("patch?").
		Flags(
			cli.Bool("remove", "r").Help("Delete the patch file from disk too"),
			cli.Bool("backup", "b").Help("Rename the patch file to <name>~ instead of deleting it"),
			cli.Bool("next", "n").Help("Select the next unapplied patch instead of the top"),
		).
		Run(func(ctx *cli.Context) error {
			ops := newOps(cfg, logger)
			return ops.Delete(ctx.Arg(0), ctx.Bool("remove"), ctx.Bool("backup"), ctx.Bool("next"))
		})

	app.Command("import", "Copy external patch files into the series").
		Args("file").
		Flags(cli.String("name", "").Help("Rename a single imported patch")).
		Run(func(ctx *cli.Context) error {
			return newOps(cfg, logger).Import(ctx.Args(), ctx.String("name"))
		})

	app.Command("top", "Print the topmost applied patch").
		NoArgs().
		Run(func(ctx *cli.Context) error {
			p, err := newOps(cfg, logger).Top()
			if err != nil {
				return err
			}
			ctx.Println(p.Name)
			return nil
		})

	app.Command("applied", "List the applied patches").
		NoArgs().
		Run(func(ctx *cli.Context) error {
			patches, err := newOps(cfg, logger).AppliedPatches()
			if err != nil {
				return err
			}
			for _, p := range patches {
				ctx.Println(p.Name)
			}
			return nil
		})

	app.Command("series", "List every patch in the series").
		NoArgs().
		Run(func(ctx *cli.Context) error {
			patches, err := newOps(cfg, logger).SeriesPatches()
			if err != nil {
				return err
			}
			for _, p := range patches {
				ctx.Println(p.Name)
			}
			return nil
		})

	return app
}

func newOps(cfg qconfig.Config, logger *stdlog.Logger) *stack.Ops {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return stack.New(wd, cfg.Patches, cfg.PC, newLoggingObserver(logger))
}

// printError reports the top-level failure and, for a conflict, reminds
// the user that --force is available. The failure is also logged at debug
// level through qslog.Err; the handler built in main uses the default Info
// level, so that record is filtered out.
func printError(w *os.File, logger *stdlog.Logger, err error) {
	fmt.Fprintln(w, color.Red.Apply("quilt: "+err.Error()))
	if qerrors.HasError[*qerrors.ConflictError](err) {
		fmt.Fprintln(w, "Hint: rerun with --force to apply past the conflict and mark the patch for refresh.")
	}
	logger.Debug("command failed", qslog.Err(err))
}

// loggingObserver renders stack.Ops's signals.Observer events as
// colorized log lines, the way the CLI surfaces progress to a terminal.
type loggingObserver struct {
	signals.NoopObserver
	log *stdlog.Logger
}

func newLoggingObserver(logger *stdlog.Logger) *loggingObserver {
	return &loggingObserver{log: logger}
}

func (o *loggingObserver) ApplyingPatch(patch string) {
	o.log.Info("applying patch", qslog.Blue(stdlog.String("patch", patch)))
}

func (o *loggingObserver) Applied(patch string) {
	o.log.Info(color.Green.Apply("applied"), qslog.Green(stdlog.String("patch", patch)))
}

func (o *loggingObserver) AppliedEmptyPatch(patch string, existed bool) {
	o.log.Info("applied empty patch", "patch", patch, "existed", existed)
}

func (o *loggingObserver) Unapplying(patch string) {
	o.log.Info("unapplying patch", qslog.Blue(stdlog.String("patch", patch)))
}

func (o *loggingObserver) Unapplied(patch string) {
	o.log.Info(color.Yellow.Apply("unapplied"), qslog.Yellow(stdlog.String("patch", patch)))
}

func (o *loggingObserver) Refreshed(patch string) {
	o.log.Info(color.Cyan.Apply("refreshed"), qslog.Cyan(stdlog.String("patch", patch)))
}

func (o *loggingObserver) FileAdded(file, patch string) {
	o.log.Info("added file", "file", file, "patch", patch)
}

func (o *loggingObserver) FileReverted(file, patch string) {
	o.log.Info("reverted file", "file", file, "patch", patch)
}

func (o *loggingObserver) FileUnchanged(file, patch string) {
	o.log.Debug("file unchanged", "file", file, "patch", patch)
}

func (o *loggingObserver) EmptyPatch(patch string) {
	o.log.Info("created empty patch", "patch", patch)
}

func (o *loggingObserver) DeletingPatch(patch string, applied bool) {
	o.log.Info("deleting patch", "patch", patch, "applied", applied)
}

func (o *loggingObserver) DeletedPatch(patch string) {
	o.log.Info(color.Magenta.Apply("deleted"), qslog.Magenta(stdlog.String("patch", patch)))
}

var _ signals.Observer = (*loggingObserver)(nil)
