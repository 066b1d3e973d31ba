package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chojs23/mend/internal/linediff"
)

var ErrHelp = errors.New("help requested")
var ErrVersion = errors.New("version requested")

// Parse turns command-line arguments into Options. Help text goes to out;
// when help was shown Parse returns ErrHelp.
func Parse(args []string, out io.Writer) (Options, error) {
	var opts Options
	ran := false
	root := newRootCommand(&opts, &ran)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		if errors.Is(err, ErrVersion) {
			return Options{}, ErrVersion
		}
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage())
	}
	if !ran {
		return Options{}, ErrHelp
	}
	return opts, nil
}

// Usage returns the root command's usage text.
func Usage() string {
	var opts Options
	var ran bool
	return strings.TrimSpace(newRootCommand(&opts, &ran).UsageString())
}

func newRootCommand(opts *Options, ran *bool) *cobra.Command {
	var showVersion bool
	var backup bool

	// done records the mode; every command funnels through it.
	done := func(cmd *cobra.Command, mode Mode) error {
		opts.Mode = mode
		if f := cmd.Flags().Lookup("backup"); f != nil && f.Changed {
			opts.Backup = backup
			opts.BackupSet = true
		}
		*ran = true
		return nil
	}

	root := &cobra.Command{
		Use:   "mend [path]",
		Short: "Resolve git merge conflicts line by line",
		Long: `mend resolves conflict markers in a terminal UI.

Without a path it lists the conflicted files under the current directory
and asks which one to open. Pick whole sides or single lines of each
conflict, edit by hand when needed, then write the result and mark the file
resolved.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return ErrVersion
			}
			if len(args) == 1 {
				opts.Path = args[0]
			}
			return done(cmd, ModeInteractive)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"config file (default: .mend/config.yaml, then ~/.config/mend/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "write a debug log (log.path or ./mend-debug.log)")
	root.Flags().BoolVar(&showVersion, "version", false, "show version")
	root.Flags().BoolVar(&backup, "backup", false, "keep <path>.mend.bak when writing")

	resolveCmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Open the resolver on one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return done(cmd, ModeInteractive)
		},
	}
	resolveCmd.Flags().BoolVar(&backup, "backup", false, "keep <path>.mend.bak when writing")

	checkCmd := &cobra.Command{
		Use:   "check <path>...",
		Short: "Exit 0 if no file has conflict blocks, else 1",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Paths = args
			opts.Path = args[0]
			return done(cmd, ModeCheck)
		},
	}

	applyCmd := &cobra.Command{
		Use:   "apply-all ours|theirs <path>",
		Short: "Resolve every conflict with one side and write the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := strings.ToLower(strings.TrimSpace(args[0]))
			if side != "ours" && side != "theirs" {
				return fmt.Errorf("invalid side: %q (expected ours|theirs)", args[0])
			}
			opts.ApplyAll = side
			opts.Path = args[1]
			return done(cmd, ModeApplyAll)
		},
	}
	applyCmd.Flags().BoolVar(&backup, "backup", false, "keep <path>.mend.bak when writing")
	applyCmd.Flags().BoolVar(&opts.NoAdd, "no-add", false, "do not mark the file resolved in git")

	diffCmd := &cobra.Command{
		Use:   "diff <path>",
		Short: "Browse a file's diff and stage or unstage single lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return done(cmd, ModeDiff)
		},
	}
	diffCmd.Flags().BoolVar(&opts.Staged, "staged", false, "show HEAD against the index")
	diffCmd.Flags().BoolVar(&opts.Inline, "inline", false, "single-column layout")

	stageCmd := newLineCommand(opts, "stage-line", "Stage one changed line of a file", func(cmd *cobra.Command) error {
		return done(cmd, ModeStageLine)
	})
	unstageCmd := newLineCommand(opts, "unstage-line", "Unstage one staged line of a file", func(cmd *cobra.Command) error {
		return done(cmd, ModeUnstageLine)
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List conflicted files under the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return done(cmd, ModeList)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return done(cmd, ModeInitConfig)
		},
	}
	initCmd.Flags().BoolVar(&opts.Global, "global", false, "write ~/.config/mend/config.yaml")
	initCmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")

	root.AddCommand(resolveCmd, checkCmd, applyCmd, diffCmd, stageCmd, unstageCmd, listCmd, initCmd)
	return root
}

// newLineCommand builds stage-line and unstage-line, which share their
// flags.
func newLineCommand(opts *Options, use, short string, finish func(*cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <path> [--old N] [--new M]",
		Short: short,
		Long: short + `.

--old is the line number on the old side of the diff and --new the one on
the new side. stage-line compares the index with the working tree,
unstage-line HEAD with the index. Give --old alone for a removed line,
--new alone for an added line and both for a changed line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			if err := validateTarget(opts.Target); err != nil {
				return err
			}
			return finish(cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Target.OldLineNumber, "old", 0, "line number on the old side")
	cmd.Flags().IntVar(&opts.Target.NewLineNumber, "new", 0, "line number on the new side")
	return cmd
}

func validateTarget(t linediff.StageTarget) error {
	if t.OldLineNumber < 0 || t.NewLineNumber < 0 {
		return fmt.Errorf("line numbers must be positive")
	}
	if t.IsZero() {
		return fmt.Errorf("--old or --new is required")
	}
	return nil
}
