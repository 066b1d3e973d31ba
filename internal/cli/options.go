package cli

import "github.com/chojs23/mend/internal/linediff"

// Mode selects what a single invocation does.
type Mode int

const (
	// ModeInteractive opens the resolver, on Path or on a file picked from
	// the repository's conflicts.
	ModeInteractive Mode = iota
	ModeCheck
	ModeApplyAll
	ModeDiff
	ModeStageLine
	ModeUnstageLine
	ModeList
	ModeInitConfig
)

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeCheck:
		return "check"
	case ModeApplyAll:
		return "apply-all"
	case ModeDiff:
		return "diff"
	case ModeStageLine:
		return "stage-line"
	case ModeUnstageLine:
		return "unstage-line"
	case ModeList:
		return "list"
	case ModeInitConfig:
		return "init-config"
	default:
		return "unknown"
	}
}

// Options is the fully-parsed configuration for a single invocation.
type Options struct {
	Mode Mode

	// Path is the file to work on. Check accepts several in Paths.
	Path  string
	Paths []string

	ApplyAll string // ours|theirs

	// Backup overrides the config value when BackupSet is true.
	Backup    bool
	BackupSet bool
	// NoAdd keeps apply-all from marking the path resolved in git.
	NoAdd bool

	Staged bool
	Inline bool

	Target linediff.StageTarget

	// Global makes init-config write the user config instead of the
	// repository-local one.
	Global bool
	Force  bool

	ConfigPath string
	Debug      bool
}
