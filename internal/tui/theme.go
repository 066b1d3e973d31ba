package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const themeConfigFileName = "themes.json"

type ThemeConfig struct {
	Default string           `json:"default"`
	Themes  map[string]Theme `json:"themes"`
}

type Theme struct {
	Name string `json:"-"`

	TitleFg            string `json:"title_fg"`
	SidePaneBorder     string `json:"side_pane_border"`
	FocusedPaneBorder  string `json:"focused_pane_border"`
	HeaderBg           string `json:"header_bg"`
	HeaderFg           string `json:"header_fg"`
	FooterBg           string `json:"footer_bg"`
	FooterFg           string `json:"footer_fg"`
	LineNumberFg       string `json:"line_number"`
	OursBg             string `json:"ours_bg"`
	OursFg             string `json:"ours_fg"`
	TheirsBg           string `json:"theirs_bg"`
	TheirsFg           string `json:"theirs_fg"`
	ManualBg           string `json:"manual_bg"`
	ManualFg           string `json:"manual_fg"`
	ConflictBg         string `json:"conflict_bg"`
	ConflictFg         string `json:"conflict_fg"`
	CursorBg           string `json:"cursor_bg"`
	PickedFg           string `json:"picked_fg"`
	AddedBg            string `json:"added_bg"`
	AddedFg            string `json:"added_fg"`
	RemovedBg          string `json:"removed_bg"`
	RemovedFg          string `json:"removed_fg"`
	WordAddedBg        string `json:"word_added_bg"`
	WordRemovedBg      string `json:"word_removed_bg"`
	HunkMarkerFg       string `json:"hunk_marker_fg"`
	StatusResolvedFg   string `json:"status_resolved_fg"`
	StatusUnresolvedFg string `json:"status_unresolved_fg"`
	ToastBg            string `json:"toast_bg"`
	ToastFg            string `json:"toast_fg"`
	WarnToastBg        string `json:"warn_toast_bg"`
	DimFg              string `json:"dim_fg"`
}

var (
	titleStyle            lipgloss.Style
	sidePaneStyle         lipgloss.Style
	focusedPaneStyle      lipgloss.Style
	headerStyle           lipgloss.Style
	footerStyle           lipgloss.Style
	lineNumberStyle       lipgloss.Style
	oursLineStyle         lipgloss.Style
	theirsLineStyle       lipgloss.Style
	manualLineStyle       lipgloss.Style
	conflictLineStyle     lipgloss.Style
	pickedMarkerStyle     lipgloss.Style
	addedLineStyle        lipgloss.Style
	removedLineStyle      lipgloss.Style
	wordAddedStyle        lipgloss.Style
	wordRemovedStyle      lipgloss.Style
	hunkMarkerStyle       lipgloss.Style
	statusResolvedStyle   lipgloss.Style
	statusUnresolvedStyle lipgloss.Style
	toastStyle            lipgloss.Style
	warnToastStyle        lipgloss.Style
	toastLineStyle        lipgloss.Style
	dimStyle              lipgloss.Style

	resolvedLabelStyle   lipgloss.Style
	unresolvedLabelStyle lipgloss.Style

	cursorBackground lipgloss.Color
)

var (
	themeOnce sync.Once
	themeErr  error
)

func init() {
	applyTheme(defaultTheme())
}

// ensureThemeLoaded applies the user's theme once. name overrides the
// "default" entry of themes.json when set.
func ensureThemeLoaded(name string) error {
	themeOnce.Do(func() {
		theme, err := loadThemeFromConfig(name)
		if err != nil {
			themeErr = err
			return
		}
		applyTheme(theme)
	})
	return themeErr
}

func loadThemeFromConfig(name string) (Theme, error) {
	fallback := defaultTheme()
	configPath, err := themeConfigPath()
	if err != nil {
		return fallback, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return Theme{}, fmt.Errorf("read theme config: %w", err)
	}
	return parseThemeConfig(data, name, configPath)
}

func parseThemeConfig(data []byte, name, source string) (Theme, error) {
	var cfg ThemeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Theme{}, fmt.Errorf("parse theme config: %w", err)
	}

	themeName := strings.TrimSpace(name)
	if themeName == "" {
		themeName = strings.TrimSpace(cfg.Default)
	}
	if themeName == "" || themeName == "default" {
		if t, ok := cfg.Themes["default"]; ok {
			t.Name = "default"
			return mergeTheme(defaultTheme(), t), nil
		}
		return defaultTheme(), nil
	}

	theme, ok := cfg.Themes[themeName]
	if !ok {
		return Theme{}, fmt.Errorf("theme %q not found in %s", themeName, source)
	}
	theme.Name = themeName
	return mergeTheme(defaultTheme(), theme), nil
}

func themeConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "mend", themeConfigFileName), nil
}

func defaultTheme() Theme {
	return Theme{
		Name:               "default",
		TitleFg:            "170",
		SidePaneBorder:     "255",
		FocusedPaneBorder:  "33",
		HeaderBg:           "62",
		HeaderFg:           "230",
		FooterBg:           "236",
		FooterFg:           "243",
		LineNumberFg:       "241",
		OursBg:             "24",
		OursFg:             "230",
		TheirsBg:           "52",
		TheirsFg:           "230",
		ManualBg:           "58",
		ManualFg:           "230",
		ConflictBg:         "237",
		ConflictFg:         "250",
		CursorBg:           "238",
		PickedFg:           "226",
		AddedBg:            "22",
		AddedFg:            "231",
		RemovedBg:          "52",
		RemovedFg:          "231",
		WordAddedBg:        "28",
		WordRemovedBg:      "88",
		HunkMarkerFg:       "214",
		StatusResolvedFg:   "42",
		StatusUnresolvedFg: "196",
		ToastBg:            "22",
		ToastFg:            "230",
		WarnToastBg:        "130",
		DimFg:              "244",
	}
}

// mergeTheme fills every empty field of override from base.
func mergeTheme(base Theme, override Theme) Theme {
	out := override
	pick := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}
	pick(&out.TitleFg, base.TitleFg)
	pick(&out.SidePaneBorder, base.SidePaneBorder)
	pick(&out.FocusedPaneBorder, base.FocusedPaneBorder)
	pick(&out.HeaderBg, base.HeaderBg)
	pick(&out.HeaderFg, base.HeaderFg)
	pick(&out.FooterBg, base.FooterBg)
	pick(&out.FooterFg, base.FooterFg)
	pick(&out.LineNumberFg, base.LineNumberFg)
	pick(&out.OursBg, base.OursBg)
	pick(&out.OursFg, base.OursFg)
	pick(&out.TheirsBg, base.TheirsBg)
	pick(&out.TheirsFg, base.TheirsFg)
	pick(&out.ManualBg, base.ManualBg)
	pick(&out.ManualFg, base.ManualFg)
	pick(&out.ConflictBg, base.ConflictBg)
	pick(&out.ConflictFg, base.ConflictFg)
	pick(&out.CursorBg, base.CursorBg)
	pick(&out.PickedFg, base.PickedFg)
	pick(&out.AddedBg, base.AddedBg)
	pick(&out.AddedFg, base.AddedFg)
	pick(&out.RemovedBg, base.RemovedBg)
	pick(&out.RemovedFg, base.RemovedFg)
	pick(&out.WordAddedBg, base.WordAddedBg)
	pick(&out.WordRemovedBg, base.WordRemovedBg)
	pick(&out.HunkMarkerFg, base.HunkMarkerFg)
	pick(&out.StatusResolvedFg, base.StatusResolvedFg)
	pick(&out.StatusUnresolvedFg, base.StatusUnresolvedFg)
	pick(&out.ToastBg, base.ToastBg)
	pick(&out.ToastFg, base.ToastFg)
	pick(&out.WarnToastBg, base.WarnToastBg)
	pick(&out.DimFg, base.DimFg)
	return out
}

func applyTheme(theme Theme) {
	pane := func(border string) lipgloss.Style {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(border)).
			Padding(0, 1)
	}
	fillStyle := func(bg, fg string) lipgloss.Style {
		return lipgloss.NewStyle().
			Background(lipgloss.Color(bg)).
			Foreground(lipgloss.Color(fg))
	}

	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.TitleFg)).
		Padding(0, 1)

	sidePaneStyle = pane(theme.SidePaneBorder)
	focusedPaneStyle = pane(theme.FocusedPaneBorder)

	headerStyle = fillStyle(theme.HeaderBg, theme.HeaderFg).Bold(true).Padding(0, 2)
	footerStyle = fillStyle(theme.FooterBg, theme.FooterFg).Padding(0, 2)

	lineNumberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.LineNumberFg))

	oursLineStyle = fillStyle(theme.OursBg, theme.OursFg)
	theirsLineStyle = fillStyle(theme.TheirsBg, theme.TheirsFg)
	manualLineStyle = fillStyle(theme.ManualBg, theme.ManualFg)
	conflictLineStyle = fillStyle(theme.ConflictBg, theme.ConflictFg)
	pickedMarkerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.PickedFg)).Bold(true)

	addedLineStyle = fillStyle(theme.AddedBg, theme.AddedFg)
	removedLineStyle = fillStyle(theme.RemovedBg, theme.RemovedFg)
	wordAddedStyle = fillStyle(theme.WordAddedBg, theme.AddedFg).Bold(true)
	wordRemovedStyle = fillStyle(theme.WordRemovedBg, theme.RemovedFg).Bold(true)
	hunkMarkerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.HunkMarkerFg)).Bold(true)

	statusResolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.StatusResolvedFg)).Bold(true)
	statusUnresolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.StatusUnresolvedFg)).Bold(true)

	toastStyle = fillStyle(theme.ToastBg, theme.ToastFg).Padding(0, 1)
	warnToastStyle = fillStyle(theme.WarnToastBg, theme.ToastFg).Padding(0, 1)
	toastLineStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 2)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.DimFg))

	resolvedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.StatusResolvedFg))
	unresolvedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.StatusUnresolvedFg))

	cursorBackground = lipgloss.Color(theme.CursorBg)
}
