package tui

import "github.com/charmbracelet/bubbles/key"

// resolverKeys are the bindings of the three-pane resolver.
type resolverKeys struct {
	Next       key.Binding
	Prev       key.Binding
	Up         key.Binding
	Down       key.Binding
	FocusLeft  key.Binding
	FocusRight key.Binding
	Toggle     key.Binding
	Ours       key.Binding
	Theirs     key.Binding
	OursAll    key.Binding
	TheirsAll  key.Binding
	Reset      key.Binding
	Undo       key.Binding
	Redo       key.Binding
	Edit       key.Binding
	EditAll    key.Binding
	Copy       key.Binding
	Write      key.Binding
	Reload     key.Binding
	ScrollL    key.Binding
	ScrollR    key.Binding
	Help       key.Binding
	Back       key.Binding
	Quit       key.Binding
}

func defaultResolverKeys() resolverKeys {
	return resolverKeys{
		Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next conflict")),
		Prev:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev conflict")),
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "line up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "line down")),
		FocusLeft:  key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "focus ours")),
		FocusRight: key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "focus theirs")),
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pick line")),
		Ours:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "take ours")),
		Theirs:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "take theirs")),
		OursAll:    key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "ours everywhere")),
		TheirsAll:  key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "theirs everywhere")),
		Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Undo:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Redo:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "redo")),
		Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit conflict")),
		EditAll:    key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "edit file")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy result")),
		Write:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "write")),
		Reload:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload")),
		ScrollL:    key.NewBinding(key.WithKeys("H"), key.WithHelp("H/L", "scroll")),
		ScrollR:    key.NewBinding(key.WithKeys("L")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Back:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "back")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k resolverKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Toggle, k.Ours, k.Theirs, k.Undo, k.Write, k.Help, k.Back}
}

func (k resolverKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Up, k.Down, k.FocusLeft, k.FocusRight},
		{k.Toggle, k.Ours, k.Theirs, k.OursAll, k.TheirsAll, k.Reset},
		{k.Undo, k.Redo, k.Edit, k.EditAll, k.Copy},
		{k.Write, k.Reload, k.ScrollL, k.Help, k.Back},
	}
}

type diffKeys struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	NextHunk key.Binding
	PrevHunk key.Binding
	Stage    key.Binding
	Unstage  key.Binding
	Staged   key.Binding
	Inline   key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultDiffKeys() diffKeys {
	return diffKeys{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Left:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "old side")),
		Right:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "new side")),
		NextHunk: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next hunk")),
		PrevHunk: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev hunk")),
		Stage:    key.NewBinding(key.WithKeys("s", " "), key.WithHelp("s", "stage line")),
		Unstage:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unstage line")),
		Staged:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "staged/unstaged")),
		Inline:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "inline/split")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k diffKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.NextHunk, k.PrevHunk, k.Stage, k.Unstage, k.Staged, k.Inline, k.Help, k.Quit}
}

func (k diffKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.NextHunk, k.PrevHunk, k.Stage, k.Unstage},
		{k.Staged, k.Inline, k.Reload, k.Quit},
	}
}
