// Package tui is the interactive todo list.
//
// The Bubble Tea update loop owns the store. Each gesture runs the local half
// of a syncer operation inside Update and returns the network half as a
// tea.Cmd; its result comes back as a settledMsg and is applied in Update too.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todo-client/internal/model"
	"github.com/idilsaglam/todo-client/internal/store"
	"github.com/idilsaglam/todo-client/internal/syncer"
)

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ item model.Item }

func (i listItem) Title() string       { return i.item.Title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.item.Title }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.item.Title
	if it.item.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+box+" "+text)
}

type keyMap struct {
	Toggle  key.Binding
	Delete  key.Binding
	Add     key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// settledMsg carries a finished request back to the update loop.
type settledMsg struct {
	settle syncer.Settle
}

// Model implements tea.Model on top of a syncer.
type Model struct {
	ctx    context.Context
	sync   *syncer.Syncer
	store  *store.Store
	logger *log.Logger
	keys   keyMap

	list    list.Model
	input   textinput.Model
	spinner spinner.Model

	adding   bool
	addErr   string
	inflight int
	dirty    bool

	width, height int
}

// New builds the model. Requests run under ctx.
func New(ctx context.Context, s *syncer.Syncer, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Model{
		ctx:    ctx,
		sync:   s,
		store:  s.Store(),
		logger: logger,
		keys:   defaultKeys(),
		width:  80,
		height: 24,
	}

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	// "d" deletes here, so it can't also page.
	l.KeyMap.NextPage.SetKeys("right", "l", "pgdown", "f")
	l.KeyMap.Quit.SetEnabled(false)
	extra := func() []key.Binding {
		return []key.Binding{m.keys.Toggle, m.keys.Add, m.keys.Delete, m.keys.Refresh, m.keys.Quit}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra
	m.list = l

	m.input = textinput.New()
	m.input.Prompt = "> "
	m.input.Placeholder = "New item title..."
	m.input.CharLimit = 200

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	m.store.Subscribe(func() { m.dirty = true })
	m.syncList()
	m.layout()
	return m
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(ctx context.Context, s *syncer.Syncer, logger *log.Logger) error {
	p := tea.NewProgram(New(ctx, s, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init fetches the collection once, at mount.
func (m *Model) Init() tea.Cmd {
	return m.dispatch(m.sync.Refresh())
}

// Update and View implement Bubble Tea's Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if m.dirty {
		cmd = tea.Batch(cmd, m.syncList())
	}
	m.layout()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return nil

	case settledMsg:
		m.inflight--
		return m.dispatch(msg.settle())

	case spinner.TickMsg:
		if m.inflight == 0 {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		if m.list.FilterState() != list.Filtering {
			if cmd, handled := m.handleKey(msg); handled {
				return cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Toggle):
		if it, ok := m.selected(); ok {
			return m.dispatch(m.sync.Toggle(it.ID, it.Completed)), true
		}
		return nil, true

	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.selected(); ok {
			return m.dispatch(m.sync.Delete(it.ID)), true
		}
		return nil, true

	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.addErr = ""
		m.input.SetValue(m.store.Draft())
		m.input.CursorEnd()
		return m.input.Focus(), true

	case key.Matches(msg, m.keys.Refresh):
		return m.dispatch(m.sync.Refresh()), true
	}
	return nil, false
}

func (m *Model) updateAdding(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		task := m.sync.Submit()
		if task == nil {
			m.addErr = "Title cannot be empty"
			return nil
		}
		m.addErr = ""
		m.adding = false
		m.input.Blur()
		return m.dispatch(task)
	case tea.KeyEsc:
		// The draft stays in the store for next time.
		m.adding = false
		m.input.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != m.store.Draft() {
		m.store.SetDraft(v)
	}
	return cmd
}

// dispatch turns the network half of an operation into a command. Each one
// runs in its own goroutine; nothing orders them against each other.
func (m *Model) dispatch(t syncer.Task) tea.Cmd {
	if t == nil {
		return nil
	}
	m.inflight++
	m.logger.Debug("request started", "inflight", m.inflight)
	ctx := m.ctx
	run := func() tea.Msg {
		return settledMsg{settle: t(ctx)}
	}
	if m.inflight == 1 {
		return tea.Batch(run, m.spinner.Tick)
	}
	return run
}

func (m *Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return it.item, true
}

// syncList copies the store into the list widget.
func (m *Model) syncList() tea.Cmd {
	m.dirty = false
	items := m.store.Items()
	li := make([]list.Item, 0, len(items))
	for _, it := range items {
		li = append(li, listItem{it})
	}
	m.list.Title = header(items)
	if m.input.Value() != m.store.Draft() {
		m.input.SetValue(m.store.Draft())
	}
	return m.list.SetItems(li)
}

func (m *Model) layout() {
	h := m.height - 4
	if m.adding {
		h -= 4
	}
	if m.inflight > 0 {
		h--
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	if m.adding {
		title := "Add new item"
		if m.addErr != "" {
			title += " - " + errorStyle.Render(m.addErr)
		}
		b.WriteString("\n" + frameStyle.Render(title+"\n"+m.input.View()))
	}
	if m.inflight > 0 {
		b.WriteString("\n" + m.spinner.View() + mutedStyle.Render(fmt.Sprintf(" syncing (%d)", m.inflight)))
	}
	return frameStyle.Render(b.String())
}

// header is the list title with live counts.
func header(items []model.Item) string {
	d, p := model.Stats(items)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Todos"), "   ",
		successStyle.Render("✔"), fmt.Sprintf(" %d  ", d),
		pendingStyle.Render("•"), fmt.Sprintf(" %d  ", p),
		accentStyle.Render("Total"), fmt.Sprintf(" %d", len(items)),
	)
}
