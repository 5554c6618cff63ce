package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/tagedit"
)

const toastTTL = 3 * time.Second

type tagsChangedMsg struct{}

type toastMsg struct {
	kind    tagedit.Kind
	message string
}

type clearToastMsg struct{ seq int }

// channelNotifier forwards notifications to the program without blocking the
// caller; notifications are dropped when the buffer is full.
type channelNotifier chan toastMsg

func (c channelNotifier) Notify(kind tagedit.Kind, message string) {
	select {
	case c <- toastMsg{kind: kind, message: message}:
	default:
	}
}

// Model is a bubbletea model listing tags, one editor per row.
type Model struct {
	tags    *tagedit.Collection
	deps    tagedit.Deps
	opts    []tagedit.Option
	editors map[string]*tagedit.Editor

	changes     chan struct{}
	toasts      channelNotifier
	unsubscribe func()

	rows   []domain.Tag
	cursor int
	width  int

	input     textinput.Model
	editingID string
	confirmID string

	toast    *toastMsg
	toastSeq int
}

// New creates the tag editor model. deps.Notifier is replaced by the model's
// toast channel.
func New(tags *tagedit.Collection, deps tagedit.Deps, opts ...tagedit.Option) Model {
	changes := make(chan struct{}, 1)
	toasts := make(channelNotifier, 16)

	deps.Tags = tags
	deps.Notifier = toasts

	input := textinput.New()
	input.Prompt = ""
	// No limit: the seeded draft must hold any stored name.
	input.CharLimit = 0

	m := Model{
		tags:    tags,
		deps:    deps,
		opts:    opts,
		editors: make(map[string]*tagedit.Editor),
		changes: changes,
		toasts:  toasts,
		rows:    tags.Tags(),
		input:   input,
	}
	m.unsubscribe = tags.Subscribe(func([]domain.Tag) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changes), waitForToast(m.toasts))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return tagsChangedMsg{}
	}
}

func waitForToast(ch <-chan toastMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Settle flushes debounced deletes and waits for all remote calls.
func (m Model) Settle() {
	for _, ed := range m.editors {
		ed.Settle()
	}
}

// Close stops listening to the collection.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) editor(tag domain.Tag) *tagedit.Editor {
	ed, ok := m.editors[tag.ID]
	if !ok {
		ed = tagedit.NewEditor(tag, m.deps, m.opts...)
		m.editors[tag.ID] = ed
	}
	return ed
}

func (m Model) selected() (domain.Tag, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return domain.Tag{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) refresh() {
	m.rows = m.tags.Tags()

	live := make(map[string]bool, len(m.rows))
	for _, t := range m.rows {
		live[t.ID] = true
	}
	for id, ed := range m.editors {
		if !live[id] && !ed.Deleter().Pending() {
			ed.Close()
			delete(m.editors, id)
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tagsChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case toastMsg:
		m.toastSeq++
		m.toast = &msg
		seq := m.toastSeq
		return m, tea.Batch(
			waitForToast(m.toasts),
			tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} }),
		)

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.confirmID != "":
			return m.updateConfirm(msg)
		case m.editingID != "":
			return m.updateEditing(msg)
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "e", "enter":
		tag, ok := m.selected()
		if !ok {
			return m, nil
		}
		ed := m.editor(tag)
		ed.BeginEdit()
		m.editingID = tag.ID
		m.input.SetValue(ed.Renamer().Draft())
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case "d", "x", "delete":
		tag, ok := m.selected()
		if !ok {
			return m, nil
		}
		ed := m.editor(tag)
		ed.RequestDelete(tag)
		if ed.ConfirmOpen() {
			m.confirmID = tag.ID
		}
	}

	return m, nil
}

// updateEditing handles keys while the rename input is open. Leaving the
// input by enter or esc submits the draft.
func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed, ok := m.editors[m.editingID]
	if !ok {
		m.editingID = ""
		m.input.Blur()
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		draft := m.input.Value()
		ed.Renamer().SetDraft(draft)
		ed.SubmitRename(draft)
		m.editingID = ""
		m.input.Blur()
		m.refresh()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	ed.Renamer().SetDraft(m.input.Value())
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed, ok := m.editors[m.confirmID]
	if !ok {
		m.confirmID = ""
		return m, nil
	}

	switch msg.String() {
	case "y", "enter":
		ed.ConfirmDelete()
		m.confirmID = ""
	case "n", "esc":
		ed.CancelDelete()
		m.confirmID = ""
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Tags"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(styleMuted.Render("No tags yet. Tags appear when entries are tagged."))
		b.WriteString("\n")
	}

	for i, tag := range m.rows {
		b.WriteString(m.renderRow(i, tag))
		b.WriteString("\n")
	}

	if m.confirmID != "" {
		if tag, ok := m.tags.Find(m.confirmID); ok {
			b.WriteString("\n")
			b.WriteString(renderConfirm(tag))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.toast != nil {
		style := styleSuccess
		if m.toast.kind == tagedit.KindError {
			style = styleError
		}
		b.WriteString(style.Render(m.toast.message))
		b.WriteString("\n")
	}
	b.WriteString(styleMuted.Render(m.help()))

	return b.String()
}

func (m Model) renderRow(i int, tag domain.Tag) string {
	marker := "  "
	name := tag.Name
	if i == m.cursor {
		marker = "> "
		name = styleSelected.Render(name)
	}

	if tag.ID == m.editingID {
		return marker + m.input.View()
	}

	row := marker + name + styleCount.Render(fmt.Sprintf("%d", tag.BindingCount))
	if ed, ok := m.editors[tag.ID]; ok && ed.Deleter().Pending() {
		row += styleMuted.Render("  deleting…")
	}
	return row
}

func renderConfirm(tag domain.Tag) string {
	title := styleTitle.Render(fmt.Sprintf("Delete tag %q", tag.Name))
	body := fmt.Sprintf("It is used by %d %s. Deleting it removes those bindings.", tag.BindingCount, plural(tag.BindingCount, "entry", "entries"))
	help := styleMuted.Render("y/enter: delete   n/esc: cancel")
	return styleModal.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
}

func (m Model) help() string {
	switch {
	case m.confirmID != "":
		return "y: confirm   n: cancel"
	case m.editingID != "":
		return "enter/esc: save"
	default:
		return "↑/↓: move   e: rename   d: delete   q: quit"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Run starts the interactive editor and blocks until the user quits. Pending
// deletes are flushed and in-flight calls settled before it returns.
func Run(tags *tagedit.Collection, deps tagedit.Deps, opts ...tagedit.Option) error {
	m := New(tags, deps, opts...)
	defer m.Close()

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(Model); ok {
		fm.Settle()
	}
	if err != nil {
		return fmt.Errorf("run tag editor: %w", err)
	}
	return nil
}
