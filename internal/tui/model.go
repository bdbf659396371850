// Package tui is the single-screen terminal interface to the item store.
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

// mode is what currently has keyboard focus.
type mode int

const (
	modeList mode = iota
	modeForm
	modeAlert
	modeConfirm
)

// Model is the bubbletea model for the inventory screen.
type Model struct {
	store  store.Store
	logger *zap.Logger
	styles Styles

	items  []model.Item
	cursor int
	mode   mode

	form itemForm

	alertTitle string
	alertText  string
	alertBack  mode

	confirmID     string
	confirmDelete bool // Delete button focused instead of Cancel

	width  int
	height int
}

// New creates the screen over s. s must be initialized.
func New(s store.Store, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		store:  s,
		logger: logger,
		styles: DefaultStyles(),
		items:  s.List(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeAlert:
			return m.updateAlert(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "a", "n":
		m.form = newItemForm()
		m.mode = modeForm
	case "e", "enter":
		if item, ok := m.selected(); ok {
			m.form = editItemForm(item)
			m.mode = modeForm
		}
	case "d", "delete", "backspace":
		if item, ok := m.selected(); ok {
			m.confirmID = item.ID
			m.confirmDelete = false
			m.mode = modeConfirm
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.form.move(1)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.form.move(-1)
		return m, nil
	case tea.KeyEnter:
		return m.submit(), nil
	}
	return m, m.form.update(msg)
}

// submit hands the draft to the store. A validation failure keeps the form
// open behind an alert.
func (m Model) submit() Model {
	draft := m.form.draft()

	var err error
	if m.form.editing() {
		var matched bool
		_, matched, err = m.store.Edit(m.form.editID, draft)
		if err == nil && !matched {
			m.logger.Warn("edited item no longer exists", zap.String("id", m.form.editID))
		}
	} else {
		_, err = m.store.Add(draft)
	}

	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return m.alert("Validation Error", verr.UserMessage(), modeForm)
		}
		m.logger.Error("failed to apply item", zap.Error(err))
		return m.alert("Error", err.Error(), modeForm)
	}

	if !m.form.editing() {
		m.cursor = len(m.items) // the appended item, after refresh
	}
	m.mode = modeList
	m.refresh()
	return m
}

func (m Model) updateAlert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
		m.mode = m.alertBack
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab", "shift+tab", "h", "l":
		m.confirmDelete = !m.confirmDelete
	case "y":
		return m.deleteConfirmed(), nil
	case "n", "esc":
		m.mode = modeList
	case "enter":
		if m.confirmDelete {
			return m.deleteConfirmed(), nil
		}
		m.mode = modeList
	}
	return m, nil
}

func (m Model) deleteConfirmed() Model {
	m.mode = modeList
	if _, err := m.store.Delete(m.confirmID); err != nil {
		m.logger.Error("failed to delete item", zap.String("id", m.confirmID), zap.Error(err))
		return m.alert("Error", err.Error(), modeList)
	}
	m.refresh()
	return m
}

func (m Model) alert(title, text string, back mode) Model {
	m.alertTitle = title
	m.alertText = text
	m.alertBack = back
	m.mode = modeAlert
	return m
}

// refresh re-reads the collection and keeps the cursor in range.
func (m *Model) refresh() {
	m.items = m.store.List()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (model.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.Item{}, false
	}
	return m.items[m.cursor], true
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.mode {
	case modeForm:
		body = m.viewForm()
	case modeAlert:
		body = m.styles.Alert.Render(
			m.styles.DialogTitle.Render(m.alertTitle) + "\n" + m.alertText + "\n\n" +
				m.styles.ButtonFocus.Render("OK"))
	case modeConfirm:
		body = m.viewConfirm()
	default:
		body = m.viewList()
	}

	if m.width > 0 && m.mode != modeList {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

func (m Model) viewList() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Inventory Management"))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(m.styles.Empty.Render("No items in inventory yet."))
		b.WriteString("\n")
		b.WriteString(m.styles.Empty.Render(`Press "a" to add a new item and get started!`))
		b.WriteString("\n")
	}

	for i, item := range m.items {
		style := m.styles.Row
		if i == m.cursor {
			style = m.styles.SelectedRow
		}
		b.WriteString(style.Render(renderItem(m.styles, item)))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("a add • e edit • d delete • ↑/↓ move • q quit"))
	return b.String()
}

func renderItem(s Styles, item model.Item) string {
	return s.ItemName.Render(item.Name) + "\n" +
		s.ItemDetail.Render(fmt.Sprintf("Quantity: %d", item.Quantity)) + "\n" +
		s.ItemDetail.Render(fmt.Sprintf("Price: $%.2f", item.Price))
}

func (m Model) viewForm() string {
	var b strings.Builder
	b.WriteString(m.styles.DialogTitle.Render(m.form.title()))
	b.WriteString("\n")
	for i := range m.form.inputs {
		b.WriteString(m.styles.Label.Render(fieldLabels[i]))
		b.WriteString("\n")
		b.WriteString(m.form.inputs[i].View())
		b.WriteString("\n\n")
	}
	b.WriteString(m.styles.Button.Render("Cancel (esc)"))
	b.WriteString(m.styles.ButtonFocus.Render(m.form.submitLabel() + " (enter)"))
	return m.styles.Dialog.Render(b.String())
}

func (m Model) viewConfirm() string {
	cancel, del := m.styles.ButtonFocus, m.styles.Button
	if m.confirmDelete {
		cancel, del = m.styles.Button, m.styles.Danger
	}
	return m.styles.Dialog.Render(
		m.styles.DialogTitle.Render("Delete Item") + "\n" +
			"Are you sure you want to delete this item?" + "\n\n" +
			cancel.Render("Cancel") + " " + del.Render("Delete"))
}
