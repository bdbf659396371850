package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

const (
	fieldName = iota
	fieldQuantity
	fieldPrice
	fieldCount
)

var fieldLabels = [fieldCount]string{"Item Name:", "Quantity:", "Price:"}

var fieldPlaceholders = [fieldCount]string{"Enter item name", "Enter quantity", "Enter price"}

// itemForm is the add/edit dialog. editID is empty when adding.
type itemForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	editID string
}

// newItemForm opens an empty form for adding an item.
func newItemForm() itemForm {
	var f itemForm
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = fieldPlaceholders[i]
		in.CharLimit = 64
		in.Width = 32
		f.inputs[i] = in
	}
	f.inputs[fieldName].Focus()
	return f
}

// editItemForm opens a form pre-filled with item's current values.
func editItemForm(item model.Item) itemForm {
	f := newItemForm()
	d := model.DraftFromItem(item)
	f.inputs[fieldName].SetValue(d.Name)
	f.inputs[fieldQuantity].SetValue(string(d.Quantity))
	f.inputs[fieldPrice].SetValue(string(d.Price))
	f.editID = item.ID
	return f
}

func (f itemForm) editing() bool { return f.editID != "" }

func (f itemForm) title() string {
	if f.editing() {
		return "Edit Item"
	}
	return "Add New Item"
}

func (f itemForm) submitLabel() string {
	if f.editing() {
		return "Save Changes"
	}
	return "Add Item"
}

func (f itemForm) draft() model.Draft {
	return model.NewDraft(
		f.inputs[fieldName].Value(),
		f.inputs[fieldQuantity].Value(),
		f.inputs[fieldPrice].Value(),
	)
}

// move shifts focus by delta, wrapping around.
func (f *itemForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

// update forwards msg to the focused input.
func (f *itemForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}
