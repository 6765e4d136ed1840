package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	switchPane key.Binding
	newTask    key.Binding
	editTask   key.Binding
	deleteTask key.Binding
	taskInfo   key.Binding
	copyTitle  key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		switchPane: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		newTask:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		editTask:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		deleteTask: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		taskInfo:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "task details")),
		copyTitle:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy title")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.newTask, k.editTask, k.deleteTask, k.taskInfo, k.switchPane, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.newTask, k.editTask, k.deleteTask, k.taskInfo, k.copyTitle},
		{k.moveUp, k.moveDown, k.switchPane},
		{k.reload, k.toggleHelp, k.quit},
	}
}

// formKeyMap holds bindings active while the task form is open.
type formKeyMap struct {
	next   key.Binding
	prev   key.Binding
	left   key.Binding
	right  key.Binding
	submit key.Binding
	cancel key.Binding
}

// newFormKeyMap constructs form key map.
func newFormKeyMap() formKeyMap {
	return formKeyMap{
		next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		left:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous value")),
		right:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next value")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp handles short help.
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.left, k.right, k.submit, k.cancel}
}

// FullHelp handles full help.
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.next, k.prev}, {k.left, k.right}, {k.submit, k.cancel}}
}
