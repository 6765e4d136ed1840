package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	charmLog "github.com/charmbracelet/log"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// Service is the board surface the terminal UI drives.
type Service interface {
	Board(context.Context) (app.Board, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, bool, error)
	UpdateTask(context.Context, app.UpdateTaskInput) (domain.Task, bool, error)
	DeleteTask(context.Context, int64) (bool, error)
	MeasureTask(context.Context, int64, domain.Box) (layout.Result, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeEditTask
	modeTaskInfo
)

// pane identifies which half of the screen owns focus.
type pane int

const (
	paneBoard pane = iota
	paneList
)

// task-form field indexes in focus order.
const (
	formFieldText = iota
	formFieldPriority
	formFieldStatus
	formFieldCount
)

// priorityOptions and statusOptions store the form cycle order.
var (
	priorityOptions = domain.Priorities()
	statusOptions   = domain.Statuses()
)

// Model is the bubbletea model for the vision board.
type Model struct {
	svc             Service
	title           string
	logger          *charmLog.Logger
	copyToClipboard func(string) error

	ready  bool
	width  int
	height int
	err    error
	status string

	help     help.Model
	keys     keyMap
	formKeys formKeyMap

	board          app.Board
	selected       int
	focus          pane
	pendingFocusID int64

	mode          inputMode
	textInput     textinput.Model
	formFocus     int
	priorityIdx   int
	statusIdx     int
	editingTaskID int64

	// reported holds the last box sent to MeasureTask per task.
	reported map[int64]domain.Box
	markdown *markdownRenderer
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	board app.Board
	err   error
}

// measurement is one pending box report.
type measurement struct {
	id  int64
	box domain.Box
}

// measuredMsg carries placement results for one measurement pass.
type measuredMsg struct {
	results []layout.Result
	err     error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err     error
	status  string
	reload  bool
	focusID int64
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:             svc,
		title:           "vboard",
		logger:          charmLog.New(io.Discard),
		copyToClipboard: clipboard.WriteAll,
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		formKeys:        newFormKeyMap(),
		textInput:       newTitleInput(""),
		priorityIdx:     priorityIndex(domain.PriorityLow),
		statusIdx:       statusIndex(domain.StatusCreated),
		reported:        map[int64]domain.Box{},
		markdown:        &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.applyBoard(msg.board)
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = "ready"
		}
		return m, m.measurePending()

	case measuredMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		capped := 0
		for _, res := range msg.results {
			if !res.Converged {
				capped++
			}
		}
		if capped > 0 {
			m.status = fmt.Sprintf("placement cap reached for %d card(s)", capped)
		}
		if len(msg.results) == 0 {
			return m, nil
		}
		return m, m.loadData

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.focusID != 0 {
			m.pendingFocusID = msg.focusID
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeAddTask, modeEditTask:
			return m.handleFormKey(msg)
		case modeTaskInfo:
			return m.handleInfoKey(msg)
		default:
			return m.handleNormalModeKey(msg)
		}

	default:
		if m.mode == modeAddTask || m.mode == modeEditTask {
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	if m.svc == nil {
		return loadedMsg{err: errors.New("board service unavailable")}
	}
	board, err := m.svc.Board(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{board: board}
}

// applyBoard swaps in a fresh board, keeping the selection on the same task.
func (m *Model) applyBoard(board app.Board) {
	current, hasCurrent := m.selectedCard()
	m.board = board
	focusID := m.pendingFocusID
	if focusID == 0 && hasCurrent {
		focusID = current.Task.ID
	}
	m.pendingFocusID = 0
	if focusID != 0 {
		for idx, card := range m.board.Cards {
			if card.Task.ID == focusID {
				m.selected = idx
				return
			}
		}
	}
	m.selected = clamp(m.selected, 0, len(m.board.Cards)-1)
}

// measurePending renders every card, reports boxes that changed since the
// last report and returns the command that feeds them to the layout engine.
func (m *Model) measurePending() tea.Cmd {
	live := make(map[int64]struct{}, len(m.board.Cards))
	batch := []measurement{}
	for _, card := range m.board.Cards {
		live[card.Task.ID] = struct{}{}
		box := measuredBox(card.Task.ID, m.board.Canvas, renderCard(card, false))
		if prev, ok := m.reported[card.Task.ID]; ok && prev == box && card.Measured {
			continue
		}
		m.reported[card.Task.ID] = box
		batch = append(batch, measurement{id: card.Task.ID, box: box})
	}
	for id := range m.reported {
		if _, ok := live[id]; !ok {
			delete(m.reported, id)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return m.measureCmd(batch)
}

// measureCmd reports one batch of boxes in board order.
func (m Model) measureCmd(batch []measurement) tea.Cmd {
	svc := m.svc
	logger := m.logger
	return func() tea.Msg {
		ctx := context.Background()
		results := make([]layout.Result, 0, len(batch))
		for _, item := range batch {
			res, err := svc.MeasureTask(ctx, item.id, item.box)
			if errors.Is(err, app.ErrNotFound) {
				continue
			}
			if err != nil {
				return measuredMsg{err: fmt.Errorf("measure task %d: %w", item.id, err)}
			}
			if res.Overflow {
				logger.Debug("card placed past canvas edge", "task_id", item.id, "x", res.Placement.X)
			}
			results = append(results, res)
		}
		return measuredMsg{results: results}
	}
}

// selectedCard returns the selected card when the board is not empty.
func (m Model) selectedCard() (app.Card, bool) {
	if len(m.board.Cards) == 0 {
		return app.Card{}, false
	}
	return m.board.Cards[clamp(m.selected, 0, len(m.board.Cards)-1)], true
}

// handleNormalModeKey handles board and list navigation keys.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		m.err = nil
		return m, m.loadData
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.board.Cards)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.switchPane):
		if m.focus == paneBoard {
			m.focus = paneList
			m.status = "list pane"
		} else {
			m.focus = paneBoard
			m.status = "board pane"
		}
		return m, nil
	case key.Matches(msg, m.keys.newTask):
		return m, m.startTaskForm(nil)
	case key.Matches(msg, m.keys.editTask):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.startTaskForm(&card.Task)
	case key.Matches(msg, m.keys.deleteTask):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.deleteTaskCmd(card.Task)
	case key.Matches(msg, m.keys.taskInfo):
		if _, ok := m.selectedCard(); !ok {
			m.status = "no task selected"
			return m, nil
		}
		m.mode = modeTaskInfo
		m.status = "task details"
		return m, nil
	case key.Matches(msg, m.keys.copyTitle):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.copyTitleCmd(card.Task.Text)
	default:
		return m, nil
	}
}

// handleInfoKey closes the details modal.
func (m Model) handleInfoKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc", msg.String() == "enter", key.Matches(msg, m.keys.taskInfo), key.Matches(msg, m.keys.quit):
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.copyTitle):
		card, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		return m, m.copyTitleCmd(card.Task.Text)
	default:
		return m, nil
	}
}

// handleFormKey handles keys while the task form is open.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.formKeys.cancel):
		m.closeTaskForm()
		m.status = "cancelled"
		return m, nil
	case key.Matches(msg, m.formKeys.submit):
		return m.submitTaskForm()
	case key.Matches(msg, m.formKeys.next):
		return m, m.focusFormField(m.formFocus + 1)
	case key.Matches(msg, m.formKeys.prev):
		return m, m.focusFormField(m.formFocus - 1)
	case m.formFocus == formFieldPriority && key.Matches(msg, m.formKeys.left):
		m.priorityIdx = wrapIndex(m.priorityIdx, -1, len(priorityOptions))
		return m, nil
	case m.formFocus == formFieldPriority && key.Matches(msg, m.formKeys.right):
		m.priorityIdx = wrapIndex(m.priorityIdx, 1, len(priorityOptions))
		return m, nil
	case m.formFocus == formFieldStatus && key.Matches(msg, m.formKeys.left):
		m.statusIdx = wrapIndex(m.statusIdx, -1, len(statusOptions))
		return m, nil
	case m.formFocus == formFieldStatus && key.Matches(msg, m.formKeys.right):
		m.statusIdx = wrapIndex(m.statusIdx, 1, len(statusOptions))
		return m, nil
	case m.formFocus == formFieldText:
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// newTitleInput constructs the task title input.
func newTitleInput(value string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "task title (required)"
	in.CharLimit = 200
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// startTaskForm opens the form for a new task, or for editing task.
func (m *Model) startTaskForm(task *domain.Task) tea.Cmd {
	m.help.ShowAll = false
	if task != nil {
		m.mode = modeEditTask
		m.editingTaskID = task.ID
		m.textInput = newTitleInput(task.Text)
		m.priorityIdx = priorityIndex(task.Priority)
		m.statusIdx = statusIndex(task.Status)
		m.status = "edit task"
	} else {
		m.mode = modeAddTask
		m.editingTaskID = 0
		m.textInput = newTitleInput("")
		m.status = "new task"
	}
	return m.focusFormField(formFieldText)
}

// closeTaskForm leaves form mode and restores the Low/Created defaults.
func (m *Model) closeTaskForm() {
	m.mode = modeNone
	m.editingTaskID = 0
	m.formFocus = formFieldText
	m.textInput.Blur()
	m.textInput = newTitleInput("")
	m.priorityIdx = priorityIndex(domain.PriorityLow)
	m.statusIdx = statusIndex(domain.StatusCreated)
}

// focusFormField focuses form field idx, wrapping around.
func (m *Model) focusFormField(idx int) tea.Cmd {
	m.formFocus = wrapIndex(0, idx, formFieldCount)
	if m.formFocus == formFieldText {
		return m.textInput.Focus()
	}
	m.textInput.Blur()
	return nil
}

// submitTaskForm saves the form through the service and closes it.
func (m Model) submitTaskForm() (tea.Model, tea.Cmd) {
	text := m.textInput.Value()
	priority := priorityOptions[clamp(m.priorityIdx, 0, len(priorityOptions)-1)]
	status := statusOptions[clamp(m.statusIdx, 0, len(statusOptions)-1)]
	editingID := m.editingTaskID
	mode := m.mode
	m.closeTaskForm()
	m.status = "saving..."

	svc := m.svc
	if mode == modeEditTask {
		in := app.UpdateTaskInput{TaskID: editingID, Text: text, Priority: priority, Status: status}
		return m, func() tea.Msg {
			task, ok, err := svc.UpdateTask(context.Background(), in)
			if err != nil {
				return actionMsg{err: err}
			}
			if !ok {
				return actionMsg{status: "nothing updated", reload: true}
			}
			return actionMsg{status: "updated " + truncate(task.Text, 32), reload: true, focusID: task.ID}
		}
	}
	in := app.CreateTaskInput{Text: text, Priority: priority, Status: status}
	return m, func() tea.Msg {
		task, ok, err := svc.CreateTask(context.Background(), in)
		if err != nil {
			return actionMsg{err: err}
		}
		if !ok {
			return actionMsg{status: "empty title; nothing created"}
		}
		return actionMsg{status: "created " + truncate(task.Text, 32), reload: true, focusID: task.ID}
	}
}

// deleteTaskCmd removes task and reloads.
func (m Model) deleteTaskCmd(task domain.Task) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ok, err := svc.DeleteTask(context.Background(), task.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		if !ok {
			return actionMsg{status: "task already gone", reload: true}
		}
		return actionMsg{status: "deleted " + truncate(task.Text, 32), reload: true}
	}
}

// copyTitleCmd writes text to the system clipboard.
func (m Model) copyTitleCmd(text string) tea.Cmd {
	write := m.copyToClipboard
	logger := m.logger
	return func() tea.Msg {
		if err := write(text); err != nil {
			logger.Warn("clipboard write failed", "err", err)
			return actionMsg{status: "copy failed: " + err.Error()}
		}
		return actionMsg{status: "copied title"}
	}
}

// priorityIndex returns the form index for p.
func priorityIndex(p domain.Priority) int {
	for i, option := range priorityOptions {
		if option == p {
			return i
		}
	}
	return 0
}

// statusIndex returns the form index for s.
func statusIndex(s domain.Status) int {
	for i, option := range statusOptions {
		if option == s {
			return i
		}
	}
	return 0
}

// wrapIndex moves current by delta within [0,total).
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := (current + delta) % total
	if next < 0 {
		next += total
	}
	return next
}

// clamp restricts v to [minV,maxV]; an empty range yields minV.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// modeLabel names the current input mode for the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddTask:
		return "new"
	case modeEditTask:
		return "edit"
	case modeTaskInfo:
		return "details"
	default:
		if m.focus == paneList {
			return "list"
		}
		return "board"
	}
}
