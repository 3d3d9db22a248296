package browser

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/multiverse/internal/logging"
	"github.com/smileynet/multiverse/internal/selection"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// Model is the root Bubble Tea model for the browser. It owns the record
// list and drives the selection controller from the update goroutine.
type Model struct {
	focus    Focus
	width    int
	height   int
	list     listState
	ctrl     selection.Controller
	lister   RecordLister
	ctx      context.Context
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	log      logrus.FieldLogger
}

// Option configures a Model.
type Option func(*Model)

// WithRecordLister sets the source of the record list. Without one the
// list starts empty and refresh does nothing.
func WithRecordLister(l RecordLister) Option {
	return func(m *Model) {
		m.lister = l
	}
}

// WithAutoSelect makes cursor movement select the highlighted record.
func WithAutoSelect(on bool) Option {
	return func(m *Model) {
		m.list.autoSelect = on
	}
}

// WithContext sets the context passed to list fetches.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithLogger sets the logger for list and selection events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Model) {
		m.log = l
	}
}

// NewModel creates a browser Model with left-pane focus around ctrl.
func NewModel(ctrl selection.Controller, opts ...Option) Model {
	m := Model{
		focus:    PaneLeft,
		list:     newListState(false),
		ctrl:     ctrl,
		ctx:      context.Background(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(0, 0),
		help:     help.New(),
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.lister == nil {
		m.list.loading = false
	}
	m.syncDetail()
	return m
}

// Init starts the list fetch.
func (m Model) Init() tea.Cmd {
	if m.lister == nil {
		return nil
	}
	return tea.Batch(initList(m.ctx, m.lister), m.spinner.Tick)
}

// Update handles incoming messages. Every portrait completion arrives here,
// so the controller is only ever touched from this goroutine.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, rightWidth := PaneWidths(msg.Width)
		vpWidth := rightWidth - borderChrome
		if vpWidth < 0 {
			vpWidth = 0
		}
		m.viewport.Width = vpWidth
		m.viewport.Height = m.contentHeight()
		m.syncDetail()
		return m, nil

	case RecordListMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("record list fetch failed")
		} else {
			m.log.WithField("count", len(msg.Records)).Info("record list loaded")
		}
		m.list, _ = m.list.Update(msg)
		m.ctrl = m.ctrl.Reset()
		m.syncDetail()
		return m, nil

	case RefreshMsg:
		if m.lister == nil {
			m.list.loading = false
			return m, nil
		}
		m.list.loading = true
		return m, tea.Batch(initList(m.ctx, m.lister), m.spinner.Tick)

	case SelectMsg:
		return m.selectRecord(msg)

	case selection.ImageResult:
		var applied bool
		m.ctrl, applied = m.ctrl.Complete(msg)
		if applied {
			m.syncDetail()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.syncDetail()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) selectRecord(msg SelectMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.ctrl, cmd = m.ctrl.Select(msg.Record)
	m.syncDetail()
	if cmd == nil {
		return m, nil
	}
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// handleKey routes keys: global bindings first, then the focused pane.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == PaneLeft {
			m.focus = PaneRight
		} else {
			m.focus = PaneLeft
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == PaneLeft {
		m.list, cmd = m.list.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// busy reports whether anything is waiting on the network.
func (m Model) busy() bool {
	if m.list.loading {
		return true
	}
	_, pending := m.ctrl.Pending()
	return pending
}

func (m *Model) syncDetail() {
	m.viewport.SetContent(renderDetail(m.ctrl, m.spinner.View()))
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// Controller returns the selection controller.
func (m Model) Controller() selection.Controller {
	return m.ctrl
}

// View renders the two-pane layout with help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	var leftStyle, rightStyle lipgloss.Style
	if m.focus == PaneLeft {
		leftStyle = FocusedBorder()
		rightStyle = UnfocusedBorder()
	} else {
		leftStyle = UnfocusedBorder()
		rightStyle = FocusedBorder()
	}

	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.list.View(m.spinner.View()))
	rightPane := rightStyle.Render(m.viewport.View())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	helpView := m.help.View(HelpBindings(m.focus))

	return lipgloss.JoinVertical(lipgloss.Left, panes, helpView)
}
