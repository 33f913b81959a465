package ui

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/harmonica"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perivale/drift/internal/config"
	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/engage"
	"github.com/perivale/drift/internal/scroll"
	"github.com/perivale/drift/internal/session"
	"github.com/perivale/drift/internal/visibility"
)

// frameInterval drives scroll animation and viewport observation. 20 Hz
// matches the refresh-gesture sampling cap.
const frameInterval = 50 * time.Millisecond

// wheelStep is how many rows one wheel notch scrolls.
const wheelStep = 3

// EngagementSink receives duration and interest reports.
type EngagementSink interface {
	engage.Reporter
	engage.InterestReporter
}

// Model is the root Bubble Tea model. The feed core (controller,
// scheduler, tracker, broadcaster) lives behind pointers so Bubble Tea's
// value copies all drive the same session.
type Model struct {
	cfg         *config.Config
	source      content.Source
	controller  *session.Controller
	scheduler   *visibility.Scheduler
	tracker     *engage.Tracker
	broadcaster *scroll.Broadcaster
	view        *feedView

	width  int
	height int

	spinner spinner.Model
	cursor  int

	// Smooth scrolling with harmonica spring physics. The animated
	// offset is the position the velocity broadcaster samples.
	spring       harmonica.Spring
	scrollPos    float64
	scrollVel    float64
	scrollTarget float64

	catIndex int
}

// New wires the full feed session and returns the root model.
func New(cfg *config.Config, source content.Source, sink EngagementSink) Model {
	view := newFeedView()

	broadcaster := scroll.NewBroadcaster(time.Duration(cfg.Engagement.SampleIntervalMs) * time.Millisecond)

	tracker := engage.NewTracker(sink, broadcaster, func(contentID string) engage.HoverTracker {
		return engage.NewDwellTracker(contentID, sink)
	})
	tracker.SetSignificanceThreshold(cfg.Engagement.SignificanceSeconds)

	controller := session.New(cfg.PageSize, view, tracker)

	scheduler := visibility.NewScheduler(controller, tracker)
	scheduler.WatchSentinel(cfg.Gesture.LookaheadRows)
	scheduler.TrackRefreshGesture(cfg.Gesture.NearTopBand, cfg.Gesture.ThresholdRows, cfg.Gesture.KeepCount)
	controller.AttachWatcher(scheduler)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))

	return Model{
		cfg:         cfg,
		source:      source,
		controller:  controller,
		scheduler:   scheduler,
		tracker:     tracker,
		broadcaster: broadcaster,
		view:        view,
		spinner:     sp,
		spring:      harmonica.NewSpring(harmonica.FPS(20), 6.0, 0.8),
	}
}

// Init kicks off the first page load and the frame loop.
func (m Model) Init() tea.Cmd {
	m.controller.LoadMore()
	return tea.Batch(m.dispatchLoads(), m.tick(), m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.width = msg.Width
		return m, nil

	case pageLoaded:
		m.controller.ApplyResult(msg.Req, msg.Result, msg.Err)
		return m, m.dispatchLoads()

	case frameTick:
		m.step()
		return m, tea.Batch(m.tick(), m.dispatchLoads())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// step advances one frame: spring physics, velocity sampling, layout,
// and viewport observation.
func (m *Model) step() {
	m.scrollPos, m.scrollVel = m.spring.Update(m.scrollPos, m.scrollVel, m.scrollTarget)

	m.broadcaster.Sample(m.scrollPos)

	sentinelTop := m.view.relayout()
	for _, ri := range m.view.items {
		m.scheduler.SetItemBounds(ri.item.ID, ri.top, itemHeight)
	}
	m.scheduler.SetSentinelTop(sentinelTop)
	m.scheduler.Observe(int(math.Round(m.scrollPos)), m.viewportHeight())

	// Overscroll above the top springs back once the pull settles.
	if m.scrollTarget < 0 && math.Abs(m.scrollPos-m.scrollTarget) < 0.5 {
		m.scrollTarget = 0
	}
	m.clampCursor()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.tracker.FlushAllOnUnload()
		m.controller.Destroy()
		return *m, tea.Quit

	case "down", "j":
		m.moveCursor(1)

	case "up", "k":
		m.moveCursor(-1)

	case "pgdown":
		m.moveCursor(m.viewportHeight() / itemHeight)

	case "pgup":
		m.moveCursor(-m.viewportHeight() / itemHeight)

	case "g":
		m.cursor = 0
		m.scrollTarget = 0

	case "G":
		m.cursor = max(0, m.view.itemCount()-1)
		m.scrollToCursor()

	case "r":
		m.controller.Refresh(m.cfg.Gesture.KeepCount)
		return *m, m.dispatchLoads()

	case "R":
		m.controller.Refresh(0)
		m.cursor = 0
		m.scrollTarget = 0
		return *m, m.dispatchLoads()

	case "l":
		// Retry after a failed load
		m.controller.LoadMore()
		return *m, m.dispatchLoads()

	case "c":
		m.cycleCategory()
		m.cursor = 0
		m.scrollTarget = 0
		return *m, m.dispatchLoads()
	}

	return *m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollTarget -= wheelStep
		// Allow overscroll above the top so the pull gesture has
		// upward travel to accumulate.
		limit := -float64(m.cfg.Gesture.ThresholdRows + wheelStep)
		if m.scrollTarget < limit {
			m.scrollTarget = limit
		}
	case tea.MouseButtonWheelDown:
		m.scrollTarget += wheelStep
		if maxScroll := m.maxScroll(); m.scrollTarget > maxScroll {
			m.scrollTarget = maxScroll
		}
	}
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.scrollToCursor()
}

func (m *Model) clampCursor() {
	if n := m.view.itemCount(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// scrollToCursor keeps the selected item inside the viewport.
func (m *Model) scrollToCursor() {
	top := float64(m.cursor * itemHeight)
	bottom := top + itemHeight
	vh := float64(m.viewportHeight())
	if top < m.scrollTarget {
		m.scrollTarget = top
	} else if bottom > m.scrollTarget+vh {
		m.scrollTarget = bottom - vh
	}
}

func (m *Model) cycleCategory() {
	presets := [][]string{nil}
	for _, c := range m.cfg.Categories {
		presets = append(presets, []string{c})
	}
	m.catIndex = (m.catIndex + 1) % len(presets)
	m.controller.SetCategoryFilter(presets[m.catIndex])
}

func (m Model) viewportHeight() int {
	h := m.height - 2 // header + status bar
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) maxScroll() float64 {
	total := m.view.itemCount()*itemHeight + 1 // + sentinel row
	ms := float64(total - m.viewportHeight())
	if ms < 0 {
		ms = 0
	}
	return ms
}

// tick schedules the next frame.
func (m Model) tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return frameTick{}
	})
}

// dispatchLoads turns a staged load request into a fetch command.
func (m Model) dispatchLoads() tea.Cmd {
	req := m.controller.TakePending()
	if req == nil {
		return nil
	}
	source := m.source
	return func() tea.Msg {
		res, err := source.FetchPage(context.Background(), req.Request)
		return pageLoaded{Req: req, Result: res, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "loading…"
	}

	header := m.renderHeader()
	body := m.renderBody()
	status := m.renderStatus()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m Model) renderHeader() string {
	text := "  DRIFT"
	if n := m.view.itemCount(); n > 0 {
		text += fmt.Sprintf("  ·  %d items", n)
	}
	if cats := m.controller.Categories(); len(cats) > 0 {
		text += "  ·  [" + cats[0] + "]"
	}
	if m.controller.IsLoading() {
		text += "  ·  " + m.spinner.View()
	}
	return headerStyle.Width(m.width).Render(text)
}

func (m Model) renderBody() string {
	offset := int(math.Round(math.Max(0, m.scrollPos)))
	vh := m.viewportHeight()
	phase := m.controller.Phase()

	rows := make([]string, 0, vh)
	for row := offset; row < offset+vh; row++ {
		rows = append(rows, m.view.renderRow(row, m.cursor, phase, m.spinner.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderStatus() string {
	if m.view.err != nil {
		return statusStyle.Width(m.width).Render(errorStyle.Render("  error: " + m.view.err.Error() + "  ·  [l] retry"))
	}
	return statusStyle.Width(m.width).Render("  [j/k] move  [wheel] scroll  [r] refresh  [R] hard refresh  [c] category  [q] quit")
}
