package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"

	"lessonplay/internal/components"
)

const flashTTL = 4 * time.Second

type applyMsg struct {
	fn func(*Root)
}

type clockMsg time.Time
type animateMsg time.Time

type playerKeyMap struct {
	Play      key.Binding
	Back      key.Binding
	Forward   key.Binding
	VolUp     key.Binding
	VolDown   key.Binding
	Slower    key.Binding
	Faster    key.Binding
	Bookmark  key.Binding
	Answer    key.Binding
	Next      key.Binding
	Prev      key.Binding
	Dashboard key.Binding
	Theme     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k playerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Back, k.Forward, k.Answer, k.Bookmark, k.Help, k.Quit}
}

func (k playerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Back, k.Forward, k.VolUp, k.VolDown, k.Slower, k.Faster},
		{k.Bookmark, k.Answer, k.Next, k.Prev, k.Dashboard, k.Theme, k.Help, k.Quit},
	}
}

func defaultKeyMap() playerKeyMap {
	return playerKeyMap{
		Play:      key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "play/pause")),
		Back:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "back 10s")),
		Forward:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "forward 10s")),
		VolUp:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "volume up")),
		VolDown:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "volume down")),
		Slower:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "slower")),
		Faster:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "faster")),
		Bookmark:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
		Answer:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "answer")),
		Next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next lesson")),
		Prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous lesson")),
		Dashboard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dashboard")),
		Theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type Root struct {
	theme      Theme
	ascii      bool
	debug      bool
	motion     string
	ctrl       Controller
	components components.Lookuper

	mu      sync.Mutex
	program *tea.Program
	running bool

	layout LayoutMode
	cols   int
	rows   int

	frame       Frame
	statusFlash string
	flashAt     time.Time
	scroll      int

	helpOpen      bool
	dashboardOpen bool

	help     help.Model
	keymap   playerKeyMap
	bar      progress.Model
	spin     spinner.Model
	logger   *clog.Logger
	markdown map[int]*glamour.TermRenderer
	mdKey    string
	mdLines  []string

	overlayPos float64
	overlayVel float64
	spring     harmonica.Spring

	// sidebarRows maps a screen row to the lesson drawn on it.
	sidebarRows map[int]string
	now         func() time.Time
}

type Options struct {
	ASCIIOnly  bool
	Debug      bool
	Theme      string
	Motion     string
	Components components.Lookuper
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "lessonplay-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}
	motion := normalizeMotion(opts.Motion)
	spring := harmonica.NewSpring(harmonica.FPS(60), 10.0, 0.8)
	if motion == "off" {
		spring = harmonica.NewSpring(harmonica.FPS(60), 1000.0, 1.0)
	}
	h := help.New()
	r := &Root{
		ascii:       opts.ASCIIOnly,
		debug:       opts.Debug,
		motion:      motion,
		components:  opts.Components,
		layout:      LayoutWide,
		cols:        120,
		rows:        32,
		help:        h,
		keymap:      defaultKeyMap(),
		logger:      logger,
		markdown:    map[int]*glamour.TermRenderer{},
		spring:      spring,
		sidebarRows: map[int]string{},
		now:         time.Now,
	}
	r.setTheme(opts.Theme)
	return r
}

func (r *Root) setTheme(name string) {
	r.theme = ThemeFor(name)
	r.bar = progress.New(
		progress.WithWidth(20),
		progress.WithColors(r.theme.BarFrom, r.theme.BarTo),
		progress.WithScaled(true),
	)
	r.spin = spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(r.theme.Accent))
	if r.theme.Name == "dark" {
		r.help.Styles = help.DefaultDarkStyles()
	} else {
		r.help.Styles = help.DefaultLightStyles()
	}
	r.markdown = map[int]*glamour.TermRenderer{}
	r.mdKey = ""
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case clockMsg:
		if r.statusFlash != "" && r.now().Sub(r.flashAt) > flashTTL {
			r.statusFlash = ""
		}
		return r, clockTickCmd()
	case animateMsg:
		target := r.overlayTarget()
		r.overlayPos, r.overlayVel = r.spring.Update(r.overlayPos, r.overlayVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.overlayPos, r.overlayVel = target, 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.MouseClickMsg:
		return r.handleMouseClick(msg)
	case tea.MouseWheelMsg:
		return r.handleMouseWheel(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()
	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 32
	}
	base := r.render()
	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}
	v := tea.NewView(base)
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetFrame(f Frame) {
	r.apply(func(r *Root) {
		if f.Theme != "" && f.Theme != r.theme.Name {
			r.setTheme(f.Theme)
		}
		if f.LessonID != r.frame.LessonID {
			r.scroll = 0
		}
		r.frame = f
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(r *Root) {
		r.statusFlash = msg
		r.flashAt = r.now()
	})
}

// apply runs fn on the program goroutine, or inline before the program
// starts.
func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.logger.Debug("ui.key", "code", msg.Code, "mod", msg.Mod, "text", msg.Text)

	if key.Matches(msg, r.keymap.Quit) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, r.keymap.Play):
		r.dispatchController(func(c Controller) { c.OnTogglePlay() })
	case key.Matches(msg, r.keymap.Back):
		r.dispatchController(func(c Controller) { c.OnSkip(-1) })
	case key.Matches(msg, r.keymap.Forward):
		r.dispatchController(func(c Controller) { c.OnSkip(1) })
	case key.Matches(msg, r.keymap.VolUp):
		r.dispatchController(func(c Controller) { c.OnVolume(1) })
	case key.Matches(msg, r.keymap.VolDown):
		r.dispatchController(func(c Controller) { c.OnVolume(-1) })
	case key.Matches(msg, r.keymap.Slower):
		r.dispatchController(func(c Controller) { c.OnRate(-1) })
	case key.Matches(msg, r.keymap.Faster):
		r.dispatchController(func(c Controller) { c.OnRate(1) })
	case key.Matches(msg, r.keymap.Bookmark):
		r.dispatchController(func(c Controller) { c.OnBookmark() })
	case key.Matches(msg, r.keymap.Answer):
		return r.answer(int(msg.Code - '1'))
	case key.Matches(msg, r.keymap.Next):
		r.dispatchController(func(c Controller) { c.OnLesson(1) })
	case key.Matches(msg, r.keymap.Prev):
		r.dispatchController(func(c Controller) { c.OnLesson(-1) })
	case key.Matches(msg, r.keymap.Theme):
		r.dispatchController(func(c Controller) { c.OnToggleTheme() })
	case key.Matches(msg, r.keymap.Help):
		r.helpOpen = true
		return r, r.animateIfNeeded()
	case key.Matches(msg, r.keymap.Dashboard):
		r.dashboardOpen = true
		return r, r.animateIfNeeded()
	case msg.Code == tea.KeyEsc:
		if r.frame.Result != nil {
			r.dispatchController(func(c Controller) { c.OnDismissResult() })
		}
	case msg.Code == tea.KeyPgUp:
		r.scroll = max(0, r.scroll-10)
	case msg.Code == tea.KeyPgDown:
		r.scroll += 10
	}
	return r, nil
}

func (r *Root) answer(option int) (tea.Model, tea.Cmd) {
	if len(r.frame.Prompts) == 0 {
		r.statusFlash = "No question is waiting for an answer"
		r.flashAt = r.now()
		return r, nil
	}
	if option < 0 || option >= len(r.frame.Prompts[0].Options) {
		r.statusFlash = fmt.Sprintf("Choose 1-%d", len(r.frame.Prompts[0].Options))
		r.flashAt = r.now()
		return r, nil
	}
	r.dispatchController(func(c Controller) { c.OnAnswer(option) })
	return r, nil
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEsc, msg.Code == tea.KeyEnter:
		r.closeTopOverlay()
	case key.Matches(msg, r.keymap.Help):
		r.helpOpen = !r.helpOpen
	case key.Matches(msg, r.keymap.Dashboard):
		r.dashboardOpen = !r.dashboardOpen
	}
	return r, r.animateIfNeeded()
}

func (r *Root) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	m := msg.Mouse()
	if m.Button != tea.MouseLeft {
		return r, nil
	}
	if r.overlayActive() {
		r.closeTopOverlay()
		return r, r.animateIfNeeded()
	}
	if id, ok := r.sidebarRows[m.Y]; ok && m.X < sidebarWidth(r.cols) {
		r.dispatchController(func(c Controller) { c.OnSelectLesson(id) })
	}
	return r, nil
}

func (r *Root) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	switch msg.Mouse().Button {
	case tea.MouseWheelUp:
		r.scroll = max(0, r.scroll-3)
	case tea.MouseWheelDown:
		r.scroll += 3
	}
	return r, nil
}

func (r *Root) topOverlay() string {
	switch {
	case r.helpOpen:
		return "help"
	case r.dashboardOpen:
		return "dashboard"
	default:
		return ""
	}
}

func (r *Root) overlayActive() bool {
	return r.topOverlay() != ""
}

func (r *Root) closeTopOverlay() {
	switch r.topOverlay() {
	case "help":
		r.helpOpen = false
	case "dashboard":
		r.dashboardOpen = false
	}
}

func (r *Root) overlayTarget() float64 {
	if r.overlayActive() {
		return 1
	}
	return 0
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.shouldAnimate(r.overlayTarget()) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if r.motion == "off" {
		r.overlayPos = target
		return false
	}
	if target > 0 {
		return r.overlayPos < 0.999 || abs(r.overlayVel) > 0.001
	}
	return r.overlayPos > 0.001 || abs(r.overlayVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func normalizeMotion(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	r.statusFlash = "Recovered UI panic"
	r.flashAt = r.now()
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"lesson", r.frame.LessonID,
		"cols", r.cols,
		"rows", r.rows,
		"overlay", r.topOverlay(),
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
