package panel

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/betbot/lnpanel/internal/panelapi"
)

var log = logrus.WithField("module", "panel")

const defaultLogHeight = 20

// API 面板依赖的后端接口，*panelapi.Client 实现了它
type API interface {
	GetConfig(ctx context.Context) (*panelapi.Configuration, error)
	SaveConfig(ctx context.Context, fields map[string]string) (*panelapi.SaveResult, error)
	BotStatus(ctx context.Context) (*panelapi.BotStatus, error)
	StartBot(ctx context.Context) (*panelapi.ActionResult, error)
	StopBot(ctx context.Context) (*panelapi.ActionResult, error)
	TestConnection(ctx context.Context, fields map[string]string) (*panelapi.TestResult, error)
	Logs(ctx context.Context) (*panelapi.LogSnapshot, error)
}

// Timing 各类定时参数
type Timing struct {
	RequestTimeout       time.Duration
	StatusInterval       time.Duration
	LogsInterval         time.Duration
	NotificationDuration time.Duration
	ActionRefreshDelay   time.Duration
}

// DefaultTiming 状态 5s、日志 3s、通知 5s、启停后 1s 复查
func DefaultTiming() Timing {
	return Timing{
		RequestTimeout:       10 * time.Second,
		StatusInterval:       5 * time.Second,
		LogsInterval:         3 * time.Second,
		NotificationDuration: 5 * time.Second,
		ActionRefreshDelay:   1 * time.Second,
	}
}

type Option func(*Model)

// WithScheduler 替换定时器实现
func WithScheduler(s Scheduler) Option {
	return func(m *Model) { m.sched = s }
}

// WithTokenSource 替换请求令牌生成器
func WithTokenSource(fn func() string) Option {
	return func(m *Model) { m.newToken = fn }
}

// WithQuitHook 退出时回调（cmd 里用它把 SIGINT 发回给自己，走统一的优雅退出链路）
func WithQuitHook(fn func()) Option {
	return func(m *Model) { m.onQuit = fn }
}

// WithTitle 页眉标题
func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// Model 控制面板。所有状态修改都发生在 Update 里；网络请求在 tea.Cmd 中执行，结果以消息形式回到 Update。
type Model struct {
	api      API
	timing   Timing
	sched    Scheduler
	newToken func() string
	onQuit   func()
	title    string

	state  State
	width  int
	height int
}

func New(api API, timing Timing, opts ...Option) *Model {
	m := &Model{
		api:      api,
		timing:   timing,
		sched:    teaScheduler{},
		newToken: newRequestToken,
		title:    "LNBits Discord Bot",
		state:    newState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State 当前状态快照
func (m *Model) State() State {
	return m.state
}

// Init 启动时加载配置、立即查一次状态，并开始固定间隔的状态轮询
func (m *Model) Init() tea.Cmd {
	log.Info("控制面板启动")
	return tea.Batch(
		m.LoadConfig(),
		m.CheckStatus(),
		m.sched.After(m.timing.StatusInterval, statusTickMsg{}),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case configLoadedMsg:
		return m, m.onConfigLoaded(msg)
	case statusMsg:
		m.onStatus(msg)
		return m, nil
	case configSavedMsg:
		return m, m.onConfigSaved(msg)
	case connectionTestedMsg:
		return m, m.onConnectionTested(msg)
	case botActionMsg:
		return m, m.onBotAction(msg)
	case logsLoadedMsg:
		m.onLogsLoaded(msg)
		return m, nil

	case statusTickMsg:
		return m, tea.Batch(m.CheckStatus(), m.sched.After(m.timing.StatusInterval, statusTickMsg{}))
	case statusRefreshMsg:
		return m, m.CheckStatus()
	case logsTickMsg:
		return m, m.onLogsTick(msg)
	case bannerExpiredMsg:
		if msg.gen == m.state.Banner.gen {
			m.state.Banner.Visible = false
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	wasBottom := m.state.Logs.AtBottom()
	h := height - chromeHeight
	if h < 5 {
		h = 5
	}
	m.state.Logs.Height = h
	if wasBottom {
		m.state.Logs.scrollToBottom()
	} else {
		m.state.Logs.scrollBy(0)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		log.Info("用户退出")
		if m.onQuit != nil {
			m.onQuit()
		}
		return tea.Quit
	case "f1":
		return m.ShowTab(TabConfig)
	case "f2":
		return m.ShowTab(TabLogs)
	case "ctrl+s":
		return m.SubmitConfig()
	case "ctrl+t":
		return m.TestConnection()
	case "ctrl+b":
		return m.StartBot()
	case "ctrl+x":
		return m.StopBot()
	}

	if m.state.ActiveTab == TabLogs {
		return m.handleLogsKey(msg)
	}
	return m.handleFormKey(msg)
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	f := &m.state.Form
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		f.next()
	case tea.KeyShiftTab, tea.KeyUp:
		f.prev()
	case tea.KeyEnter:
		return m.SubmitConfig()
	case tea.KeyBackspace:
		f.backspace()
	case tea.KeyCtrlU:
		f.clearFocused()
	case tea.KeySpace:
		f.insert(" ")
	case tea.KeyRunes:
		f.insert(string(msg.Runes))
	}
	return nil
}

func (m *Model) handleLogsKey(msg tea.KeyMsg) tea.Cmd {
	v := &m.state.Logs
	switch msg.String() {
	case "r":
		return m.LoadLogs()
	case "up", "k":
		v.scrollBy(-1)
	case "down", "j":
		v.scrollBy(1)
	case "pgup":
		v.scrollBy(-v.Height)
	case "pgdown":
		v.scrollBy(v.Height)
	case "home", "g":
		v.ScrollTop = 0
	case "end", "G":
		v.scrollToBottom()
	}
	return nil
}
