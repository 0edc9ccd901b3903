package panel

import "strings"

// Tab 视图页签，任意时刻只有一个处于激活状态
type Tab int

const (
	TabConfig Tab = iota
	TabLogs
)

func (t Tab) String() string {
	switch t {
	case TabConfig:
		return "config"
	case TabLogs:
		return "logs"
	}
	return "unknown"
}

// Severity 通知级别
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// 状态标签的样式类
const (
	ClassRunning = "running"
	ClassStopped = "stopped"
)

// 界面文案
const (
	LabelConfigured    = "Configured"
	LabelNotConfigured = "Not Configured"
	LabelRunning       = "Running"
	LabelStopped       = "Stopped"
	LabelTest          = "Test Connections"
	LabelTesting       = "Testing..."
	LabelSave          = "Save Configuration"
	LabelStart         = "Start Bot"
	LabelStop          = "Stop Bot"

	MsgConfigLoadError = "Error loading configuration"
	MsgConfigSaved     = "Configuration saved successfully!"
	MsgConfigSaveError = "Error saving configuration"
	MsgTestError       = "Error testing connections"
	MsgStarted         = "Bot started successfully!"
	MsgStartError      = "Error starting bot"
	MsgStopped         = "Bot stopped successfully!"
	MsgStopError       = "Error stopping bot"
	MsgLogsError       = "Error loading logs"

	markPass = "✅"
	markFail = "❌"
)

// StatusLabel 对应页面上的状态文字 + 样式类
type StatusLabel struct {
	Text  string
	Class string
}

// Banner 全局唯一的临时通知条。gen 用于判断到期的隐藏定时器是否还属于当前通知。
type Banner struct {
	Message  string
	Severity Severity
	Visible  bool
	gen      uint64
}

// LogView 日志区域：整体替换文本，ScrollTop 为首个可见行
type LogView struct {
	Text      string
	ScrollTop int
	Height    int
}

// Lines 按行拆分（末尾换行不产生空行）
func (v LogView) Lines() []string {
	if v.Text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(v.Text, "\n"), "\n")
}

// MaxScroll 滚到底时的 ScrollTop
func (v LogView) MaxScroll() int {
	n := len(v.Lines()) - v.Height
	if n < 0 {
		return 0
	}
	return n
}

// AtBottom 是否已滚动到底部
func (v LogView) AtBottom() bool {
	return v.ScrollTop >= v.MaxScroll()
}

func (v *LogView) scrollToBottom() {
	v.ScrollTop = v.MaxScroll()
}

func (v *LogView) scrollBy(delta int) {
	v.ScrollTop += delta
	if v.ScrollTop > v.MaxScroll() {
		v.ScrollTop = v.MaxScroll()
	}
	if v.ScrollTop < 0 {
		v.ScrollTop = 0
	}
}

// State 面板的全部客户端状态，由 Model 独占，只在 Update 中修改
type State struct {
	BotRunning   bool
	ConfigLoaded bool

	ConfigStatus    StatusLabel
	BotStatus       StatusLabel
	LNBitsAvailable *bool

	Form Form

	Save  Button
	Test  Button
	Start Button
	Stop  Button

	ActiveTab Tab
	Logs      LogView
	Banner    Banner

	logPolling bool
	logPollGen uint64

	statusSeq     uint64
	statusApplied uint64
	logsSeq       uint64
	logsApplied   uint64
}

func newState() State {
	return State{
		ConfigStatus: StatusLabel{Text: "Loading..."},
		BotStatus:    StatusLabel{Text: "Checking..."},
		Form:         NewForm(),
		Save:         Button{Label: LabelSave, Enabled: true},
		Test:         Button{Label: LabelTest, Enabled: true},
		Start:        Button{Label: LabelStart, Enabled: true},
		Stop:         Button{Label: LabelStop, Enabled: false},
		ActiveTab:    TabConfig,
		Logs:         LogView{Height: defaultLogHeight},
	}
}

// LogPolling 日志轮询是否在运行
func (s State) LogPolling() bool {
	return s.logPolling
}

// refreshControls 按已知运行状态重算启停按钮：未运行只能启动，运行中只能停止；请求中的按钮保持禁用
func (s *State) refreshControls() {
	s.Start.Enabled = !s.BotRunning && !s.Start.busy()
	s.Stop.Enabled = s.BotRunning && !s.Stop.busy()
}
