package panel

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betbot/lnpanel/internal/panelapi"
)

// call 在 tea.Cmd 里执行一次带超时的请求；fn 只能做 I/O，不能碰 m.state
func (m *Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.timing.RequestTimeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return fn(ctx)
	}
}

// Notify 替换当前通知，并在 NotificationDuration 后隐藏（仅当届时显示的仍是这一条）
func (m *Model) Notify(message string, severity Severity) tea.Cmd {
	b := &m.state.Banner
	b.gen++
	b.Message = message
	b.Severity = severity
	b.Visible = true
	return m.sched.After(m.timing.NotificationDuration, bannerExpiredMsg{gen: b.gen})
}

// LoadConfig GET /config
func (m *Model) LoadConfig() tea.Cmd {
	api := m.api
	return m.call(func(ctx context.Context) tea.Msg {
		cfg, err := api.GetConfig(ctx)
		return configLoadedMsg{cfg: cfg, err: err}
	})
}

func (m *Model) onConfigLoaded(msg configLoadedMsg) tea.Cmd {
	if msg.err != nil {
		log.WithError(msg.err).Error("Error loading config")
		return m.Notify(MsgConfigLoadError, SeverityError)
	}
	cfg := msg.cfg
	if cfg.Configured {
		m.state.ConfigStatus = StatusLabel{Text: LabelConfigured, Class: ClassRunning}
		m.state.Form.Populate(cfg.Fields)
	} else {
		m.state.ConfigStatus = StatusLabel{Text: LabelNotConfigured, Class: ClassStopped}
	}
	m.state.LNBitsAvailable = cfg.LNBitsAvailable
	m.state.ConfigLoaded = true
	return nil
}

// CheckStatus GET /bot/status。每次请求带递增序号，晚到的旧回包不会覆盖新结果。
func (m *Model) CheckStatus() tea.Cmd {
	m.state.statusSeq++
	seq := m.state.statusSeq
	api := m.api
	return m.call(func(ctx context.Context) tea.Msg {
		st, err := api.BotStatus(ctx)
		return statusMsg{seq: seq, status: st, err: err}
	})
}

func (m *Model) onStatus(msg statusMsg) {
	if msg.err != nil {
		log.WithError(msg.err).Error("Error checking bot status")
		return
	}
	if msg.seq < m.state.statusApplied {
		log.Debugf("丢弃过期的状态回包 seq=%d applied=%d", msg.seq, m.state.statusApplied)
		return
	}
	m.state.statusApplied = msg.seq
	m.state.BotRunning = msg.status.Running
	if msg.status.Running {
		m.state.BotStatus = StatusLabel{Text: LabelRunning, Class: ClassRunning}
	} else {
		m.state.BotStatus = StatusLabel{Text: LabelStopped, Class: ClassStopped}
	}
	m.state.refreshControls()
}

// SubmitConfig 把整张表单 POST 到 /config；成功后重新加载一次配置
func (m *Model) SubmitConfig() tea.Cmd {
	token, ok := m.state.Save.acquire(m.newToken)
	if !ok {
		log.Debug("保存请求仍在进行，忽略重复提交")
		return nil
	}
	fields := m.state.Form.Values()
	api := m.api
	return m.call(func(ctx context.Context) tea.Msg {
		_, err := api.SaveConfig(ctx, fields)
		return configSavedMsg{token: token, err: err}
	})
}

func (m *Model) onConfigSaved(msg configSavedMsg) tea.Cmd {
	if !m.state.Save.release(msg.token) {
		return nil
	}
	m.state.Save.Enabled = true
	if msg.err == nil {
		log.Info("配置已保存")
		return tea.Batch(m.Notify(MsgConfigSaved, SeveritySuccess), m.LoadConfig())
	}
	if panelapi.IsTransport(msg.err) {
		log.WithError(msg.err).Error("Error saving config")
		return m.Notify(MsgConfigSaveError, SeverityError)
	}
	log.WithError(msg.err).Warn("配置被后端拒绝")
	return m.Notify(panelapi.MessageOr(msg.err, MsgConfigSaveError), SeverityError)
}

// TestConnection 用当前表单值（而非已保存配置）检测 Discord 与 LNBits
func (m *Model) TestConnection() tea.Cmd {
	token, ok := m.state.Test.acquire(m.newToken)
	if !ok {
		log.Debug("连接测试仍在进行，忽略重复触发")
		return nil
	}
	m.state.Test.Label = LabelTesting
	fields := m.state.Form.Values()
	api := m.api
	return m.call(func(ctx context.Context) tea.Msg {
		res, err := api.TestConnection(ctx, fields)
		return connectionTestedMsg{token: token, result: res, err: err}
	})
}

func (m *Model) onConnectionTested(msg connectionTestedMsg) tea.Cmd {
	if !m.state.Test.release(msg.token) {
		return nil
	}
	m.state.Test.Enabled = true
	m.state.Test.Label = LabelTest

	if msg.err != nil {
		log.WithError(msg.err).Error("Error testing connections")
		return m.Notify(MsgTestError, SeverityError)
	}
	r := msg.result
	severity := SeverityError
	if r.AllValid() {
		severity = SeveritySuccess
	}
	return m.Notify(FormatTestResult(*r), severity)
}

// FormatTestResult 两个依赖各占一行，用 ✅/❌ 标记
func FormatTestResult(r panelapi.TestResult) string {
	var b strings.Builder
	b.WriteString("Test Results:\n")
	fmt.Fprintf(&b, "Discord: %s %s\n", mark(r.Discord.Valid), r.Discord.Message)
	fmt.Fprintf(&b, "LNBits: %s %s", mark(r.LNBits.Valid), r.LNBits.Message)
	return b.String()
}

func mark(ok bool) string {
	if ok {
		return markPass
	}
	return markFail
}

// StartBot POST /bot/start
func (m *Model) StartBot() tea.Cmd {
	return m.botAction(actionStart)
}

// StopBot POST /bot/stop
func (m *Model) StopBot() tea.Cmd {
	return m.botAction(actionStop)
}

func (m *Model) button(a botAction) *Button {
	if a == actionStart {
		return &m.state.Start
	}
	return &m.state.Stop
}

func (m *Model) botAction(a botAction) tea.Cmd {
	btn := m.button(a)
	if !btn.Enabled {
		return nil
	}
	token, ok := btn.acquire(m.newToken)
	if !ok {
		return nil
	}
	api := m.api
	return m.call(func(ctx context.Context) tea.Msg {
		var err error
		if a == actionStart {
			_, err = api.StartBot(ctx)
		} else {
			_, err = api.StopBot(ctx)
		}
		return botActionMsg{action: a, token: token, err: err}
	})
}

func (m *Model) onBotAction(msg botActionMsg) tea.Cmd {
	if !m.button(msg.action).release(msg.token) {
		return nil
	}
	// 无论成功失败都恢复按钮，恢复时以已知运行状态为准，保证启停互斥
	m.state.refreshControls()

	okText, failText := MsgStarted, MsgStartError
	if msg.action == actionStop {
		okText, failText = MsgStopped, MsgStopError
	}
	if msg.err == nil {
		log.Info(okText)
		// 后端启停是异步的，稍后再查一次状态
		return tea.Batch(
			m.Notify(okText, SeveritySuccess),
			m.sched.After(m.timing.ActionRefreshDelay, statusRefreshMsg{}),
		)
	}
	if panelapi.IsTransport(msg.err) {
		log.WithError(msg.err).Error(failText)
		return m.Notify(failText, SeverityError)
	}
	log.WithError(msg.err).Warn(failText)
	return m.Notify(panelapi.MessageOr(msg.err, failText), SeverityError)
}

// LoadLogs GET /logs，整体替换日志文本并滚动到底部
func (m *Model) LoadLogs() tea.Cmd {
	m.state.logsSeq++
	seq := m.state.logsSeq
	api := m.api
	return m.call(func(ctx context.Context) tea.Msg {
		snap, err := api.Logs(ctx)
		return logsLoadedMsg{seq: seq, snap: snap, err: err}
	})
}

func (m *Model) onLogsLoaded(msg logsLoadedMsg) {
	if msg.seq < m.state.logsApplied {
		return
	}
	m.state.logsApplied = msg.seq
	if msg.err != nil {
		if panelapi.IsTransport(msg.err) {
			log.WithError(msg.err).Error("Error loading logs")
			m.state.Logs.Text = MsgLogsError
			m.state.Logs.scrollToBottom()
			return
		}
		// 回包里没有 logs：保持当前内容
		log.WithError(msg.err).Warn("日志接口未返回 logs")
		return
	}
	m.state.Logs.Text = msg.snap.Text()
	m.state.Logs.scrollToBottom()
}

// ShowTab 激活页签。进入日志页立即拉取并启动日志轮询，离开时停止轮询。
func (m *Model) ShowTab(tab Tab) tea.Cmd {
	prev := m.state.ActiveTab
	m.state.ActiveTab = tab

	if prev == TabLogs && tab != TabLogs {
		m.stopLogPolling()
	}
	if tab != TabLogs {
		return nil
	}
	cmds := []tea.Cmd{m.LoadLogs()}
	if !m.state.logPolling {
		cmds = append(cmds, m.startLogPolling())
	}
	return tea.Batch(cmds...)
}

func (m *Model) startLogPolling() tea.Cmd {
	m.state.logPollGen++
	m.state.logPolling = true
	log.Debugf("日志轮询启动 gen=%d", m.state.logPollGen)
	return m.sched.After(m.timing.LogsInterval, logsTickMsg{gen: m.state.logPollGen})
}

func (m *Model) stopLogPolling() {
	if !m.state.logPolling {
		return
	}
	log.Debugf("日志轮询停止 gen=%d", m.state.logPollGen)
	m.state.logPolling = false
	m.state.logPollGen++
}

func (m *Model) onLogsTick(msg logsTickMsg) tea.Cmd {
	if !m.state.logPolling || msg.gen != m.state.logPollGen {
		return nil
	}
	return tea.Batch(
		m.LoadLogs(),
		m.sched.After(m.timing.LogsInterval, logsTickMsg{gen: msg.gen}),
	)
}
