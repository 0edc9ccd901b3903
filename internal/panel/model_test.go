package panel

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/lnpanel/internal/panelapi"
	"github.com/betbot/lnpanel/internal/panelapi/apitest"
)

type scheduled struct {
	d   time.Duration
	msg tea.Msg
}

// recorder 只记录定时消息，不真正计时；测试里手动把消息喂回 Update
type recorder struct {
	entries []scheduled
}

func (r *recorder) After(d time.Duration, msg tea.Msg) tea.Cmd {
	r.entries = append(r.entries, scheduled{d: d, msg: msg})
	return nil
}

func (r *recorder) last() scheduled {
	if len(r.entries) == 0 {
		return scheduled{}
	}
	return r.entries[len(r.entries)-1]
}

func (r *recorder) reset() {
	r.entries = nil
}

func newTestModel(t *testing.T) (*Model, *apitest.Server, *recorder) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	rec := &recorder{}
	n := 0
	m := New(panelapi.New(srv.URL, 2*time.Second), DefaultTiming(),
		WithScheduler(rec),
		WithTokenSource(func() string {
			n++
			return fmt.Sprintf("tok-%d", n)
		}),
	)
	return m, srv, rec
}

// run 执行 cmd，把产生的消息喂回 Update，直到没有后续命令
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			run(m, c)
		}
	default:
		_, next := m.Update(msg)
		run(m, next)
	}
}

func send(m *Model, msg tea.Msg) {
	_, cmd := m.Update(msg)
	run(m, cmd)
}

func TestInit_NotConfigured(t *testing.T) {
	m, srv, rec := newTestModel(t)
	srv.Set(http.MethodGet, "/api/config", 200, gin.H{"configured": false})

	run(m, m.Init())

	s := m.State()
	assert.True(t, s.ConfigLoaded)
	assert.Equal(t, StatusLabel{Text: LabelNotConfigured, Class: ClassStopped}, s.ConfigStatus)
	for _, f := range s.Form.Fields {
		assert.Empty(t, f.Value, f.Name)
	}
	assert.Equal(t, StatusLabel{Text: LabelStopped, Class: ClassStopped}, s.BotStatus)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/api/bot/status"))

	require.Len(t, rec.entries, 1)
	assert.Equal(t, 5*time.Second, rec.entries[0].d)
	assert.IsType(t, statusTickMsg{}, rec.entries[0].msg)
}

func TestStatusTick_PollsAndReschedules(t *testing.T) {
	m, srv, rec := newTestModel(t)

	send(m, statusTickMsg{})
	send(m, statusTickMsg{})

	assert.Equal(t, 2, srv.Count(http.MethodGet, "/api/bot/status"))
	require.Len(t, rec.entries, 2)
	assert.IsType(t, statusTickMsg{}, rec.last().msg)
}

func TestLoadConfig_ConfiguredNeverWritesSecrets(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodGet, "/api/config", 200, gin.H{
		"configured":       true,
		"lnbits_available": true,
		"discord_token":    "leaked-token",
		"lnbits_api_key":   "leaked-key",
		"guild_id":         "42",
		"role_id":          "7",
		"price":            1000,
		"lnbits_url":       "http://lnbits:5000",
	})

	run(m, m.LoadConfig())

	s := m.State()
	assert.Equal(t, StatusLabel{Text: LabelConfigured, Class: ClassRunning}, s.ConfigStatus)
	v := s.Form.Values()
	assert.Equal(t, "", v[panelapi.FieldDiscordToken])
	assert.Equal(t, "", v[panelapi.FieldLNBitsAPIKey])
	assert.Equal(t, "42", v["guild_id"])
	assert.Equal(t, "7", v["role_id"])
	assert.Equal(t, "1000", v["price"])
	_, ok := v["lnbits_url"]
	assert.False(t, ok)
	require.NotNil(t, s.LNBitsAvailable)
	assert.True(t, *s.LNBitsAvailable)
	assert.NotContains(t, m.View(), "leaked")
}

func TestLoadConfig_SecretsTypedByUserSurviveReload(t *testing.T) {
	m, srv, _ := newTestModel(t)
	m.state.Form.Fields[0].Value = "typed-token"
	srv.Set(http.MethodGet, "/api/config", 200, gin.H{"configured": true, "discord_token": "server"})

	run(m, m.LoadConfig())

	v, _ := m.State().Form.Value(panelapi.FieldDiscordToken)
	assert.Equal(t, "typed-token", v)
}

func TestLoadConfig_Failure(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.SetRaw(http.MethodGet, "/api/config", 200, "not json")

	run(m, m.LoadConfig())

	s := m.State()
	assert.False(t, s.ConfigLoaded)
	assert.True(t, s.Banner.Visible)
	assert.Equal(t, MsgConfigLoadError, s.Banner.Message)
	assert.Equal(t, SeverityError, s.Banner.Severity)
}

func TestStatus_ControlsMutuallyExclusive(t *testing.T) {
	m, srv, _ := newTestModel(t)

	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": true})
	run(m, m.CheckStatus())
	s := m.State()
	assert.Equal(t, LabelRunning, s.BotStatus.Text)
	assert.False(t, s.Start.Enabled)
	assert.True(t, s.Stop.Enabled)

	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": false})
	run(m, m.CheckStatus())
	s = m.State()
	assert.Equal(t, LabelStopped, s.BotStatus.Text)
	assert.True(t, s.Start.Enabled)
	assert.False(t, s.Stop.Enabled)
}

func TestStatus_FailureKeepsStateSilently(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": true})
	run(m, m.CheckStatus())

	srv.SetRaw(http.MethodGet, "/api/bot/status", 502, "bad gateway")
	run(m, m.CheckStatus())

	s := m.State()
	assert.True(t, s.BotRunning)
	assert.False(t, s.Banner.Visible)
}

func TestStatus_StaleResponseDropped(t *testing.T) {
	m, srv, _ := newTestModel(t)

	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": true})
	older := m.CheckStatus()
	olderMsg := older()

	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": false})
	newer := m.CheckStatus()
	send(m, newer())
	send(m, olderMsg)

	s := m.State()
	assert.False(t, s.BotRunning)
	assert.True(t, s.Start.Enabled)
	assert.False(t, s.Stop.Enabled)
}

func TestSubmitConfig_Success(t *testing.T) {
	m, srv, _ := newTestModel(t)
	m.state.Form.Fields[0].Value = "token"
	m.state.Form.Fields[1].Value = "guild"

	before := srv.Count(http.MethodGet, "/api/config")
	run(m, m.SubmitConfig())

	assert.Equal(t, before+1, srv.Count(http.MethodGet, "/api/config"))
	reqs := srv.Requests(http.MethodPost, "/api/config")
	require.Len(t, reqs, 1)
	body := reqs[0].JSON()
	assert.Len(t, body, len(m.State().Form.Fields))
	assert.Equal(t, "token", body[panelapi.FieldDiscordToken])
	assert.Equal(t, "guild", body["guild_id"])
	assert.Equal(t, "", body["invoicemessage"])

	s := m.State()
	assert.Equal(t, MsgConfigSaved, s.Banner.Message)
	assert.Equal(t, SeveritySuccess, s.Banner.Severity)
	assert.True(t, s.Save.Enabled)
}

func TestSubmitConfig_Failure(t *testing.T) {
	t.Run("server message", func(t *testing.T) {
		m, srv, _ := newTestModel(t)
		srv.Set(http.MethodPost, "/api/config", 400, gin.H{"error": "Missing required field: discord_token"})

		run(m, m.SubmitConfig())

		assert.Equal(t, 0, srv.Count(http.MethodGet, "/api/config"))
		s := m.State()
		assert.Equal(t, "Missing required field: discord_token", s.Banner.Message)
		assert.Equal(t, SeverityError, s.Banner.Severity)
		assert.True(t, s.Save.Enabled)
	})

	t.Run("generic fallback", func(t *testing.T) {
		m, srv, _ := newTestModel(t)
		srv.Set(http.MethodPost, "/api/config", 500, gin.H{})

		run(m, m.SubmitConfig())

		assert.Equal(t, 0, srv.Count(http.MethodGet, "/api/config"))
		assert.Equal(t, MsgConfigSaveError, m.State().Banner.Message)
	})

	t.Run("transport", func(t *testing.T) {
		m, srv, _ := newTestModel(t)
		srv.SetRaw(http.MethodPost, "/api/config", 500, "Internal Server Error")

		run(m, m.SubmitConfig())

		assert.Equal(t, MsgConfigSaveError, m.State().Banner.Message)
	})
}

func TestSubmitConfig_DoubleSubmitIgnored(t *testing.T) {
	m, srv, _ := newTestModel(t)

	first := m.SubmitConfig()
	require.NotNil(t, first)
	assert.Nil(t, m.SubmitConfig())

	run(m, first)
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/api/config"))
	assert.NotNil(t, m.SubmitConfig())
}

func TestTestConnection_MixedResult(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodPost, "/api/test-connection", 200, gin.H{
		"discord": gin.H{"valid": true, "message": "OK"},
		"lnbits":  gin.H{"valid": false, "message": "bad key"},
	})
	m.state.Form.Fields[6].Value = "unsaved-key"

	cmd := m.TestConnection()
	s := m.State()
	assert.False(t, s.Test.Enabled)
	assert.Equal(t, LabelTesting, s.Test.Label)

	run(m, cmd)

	s = m.State()
	assert.True(t, s.Test.Enabled)
	assert.Equal(t, LabelTest, s.Test.Label)
	assert.Equal(t, SeverityError, s.Banner.Severity)
	assert.Contains(t, s.Banner.Message, "Discord: ✅ OK")
	assert.Contains(t, s.Banner.Message, "LNBits: ❌ bad key")

	reqs := srv.Requests(http.MethodPost, "/api/test-connection")
	require.Len(t, reqs, 1)
	assert.Equal(t, "unsaved-key", reqs[0].JSON()[panelapi.FieldLNBitsAPIKey])
}

func TestTestConnection_AllValid(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodPost, "/api/test-connection", 200, gin.H{
		"discord": gin.H{"valid": true, "message": "Token format appears valid"},
		"lnbits":  gin.H{"valid": true, "message": "Connected successfully"},
	})

	run(m, m.TestConnection())

	s := m.State()
	assert.Equal(t, SeveritySuccess, s.Banner.Severity)
	assert.Equal(t, "Test Results:\nDiscord: ✅ Token format appears valid\nLNBits: ✅ Connected successfully", s.Banner.Message)
}

func TestTestConnection_TransportErrorRestoresButton(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Close()

	run(m, m.TestConnection())

	s := m.State()
	assert.True(t, s.Test.Enabled)
	assert.Equal(t, LabelTest, s.Test.Label)
	assert.Equal(t, MsgTestError, s.Banner.Message)
	assert.Equal(t, SeverityError, s.Banner.Severity)
}

func TestStartBot_SuccessSchedulesRefresh(t *testing.T) {
	m, srv, rec := newTestModel(t)

	cmd := m.StartBot()
	assert.False(t, m.State().Start.Enabled)
	run(m, cmd)

	s := m.State()
	assert.Equal(t, MsgStarted, s.Banner.Message)
	assert.Equal(t, SeveritySuccess, s.Banner.Severity)
	assert.True(t, s.Start.Enabled)
	assert.False(t, s.Stop.Enabled)

	var refresh []scheduled
	for _, e := range rec.entries {
		if _, ok := e.msg.(statusRefreshMsg); ok {
			refresh = append(refresh, e)
		}
	}
	require.Len(t, refresh, 1)
	assert.Equal(t, time.Second, refresh[0].d)

	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": true})
	rec.reset()
	send(m, refresh[0].msg)

	assert.Equal(t, 1, srv.Count(http.MethodGet, "/api/bot/status"))
	assert.Empty(t, rec.entries)
	s = m.State()
	assert.False(t, s.Start.Enabled)
	assert.True(t, s.Stop.Enabled)
}

func TestStartBot_Failure(t *testing.T) {
	m, srv, rec := newTestModel(t)
	srv.Set(http.MethodPost, "/api/bot/start", 200, gin.H{"success": false, "message": "Configuration not found. Please save settings first."})

	run(m, m.StartBot())

	s := m.State()
	assert.Equal(t, "Configuration not found. Please save settings first.", s.Banner.Message)
	assert.Equal(t, SeverityError, s.Banner.Severity)
	assert.True(t, s.Start.Enabled)
	for _, e := range rec.entries {
		assert.NotEqual(t, statusRefreshMsg{}, e.msg)
	}

	srv.Set(http.MethodPost, "/api/bot/start", 200, gin.H{"success": false})
	run(m, m.StartBot())
	assert.Equal(t, MsgStartError, m.State().Banner.Message)
}

func TestStopBot(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodGet, "/api/bot/status", 200, gin.H{"running": true})
	run(m, m.CheckStatus())

	assert.Nil(t, m.StartBot(), "start is disabled while running")

	srv.Set(http.MethodPost, "/api/bot/stop", 200, gin.H{"success": true, "message": "Bot stopped successfully"})
	cmd := m.StopBot()
	assert.False(t, m.State().Stop.Enabled)
	assert.False(t, m.State().Start.Enabled)
	run(m, cmd)

	s := m.State()
	assert.Equal(t, MsgStopped, s.Banner.Message)
	assert.True(t, s.Stop.Enabled)
	assert.False(t, s.Start.Enabled)
}

func TestBotAction_DoubleClickIgnored(t *testing.T) {
	m, srv, _ := newTestModel(t)

	first := m.StartBot()
	require.NotNil(t, first)
	assert.Nil(t, m.StartBot())
	run(m, first)

	assert.Equal(t, 1, srv.Count(http.MethodPost, "/api/bot/start"))
}

func TestBotAction_StaleTokenIgnored(t *testing.T) {
	m, _, _ := newTestModel(t)

	send(m, botActionMsg{action: actionStart, token: "someone-else"})

	s := m.State()
	assert.False(t, s.Banner.Visible)
}

func TestLogs_ReplaceAndScroll(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodGet, "/api/logs", 200, gin.H{"logs": []string{"a\n", "b\n"}})

	run(m, m.LoadLogs())
	assert.Equal(t, "a\nb\n", m.State().Logs.Text)
	assert.True(t, m.State().Logs.AtBottom())

	run(m, m.LoadLogs())
	assert.Equal(t, "a\nb\n", m.State().Logs.Text)
}

func TestLogs_ScrolledToBottomWhenLong(t *testing.T) {
	m, srv, _ := newTestModel(t)
	lines := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		lines = append(lines, fmt.Sprintf("line %d\n", i))
	}
	srv.Set(http.MethodGet, "/api/logs", 200, gin.H{"logs": lines})

	run(m, m.LoadLogs())

	v := m.State().Logs
	assert.Equal(t, 100-v.Height, v.ScrollTop)
	assert.Equal(t, strings.Join(lines, ""), v.Text)
}

func TestLogs_Errors(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.Set(http.MethodGet, "/api/logs", 200, gin.H{"logs": []string{"keep\n"}})
	run(m, m.LoadLogs())

	srv.Set(http.MethodGet, "/api/logs", 500, gin.H{"error": "disk"})
	run(m, m.LoadLogs())
	assert.Equal(t, "keep\n", m.State().Logs.Text)

	srv.SetRaw(http.MethodGet, "/api/logs", 500, "oops")
	run(m, m.LoadLogs())
	assert.Equal(t, MsgLogsError, m.State().Logs.Text)
}

func TestShowTab_ExclusiveAndPollerLifecycle(t *testing.T) {
	m, srv, rec := newTestModel(t)

	send(m, tea.KeyMsg{Type: tea.KeyF2})
	s := m.State()
	assert.Equal(t, TabLogs, s.ActiveTab)
	assert.True(t, s.LogPolling())
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/api/logs"))

	tick := rec.last()
	assert.Equal(t, 3*time.Second, tick.d)
	require.IsType(t, logsTickMsg{}, tick.msg)

	send(m, tick.msg)
	assert.Equal(t, 2, srv.Count(http.MethodGet, "/api/logs"))
	next := rec.last()

	// 已在日志页时再次激活：立即拉取，但不重复启动轮询
	rec.reset()
	send(m, tea.KeyMsg{Type: tea.KeyF2})
	assert.Equal(t, 3, srv.Count(http.MethodGet, "/api/logs"))
	assert.Empty(t, rec.entries)

	send(m, tea.KeyMsg{Type: tea.KeyF1})
	s = m.State()
	assert.Equal(t, TabConfig, s.ActiveTab)
	assert.False(t, s.LogPolling())

	send(m, next.msg)
	assert.Equal(t, 3, srv.Count(http.MethodGet, "/api/logs"))

	// 重新进入日志页，旧的 tick 也不能复活
	send(m, tea.KeyMsg{Type: tea.KeyF2})
	send(m, next.msg)
	assert.Equal(t, 4, srv.Count(http.MethodGet, "/api/logs"))
}

func TestBanner_OldExpiryKeepsNewerBanner(t *testing.T) {
	m, _, rec := newTestModel(t)

	m.Notify("first", SeverityInfo)
	first := rec.last()
	assert.Equal(t, 5*time.Second, first.d)

	m.Notify("second", SeveritySuccess)
	second := rec.last()

	send(m, first.msg)
	s := m.State()
	assert.True(t, s.Banner.Visible)
	assert.Equal(t, "second", s.Banner.Message)

	send(m, second.msg)
	assert.False(t, m.State().Banner.Visible)
}

func TestFormKeys(t *testing.T) {
	m, _, _ := newTestModel(t)

	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("abc")})
	send(m, tea.KeyMsg{Type: tea.KeyBackspace})
	send(m, tea.KeyMsg{Type: tea.KeyTab})
	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("12")})
	send(m, tea.KeyMsg{Type: tea.KeySpace})
	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	send(m, tea.KeyMsg{Type: tea.KeyShiftTab})

	s := m.State()
	assert.Equal(t, 0, s.Form.Focus)
	v := s.Form.Values()
	assert.Equal(t, "ab", v[panelapi.FieldDiscordToken])
	assert.Equal(t, "12 3", v["guild_id"])

	send(m, tea.KeyMsg{Type: tea.KeyCtrlU})
	v = m.State().Form.Values()
	assert.Equal(t, "", v[panelapi.FieldDiscordToken])
}

func TestLogsKeys_RefreshOnlyOnLogsTab(t *testing.T) {
	m, srv, _ := newTestModel(t)

	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, 0, srv.Count(http.MethodGet, "/api/logs"))

	send(m, tea.KeyMsg{Type: tea.KeyF2})
	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, 2, srv.Count(http.MethodGet, "/api/logs"))
}

func TestQuitHook(t *testing.T) {
	called := false
	m := New(nil, DefaultTiming(), WithScheduler(&recorder{}), WithQuitHook(func() { called = true }))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, called)
}

func TestGlobalKeys_TriggerActions(t *testing.T) {
	m, srv, _ := newTestModel(t)

	send(m, tea.KeyMsg{Type: tea.KeyCtrlB})
	send(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	send(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 1, srv.Count(http.MethodPost, "/api/bot/start"))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/api/test-connection"))
	assert.Equal(t, 2, srv.Count(http.MethodPost, "/api/config"))

	// 未运行时停止按钮不可用
	send(m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Equal(t, 0, srv.Count(http.MethodPost, "/api/bot/stop"))
}
