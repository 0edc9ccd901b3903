package panel

import "github.com/betbot/lnpanel/internal/panelapi"

type configLoadedMsg struct {
	cfg *panelapi.Configuration
	err error
}

type statusMsg struct {
	seq    uint64
	status *panelapi.BotStatus
	err    error
}

type configSavedMsg struct {
	token string
	err   error
}

type connectionTestedMsg struct {
	token  string
	result *panelapi.TestResult
	err    error
}

type botAction int

const (
	actionStart botAction = iota
	actionStop
)

type botActionMsg struct {
	action botAction
	token  string
	err    error
}

type logsLoadedMsg struct {
	seq  uint64
	snap *panelapi.LogSnapshot
	err  error
}

// statusTickMsg 固定间隔的状态轮询
type statusTickMsg struct{}

// statusRefreshMsg 启停成功后的一次性延迟复查，不续约
type statusRefreshMsg struct{}

// logsTickMsg 日志轮询；gen 与当前轮询代数不一致说明轮询已停止
type logsTickMsg struct {
	gen uint64
}

type bannerExpiredMsg struct {
	gen uint64
}
