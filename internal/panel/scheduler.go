package panel

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Scheduler 延迟投递消息（相当于 setTimeout）。周期任务由消息处理函数自行续约。
type Scheduler interface {
	After(d time.Duration, msg tea.Msg) tea.Cmd
}

type teaScheduler struct{}

func (teaScheduler) After(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return msg
	})
}
