//go:build unix

package panel

import "golang.org/x/sys/unix"

// InterruptSelf 向自身发送 SIGINT。
// Bubble Tea 接管了 Ctrl+C，外层主程序收不到 SIGINT；主动补发一次，让整套程序走统一的优雅退出链路。
func InterruptSelf() {
	_ = unix.Kill(unix.Getpid(), unix.SIGINT)
}
