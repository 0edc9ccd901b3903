//go:build !unix

package panel

// InterruptSelf 非 unix 平台无需补发信号，程序随 tea.Quit 正常退出
func InterruptSelf() {}
