package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/betbot/lnpanel/internal/panel"
	"github.com/betbot/lnpanel/internal/panelapi"
	"github.com/betbot/lnpanel/pkg/config"
	"github.com/betbot/lnpanel/pkg/logger"
	"github.com/betbot/lnpanel/pkg/shutdown"
)

func main() {
	// .env 可选，不存在时直接用真实环境变量
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("LNPANEL_CONFIG"), "config file (.yaml/.yml/.json)")
		baseURL    = flag.String("base-url", "", "bot backend base URL, e.g. http://localhost:3050")
		logFile    = flag.String("log-file", "", "log file path")
		logLevel   = flag.String("log-level", "", "log level (debug/info/warn/error)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "lnpanel needs an interactive terminal")
		os.Exit(1)
	}

	// TUI 占用终端，日志只写文件
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		Console:    false,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("lnpanel 启动: backend=%s log=%s", cfg.BaseURL, logger.GetCurrentLogFile())

	api := panelapi.New(cfg.BaseURL, cfg.RequestTimeout)
	m := panel.New(api, panel.Timing{
		RequestTimeout:       cfg.RequestTimeout,
		StatusInterval:       cfg.StatusInterval,
		LogsInterval:         cfg.LogsInterval,
		NotificationDuration: cfg.NotificationDuration,
		ActionRefreshDelay:   cfg.ActionRefreshDelay,
	}, panel.WithQuitHook(panel.InterruptSelf))

	p := tea.NewProgram(m, tea.WithAltScreen())

	sm := shutdown.NewManager()
	sm.OnShutdown(func(ctx context.Context) {
		p.Quit()
	})

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		sig := <-stopCh
		logger.Infof("收到信号 %v，准备退出", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sm.Shutdown(ctx)
	}()

	_, runErr := p.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	sm.Shutdown(ctx)
	cancel()

	if runErr != nil {
		logger.Errorf("面板异常退出: %v", runErr)
		_ = logger.Close()
		fmt.Fprintf(os.Stderr, "lnpanel: %v\n", runErr)
		os.Exit(1)
	}
	logger.Info("lnpanel 已退出")
	_ = logger.Close()
}
