package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kgchat/internal/config"
	"kgchat/internal/dispatch"
	"kgchat/internal/display"
	"kgchat/internal/escape"
	"kgchat/internal/export"
	"kgchat/internal/graph"
	"kgchat/internal/i18n"
	"kgchat/internal/kgapi"
	"kgchat/internal/logging"
	"kgchat/internal/orchestrator"
	"kgchat/internal/session"
	"kgchat/internal/storage"
	"kgchat/internal/telemetry"
	"kgchat/internal/usage"
)

// globalFlags 所有子命令共享的持久化参数
// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	server     string
	lang       string
	verbose    bool
}

// runtime 一次命令执行所需的全部组件
// runtime bundles every component one command invocation needs.
type runtime struct {
	cfg       config.Config
	logger    *logging.Logger
	telemetry *telemetry.Provider
	store     *storage.SQLiteStore
	client    *kgapi.Client
	orch      *orchestrator.Orchestrator
	table     *dispatch.Table
	renderer  display.Renderer

	closers []io.Closer
}

// newRuntime 加载配置并组装客户端、编排器与分派表；logToFile 用于 TUI 占用屏幕时
// newRuntime loads config and assembles client, orchestrator and dispatch table; logToFile is for when the TUI owns the screen.
func newRuntime(ctx context.Context, flags globalFlags, logToFile bool) (*runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if s := strings.TrimRight(strings.TrimSpace(flags.server), "/"); s != "" {
		cfg.Server.BaseURL = s
	}
	locale := flags.lang
	if locale == "" {
		locale = cfg.Display.Locale
	}
	i18n.Init(locale)

	rt := &runtime{cfg: cfg}

	levelName := cfg.Log.Level
	if flags.verbose {
		levelName = "debug"
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	if logToFile {
		logger, closer, err := logging.OpenFile(filepath.Join(cfg.Storage.BaseDir, "logs", "kgchat.log"), level)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		rt.logger = logger
		rt.closers = append(rt.closers, closer)
	} else {
		rt.logger = logging.New(os.Stderr, level)
	}

	rt.telemetry, err = telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		rt.logger.Warnf("telemetry disabled: %v", err)
	}
	var metrics *telemetry.Metrics
	if rt.telemetry != nil {
		metrics, err = telemetry.NewMetrics(rt.telemetry.MeterProvider)
		if err != nil {
			rt.logger.Warnf("metrics disabled: %v", err)
		}
	}

	var journal storage.Journal
	if cfg.Storage.Journal {
		store, err := storage.NewSQLiteStore(storage.DefaultPath(cfg.Storage.BaseDir))
		if err != nil {
			rt.logger.Warnf("journal disabled: %v", err)
		} else {
			rt.store = store
			journal = store
			rt.closers = append(rt.closers, store)
		}
	}

	rt.client, err = kgapi.NewClient(cfg.Server, rt.logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	policy, err := graph.ParsePolicy(cfg.Display.GraphPolicy)
	if err != nil {
		rt.Close()
		return nil, err
	}
	saver := export.DirSaver{Dir: cfg.Storage.ExportDir}
	tokenizer := usage.DefaultTokenizer()
	rt.logger.Debugf("token estimates: encoding %s, precise=%t", tokenizer.EncodingName(), tokenizer.IsPrecise())
	rt.orch = orchestrator.New(rt.client, orchestrator.Options{
		Logger:      rt.logger,
		Metrics:     metrics,
		Journal:     journal,
		Saver:       saver,
		Tokenizer:   tokenizer,
		Policy:      policy,
		Visualize:   cfg.Display.Visualize,
		ServerLabel: rt.client.BaseURL(),
	})
	rt.table = dispatch.NewTable(rt.orch, dispatch.Options{Images: saver})
	rt.renderer = display.Renderer{Theme: display.DarkTheme(), Markdown: cfg.Display.Markdown}
	return rt, nil
}

// session 由配置中的凭证与可选的已有会话 ID 构造
// session builds the starting context from configured credentials and an optional existing id.
func (rt *runtime) session(id string) session.Context {
	sc := session.New(session.Credentials{
		APIKey:    rt.cfg.Credentials.APIKey,
		APISecret: rt.cfg.Credentials.APISecret,
	})
	sc.ID = strings.TrimSpace(id)
	return sc
}

// printNotices 一次性命令把提示写到终端；错误走 stderr
// printNotices routes notices of one-shot commands to the terminal, errors to stderr.
func (rt *runtime) printNotices(stdout, stderr io.Writer) {
	rt.orch.SetNotifier(func(n orchestrator.Notice) {
		w := stdout
		if n.Level == orchestrator.LevelError {
			w = stderr
		}
		fmt.Fprintf(w, "[%s] %s\n", n.Title, escape.Terminal(n.Message))
	})
}

// authenticate 凭证齐全时先调用 test_connection；服务端凭此写入的 cookie 放行提问
// authenticate runs test_connection when credentials are configured; the service only
// accepts questions carrying the cookie that call sets.
func (rt *runtime) authenticate(ctx context.Context, sc session.Context) error {
	if !sc.Credentials.Complete() {
		return nil
	}
	_, err := rt.orch.TestConnection(ctx, sc)
	return err
}

// historyPath REPL 历史文件 / historyPath is the REPL history file
func (rt *runtime) historyPath() string {
	return filepath.Join(rt.cfg.Storage.BaseDir, "repl.history")
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.telemetry != nil {
		if err := rt.telemetry.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
