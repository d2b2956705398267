// scoregate 是 ESPN NFL 数据的缓存网关。
//
// 配置按 环境变量(SCOREGATE_*) > .env > configs/scoregate.yaml > 默认值 的顺序合并，
// 修改配置文件中的 log.level 会立即生效。
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/config"
	"github.com/ceyewan/scoregate/internal/app"
)

func main() {
	configDir := flag.String("config", "", "directory containing scoregate.yaml")
	flag.Parse()

	boot, err := clog.New(&clog.Config{Level: "info", Format: "console", Output: "stderr"},
		clog.WithNamespace("boot"))
	if err != nil {
		boot = clog.Discard()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configDir, boot); err != nil {
		boot.Error("scoregate exited", clog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configDir string, boot clog.Logger) error {
	loaderCfg := &config.Config{Name: "scoregate", EnvPrefix: "SCOREGATE"}
	if configDir != "" {
		loaderCfg.Paths = []string{configDir}
	}
	loader, err := config.New(loaderCfg,
		config.WithDefaults(app.Defaults()),
		config.WithRequired("provider.espn.base_url", "http.addr"),
		config.WithLogger(boot))
	if err != nil {
		return err
	}
	if err := loader.Load(ctx); err != nil {
		return err
	}

	var cfg app.Config
	if err := loader.Unmarshal(&cfg); err != nil {
		return err
	}

	a, err := app.New(&cfg)
	if err != nil {
		return err
	}
	if file := loader.ConfigFileUsed(); file != "" {
		a.Logger().Info("config loaded", clog.String("file", file))
	}

	go watchLogLevel(ctx, loader, a.Logger())
	return a.Run(ctx)
}

// watchLogLevel 配置文件中的 log.level 变化时调整日志级别
func watchLogLevel(ctx context.Context, loader config.Loader, logger clog.Logger) {
	events, err := loader.Watch(ctx, "log.level")
	if err != nil {
		logger.Warn("watch log.level failed", clog.Error(err))
		return
	}
	for ev := range events {
		raw, _ := ev.Value.(string)
		level, err := clog.ParseLevel(raw)
		if err != nil {
			logger.Warn("ignore invalid log.level", clog.Any("value", ev.Value), clog.Error(err))
			continue
		}
		if err := logger.SetLevel(level); err != nil {
			logger.Warn("set log level failed", clog.Error(err))
			continue
		}
		logger.Info("log level changed", clog.String("level", level.String()))
	}
}
