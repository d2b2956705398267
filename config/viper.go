package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

type loader struct {
	v       *viper.Viper
	cfg     *Config
	opts    *options
	mu      sync.Mutex
	watches map[string][]chan Event
	values  map[string]any
}

func newLoader(cfg *Config, opts *options) *loader {
	v := viper.New()
	for k, val := range opts.defaults {
		v.SetDefault(k, val)
	}
	return &loader{
		v:       v,
		cfg:     cfg,
		opts:    opts,
		watches: make(map[string][]chan Event),
		values:  make(map[string]any),
	}
}

// Load 按优先级加载：env > .env > {name}.{env} > {name} > defaults
func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, path := range l.cfg.Paths {
		l.v.AddConfigPath(path)
	}

	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.loadDotEnv()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(errors.Join(ErrRead, err), "config file %s", l.cfg.Name)
		}
		l.opts.logger.Warn("no config file found, using defaults and environment",
			clog.String("name", l.cfg.Name), clog.Any("paths", l.cfg.Paths))
	}

	if err := l.mergeEnvironmentConfig(); err != nil {
		return err
	}

	if err := l.Validate(); err != nil {
		return err
	}

	if l.v.ConfigFileUsed() != "" {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			l.opts.logger.Info("config file changed", clog.String("file", e.Name), clog.String("op", e.Op.String()))
			if err := l.mergeEnvironmentConfig(); err != nil {
				l.opts.logger.Error("reload environment config failed", clog.Error(err))
			}
			l.notify()
		})
		l.v.WatchConfig()
	}
	return nil
}

// loadDotEnv 加载工作目录和搜索路径下的 .env，已存在的环境变量不会被覆盖
func (l *loader) loadDotEnv() {
	candidates := []string{".env"}
	for _, path := range l.cfg.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	for _, file := range candidates {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			l.opts.logger.Warn("load .env failed", clog.String("file", file), clog.Error(err))
		}
	}
}

// mergeEnvironmentConfig 合并 {name}.{ENV} 文件，ENV 来自 {PREFIX}_ENV
func (l *loader) mergeEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.cfg.EnvPrefix))
	if env == "" {
		return nil
	}

	name := fmt.Sprintf("%s.%s", l.cfg.Name, env)
	l.v.SetConfigName(name)
	defer l.v.SetConfigName(l.cfg.Name)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(errors.Join(ErrRead, err), "environment config %s", name)
		}
		l.opts.logger.Debug("no environment config file", clog.String("env", env))
		return nil
	}
	l.opts.logger.Info("merged environment config", clog.String("env", env))
	return nil
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

func (l *loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config: watch key is empty")
	}

	l.mu.Lock()
	ch := make(chan Event, 8)
	l.watches[key] = append(l.watches[key], ch)
	l.values[key] = l.v.Get(key)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()
	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.values, key)
	}
}

func (l *loader) Validate() error {
	var missing []string
	for _, key := range l.opts.required {
		if !l.v.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return xerrors.Wrapf(ErrValidationFailed, "missing keys %s", strings.Join(missing, ","))
	}
	return nil
}

// notify 对比每个被监听 key 的新旧值，有变化时非阻塞投递
func (l *loader) notify() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, chans := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.values[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		l.values[key] = newValue

		ev := Event{Key: key, Value: newValue, OldValue: oldValue, Source: "file", Timestamp: time.Now()}
		for _, ch := range chans {
			select {
			case ch <- ev:
			default:
				l.opts.logger.Warn("config watch channel full, event dropped", clog.String("key", key))
			}
		}
	}
}
