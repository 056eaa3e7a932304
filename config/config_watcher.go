package config

import (
	"sync"

	"DMChat/global"
	"DMChat/logger"

	"github.com/knadh/koanf/providers/file"
	"go.uber.org/zap"
)

// Watcher reloads the watched file on change and hands each valid result to
// the callback. A reload that fails validation keeps the previous config.
type Watcher struct {
	path     string
	provider *file.File
	onChange func(*global.AppConfig)

	mu  sync.RWMutex
	cfg *global.AppConfig
}

// StartWatcher 启动配置文件监听; initial is the config currently in use.
func StartWatcher(path string, initial *global.AppConfig, onChange func(*global.AppConfig)) (*Watcher, error) {
	w := &Watcher{path: path, provider: file.Provider(path), onChange: onChange, cfg: initial}
	if err := w.provider.Watch(w.handle); err != nil {
		return nil, err
	}
	logger.Info("watching config file", zap.String("path", path))
	return w, nil
}

func (w *Watcher) handle(_ interface{}, err error) {
	if err != nil {
		logger.Warn("config watch error", zap.String("path", w.path), zap.Error(err))
		return
	}
	cfg, err := global.LoadFile(w.path)
	if err != nil {
		logger.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	logger.Info("监听到配置变化", zap.String("path", w.path), zap.String("log_level", cfg.Log.Level))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *Watcher) Stop() error {
	return w.provider.Unwatch()
}

// current returns the last config accepted by the watcher.
func (w *Watcher) current() *global.AppConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}
