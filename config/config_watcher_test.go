package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"DMChat/global"
)

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	body := "auth:\n  jwt_secret: s\nlog:\n  level: " + level + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "info")
	// CONFIG_PATH names a different file; reloads must follow the watched one
	other := filepath.Join(dir, "other.yaml")
	writeConfig(t, other, "warn")
	t.Setenv(global.ConfigPathEnvVar, other)

	initial, err := global.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []*global.AppConfig
	w, err := StartWatcher(path, initial, func(c *global.AppConfig) { got = append(got, c) })
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}
	defer w.Stop()

	if w.current() != initial {
		t.Fatal("initial config not stored")
	}

	// drive the callback directly; fsnotify timing is not under test
	writeConfig(t, path, "debug")
	w.handle(nil, nil)
	if len(got) != 1 || got[0].Log.Level != "debug" {
		t.Fatalf("reload callback = %+v", got)
	}
	if w.current().Log.Level != "debug" {
		t.Error("current config not replaced")
	}

	// invalid file keeps the previous config
	if err := os.WriteFile(path, []byte("server:\n  port: -1\nauth:\n  jwt_secret: s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.handle(nil, nil)
	if len(got) != 1 || w.current().Log.Level != "debug" {
		t.Error("invalid reload must be ignored")
	}

	w.handle(nil, errors.New("watch failed"))
	if len(got) != 1 {
		t.Error("watch errors must not trigger a reload")
	}
}
