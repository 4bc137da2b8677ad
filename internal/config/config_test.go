package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExchangePath != "gno.land/r/demo/exchange" || cfg.NativeDenom != "ugnot" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FeeAmount != 1000000 || cfg.GasWanted != 10000000 || cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("unexpected fee defaults: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("exchange: gno.land/r/file/exchange\nchain-id: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GNODESK_CHAIN_ID", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("node", "", "")
	if err := flags.Parse([]string{"--node", "http://node:26657"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExchangePath != "gno.land/r/file/exchange" {
		t.Fatalf("config file value not applied: %s", cfg.ExchangePath)
	}
	if cfg.ChainID != "from-env" {
		t.Fatalf("env should override file: %s", cfg.ChainID)
	}
	if cfg.NodeURL != "http://node:26657" {
		t.Fatalf("flag not applied: %s", cfg.NodeURL)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	envPath := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envPath, []byte("GNODESK_CALLER=g1dotenvcaller\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("GNODESK_CALLER", "")
	os.Unsetenv("GNODESK_CALLER")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("env-file", "", "")
	if err := flags.Parse([]string{"--env-file", envPath}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Caller != "g1dotenvcaller" {
		t.Fatalf("dotenv value not applied: %q", cfg.Caller)
	}

	missing := pflag.NewFlagSet("missing", pflag.ContinueOnError)
	missing.String("env-file", "", "")
	_ = missing.Parse([]string{"--env-file", filepath.Join(dir, "nope.env")})
	if _, err := Load("", missing); err == nil {
		t.Fatalf("expected error for explicit missing env file")
	}
}

func TestLoadSync(t *testing.T) {
	chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	flags.Uint64("rounds", 0, "")
	flags.Duration("interval", 0, "")
	if err := flags.Parse([]string{"--rounds", "2", "--interval", "5s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadSync("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rounds != 2 || cfg.Interval != 5*time.Second {
		t.Fatalf("unexpected sync config: %+v", cfg)
	}
	if !cfg.CheckpointEnabled || cfg.Out != "./data/snapshots.jsonl" {
		t.Fatalf("unexpected sync defaults: %+v", cfg)
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("1700000000")
	if err != nil || !got.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unix: %v %v", got, err)
	}
	got, err = ParseTimestamp("2026-01-02T03:04:05Z")
	if err != nil || !got.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("rfc3339: %v %v", got, err)
	}
	got, err = ParseTimestamp(" ")
	if err != nil || !got.IsZero() {
		t.Fatalf("blank: %v %v", got, err)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a , ,b,")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected list: %v", got)
	}
	if SplitList("") != nil {
		t.Fatalf("expected nil for blank input")
	}
}
