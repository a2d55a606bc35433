package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/telemetry/logger"
)

func TestApp(t *testing.T) {
	app := App()
	if app == nil {
		t.Fatal("App() returned nil")
	}
	if app.Name != "metasnap" {
		t.Errorf("Name = %q, want %q", app.Name, "metasnap")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}
	required := []string{
		"inspect", "verify", "rewrite", "status", "restore", "record",
		"invalidate", "registry", "watch", "config", "version",
	}
	for _, name := range required {
		if !commandNames[name] {
			t.Errorf("missing required command: %s", name)
		}
	}
}

func TestApp_GlobalFlags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, flag := range globalFlags() {
		flagNames[flag.Names()[0]] = true
	}
	required := []string{"config", "output", "wide", "verbose", "log-level", "engine", "registry-dir", "snapshot-dir"}
	for _, name := range required {
		if !flagNames[name] {
			t.Errorf("missing required flag: %s", name)
		}
	}
}

func TestApp_UnknownOutputFormat(t *testing.T) {
	env := newTestEnv(t)
	r := env.run(t, "-o", "xml", "version")
	if r.err == nil || !strings.Contains(r.err.Error(), "xml") {
		t.Fatalf("expected output format error, got %v", r.err)
	}
}

func TestApp_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	r := env.run(t, "--engine", "etcd", "version")
	if r.err == nil || !strings.Contains(r.err.Error(), "storage.engine") {
		t.Fatalf("expected storage.engine error, got %v", r.err)
	}
}

func TestApp_MetricsTextfile(t *testing.T) {
	env := newTestEnv(t)
	snap := env.writeSnapshot(t, "lib.snap")
	textfile := filepath.Join(env.dir, "metasnap.prom")
	cfg := env.writeFile(t, "metasnap.yaml", "metrics:\n  textfile: "+textfile+"\n")

	r := env.run(t, "--config", cfg, "verify", snap)
	if r.err != nil {
		t.Fatalf("verify failed: %v", r.err)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `metasnap_snapshot_loads_total{result="hit"} 1`) {
		t.Errorf("textfile missing load counter:\n%s", data)
	}
}

func TestOverrides(t *testing.T) {
	app := &cli.App{Flags: globalFlags()}
	var got map[string]any
	app.Action = func(c *cli.Context) error {
		got = overrides(c)
		return nil
	}
	if err := app.Run([]string{"metasnap", "--engine", "memory", "--verbose"}); err != nil {
		t.Fatal(err)
	}

	if got["storage.engine"] != "memory" {
		t.Errorf("storage.engine = %v", got["storage.engine"])
	}
	if got["log.level"] != "debug" {
		t.Errorf("log.level = %v", got["log.level"])
	}
	if _, ok := got["snapshot.dir"]; ok {
		t.Error("unset flag must not override configuration")
	}
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	var info map[string]string
	decodeJSON(t, env.run(t, "-o", "json", "version"), &info)
	if info["version"] == "" || info["go_version"] == "" {
		t.Errorf("version output = %v", info)
	}
}

func TestSetup_StoresLoggerInContext(t *testing.T) {
	env := newTestEnv(t)

	var (
		got  logger.Logger
		want logger.Logger
	)
	app := App()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = append(app.Commands, &cli.Command{
		Name: "ctxlogger",
		Action: func(c *cli.Context) error {
			rt, err := getRuntime(c)
			if err != nil {
				return err
			}
			want = rt.log
			got = logger.FromContextOr(c.Context, nil)
			return nil
		},
	})

	args := append([]string{"metasnap"}, env.flags()...)
	if err := app.Run(append(args, "ctxlogger")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got == nil || got != want {
		t.Fatalf("context logger = %v, want runtime logger %v", got, want)
	}
}
