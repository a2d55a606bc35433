package command

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/core/domain"
	"github.com/yndnr/metasnap/internal/metadata"
	"github.com/yndnr/metasnap/internal/storage/snapshot"
	"github.com/yndnr/metasnap/internal/telemetry/logger"
)

// testEnv is an isolated snapshot and registry location.
type testEnv struct {
	dir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{dir: t.TempDir()}
}

// flags points the app at the environment's directories.
func (e *testEnv) flags() []string {
	return []string{
		"--engine", "sqlite",
		"--registry-dir", filepath.Join(e.dir, "registry"),
		"--snapshot-dir", filepath.Join(e.dir, "snapshots"),
		"--log-level", "error",
	}
}

// result holds the captured output of one invocation.
type result struct {
	stdout string
	stderr string
	err    error
}

func (e *testEnv) run(t *testing.T, args ...string) result {
	t.Helper()
	return e.runContext(context.Background(), t, args...)
}

func (e *testEnv) runContext(ctx context.Context, t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"metasnap"}, e.flags()...)
	full = append(full, args...)
	err := app.RunContext(ctx, full)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// writeFile creates a file below the environment directory.
func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// sampleSnapshot returns a class and a package part encoded with the
// metadata codec.
func sampleSnapshot() *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Put("lib.Widget", domain.NewClassRecord(
		&metadata.ClassDescriptor{
			FqName:     0,
			Supertypes: []int32{1},
			Members:    []metadata.Member{{Kind: metadata.MemberFunction, Name: 2}},
		},
		domain.NewCompactTable(
			[]string{"lib/Widget", "kotlin/Any", "draw"},
			[]domain.QualifiedName{{Index: 0}, {Index: 1}},
		)))
	snap.Put("lib.WidgetKt", domain.NewPackagePartRecord(
		&metadata.PackageDescriptor{Members: []metadata.Member{{Kind: metadata.MemberProperty, Name: 0}}},
		domain.NewFlatTable([]string{"version"}),
		"lib"))
	return snap
}

func newTestStore() *snapshot.Store {
	mc := metadata.NewCodec()
	return snapshot.NewStore(snapshot.NewCodec(mc, mc), snapshot.WithLogger(logger.NewNop()))
}

// writeSnapshot saves sampleSnapshot below the environment directory.
func (e *testEnv) writeSnapshot(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if _, err := newTestStore().Save(path, sampleSnapshot()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	return path
}

// decodeJSON unmarshals command output produced with -o json.
func decodeJSON(t *testing.T, r result, v any) {
	t.Helper()
	if r.err != nil {
		t.Fatalf("command failed: %v\nstderr: %s", r.err, r.stderr)
	}
	if err := json.Unmarshal([]byte(r.stdout), v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, r.stdout)
	}
}
