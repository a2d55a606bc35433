package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/storage/snapshot"
)

func TestInspect(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeSnapshot(t, "lib.snap")

	var sum snapshot.Summary
	decodeJSON(t, env.run(t, "-o", "json", "inspect", path), &sum)

	if sum.RecordCount != 2 || sum.Classes != 1 || sum.PackageParts != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	want := []snapshot.RecordInfo{
		{Name: "lib.Widget", Kind: "class", PayloadChunks: 1, Strings: 3, QualifiedNames: 2},
		{Name: "lib.WidgetKt", Kind: "package-part", Package: "lib", PayloadChunks: 1, Strings: 1, QualifiedNames: 0},
	}
	if diff := cmp.Diff(want, sum.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestInspect_Table(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeSnapshot(t, "lib.snap")

	r := env.run(t, "inspect", path)
	if r.err != nil {
		t.Fatalf("inspect failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, "2 records (1 classes, 1 package parts)") {
		t.Errorf("missing summary line:\n%s", r.stdout)
	}
	if !strings.Contains(r.stdout, "lib.WidgetKt") {
		t.Errorf("missing record row:\n%s", r.stdout)
	}
}

func TestInspect_Errors(t *testing.T) {
	env := newTestEnv(t)
	if r := env.run(t, "inspect"); r.err == nil {
		t.Error("expected error without arguments")
	}
	if r := env.run(t, "inspect", filepath.Join(env.dir, "none.snap")); r.err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	good := env.writeSnapshot(t, "good.snap")
	corrupt := env.writeFile(t, "corrupt.snap", "\x00\x00\x00\x05")
	absent := filepath.Join(env.dir, "absent.snap")

	tests := []struct {
		name     string
		args     []string
		want     []string
		wantExit bool
	}{
		{"good", []string{good}, []string{verifyOK}, false},
		{"corrupt", []string{good, corrupt}, []string{verifyOK, verifyCorrupt}, true},
		{"absent", []string{absent}, []string{verifyAbsent}, true},
		{"absent allowed", []string{"--allow-absent", absent}, []string{verifyAbsent}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-o", "json", "verify"}, tt.args...)
			r := env.run(t, args...)

			var exit cli.ExitCoder
			gotExit := errors.As(r.err, &exit)
			if gotExit != tt.wantExit {
				t.Fatalf("exit error = %v, want exit %v", r.err, tt.wantExit)
			}
			if gotExit && exit.ExitCode() != 2 {
				t.Errorf("exit code = %d, want 2", exit.ExitCode())
			}

			r.err = nil
			var results []VerifyResult
			decodeJSON(t, r, &results)
			var got []string
			for _, res := range results {
				got = append(got, res.Result)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerify_ReportsRecordCount(t *testing.T) {
	env := newTestEnv(t)
	good := env.writeSnapshot(t, "good.snap")

	var results []VerifyResult
	decodeJSON(t, env.run(t, "-o", "json", "verify", good), &results)
	if len(results) != 1 || results[0].Records != 2 {
		t.Fatalf("results = %+v", results)
	}
}

func TestRewrite(t *testing.T) {
	env := newTestEnv(t)
	source := env.writeSnapshot(t, "lib.snap")
	target := filepath.Join(env.dir, "out", "lib.snap")

	var info snapshot.Info
	decodeJSON(t, env.run(t, "-o", "json", "rewrite", source, target), &info)
	if info.RecordCount != 2 || info.Path != target {
		t.Fatalf("info = %+v", info)
	}

	want, _ := os.ReadFile(source)
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if !cmp.Equal(want, got) {
		t.Error("rewrite of a canonical snapshot must be byte-identical")
	}
}

func TestRewrite_Drop(t *testing.T) {
	env := newTestEnv(t)
	source := env.writeSnapshot(t, "lib.snap")

	var info snapshot.Info
	decodeJSON(t, env.run(t, "-o", "json", "rewrite", "--drop", "lib.WidgetKt", "--drop", "lib.Missing", source), &info)
	if info.RecordCount != 1 {
		t.Fatalf("record count = %d, want 1", info.RecordCount)
	}

	snap, ok, err := newTestStore().Load(source)
	if err != nil || !ok {
		t.Fatalf("Load = ok %v, err %v", ok, err)
	}
	if _, found := snap.Get("lib.WidgetKt"); found {
		t.Error("dropped record is still present")
	}
}

func TestRewrite_Errors(t *testing.T) {
	env := newTestEnv(t)
	source := env.writeSnapshot(t, "lib.snap")

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"too many args", []string{"a", "b", "c"}},
		{"missing source", []string{filepath.Join(env.dir, "none.snap")}},
		{"bad drop name", []string{"--drop", "a..b", source}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.run(t, append([]string{"rewrite"}, tt.args...)...)
			if r.err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
