package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/core/service"
	"github.com/yndnr/metasnap/internal/infra/shutdown"
	"github.com/yndnr/metasnap/internal/infra/watch"
	"github.com/yndnr/metasnap/internal/storage"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Report whether the stored snapshot of each archive is current",
		ArgsUsage: "ARCHIVE...",
		Action:    statusAction,
	}
}

// StatusRow is one line of status output.
type StatusRow struct {
	Archive     string `json:"archive" yaml:"archive"`
	State       string `json:"state" yaml:"state"`
	Records     int    `json:"records" yaml:"records"`
	Snapshot    string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	BuildID     string `json:"build_id,omitempty" yaml:"build_id,omitempty" table:"wide"`
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty" table:"wide"`
}

func statusRow(st *service.ArchiveStatus) StatusRow {
	row := StatusRow{Archive: st.Archive, State: st.State}
	if st.Fingerprint != nil {
		row.Fingerprint = st.Fingerprint.String()
	}
	if st.Entry != nil {
		row.Records = st.Entry.RecordCount
		row.Snapshot = st.Entry.SnapshotPath
		row.BuildID = st.Entry.BuildID.String()
	}
	return row
}

func statusAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("status: at least one archive is required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	svc, reg, err := rt.openService()
	if err != nil {
		return err
	}
	defer reg.Close()

	rows := make([]StatusRow, 0, c.NArg())
	for _, archive := range c.Args().Slice() {
		st, err := svc.Status(c.Context, archive)
		if err != nil {
			return err
		}
		rows = append(rows, statusRow(st))
	}
	return rt.print(rows)
}

// RestoreCommand returns the restore command.
func RestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Load the stored snapshot of an archive if it is still valid",
		ArgsUsage: "ARCHIVE",
		Action:    restoreAction,
	}
}

// RestoreView is the printable outcome of a restore.
type RestoreView struct {
	Archive  string `json:"archive" yaml:"archive"`
	Fresh    bool   `json:"fresh" yaml:"fresh"`
	Reason   string `json:"reason" yaml:"reason"`
	Records  int    `json:"records" yaml:"records"`
	Snapshot string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func restoreAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("restore: exactly one archive is required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	svc, reg, err := rt.openService()
	if err != nil {
		return err
	}
	defer reg.Close()

	archive := c.Args().First()
	res, err := svc.Restore(c.Context, archive)
	if err != nil {
		return err
	}

	view := RestoreView{Archive: archive, Fresh: res.Fresh, Reason: res.Reason}
	if res.Entry != nil {
		view.Archive = res.Entry.Path
		view.Snapshot = res.Entry.SnapshotPath
	}
	if res.Snapshot != nil {
		view.Records = res.Snapshot.Len()
	}
	return rt.print(view)
}

// RecordCommand returns the record command.
func RecordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Store a snapshot file as the current snapshot of an archive",
		ArgsUsage: "ARCHIVE SNAPSHOT",
		Action:    recordAction,
	}
}

func recordAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("record: ARCHIVE and SNAPSHOT are required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	source := c.Args().Get(1)
	snap, ok, err := rt.store.Load(source)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record: %s does not exist", source)
	}

	svc, reg, err := rt.openService()
	if err != nil {
		return err
	}
	defer reg.Close()

	entry, err := svc.Store(c.Context, c.Args().Get(0), snap)
	if err != nil {
		return err
	}
	return rt.print(entry)
}

// InvalidateCommand returns the invalidate command.
func InvalidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "invalidate",
		Usage:     "Forget the stored snapshot of each archive",
		ArgsUsage: "ARCHIVE...",
		Action:    invalidateAction,
	}
}

// InvalidateRow is one line of invalidate output.
type InvalidateRow struct {
	Archive string `json:"archive" yaml:"archive"`
	Removed bool   `json:"removed" yaml:"removed"`
}

func invalidateAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("invalidate: at least one archive is required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	svc, reg, err := rt.openService()
	if err != nil {
		return err
	}
	defer reg.Close()

	rows := make([]InvalidateRow, 0, c.NArg())
	for _, archive := range c.Args().Slice() {
		removed, err := svc.Invalidate(c.Context, archive)
		if err != nil {
			return err
		}
		rows = append(rows, InvalidateRow{Archive: archive, Removed: removed})
	}
	return rt.print(rows)
}

// RegistryCommand returns the registry subcommand group.
func RegistryCommand() *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "Archive registry maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List registered archives",
				Action: registryList,
			},
			{
				Name:   "stats",
				Usage:  "Show storage engine statistics",
				Action: registryStats,
			},
			{
				Name:   "gc",
				Usage:  "Run storage garbage collection (badger only)",
				Action: registryGC,
			},
		},
	}
}

// EntryRow is one line of registry list output.
type EntryRow struct {
	Archive     string    `json:"archive" yaml:"archive"`
	Records     int       `json:"records" yaml:"records"`
	Snapshot    string    `json:"snapshot" yaml:"snapshot"`
	RecordedAt  time.Time `json:"recorded_at" yaml:"recorded_at"`
	BuildID     string    `json:"build_id" yaml:"build_id" table:"wide"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint" table:"wide"`
}

func registryList(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	reg, err := rt.openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	entries, err := reg.List(c.Context)
	if err != nil {
		return err
	}

	rows := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, EntryRow{
			Archive:     e.Path,
			Records:     e.RecordCount,
			Snapshot:    e.SnapshotPath,
			RecordedAt:  e.RecordedAt,
			BuildID:     e.BuildID.String(),
			Fingerprint: e.Fingerprint.String(),
		})
	}
	return rt.print(rows)
}

func registryStats(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	reg, err := rt.openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	stats, err := reg.Stats(c.Context)
	if err != nil {
		return err
	}
	return rt.print(stats)
}

func registryGC(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}
	kv, err := storage.OpenEngine(rt.cfg.Storage, rt.log)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer kv.Close()

	be, ok := kv.(*storage.BadgerEngine)
	if !ok {
		rt.log.Info("engine has no garbage collection", "engine", rt.cfg.Storage.Engine)
		return nil
	}
	return be.GC(c.Context)
}

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Invalidate snapshots as soon as their archives change",
		ArgsUsage: "[ARCHIVE...]",
		Action:    watchAction,
	}
}

func watchAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	archives := c.Args().Slice()
	if len(archives) == 0 {
		archives = rt.cfg.Watch.Archives
	}
	if len(archives) == 0 {
		return fmt.Errorf("watch: no archives given")
	}

	timeout, err := time.ParseDuration(rt.cfg.Watch.Timeout)
	if err != nil {
		return fmt.Errorf("watch: shutdown_timeout: %w", err)
	}

	var debounce time.Duration
	if rt.cfg.Watch.Debounce != "" {
		if debounce, err = time.ParseDuration(rt.cfg.Watch.Debounce); err != nil {
			return fmt.Errorf("watch: debounce: %w", err)
		}
	}

	svc, reg, err := rt.openService()
	if err != nil {
		return err
	}

	w, err := watch.New(watch.WithLogger(rt.log), watch.WithDebounce(debounce))
	if err != nil {
		reg.Close()
		return err
	}
	for _, archive := range archives {
		if err := w.Add(archive); err != nil {
			w.Stop()
			reg.Close()
			return err
		}
	}

	// mu keeps callbacks from running against a closed registry.
	var (
		mu     sync.Mutex
		closed bool
	)
	// Invalidations finish even after shutdown starts; ctx keeps the logger.
	cbCtx := context.WithoutCancel(c.Context)
	w.OnChange(func(ev watch.Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		removed, err := svc.Invalidate(cbCtx, ev.Path)
		if err != nil {
			rt.log.Error("invalidate failed", "archive", ev.Path, "error", err)
			return
		}
		if removed {
			fmt.Fprintf(rt.stdout, "invalidated %s (%s)\n", ev.Path, ev.Op)
		}
	})

	h := shutdown.NewHandler(timeout)
	h.OnShutdown(func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		closed = true
		return reg.Close()
	})
	h.OnShutdown(func(context.Context) error {
		return w.Stop()
	})

	w.StartAsync()
	return h.Wait(c.Context)
}
