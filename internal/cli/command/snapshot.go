package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/cli/output"
	"github.com/yndnr/metasnap/internal/core/domain"
)

// Verify results.
const (
	verifyOK      = "ok"
	verifyAbsent  = "absent"
	verifyCorrupt = "corrupt"
)

// errVerifyFailed is returned when at least one file did not verify.
var errVerifyFailed = errors.New("verify failed")

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the records of a snapshot file",
		ArgsUsage: "SNAPSHOT",
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("inspect: exactly one snapshot path is required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	sum, err := rt.store.Inspect(c.Args().First())
	if err != nil {
		return err
	}

	if _, ok := rt.out.(*output.TableFormatter); ok {
		fmt.Fprintf(rt.stdout, "%s: %d records (%d classes, %d package parts), %d bytes\n\n",
			sum.Path, sum.RecordCount, sum.Classes, sum.PackageParts, sum.Size)
		return rt.print(sum.Records)
	}
	return rt.print(sum)
}

// VerifyResult is the outcome of verifying one snapshot file.
type VerifyResult struct {
	Path    string `json:"path" yaml:"path"`
	Result  string `json:"result" yaml:"result"`
	Records int    `json:"records" yaml:"records"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that snapshot files load completely",
		ArgsUsage: "SNAPSHOT...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "allow-absent",
				Usage: "Do not fail on missing files",
			},
		},
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("verify: at least one snapshot path is required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	results := make([]VerifyResult, 0, c.NArg())
	failed := false
	for _, path := range c.Args().Slice() {
		res := VerifyResult{Path: path}
		snap, ok, err := rt.store.Load(path)
		switch {
		case err != nil && domain.IsFormatError(err):
			res.Result = verifyCorrupt
			res.Error = err.Error()
			failed = true
		case err != nil:
			return err
		case !ok:
			res.Result = verifyAbsent
			failed = failed || !c.Bool("allow-absent")
		default:
			res.Result = verifyOK
			res.Records = snap.Len()
		}
		results = append(results, res)
	}

	if err := rt.print(results); err != nil {
		return err
	}
	if failed {
		return cli.Exit(errVerifyFailed.Error(), 2)
	}
	return nil
}

// RewriteCommand returns the rewrite command.
func RewriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "rewrite",
		Usage:     "Load a snapshot and save it again in canonical record order",
		ArgsUsage: "SOURCE [TARGET]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "drop",
				Usage: "Fully qualified name of a record to leave out (repeatable)",
			},
		},
		Action: rewriteAction,
	}
}

func rewriteAction(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("rewrite: SOURCE and optional TARGET are required")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	source := c.Args().Get(0)
	target := source
	if c.NArg() == 2 {
		target = c.Args().Get(1)
	}

	snap, ok, err := rt.store.Load(source)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rewrite: %s does not exist", source)
	}

	for _, raw := range c.StringSlice("drop") {
		name, err := domain.ParseFqName(raw)
		if err != nil {
			return fmt.Errorf("rewrite: --drop %q: %w", raw, err)
		}
		if _, found := snap.Get(name); !found {
			rt.log.Warn("record to drop not found", "name", raw)
			continue
		}
		snap.Delete(name)
	}

	info, err := rt.store.Save(target, snap)
	if err != nil {
		return err
	}
	return rt.print(info)
}
