package builtin

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/mountfs/cmd"
)

type MountsCommand struct {
}

func (m *MountsCommand) Name() string {
	return "mounts"
}

func (m *MountsCommand) Description() string {
	return "List the bindings of the mount table"
}

func (m *MountsCommand) Usage() string {
	return "mounts"
}

func (m *MountsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	lister, ok := api.(cmd.MountLister)
	if !ok {
		return 1, fmt.Errorf("filesystem is not a mount table")
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	for _, info := range lister.Mounts() {
		path := info.Path
		if path == "" {
			path = "(root)"
		}

		backend := info.Backend
		if backend == "" {
			backend = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", path, backend, humanize.Time(info.MountedAt))
	}

	if err := tw.Flush(); err != nil {
		return 1, err
	}
	return 0, nil
}

func (m *MountsCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
