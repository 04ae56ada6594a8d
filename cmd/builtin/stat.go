package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/mountfs/cmd"
)

type StatCommand struct {
}

func (s *StatCommand) Name() string {
	return "stat"
}

func (s *StatCommand) Description() string {
	return "Show the metadata of an entry"
}

func (s *StatCommand) Usage() string {
	return "stat <path>"
}

func (s *StatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(args, 1, s.Usage()); err != nil {
		return 2, err
	}

	path := args.Args[0]
	meta, err := api.Metadata(ctx, path)
	if err != nil {
		return 1, err
	}

	fmt.Fprintf(writer, "Path:     %s\n", path)
	fmt.Fprintf(writer, "Type:     %s\n", meta.Type)
	fmt.Fprintf(writer, "ReadOnly: %t\n", meta.ReadOnly)
	if length, ok := meta.Length(); ok {
		fmt.Fprintf(writer, "Size:     %d (%s)\n", length, humanize.IBytes(length))
	}

	printTime(writer, "Created: ", meta.Created)
	printTime(writer, "Accessed:", meta.Accessed)
	printTime(writer, "Modified:", meta.Modified)
	return 0, nil
}

func (s *StatCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

func printTime(writer io.Writer, label string, t *time.Time) {
	if t == nil {
		return
	}
	fmt.Fprintf(writer, "%s %s (%s)\n", label, t.Format(time.RFC3339), humanize.Time(*t))
}
