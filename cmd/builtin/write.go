package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/mountfs/cmd"
	"github.com/mwantia/mountfs/data"
)

type WriteCommand struct {
}

func (wc *WriteCommand) Name() string {
	return "write"
}

func (wc *WriteCommand) Description() string {
	return "Write text to a file, creating it if needed"
}

func (wc *WriteCommand) Usage() string {
	return "write [-a] [-x] <path> <text>..."
}

// Execute replaces the content of the file with the remaining arguments
// joined by spaces. -a appends instead, -x fails if the file exists.
func (wc *WriteCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(args, 1, wc.Usage()); err != nil {
		return 2, err
	}

	opts := data.OpenCreate | data.OpenTruncate
	switch {
	case args.Bool("append") && args.Bool("exclusive"):
		return 2, fmt.Errorf("-a and -x cannot be combined")
	case args.Bool("append"):
		opts = data.OpenCreate | data.OpenAppend
	case args.Bool("exclusive"):
		opts = data.OpenCreateNew
	}

	path := args.Args[0]
	file, err := api.OpenFile(ctx, path, opts)
	if err != nil {
		return 1, err
	}

	content := strings.Join(args.Args[1:], " ")
	if args.Bool("newline") {
		content += "\n"
	}

	n, err := io.WriteString(file, content)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 1, err
	}

	if args.Bool("verbose") {
		fmt.Fprintf(writer, "wrote %d bytes to %s\n", n, path)
	}
	return 0, nil
}

func (wc *WriteCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "append", Short: "a", Type: "bool", Description: "Append to the end of the file"},
		&cmd.CommandFlag{Name: "exclusive", Short: "x", Type: "bool", Description: "Fail if the file already exists"},
		&cmd.CommandFlag{Name: "newline", Short: "n", Type: "bool", Description: "Terminate the text with a newline"},
		&cmd.CommandFlag{Name: "verbose", Short: "v", Type: "bool", Description: "Report the number of bytes written"},
	)
}
