package builtin

import (
	"context"
	"io"

	"github.com/mwantia/mountfs/cmd"
	"github.com/mwantia/mountfs/data"
)

type CatCommand struct {
}

func (c *CatCommand) Name() string {
	return "cat"
}

func (c *CatCommand) Description() string {
	return "Print the content of files"
}

func (c *CatCommand) Usage() string {
	return "cat <path>..."
}

func (c *CatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(args, 1, c.Usage()); err != nil {
		return 2, err
	}

	for _, path := range args.Args {
		if err := copyFile(ctx, api, path, writer); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func (c *CatCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

func copyFile(ctx context.Context, api cmd.API, path string, writer io.Writer) error {
	file, err := api.OpenFile(ctx, path, data.OpenRead)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}
