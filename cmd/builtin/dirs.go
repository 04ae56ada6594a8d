package builtin

import (
	"context"
	"io"

	"github.com/mwantia/mountfs/cmd"
)

type MkdirCommand struct {
}

func (m *MkdirCommand) Name() string {
	return "mkdir"
}

func (m *MkdirCommand) Description() string {
	return "Create directories"
}

func (m *MkdirCommand) Usage() string {
	return "mkdir [-p] <path>..."
}

func (m *MkdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(args, 1, m.Usage()); err != nil {
		return 2, err
	}

	for _, path := range args.Args {
		create := api.CreateDir
		if args.Bool("parents") {
			create = api.CreateDirAll
		}
		if err := create(ctx, path); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func (m *MkdirCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(&cmd.CommandFlag{
		Name:        "parents",
		Short:       "p",
		Type:        "bool",
		Description: "Create missing parents, no error if existing",
	})
}

type RmdirCommand struct {
}

func (r *RmdirCommand) Name() string {
	return "rmdir"
}

func (r *RmdirCommand) Description() string {
	return "Remove empty directories"
}

func (r *RmdirCommand) Usage() string {
	return "rmdir <path>..."
}

func (r *RmdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(args, 1, r.Usage()); err != nil {
		return 2, err
	}

	for _, path := range args.Args {
		if err := api.RemoveDir(ctx, path); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func (r *RmdirCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

type RmCommand struct {
}

func (r *RmCommand) Name() string {
	return "rm"
}

func (r *RmCommand) Description() string {
	return "Remove files, or directories with -r"
}

func (r *RmCommand) Usage() string {
	return "rm [-r] <path>..."
}

func (r *RmCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(args, 1, r.Usage()); err != nil {
		return 2, err
	}

	for _, path := range args.Args {
		if err := r.remove(ctx, api, path, args.Bool("recursive")); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func (r *RmCommand) remove(ctx context.Context, api cmd.API, path string, recursive bool) error {
	if !recursive {
		return api.RemoveFile(ctx, path)
	}

	meta, err := api.Metadata(ctx, path)
	if err != nil {
		return err
	}
	if meta.IsDir() {
		return api.RemoveDirAll(ctx, path)
	}
	return api.RemoveFile(ctx, path)
}

func (r *RmCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(&cmd.CommandFlag{
		Name:        "recursive",
		Short:       "r",
		Type:        "bool",
		Description: "Remove directories and their contents",
	})
}
