package builtin

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/mountfs/cmd"
	"github.com/mwantia/mountfs/data"
)

type LsCommand struct {
}

// Name returns the command identifier
func (ls *LsCommand) Name() string {
	return "ls"
}

// Description returns human-readable help text
func (ls *LsCommand) Description() string {
	return "List the entries of a directory"
}

// Usage returns a usage string for help
func (ls *LsCommand) Usage() string {
	return "ls [-l] [path]"
}

// Execute lists path, the root if omitted. Entries are printed relative to
// path in lexical order; -l adds mode, size and modification time.
func (ls *LsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	path := args.Arg(0, "")

	entries, err := api.ReadDir(ctx, path)
	if err != nil {
		return 1, err
	}

	root := listingRoot(api, path)
	if !args.Bool("long") {
		for _, key := range entries.Paths() {
			fmt.Fprintln(writer, displayName(root, key))
		}
		return 0, nil
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	for _, key := range entries.Paths() {
		meta := entries[key]

		size := "-"
		if length, ok := meta.Length(); ok && meta.IsFile() {
			size = humanize.IBytes(length)
		}

		modified := "-"
		if meta.Modified != nil {
			modified = humanize.Time(*meta.Modified)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", modeString(meta), size, modified, displayName(root, key))
	}

	if err := tw.Flush(); err != nil {
		return 1, err
	}
	return 0, nil
}

// listingRoot returns the path the keys of a listing of path are relative
// to. A mount table returns backend keys unchanged, so they are relative to
// the innermost mount base, following nested tables; synthesized entries
// are already relative to path.
func listingRoot(api cmd.API, path string) string {
	clean, err := data.CleanPath(path)
	if err != nil {
		return ""
	}

	for {
		resolver, ok := api.(cmd.MountResolver)
		if !ok {
			return clean
		}

		fs, rest, ok := resolver.Resolve(clean)
		if !ok {
			return ""
		}
		api, clean = fs, rest
	}
}

func displayName(root, key string) string {
	if rel, ok := data.TrimPathPrefix(key, root); ok && rel != "" {
		return rel
	}
	return key
}

// GetFlags returns the flag set for this command
func (ls *LsCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(&cmd.CommandFlag{
		Name:        "long",
		Short:       "l",
		Type:        "bool",
		Description: "Use a long listing format",
	})
}
