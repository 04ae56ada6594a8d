package builtin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/mwantia/mountfs/cmd"
)

// HelpCommand describes the commands registered with a manager.
type HelpCommand struct {
	manager *cmd.Manager
}

func NewHelpCommand(manager *cmd.Manager) *HelpCommand {
	return &HelpCommand{
		manager: manager,
	}
}

func (h *HelpCommand) Name() string {
	return "help"
}

func (h *HelpCommand) Description() string {
	return "List commands or describe one"
}

func (h *HelpCommand) Usage() string {
	return "help [command]"
}

func (h *HelpCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
		for _, command := range h.manager.List() {
			fmt.Fprintf(tw, "%s\t%s\n", command.Name(), command.Description())
		}
		if err := tw.Flush(); err != nil {
			return 1, err
		}
		return 0, nil
	}

	command, err := h.manager.Get(args.Args[0])
	if err != nil {
		return 1, err
	}

	fmt.Fprintf(writer, "usage: %s\n\n%s\n", command.Usage(), command.Description())

	flags := command.GetFlags()
	if flags == nil || len(flags.Flags) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(flags.Flags))
	for name := range flags.Flags {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(writer)
	for _, name := range names {
		flag := flags.Flags[name]
		if flag.Short != "" {
			fmt.Fprintf(writer, "  -%s, --%s\t%s\n", flag.Short, flag.Name, flag.Description)
		} else {
			fmt.Fprintf(writer, "  --%s\t%s\n", flag.Name, flag.Description)
		}
	}
	return 0, nil
}

func (h *HelpCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
