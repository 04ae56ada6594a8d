package builtin

import (
	"fmt"

	"github.com/mwantia/mountfs/cmd"
	"github.com/mwantia/mountfs/data"
)

// Register adds every builtin command to m.
func Register(m *cmd.Manager) error {
	commands := []cmd.Command{
		&LsCommand{},
		&StatCommand{},
		&CatCommand{},
		&WriteCommand{},
		&MkdirCommand{},
		&RmCommand{},
		&RmdirCommand{},
		&MountsCommand{},
		NewHelpCommand(m),
	}

	for _, command := range commands {
		if err := m.Register(command); err != nil {
			return err
		}
	}
	return nil
}

func requireArgs(args *cmd.CommandArgs, n int, usage string) error {
	if len(args.Args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// typeChar is the first column of long listings.
func typeChar(meta *data.Metadata) string {
	if meta.IsDir() {
		return "d"
	}
	return "-"
}

func modeString(meta *data.Metadata) string {
	if meta.ReadOnly {
		return typeChar(meta) + "r-"
	}
	return typeChar(meta) + "rw"
}
