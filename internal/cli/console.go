package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/hbnb/internal/console"
)

// runConsole starts the interpreter on the command's input. The prompt is
// shown only when that input is a terminal.
func runConsole(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	con := console.New(a.store, cmd.OutOrStdout(),
		console.WithLogger(a.log),
		console.Interactive(interactive))
	if err := con.Run(in); err != nil {
		return systemError("%w", err)
	}
	return nil
}

// verbs are the console commands also exposed as subcommands.
var verbs = []struct {
	use  string
	name string
}{
	{"create <class>", "create"},
	{"show <class> <id>", "show"},
	{"destroy <class> <id>", "destroy"},
	{"all [class]", "all"},
	{"count [class]", "count"},
	{"update <class> <id> <attribute> <value>", "update"},
}

// newVerbCmds returns one subcommand per console verb. Each runs a single
// console command against the store and exits.
func newVerbCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(verbs))
	for _, v := range verbs {
		v := v
		short, _ := console.Help(v.name)
		cmds = append(cmds, &cobra.Command{
			Use:   v.use,
			Short: short,
			// Argument errors are reported by the console itself.
			Args: cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runVerb(cmd, append([]string{v.name}, args...))
			},
		})
	}
	return cmds
}

func runVerb(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	con := console.New(a.store, cmd.OutOrStdout(), console.WithLogger(a.log))
	if _, err := con.ExecuteArgs(args); err != nil {
		return systemError("%w", err)
	}
	return nil
}
