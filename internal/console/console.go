// Package console implements the line-oriented command interpreter that
// drives the object store. Each line names a command and its arguments;
// quoting follows shell rules.
package console

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Prompt is printed before each line in interactive mode.
const Prompt = "(hbnb) "

// User-facing messages, one per failure kind.
const (
	msgClassMissing     = "** class name missing **"
	msgClassUnknown     = "** class doesn't exist **"
	msgIDMissing        = "** instance id missing **"
	msgNoInstance       = "** no instance found **"
	msgAttrMissing      = "** attribute name missing **"
	msgValueMissing     = "** value missing **"
	msgAttrReadOnly     = "** attribute can't be updated **"
	msgUnknownSyntaxFmt = "*** Unknown syntax: %s"
)

// Store is the registry surface the interpreter needs.
type Store interface {
	types.Registry
	Get(key string) (types.Entity, error)
	Delete(key string) error
	Keys(typeName string) []string
	Count(typeName string) int
}

// command is one interpreter verb.
type command struct {
	help string
	run  func(c *Console, args []string) (stop bool, err error)
}

// Console reads command lines and applies them to a Store.
type Console struct {
	store       Store
	out         io.Writer
	log         *zap.Logger
	interactive bool
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Console) { c.log = l }
}

// Interactive enables the prompt.
func Interactive(on bool) Option {
	return func(c *Console) { c.interactive = on }
}

// New returns a Console writing its output to out.
func New(store Store, out io.Writer, opts ...Option) *Console {
	c := &Console{
		store: store,
		out:   out,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes lines from in until EOF or a quit command. It returns the
// first persistence error; user errors are printed and do not stop the loop.
func (c *Console) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if c.interactive {
			fmt.Fprint(c.out, Prompt)
		}
		if !scanner.Scan() {
			break
		}
		stop, err := c.Execute(scanner.Text())
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	if c.interactive {
		fmt.Fprintln(c.out)
	}
	return scanner.Err()
}

// Execute runs a single command line. stop is true when the line asks the
// interpreter to exit. err is non-nil only when persisting failed.
func (c *Console) Execute(line string) (stop bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		c.println(fmt.Sprintf(msgUnknownSyntaxFmt, line))
		return false, nil
	}

	return c.ExecuteArgs(args)
}

// ExecuteArgs runs a command already split into words.
func (c *Console) ExecuteArgs(args []string) (stop bool, err error) {
	if len(args) == 0 {
		return false, nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		c.println(fmt.Sprintf(msgUnknownSyntaxFmt, strings.Join(args, " ")))
		return false, nil
	}
	c.log.Debug("command", zap.String("name", args[0]), zap.Int("args", len(args)-1))
	return cmd.run(c, args[1:])
}

func (c *Console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Commands returns the names of all commands in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Help returns the one-line description of a command.
func Help(name string) (string, bool) {
	cmd, ok := commands[name]
	if !ok {
		return "", false
	}
	return cmd.help, true
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"create":  {"create <class>: create an instance, save it and print its id", (*Console).create},
		"show":    {"show <class> <id>: print an instance", (*Console).show},
		"destroy": {"destroy <class> <id>: delete an instance and save", (*Console).destroy},
		"all":     {"all [class]: print all instances, optionally of one class", (*Console).all},
		"count":   {"count [class]: print the number of instances, optionally of one class", (*Console).count},
		"update":  {"update <class> <id> <attribute> <value>: set an attribute and save", (*Console).update},
		"help":    {"help [command]: list commands or describe one", (*Console).help},
		"quit":    {"quit: exit the program", (*Console).quit},
		"EOF":     {"EOF: exit the program", (*Console).eof},
	}
}
