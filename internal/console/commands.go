package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

func (c *Console) create(args []string) (bool, error) {
	name, ok := c.className(args)
	if !ok {
		return false, nil
	}
	e, err := types.New(name, c.store)
	if err != nil {
		return false, err
	}
	if err := e.Core().Save(); err != nil {
		return false, fmt.Errorf("create %s: %w", name, err)
	}
	c.println(e.Core().ID)
	return false, nil
}

func (c *Console) show(args []string) (bool, error) {
	e, ok := c.lookup(args)
	if !ok {
		return false, nil
	}
	c.println(types.String(e))
	return false, nil
}

func (c *Console) destroy(args []string) (bool, error) {
	e, ok := c.lookup(args)
	if !ok {
		return false, nil
	}
	key := types.Key(e)
	if err := c.store.Delete(key); err != nil {
		c.println(msgNoInstance)
		return false, nil
	}
	if err := c.store.Persist(); err != nil {
		return false, fmt.Errorf("destroy %s: %w", key, err)
	}
	return false, nil
}

func (c *Console) all(args []string) (bool, error) {
	var name string
	if len(args) > 0 {
		name = args[0]
		if !types.Known(name) {
			c.println(msgClassUnknown)
			return false, nil
		}
	}
	for _, key := range c.store.Keys(name) {
		e, err := c.store.Get(key)
		if err != nil {
			continue
		}
		c.println(types.String(e))
	}
	return false, nil
}

func (c *Console) count(args []string) (bool, error) {
	var name string
	if len(args) > 0 {
		name = args[0]
		if !types.Known(name) {
			c.println(msgClassUnknown)
			return false, nil
		}
	}
	c.println(c.store.Count(name))
	return false, nil
}

func (c *Console) update(args []string) (bool, error) {
	e, ok := c.lookup(args)
	if !ok {
		return false, nil
	}
	if len(args) < 3 {
		c.println(msgAttrMissing)
		return false, nil
	}
	if len(args) < 4 {
		c.println(msgValueMissing)
		return false, nil
	}

	attr, value := args[2], coerce(args[3])
	if err := e.Core().Set(attr, value); err != nil {
		if errors.Is(err, types.ErrReservedField) {
			c.println(msgAttrReadOnly)
			return false, nil
		}
		return false, err
	}
	if err := e.Core().Save(); err != nil {
		return false, fmt.Errorf("update %s: %w", types.Key(e), err)
	}
	return false, nil
}

func (c *Console) help(args []string) (bool, error) {
	if len(args) > 0 {
		text, ok := Help(args[0])
		if !ok {
			c.println(fmt.Sprintf("*** No help on %s", args[0]))
			return false, nil
		}
		c.println(text)
		return false, nil
	}
	c.println("Documented commands (type help <topic>):")
	c.println(strings.Join(Commands(), "  "))
	return false, nil
}

func (c *Console) quit([]string) (bool, error) {
	return true, nil
}

func (c *Console) eof([]string) (bool, error) {
	c.println()
	return true, nil
}

// className validates the class argument, printing the matching message
// when it is absent or unknown.
func (c *Console) className(args []string) (string, bool) {
	if len(args) == 0 {
		c.println(msgClassMissing)
		return "", false
	}
	if !types.Known(args[0]) {
		c.println(msgClassUnknown)
		return "", false
	}
	return args[0], true
}

// lookup resolves "<class> <id>" arguments to a registered entity, printing
// the matching message on failure.
func (c *Console) lookup(args []string) (types.Entity, bool) {
	name, ok := c.className(args)
	if !ok {
		return nil, false
	}
	if len(args) < 2 {
		c.println(msgIDMissing)
		return nil, false
	}
	e, err := c.store.Get(name + "." + args[1])
	if err != nil {
		c.println(msgNoInstance)
		return nil, false
	}
	return e, true
}

// coerce converts an update value to a number when it parses as one: a
// value containing a decimal point becomes float64, any other integral
// text becomes int. Only plain decimal notation counts; hex, underscores,
// inf and nan stay text, as does everything else.
func coerce(s string) any {
	if strings.Trim(s, "0123456789+-.eE") != "" {
		return s
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
