// cmd/halshell/main.go
//
// Interactive console over a simulated port: acquire and drive pins, stand
// up chip-select managers, and run conversations against an echo bus.
// Useful for poking the arbitration rules without hardware.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"pinhal-go/chipselect"
	"pinhal-go/conversation"
	"pinhal-go/hal"
	"pinhal-go/ports/simport"
)

const pinCount = 16

// echoTalker is a stand-in bus: input parts receive a rolling counter so
// extraction has something deterministic to read.
type echoTalker struct{ next byte }

func (t *echoTalker) Converse(_ context.Context, c *conversation.Conversation) error {
	for i := 0; i < c.NumParts(); i++ {
		v := c.View(i)
		if v.Dir != conversation.In {
			continue
		}
		for j := range v.Bytes {
			v.Bytes[j] = t.next
			t.next++
		}
	}
	return nil
}

type shell struct {
	port   *simport.Port
	logger *zap.Logger

	pins     map[hal.PinID]*hal.PinAccess
	manager  chipselect.Manager
	accesses map[int]*chipselect.ChipAccess
	talker   echoTalker
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	sh := &shell{
		port:     simport.New("sim0", pinCount),
		logger:   logger,
		pins:     make(map[hal.PinID]*hal.PinAccess),
		accesses: make(map[int]*chipselect.ChipAccess),
	}

	fmt.Printf("halshell: %d simulated pins; 'help' lists commands\n", pinCount)
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		args, err := shlex.Split(in.Text())
		if err != nil {
			fmt.Println("parse:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return
		}
		if err := sh.run(args); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (s *shell) run(args []string) error {
	switch args[0] {
	case "help":
		fmt.Print(helpText)
	case "acquire":
		id, err := pinArg(args, 1)
		if err != nil {
			return err
		}
		tok, err := s.port.Acquire(id)
		if err != nil {
			return err
		}
		s.pins[id] = tok
		fmt.Printf("pin %d acquired\n", id)
	case "retire":
		id, err := pinArg(args, 1)
		if err != nil {
			return err
		}
		s.pins[id].Retire()
		delete(s.pins, id)
	case "set":
		id, err := pinArg(args, 1)
		if err != nil {
			return err
		}
		tok, ok := s.pins[id]
		if !ok {
			return fmt.Errorf("pin %d not acquired", id)
		}
		if err := tok.Configure(hal.Output(hal.Low)); err != nil {
			return err
		}
		return tok.Set(hal.Level(len(args) > 2 && args[2] == "high"))
	case "get":
		id, err := pinArg(args, 1)
		if err != nil {
			return err
		}
		fmt.Println(s.port.LevelOf(id))
	case "cs":
		return s.setupManager(args[1:])
	case "access":
		chip, err := intArg(args, 1)
		if err != nil {
			return err
		}
		if s.manager == nil {
			return fmt.Errorf("no manager; use 'cs' first")
		}
		acc, err := s.manager.Access(chip)
		if err != nil {
			return err
		}
		s.accesses[chip] = acc
		fmt.Printf("chip %d access granted\n", chip)
	case "select", "deselect", "csretire":
		chip, err := intArg(args, 1)
		if err != nil {
			return err
		}
		acc, ok := s.accesses[chip]
		if !ok {
			return fmt.Errorf("no access for chip %d", chip)
		}
		switch args[0] {
		case "select":
			return acc.Select()
		case "deselect":
			return acc.Deselect()
		default:
			acc.Retire()
			delete(s.accesses, chip)
		}
	case "talk":
		return s.talk(args[1:])
	case "status":
		for id := hal.PinID(0); id < pinCount; id++ {
			owned := ""
			if s.port.Held(id) {
				owned = " (owned)"
			}
			fmt.Printf("  pin %2d: %s%s\n", id, s.port.LevelOf(id), owned)
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

// setupManager: cs dedicated <pin> [active_high] | binary <pin> |
// bitmask <activemask> <pins...> | mux <pins...>
func (s *shell) setupManager(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cs: missing strategy")
	}
	if s.manager != nil {
		if err := s.manager.Shutdown(); err != nil {
			return err
		}
		s.accesses = make(map[int]*chipselect.ChipAccess)
	}
	switch args[0] {
	case "dedicated":
		id, err := pinArg(args, 1)
		if err != nil {
			return err
		}
		tok, err := s.port.Acquire(id)
		if err != nil {
			return err
		}
		pol := chipselect.ActiveLow
		if len(args) > 2 && args[2] == "active_high" {
			pol = chipselect.ActiveHigh
		}
		m := chipselect.NewDedicated()
		if err := m.SetSelectPin(tok, pol); err != nil {
			tok.Retire()
			return err
		}
		s.manager = m
	case "binary":
		id, err := pinArg(args, 1)
		if err != nil {
			return err
		}
		tok, err := s.port.Acquire(id)
		if err != nil {
			return err
		}
		m := chipselect.NewBinary()
		if err := m.SetSelectPin(tok); err != nil {
			tok.Retire()
			return err
		}
		s.manager = m
	case "bitmask":
		if len(args) < 3 {
			return fmt.Errorf("cs bitmask <activemask> <pins...>")
		}
		mask, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return err
		}
		set, err := s.acquireSet(args[2:])
		if err != nil {
			return err
		}
		m := chipselect.NewBitmask()
		if err := m.SetSelectPins(set, uint32(mask)); err != nil {
			set.Retire()
			return err
		}
		s.manager = m
	case "mux":
		set, err := s.acquireSet(args[1:])
		if err != nil {
			return err
		}
		m := chipselect.NewMux()
		if err := m.SetSelectPins(set); err != nil {
			set.Retire()
			return err
		}
		s.manager = m
	default:
		return fmt.Errorf("unknown strategy %q", args[0])
	}
	s.logger.Info("manager configured", zap.String("strategy", args[0]))
	return nil
}

func (s *shell) acquireSet(args []string) (*hal.PinSetAccess, error) {
	ids := make([]hal.PinID, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, hal.PinID(n))
	}
	return s.port.AcquireSet(ids...)
}

// talk <outhex> <inlen>: send bytes, read inlen from the echo bus.
func (s *shell) talk(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("talk <outhex> <inlen>")
	}
	out, err := hex.DecodeString(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	c := conversation.New()
	if err := c.AddOutputVector().AppendBytes(out); err != nil {
		return err
	}
	c.AddInputVector(n)
	if err := s.talker.Converse(context.Background(), c); err != nil {
		return err
	}
	got := make([]byte, n)
	if err := conversation.NewExtractor(c).Read(got); err != nil {
		return err
	}
	fmt.Printf("received %s\n", hex.EncodeToString(got))
	return nil
}

func pinArg(args []string, i int) (hal.PinID, error) {
	n, err := intArg(args, i)
	return hal.PinID(n), err
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing argument")
	}
	return strconv.Atoi(strings.TrimSpace(args[i]))
}

const helpText = `  acquire <pin>          take the exclusive token for a pin
  retire <pin>           give it back
  set <pin> high|low     drive an acquired pin
  get <pin>              show a pin's level
  cs dedicated <pin> [active_high]
  cs binary <pin>
  cs bitmask <mask> <pins...>
  cs mux <pins...>       configure a chip-select manager
  access <chip>          mint a chip access
  select/deselect <chip>
  csretire <chip>        retire a chip access
  talk <outhex> <inlen>  run a conversation against the echo bus
  status                 dump pin levels
  quit
`
