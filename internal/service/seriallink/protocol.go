package seriallink

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one line of the actuator protocol:
//
//	M,<base>,<shoulder1>,<shoulder2>,<claw>\n   move to four integer angles
//	HOME\n                                       return to the firmware home pose
type Command struct {
	Home      bool
	Base      int
	Shoulder1 int
	Shoulder2 int
	Claw      int
}

func Move(base, shoulder1, shoulder2, claw int) Command {
	return Command{Base: base, Shoulder1: shoulder1, Shoulder2: shoulder2, Claw: claw}
}

func Home() Command {
	return Command{Home: true}
}

// String returns the newline-terminated wire form.
func (c Command) String() string {
	if c.Home {
		return "HOME\n"
	}
	return fmt.Sprintf("M,%d,%d,%d,%d\n", c.Base, c.Shoulder1, c.Shoulder2, c.Claw)
}

// ParseCommand reads one wire line, with or without its trailing newline.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "HOME" {
		return Home(), nil
	}

	fields := strings.Split(line, ",")
	if len(fields) != 5 || fields[0] != "M" {
		return Command{}, fmt.Errorf("unrecognized command %q", line)
	}
	var angles [4]int
	for i, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Command{}, fmt.Errorf("bad angle %q in %q: %w", f, line, err)
		}
		angles[i] = v
	}
	return Move(angles[0], angles[1], angles[2], angles[3]), nil
}
