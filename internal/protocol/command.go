package protocol

import (
	"bufio"
	"strconv"
	"strings"
)

// Command is the closed set of client messages. Lines are decoded once
// at the transport boundary; anything that fails to decode surfaces as
// Malformed or Unknown so the dispatcher has a single error path.
type Command interface {
	isCommand()
}

type Register struct {
	User string
	Pass string
}

type Login struct {
	User string
	Pass string
}

type RoomList struct {
	AsPlayer bool
}

type Create struct {
	Name string
}

type Join struct {
	Name     string
	AsPlayer bool
}

type Place struct {
	X int
	Y int
}

type Forfeit struct{}

type Quit struct{}

// Malformed is a recognized command word with bad arguments; Word keeps
// the command so the reply can carry that command's malformed code.
type Malformed struct {
	Word string
}

type Unknown struct {
	Word string
}

func (Register) isCommand()  {}
func (Login) isCommand()     {}
func (RoomList) isCommand()  {}
func (Create) isCommand()    {}
func (Join) isCommand()      {}
func (Place) isCommand()     {}
func (Forfeit) isCommand()   {}
func (Quit) isCommand()      {}
func (Malformed) isCommand() {}
func (Unknown) isCommand()   {}

const (
	ModePlayer = "PLAYER"
	ModeViewer = "VIEWER"
)

// ReadMessage reads one newline-framed message from the stream.
func ReadMessage(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// Parse decodes one framed message into a Command. It never fails: bad
// input maps to Malformed or Unknown.
func Parse(line string) Command {
	fields := strings.Split(line, ":")
	word := fields[0]
	args := fields[1:]

	switch word {
	case "REGISTER":
		if len(args) != 2 {
			return Malformed{Word: word}
		}
		return Register{User: args[0], Pass: args[1]}
	case "LOGIN":
		if len(args) != 2 {
			return Malformed{Word: word}
		}
		return Login{User: args[0], Pass: args[1]}
	case "ROOMLIST":
		if len(args) != 1 || !isMode(args[0]) {
			return Malformed{Word: word}
		}
		return RoomList{AsPlayer: args[0] == ModePlayer}
	case "CREATE":
		if len(args) != 1 {
			return Malformed{Word: word}
		}
		return Create{Name: args[0]}
	case "JOIN":
		if len(args) != 2 || !isMode(args[1]) {
			return Malformed{Word: word}
		}
		return Join{Name: args[0], AsPlayer: args[1] == ModePlayer}
	case "PLACE":
		if len(args) != 2 {
			return Malformed{Word: word}
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return Malformed{Word: word}
		}
		return Place{X: x, Y: y}
	case "FORFEIT":
		if len(args) != 0 {
			return Malformed{Word: word}
		}
		return Forfeit{}
	case "QUIT":
		if len(args) != 0 {
			return Malformed{Word: word}
		}
		return Quit{}
	default:
		return Unknown{Word: word}
	}
}

func isMode(mode string) bool {
	return mode == ModePlayer || mode == ModeViewer
}
