package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/famish99/multiroomd/internal/errdefs"
)

// ACK error codes, numbered as in MPD.
const (
	ackErrorArg     = 2
	ackErrorUnknown = 5
	ackErrorSystem  = 52
	ackErrorNoExist = 50
	ackErrorExist   = 56
)

// handleCommand runs one command line. idx is its position in a command
// list.
func (s *Server) handleCommand(line string, idx int) string {
	args, err := tokenize(line)
	if err != nil {
		return ack(ackErrorArg, idx, "", err.Error())
	}
	if len(args) == 0 {
		return "OK\n"
	}

	command := strings.ToLower(args[0])
	args = args[1:]
	r := &request{server: s, command: command, args: args, idx: idx}

	switch command {
	case "ping":
		return "OK\n"

	case "players":
		return r.cmdPlayers()

	case "status":
		return r.cmdStatus()

	case "providers":
		return r.cmdProviders()

	case "devices":
		return r.cmdDevices()

	case "create":
		return r.cmdCreate()

	case "update":
		return r.cmdUpdate()

	case "delete":
		return r.cmdDelete()

	case "start":
		return r.cmdStart()

	case "stop":
		return r.cmdStop()

	case "getvol":
		return r.cmdGetVolume()

	case "setvol":
		return r.cmdSetVolume()

	case "controls":
		return r.cmdControls()

	case "nowplaying":
		return r.cmdNowPlaying()

	default:
		return ack(ackErrorUnknown, idx, command, "unknown command")
	}
}

type request struct {
	server  *Server
	command string
	args    []string
	idx     int
}

func (r *request) ack(code int, format string, a ...any) string {
	return ack(code, r.idx, r.command, fmt.Sprintf(format, a...))
}

// fail maps an orchestrator error to its ACK line.
func (r *request) fail(err error) string {
	code := ackErrorSystem
	switch {
	case errors.Is(err, errdefs.ErrAlreadyExists), errors.Is(err, errdefs.ErrAlreadyRunning):
		code = ackErrorExist
	case errors.Is(err, errdefs.ErrValidation):
		code = ackErrorArg
	case errors.Is(err, errdefs.ErrNotFound):
		code = ackErrorNoExist
	}
	return ack(code, r.idx, r.command, err.Error())
}

// need checks the argument count is between lo and hi (-1 for no limit).
func (r *request) need(lo, hi int) (string, bool) {
	n := len(r.args)
	if n < lo || (hi >= 0 && n > hi) {
		return r.ack(ackErrorArg, "wrong number of arguments for %q", r.command), false
	}
	return "", true
}

func ack(code, idx int, command, msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return fmt.Sprintf("ACK [%d@%d] {%s} %s\n", code, idx, command, msg)
}
