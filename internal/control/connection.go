package control

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// handleConnection serves one client until it disconnects or sends close.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	log := s.logger.With(zap.String("remote", conn.RemoteAddr().String()))
	log.Debug("client connected")
	defer log.Debug("client disconnected")

	fmt.Fprintf(conn, "OK MULTIROOMD %s\n", ProtocolVersion)

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Debug("connection read error", zap.Error(err))
		}
	}()

	var (
		inCommandList bool
		commandListOk bool // list_OK after each command
		listIndex     int
		listFailed    bool
		listResponses strings.Builder
		pending       string
	)

	for {
		line := pending
		pending = ""
		if line == "" {
			var ok bool
			select {
			case line, ok = <-lines:
				if !ok {
					return
				}
			case <-s.ctx.Done():
				return
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		log.Debug("command", zap.String("line", line))

		switch line {
		case "command_list_begin", "command_list_ok_begin":
			inCommandList = true
			commandListOk = line == "command_list_ok_begin"
			listIndex = 0
			listFailed = false
			listResponses.Reset()
			continue

		case "command_list_end":
			if inCommandList {
				if !listFailed {
					listResponses.WriteString("OK\n")
				}
				fmt.Fprint(conn, listResponses.String())
				inCommandList = false
				listResponses.Reset()
			}
			continue

		case "close":
			return

		case "noidle":
			// not idling, nothing to cancel
			if !inCommandList {
				fmt.Fprint(conn, "OK\n")
			}
			continue
		}

		if strings.HasPrefix(line, "idle") && (len(line) == 4 || line[4] == ' ') && !inCommandList {
			var response string
			response, pending = s.idle(strings.Fields(line)[1:], lines)
			fmt.Fprint(conn, response)
			continue
		}

		if inCommandList {
			if listFailed {
				continue
			}
			response := s.handleCommand(line, listIndex)
			listIndex++
			if strings.HasPrefix(response, "ACK ") {
				listFailed = true
				listResponses.WriteString(response)
				continue
			}
			listResponses.WriteString(strings.TrimSuffix(response, "OK\n"))
			if commandListOk {
				listResponses.WriteString("list_OK\n")
			}
			continue
		}

		fmt.Fprint(conn, s.handleCommand(line, 0))
	}
}

// idle blocks until a watched subsystem changes or the client sends
// another line. A line other than noidle is returned so the caller runs it
// after the idle response.
func (s *Server) idle(args []string, lines <-chan string) (response, next string) {
	subsystems := make(map[string]bool)
	for _, arg := range args {
		subsystems[strings.ToLower(arg)] = true
	}

	idle := &idleConnection{
		subsystems: subsystems,
		notify:     make(chan string, 10),
	}
	s.registerIdle(idle)
	defer s.unregisterIdle(idle)

	select {
	case subsystem := <-idle.notify:
		return fmt.Sprintf("changed: %s\nOK\n", subsystem), ""
	case line, ok := <-lines:
		if !ok || strings.TrimSpace(line) == "noidle" {
			return "OK\n", ""
		}
		return "OK\n", line
	case <-s.ctx.Done():
		return "OK\n", ""
	}
}

// tokenize splits a command line into arguments. Arguments may be double
// quoted; inside quotes a backslash escapes the next character.
func tokenize(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		hasArg  bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
			hasArg = true
		case !inQuote && (r == ' ' || r == '\t'):
			if hasArg {
				args = append(args, cur.String())
				cur.Reset()
				hasArg = false
			}
		default:
			cur.WriteRune(r)
			hasArg = true
		}
	}

	if inQuote || escaped {
		return nil, fmt.Errorf("unterminated quoted argument")
	}
	if hasArg {
		args = append(args, cur.String())
	}
	return args, nil
}
