// Package command parses driver scripts into topology changes and
// document requests, and replays them against a balancer.
//
// A script is line oriented:
//
//	ADD_SERVER <id> <cache_capacity>
//	REMOVE_SERVER <id>
//	EDIT <document> "<content>"
//	GET <document>
//
// Blank lines and lines starting with # are skipped. EDIT content may be
// a Go-style quoted string or the raw rest of the line.
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"kvbalancer/internal/request"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("syntax error")

// Op is the kind of a script line.
type Op int

const (
	OpAddServer Op = iota + 1
	OpRemoveServer
	OpRequest
)

func (o Op) String() string {
	switch o {
	case OpAddServer:
		return "ADD_SERVER"
	case OpRemoveServer:
		return "REMOVE_SERVER"
	case OpRequest:
		return "REQUEST"
	default:
		return "UNKNOWN"
	}
}

// Command is one parsed script line.
type Command struct {
	Line          int
	Op            Op
	ServerID      uint32
	CacheCapacity int
	Request       request.Request
}

func (c Command) String() string {
	switch c.Op {
	case OpAddServer:
		return fmt.Sprintf("ADD_SERVER %d %d", c.ServerID, c.CacheCapacity)
	case OpRemoveServer:
		return fmt.Sprintf("REMOVE_SERVER %d", c.ServerID)
	case OpRequest:
		if c.Request.Type == request.TypeEdit {
			return fmt.Sprintf("EDIT %s %q", c.Request.Key, c.Request.Content)
		}
		return fmt.Sprintf("%s %s", c.Request.Type, c.Request.Key)
	default:
		return "UNKNOWN"
	}
}

// Parse reads a whole script. Errors carry the 1-based line number.
func Parse(r io.Reader) ([]Command, error) {
	var cmds []Command
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		cmd, ok, err := ParseLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if !ok {
			continue
		}
		cmd.Line = n
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return cmds, nil
}

// ParseLine parses one line. It returns ok=false for blank and comment
// lines.
func ParseLine(line string) (Command, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}, false, nil
	}

	op, rest := splitWord(line)
	switch strings.ToUpper(op) {
	case "ADD_SERVER":
		args := strings.Fields(rest)
		if len(args) != 2 {
			return Command{}, false, fmt.Errorf("%w: ADD_SERVER takes <id> <cache_capacity>", ErrSyntax)
		}
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, false, err
		}
		capacity, err := strconv.Atoi(args[1])
		if err != nil {
			return Command{}, false, fmt.Errorf("%w: cache capacity %q", ErrSyntax, args[1])
		}
		return Command{Op: OpAddServer, ServerID: id, CacheCapacity: capacity}, true, nil

	case "REMOVE_SERVER":
		args := strings.Fields(rest)
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: REMOVE_SERVER takes <id>", ErrSyntax)
		}
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, false, err
		}
		return Command{Op: OpRemoveServer, ServerID: id}, true, nil

	case "GET":
		args := strings.Fields(rest)
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("%w: GET takes <document>", ErrSyntax)
		}
		return Command{Op: OpRequest, Request: request.Get(args[0])}, true, nil

	case "EDIT":
		key, raw := splitWord(rest)
		if key == "" || raw == "" {
			return Command{}, false, fmt.Errorf("%w: EDIT takes <document> <content>", ErrSyntax)
		}
		content := raw
		if strings.HasPrefix(raw, `"`) {
			unquoted, err := strconv.Unquote(raw)
			if err != nil {
				return Command{}, false, fmt.Errorf("%w: content %s: %v", ErrSyntax, raw, err)
			}
			content = unquoted
		}
		return Command{Op: OpRequest, Request: request.Edit(key, []byte(content))}, true, nil

	default:
		return Command{}, false, fmt.Errorf("%w: unknown command %q", ErrSyntax, op)
	}
}

// splitWord returns the first whitespace-delimited word of s and the
// trimmed remainder.
func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: server id %q", ErrSyntax, s)
	}
	return uint32(id), nil
}
