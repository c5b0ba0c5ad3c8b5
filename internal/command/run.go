package command

import (
	"fmt"
	"strings"

	"kvbalancer/internal/request"
)

// Executor is the balancer surface a script drives.
type Executor interface {
	AddServer(id uint32, cacheCapacity int) error
	RemoveServer(id uint32) error
	ForwardRequest(req request.Request) (request.Response, error)
}

// Outcome is the result of one command. Response is set only for
// requests that were accepted.
type Outcome struct {
	Command  Command
	Response request.Response
	Err      error
}

// Run executes cmds in order. A failing command is recorded in its
// Outcome and the script continues.
func Run(ex Executor, cmds []Command) []Outcome {
	out := make([]Outcome, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, Apply(ex, cmd))
	}
	return out
}

// Apply executes a single command.
func Apply(ex Executor, cmd Command) Outcome {
	o := Outcome{Command: cmd}
	switch cmd.Op {
	case OpAddServer:
		o.Err = ex.AddServer(cmd.ServerID, cmd.CacheCapacity)
	case OpRemoveServer:
		o.Err = ex.RemoveServer(cmd.ServerID)
	case OpRequest:
		o.Response, o.Err = ex.ForwardRequest(cmd.Request)
	default:
		o.Err = fmt.Errorf("%w: unknown op %d", ErrSyntax, int(cmd.Op))
	}
	return o
}

// Format renders an outcome as one human-readable log line.
func Format(o Outcome) string {
	cmd := o.Command
	if o.Err != nil {
		return fmt.Sprintf("%s: error: %v", cmd, o.Err)
	}

	switch cmd.Op {
	case OpAddServer:
		return fmt.Sprintf("server %d added with cache capacity %d", cmd.ServerID, cmd.CacheCapacity)
	case OpRemoveServer:
		return fmt.Sprintf("server %d removed", cmd.ServerID)
	}

	resp := o.Response
	var b strings.Builder
	fmt.Fprintf(&b, "[server %d] %s %s: ", resp.ServerID, cmd.Request.Type, cmd.Request.Key)

	res := resp.Result
	switch res.Kind {
	case request.KindLazy:
		fmt.Fprintf(&b, "queued (depth %d)", res.QueueDepth)
		return b.String()
	case request.KindEvict:
		fmt.Fprintf(&b, "EVICT %s", res.EvictedKey)
	case request.KindFault:
		b.WriteString("FAULT document not found")
		return b.String()
	default:
		b.WriteString(res.Kind.String())
	}
	if resp.Found {
		fmt.Fprintf(&b, " %q", resp.Payload)
	}
	return b.String()
}
