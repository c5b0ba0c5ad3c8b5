package it

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"kvbalancer/internal/balancer"
	"kvbalancer/internal/command"
	"kvbalancer/internal/logging"
	"kvbalancer/internal/request"
)

// Cluster is an in-process balancer driven through command scripts, with
// its logs captured for inspection.
type Cluster struct {
	mu     sync.Mutex
	lb     *balancer.Balancer
	caches map[uint32]int
	logs   bytes.Buffer
}

// NewCluster creates an empty cluster. The logger in opts is replaced by
// one writing JSON at debug level into the cluster's log buffer.
func NewCluster(opts balancer.Options) (*Cluster, error) {
	c := &Cluster{caches: make(map[uint32]int)}
	logger, err := logging.New(&c.logs, "debug", logging.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	opts.Logger = &logger
	c.lb = balancer.New(opts)
	return c, nil
}

// StartCluster adds servers 1..n, each with the given cache capacity.
func (c *Cluster) StartCluster(n int, cacheCapacity int) error {
	for i := 1; i <= n; i++ {
		if err := c.StartNode(uint32(i), cacheCapacity); err != nil {
			return fmt.Errorf("failed to start node %d: %w", i, err)
		}
	}
	return nil
}

// StartNode adds a single server.
func (c *Cluster) StartNode(id uint32, cacheCapacity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lb.AddServer(id, cacheCapacity); err != nil {
		return err
	}
	c.caches[id] = cacheCapacity
	return nil
}

// KillNode removes a server, migrating its documents.
func (c *Cluster) KillNode(id uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lb.RemoveServer(id); err != nil {
		return fmt.Errorf("failed to kill node %d: %w", id, err)
	}
	return nil
}

// RestartNode removes a server and adds it back with its previous cache
// capacity.
func (c *Cluster) RestartNode(id uint32) error {
	c.mu.Lock()
	capacity, ok := c.caches[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("node %d not found", id)
	}

	if err := c.KillNode(id); err != nil {
		return err
	}
	return c.StartNode(id, capacity)
}

// Run parses and executes a script.
func (c *Cluster) Run(script string) ([]command.Outcome, error) {
	cmds, err := command.Parse(strings.NewReader(script))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return command.Run(c.lb, cmds), nil
}

// Edit forwards an EDIT.
func (c *Cluster) Edit(key, content string) (request.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lb.ForwardRequest(request.Edit(key, []byte(content)))
}

// Get forwards a GET.
func (c *Cluster) Get(key string) (request.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lb.ForwardRequest(request.Get(key))
}

// Balancer returns the underlying balancer.
func (c *Cluster) Balancer() *balancer.Balancer {
	return c.lb
}

// GetNode returns the listing for server id.
func (c *Cluster) GetNode(id uint32) (balancer.ServerInfo, bool) {
	for _, s := range c.lb.Servers() {
		if s.ID == id {
			return s, true
		}
	}
	return balancer.ServerInfo{}, false
}

// Logs returns the captured log lines.
func (c *Cluster) Logs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Split(strings.TrimSpace(c.logs.String()), "\n")
}

// Stop closes the balancer.
func (c *Cluster) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.lb.Close()
}
