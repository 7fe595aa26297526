// Package netmon watches connectivity to the remote store. The engine reads
// the current state synchronously at startup and reacts to the edge-triggered
// event stream afterwards.
package netmon

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// Monitor is the connectivity collaborator interface.
type Monitor interface {
	// Online reports the current connectivity state.
	Online() bool
	// Subscribe registers a callback invoked on every connected/disconnected
	// transition. The returned function cancels the subscription and is safe
	// to call more than once.
	Subscribe(cb func(online bool)) (cancel func())
}

// Config holds probing configuration
type Config struct {
	// Address is the host:port dialed to judge connectivity.
	Address string `toml:"address"`

	Interval    time.Duration `toml:"interval"`
	DialTimeout time.Duration `toml:"dial_timeout"`
}

// DefaultConfig returns probing defaults
func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Second,
		DialTimeout: 3 * time.Second,
	}
}

// Prober implements Monitor by periodically dialing the remote host.
// Notifications fire only on state changes.
type Prober struct {
	config Config
	logger *slog.Logger
	dial   func(addr string, timeout time.Duration) error

	mu          sync.Mutex
	online      bool
	subscribers map[int]func(bool)
	nextID      int

	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProber creates a prober. The initial state comes from one synchronous
// probe so callers never start with a stale default.
func NewProber(config Config, logger *slog.Logger) *Prober {
	p := &Prober{
		config:      config,
		logger:      logger,
		dial:        dialProbe,
		subscribers: make(map[int]func(bool)),
		shutdown:    make(chan struct{}),
	}
	p.online = p.probe()
	return p
}

func dialProbe(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *Prober) probe() bool {
	if p.config.Address == "" {
		return true
	}
	return p.dial(p.config.Address, p.config.DialTimeout) == nil
}

// Start launches the background probe loop.
func (p *Prober) Start() {
	p.wg.Add(1)
	go p.run()
}

func (p *Prober) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.update(p.probe())
		case <-p.shutdown:
			p.logger.Debug("connectivity prober shut down")
			return
		}
	}
}

// update records a probe result and notifies subscribers on a transition.
func (p *Prober) update(online bool) {
	p.mu.Lock()
	if p.online == online {
		p.mu.Unlock()
		return
	}
	p.online = online
	subs := make([]func(bool), 0, len(p.subscribers))
	for _, cb := range p.subscribers {
		subs = append(subs, cb)
	}
	p.mu.Unlock()

	p.logger.Info("connectivity changed", "online", online)
	for _, cb := range subs {
		cb(online)
	}
}

// Online reports the last observed connectivity state.
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Subscribe registers a transition callback.
func (p *Prober) Subscribe(cb func(online bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = cb

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers, id)
		})
	}
}

// Shutdown stops the probe loop and waits for it to exit. Safe to call more
// than once.
func (p *Prober) Shutdown() {
	p.stopOnce.Do(func() { close(p.shutdown) })
	p.wg.Wait()
}
