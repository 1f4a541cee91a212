package actors

import (
	"fmt"
	"time"
)

// RestartPolicy bounds restarts per child within a sliding window.
type RestartPolicy struct {
	MaxRestarts int
	Window      time.Duration
}

var DefaultRestartPolicy = RestartPolicy{
	MaxRestarts: 3,
	Window:      60 * time.Second,
}

type RestartType uint8

const (
	// always restarted
	Permanent RestartType = iota
	// restarted after abnormal exits only
	Transient
	// never restarted
	Temporary
)

func ParseRestartType(str string) (RestartType, error) {
	switch str {
	case "", "permanent":
		return Permanent, nil
	case "transient":
		return Transient, nil
	case "temporary":
		return Temporary, nil
	}
	return 0, fmt.Errorf("bad restart type: %s", str)
}

func (r RestartType) String() string {
	switch r {
	case Permanent:
		return "permanent"
	case Transient:
		return "transient"
	case Temporary:
		return "temporary"
	}
	return fmt.Sprintf("RestartType(%d)", uint8(r))
}

// Supervision is the child table of a supervisor process.
type Supervision struct {
	policy   RestartPolicy
	children map[string]*child
	byPID    map[PID]*child
	now      func() time.Time
}

type child struct {
	name     string
	spec     spawnSpec
	restart  RestartType
	pid      PID
	alive    bool
	restarts []time.Time
	starts   int
}

func newSupervision(policy RestartPolicy) *Supervision {
	return &Supervision{
		policy:   policy,
		children: make(map[string]*child),
		byPID:    make(map[PID]*child),
		now:      time.Now,
	}
}

func (p *Process) startChild(c *child) PID {
	proc := p.runtime.spawn(c.spec, p, p.PID, c.name)
	c.pid = proc.PID
	c.alive = true
	c.starts++
	p.supervision.byPID[proc.PID] = c
	return proc.PID
}

func (p *Process) childExited(msg ChildExit) {
	if p.supervision == nil {
		return
	}
	c, ok := p.supervision.byPID[msg.PID]
	if !ok {
		return
	}
	delete(p.supervision.byPID, msg.PID)
	c.alive = false

	switch c.restart {
	case Temporary:
		return
	case Transient:
		if isNormal(msg.Reason) {
			return
		}
	}
	p.restart(c)
}

// restart respawns c unless it used up its restarts in the current window.
func (p *Process) restart(c *child) (PID, bool) {
	s := p.supervision
	now := s.now()
	cutoff := now.Add(-s.policy.Window)
	kept := c.restarts[:0]
	for _, t := range c.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.restarts = kept

	if len(c.restarts) >= s.policy.MaxRestarts {
		p.runtime.logger.WarnContext(p.ctx, "restart limit reached",
			"supervisor", uint64(p.PID),
			"child", c.name,
			"restarts", len(c.restarts),
			"window", s.policy.Window,
		)
		return 0, false
	}

	c.restarts = append(c.restarts, now)
	pid := p.startChild(c)
	p.runtime.logger.InfoContext(p.ctx, "child restarted",
		"supervisor", uint64(p.PID),
		"child", c.name,
		"pid", uint64(pid),
	)
	return pid, true
}
