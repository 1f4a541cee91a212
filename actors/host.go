package actors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/reusee/tvm/vm"
)

var _ vm.Host = new(Process)

var ErrNotSupervisor = errors.New("not a supervisor")

func (p *Process) Self() PID {
	return p.PID
}

func (p *Process) Spawn(target vm.Value) (PID, error) {
	spec, err := p.runtime.resolve(target, p)
	if err != nil {
		return 0, err
	}
	child := p.runtime.spawn(spec, p, 0, "")
	return child.PID, nil
}

func (p *Process) Send(to PID, msg vm.Value) {
	p.runtime.Send(to, Data{
		Value: vm.Clone(msg),
	})
}

func (p *Process) SendNamed(name string, msg vm.Value) {
	p.runtime.SendNamed(name, Data{
		Value: vm.Clone(msg),
	})
}

func (p *Process) Receive() (vm.Value, bool) {
	msg, ok := p.mailbox.Pop(func(msg Message) bool {
		return !isSystem(msg, p.trapExit)
	})
	if !ok {
		return nil, false
	}
	switch msg := msg.(type) {
	case Down:
		delete(p.monitors, msg.Ref)
	case Exit:
		delete(p.links, msg.From)
	}
	return toValue(msg), true
}

func (p *Process) Register(name string) error {
	return p.runtime.registry.Register(name, p.PID, p.runtime.alive)
}

func (p *Process) Unregister(name string) bool {
	return p.runtime.registry.Unregister(name)
}

func (p *Process) Whereis(name string) (PID, bool) {
	return p.runtime.registry.Whereis(name)
}

func (p *Process) Link(pid PID) bool {
	if pid == p.PID {
		return true
	}
	if !p.runtime.Send(pid, Link{From: p.PID}) {
		return false
	}
	p.links[pid] = struct{}{}
	return true
}

func (p *Process) Unlink(pid PID) {
	if _, ok := p.links[pid]; !ok {
		return
	}
	delete(p.links, pid)
	p.runtime.Send(pid, Unlink{From: p.PID})
}

func (p *Process) Monitor(pid PID) string {
	ref := uuid.NewString()
	if !p.runtime.Send(pid, Monitor{From: p.PID, Ref: ref}) {
		p.mailbox.Push(Down{
			PID:    pid,
			Ref:    ref,
			Reason: vm.Str("noproc"),
		})
		return ref
	}
	p.monitors[ref] = pid
	return ref
}

func (p *Process) Demonitor(ref string) bool {
	pid, ok := p.monitors[ref]
	if !ok {
		return false
	}
	delete(p.monitors, ref)
	p.runtime.Send(pid, Demonitor{From: p.PID, Ref: ref})
	// flush a notification that raced with the demonitor
	p.mailbox.Take(func(msg Message) bool {
		down, ok := msg.(Down)
		return ok && down.Ref == ref
	})
	return true
}

func (p *Process) TrapExit(on bool) {
	p.trapExit = on
}

func (p *Process) StartSupervisor() {
	if p.supervision == nil {
		p.supervision = newSupervision(p.runtime.policy)
	}
	p.trapExit = true
}

func (p *Process) SuperviseChild(name string, target vm.Value, restart string) (PID, error) {
	if p.supervision == nil {
		return 0, ErrNotSupervisor
	}
	restartType, err := ParseRestartType(restart)
	if err != nil {
		return 0, err
	}
	if old, ok := p.supervision.children[name]; ok && old.alive {
		return 0, fmt.Errorf("%w: child %s", ErrNameTaken, name)
	}
	spec, err := p.runtime.resolve(target, p)
	if err != nil {
		return 0, err
	}
	if holder, ok := p.runtime.registry.Whereis(name); ok && p.runtime.alive(holder) {
		return 0, fmt.Errorf("%w: %s -> %d", ErrNameTaken, name, holder)
	}
	c := &child{
		name:    name,
		spec:    spec,
		restart: restartType,
	}
	p.supervision.children[name] = c
	return p.startChild(c), nil
}

func (p *Process) RestartChild(name string) (PID, bool, error) {
	if p.supervision == nil {
		return 0, false, ErrNotSupervisor
	}
	c, ok := p.supervision.children[name]
	if !ok {
		return 0, false, fmt.Errorf("unknown child %s", name)
	}
	if c.alive {
		return c.pid, true, nil
	}
	pid, ok := p.restart(c)
	return pid, ok, nil
}

func (p *Process) Breakpoint(v *vm.VM) {
	p.runtime.breakpoint(p)
}
