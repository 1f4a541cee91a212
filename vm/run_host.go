package vm

func (v *VM) stepHost(inst Instr) (*Interrupt, error) {
	if v.Host == nil {
		switch inst.Op {
		case OpSpawn, OpSelf, OpSend, OpSendNamed, OpReceive, OpYield,
			OpRegister, OpUnregister, OpWhereis, OpLink, OpUnlink,
			OpMonitor, OpDemonitor, OpTrapExit,
			OpStartSupervisor, OpSuperviseChild, OpRestartChild:
			return nil, v.fault(RuntimeError, "%s outside a process", inst.Op)
		}
		return nil, v.fault(RuntimeError, "unknown opcode %s", inst.Op)
	}

	switch inst.Op {

	case OpSpawn:
		target, err := v.pop()
		if err != nil {
			return nil, err
		}
		pid, err := v.Host.Spawn(target)
		if err != nil {
			return nil, v.fault(RuntimeError, "spawn: %v", err)
		}
		return nil, v.push(pid)

	case OpSelf:
		return nil, v.push(v.Host.Self())

	case OpSend:
		msg, err := v.pop()
		if err != nil {
			return nil, err
		}
		to := inst.Arg
		if to == nil {
			to, err = v.pop()
			if err != nil {
				return nil, err
			}
		}
		pid, err := v.pidOf(to)
		if err != nil {
			return nil, err
		}
		v.Host.Send(pid, msg)

	case OpSendNamed:
		msg, err := v.pop()
		if err != nil {
			return nil, err
		}
		v.Host.SendNamed(inst.Name, msg)

	case OpReceive:
		msg, ok := v.Host.Receive()
		if !ok {
			v.IP--
			return InterruptBlock, nil
		}
		return nil, v.push(msg)

	case OpYield:
		return InterruptYield, nil

	case OpRegister:
		err := v.Host.Register(inst.Name)
		return nil, v.push(Bool(err == nil))

	case OpUnregister:
		return nil, v.push(Bool(v.Host.Unregister(inst.Name)))

	case OpWhereis:
		pid, ok := v.Host.Whereis(inst.Name)
		if !ok {
			return nil, v.push(Null{})
		}
		return nil, v.push(pid)

	case OpLink:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		pid, err := v.pidOf(val)
		if err != nil {
			return nil, err
		}
		return nil, v.push(Bool(v.Host.Link(pid)))

	case OpUnlink:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		pid, err := v.pidOf(val)
		if err != nil {
			return nil, err
		}
		v.Host.Unlink(pid)

	case OpMonitor:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		pid, err := v.pidOf(val)
		if err != nil {
			return nil, err
		}
		return nil, v.push(Str(v.Host.Monitor(pid)))

	case OpDemonitor:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		ref, ok := val.(Str)
		if !ok {
			return nil, v.fault(TypeMismatch, "monitor ref %s", TypeName(val))
		}
		return nil, v.push(Bool(v.Host.Demonitor(string(ref))))

	case OpTrapExit:
		val, err := v.pop()
		if err != nil {
			return nil, err
		}
		v.Host.TrapExit(Truthy(val))

	case OpStartSupervisor:
		v.Host.StartSupervisor()

	case OpSuperviseChild:
		target, err := v.pop()
		if err != nil {
			return nil, err
		}
		var restart string
		if s, ok := inst.Arg.(Str); ok {
			restart = string(s)
		}
		pid, err := v.Host.SuperviseChild(inst.Name, target, restart)
		if err != nil {
			return nil, v.fault(RuntimeError, "supervise %s: %v", inst.Name, err)
		}
		return nil, v.push(pid)

	case OpRestartChild:
		pid, ok, err := v.Host.RestartChild(inst.Name)
		if err != nil {
			return nil, v.fault(RuntimeError, "restart %s: %v", inst.Name, err)
		}
		if !ok {
			return nil, v.push(Null{})
		}
		return nil, v.push(pid)

	default:
		return nil, v.fault(RuntimeError, "unknown opcode %s", inst.Op)
	}

	return nil, nil
}

func (v *VM) pidOf(val Value) (PID, error) {
	switch val := val.(type) {
	case PID:
		return val, nil
	case Int:
		if val > 0 {
			return PID(val), nil
		}
	}
	return 0, v.fault(TypeMismatch, "expected pid, got %s", TypeName(val))
}
