package vm

type Interrupt struct {
	// YIELD executed, resume after it
	Yield bool
	// RECEIVE found no message, resume at the RECEIVE
	Block bool
	// reduction budget exhausted
	Preempt bool
	// HALT, EXIT or end of code
	Exit   bool
	Reason Value
}

var (
	InterruptYield = &Interrupt{
		Yield: true,
	}
	InterruptBlock = &Interrupt{
		Block: true,
	}
	InterruptPreempt = &Interrupt{
		Preempt: true,
	}
)

// Normal is the exit reason of a process that finished without error.
const Normal = Str("normal")

func InterruptExit(reason Value) *Interrupt {
	return &Interrupt{
		Exit:   true,
		Reason: reason,
	}
}
