package actors

import "sync"

// Deque is a growable ring buffer of processes.
type Deque struct {
	mu   sync.Mutex
	buf  []*Process
	head int
	size int
}

func (d *Deque) PushBack(p *Process) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.size == len(d.buf) {
		d.grow()
	}
	d.buf[(d.head+d.size)%len(d.buf)] = p
	d.size++
}

func (d *Deque) grow() {
	newCap := len(d.buf) * 2
	if newCap == 0 {
		newCap = 16
	}
	buf := make([]*Process, newCap)
	for i := range d.size {
		buf[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = buf
	d.head = 0
}

func (d *Deque) PopFront() *Process {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.size == 0 {
		return nil
	}
	p := d.buf[d.head]
	d.buf[d.head] = nil
	d.head = (d.head + 1) % len(d.buf)
	d.size--
	return p
}

func (d *Deque) PopBack() *Process {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.size == 0 {
		return nil
	}
	i := (d.head + d.size - 1) % len(d.buf)
	p := d.buf[i]
	d.buf[i] = nil
	d.size--
	return p
}

func (d *Deque) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}
