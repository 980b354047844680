// Package sim implements an in-memory kernel.  It provides endpoint
// objects, per-process capability spaces and badge minting with the
// same observable semantics as the real syscall layer, so that userland
// services can be exercised without hardware.
package sim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wetware/naive/kernel"
)

// Kernel owns the set of simulated processes.
type Kernel struct {
	mu    sync.Mutex
	procs map[uuid.UUID]*Process
}

// New simulated kernel.
func New() *Kernel {
	return &Kernel{procs: make(map[uuid.UUID]*Process)}
}

// Spawn a process with an empty capability space.
func (k *Kernel) Spawn(name string, opt ...Option) *Process {
	p := &Process{
		id:    uuid.New(),
		name:  name,
		slots: make(map[kernel.Slot]capability),
		alloc: make(map[kernel.Slot]struct{}),
		next:  kernel.NullSlot + 1,
	}

	for _, option := range withDefault(opt) {
		option(p)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.procs[p.id] = p
	return p
}

// Procs returns the number of live processes.
func (k *Kernel) Procs() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.procs)
}

// Exit tears down the process's capability space.
func (k *Kernel) Exit(p *Process) {
	k.mu.Lock()
	delete(k.procs, p.id)
	k.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.slots = make(map[kernel.Slot]capability)
	p.alloc = make(map[kernel.Slot]struct{})
	p.free = nil
}

// Grant copies the capability held by 'from' in slot into a freshly
// allocated slot of 'to'.  This is how a parent hands capabilities to a
// child at spawn time.
func (k *Kernel) Grant(from *Process, slot kernel.Slot, to *Process) (kernel.Slot, error) {
	c, err := from.lookup("grant", slot)
	if err != nil {
		return kernel.NullSlot, err
	}

	dest, err := to.Alloc()
	if err != nil {
		return kernel.NullSlot, err
	}

	if err = to.install(dest, c); err != nil {
		to.Free(dest)
		return kernel.NullSlot, err
	}

	return dest, nil
}

// capability is an entry in a capability space.
type capability struct {
	obj   *endpoint
	badge kernel.Badge
}

func syscallError(op string, slot kernel.Slot, cause error) error {
	return kernel.SyscallError{Op: op, Slot: slot, Cause: cause}
}

func (p *Process) String() string {
	return fmt.Sprintf("%s[%s]", p.name, p.id.String()[:8])
}
