/*

Execution guards shared by the engines: the administrator capability, the
global pause gate and the re-entrancy guard. Each is an explicit object
handed to an engine at construction rather than ambient global state.

*/

package guard

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atrium-fi/ace/internal/types"
)

// AdminCapability answers whether a caller may invoke administrator-only
// operations. Engines query it as a boolean and never cache the answer.
type AdminCapability interface {
	IsAdministrator(caller common.Address) bool
}

// StaticAdmin is an AdminCapability backed by a fixed address set.
type StaticAdmin struct {
	admins map[common.Address]struct{}
}

// NewStaticAdmin builds a capability recognising exactly the given addresses.
func NewStaticAdmin(addrs ...common.Address) *StaticAdmin {
	admins := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		admins[a] = struct{}{}
	}
	return &StaticAdmin{admins: admins}
}

func (s *StaticAdmin) IsAdministrator(caller common.Address) bool {
	_, ok := s.admins[caller]
	return ok
}

// PauseGate is the global boolean gate checked before any state-changing
// operation.
type PauseGate struct {
	paused atomic.Bool
}

func NewPauseGate() *PauseGate {
	return &PauseGate{}
}

func (p *PauseGate) Pause()   { p.paused.Store(true) }
func (p *PauseGate) Unpause() { p.paused.Store(false) }

func (p *PauseGate) IsPaused() bool {
	return p.paused.Load()
}

// ReentrancyGuard provides scoped exclusive access for functions that issue
// outbound transfers. Enter must be paired with Exit on every return path.
type ReentrancyGuard struct {
	mu     sync.Mutex
	locked bool
}

func NewReentrancyGuard() *ReentrancyGuard {
	return &ReentrancyGuard{}
}

// Enter acquires the guard, failing instead of blocking when the guard is
// already held. Within one serialized call a second Enter can only mean a
// callee re-entered the engine.
func (g *ReentrancyGuard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return types.ErrReentrancy
	}
	g.locked = true
	return nil
}

// Exit releases the guard.
func (g *ReentrancyGuard) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = false
}
