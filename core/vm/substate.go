package vm

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
)

// ExitKind selects how a frame's substate folds (or doesn't) into its
// parent on exit.
type ExitKind int

const (
	ExitSucceeded ExitKind = iota
	ExitReverted
	ExitFailed
)

// Substate is one journal layer on the substate stack, scoped to one
// message call or contract creation (spec §3, "Substate frame").
type Substate struct {
	Gasometer Gasometer
	State     map[Address]*Account
	Deleted   mapset.Set[Address]
	Logs      []LogEntry
	IsStatic  bool
	Depth     *int // nil at the outermost, pre-transaction frame
}

func newFrame(gasometer Gasometer, isStatic bool, depth *int) *Substate {
	return &Substate{
		Gasometer: gasometer,
		State:     make(map[Address]*Account),
		Deleted:   mapset.NewThreadUnsafeSet[Address](),
		IsStatic:  isStatic,
		Depth:     depth,
	}
}

// SubstateStack is the layered journal of account/storage/log/deleted
// mutations, with merge/rollback on frame exit (spec §4.1). It is never
// empty: the outermost frame has Depth == nil.
type SubstateStack struct {
	frames []*Substate
}

// newSubstateStack starts the stack with the pre-transaction frame.
func newSubstateStack(gasometer Gasometer) *SubstateStack {
	return &SubstateStack{frames: []*Substate{newFrame(gasometer, false, nil)}}
}

// top is the only frame writable through the public API at any given time.
func (s *SubstateStack) top() *Substate {
	return s.frames[len(s.frames)-1]
}

// Depth returns len(frames)-1, the number of entered (non-outermost) frames.
func (s *SubstateStack) Depth() int {
	return len(s.frames) - 1
}

// Enter pushes a new frame. IsStatic is parent.IsStatic || isStatic
// (monotonic propagation, invariant 4); Depth is 0 below the outermost
// frame, else parent.Depth+1.
func (s *SubstateStack) Enter(gasometer Gasometer, isStatic bool) {
	parent := s.top()
	var depth *int
	if parent.Depth == nil {
		d := 0
		depth = &d
	} else {
		d := *parent.Depth + 1
		depth = &d
	}
	log.Trace("evm: enter substate", "depth", depth, "static", isStatic || parent.IsStatic)
	s.frames = append(s.frames, newFrame(gasometer, isStatic || parent.IsStatic, depth))
}

// Exit pops the top frame and folds (or discards) it into its new top
// according to kind. It panics if called on the outermost frame, the same
// contract the reference executor enforces with `assert!(len > 1)`.
//
// Logs are appended to the parent for all three exit kinds — including
// Failed — preserving the reference executor's (surprising, and explicitly
// left unresolved by spec.md's open questions) behavior: exit_substate
// appends the child's logs to the parent before branching on kind at all.
func (s *SubstateStack) Exit(kind ExitKind) error {
	if len(s.frames) <= 1 {
		panic("vm: Exit called on the outermost substate frame")
	}
	exited := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	parent := s.top()

	parent.Logs = append(parent.Logs, exited.Logs...)

	switch kind {
	case ExitSucceeded:
		log.Trace("evm: exit substate", "kind", "succeeded", "depth", exited.Depth)
		parent.Deleted = parent.Deleted.Union(exited.Deleted)
		for addr, account := range exited.State {
			parent.State[addr] = account
		}
		if err := parent.Gasometer.RecordStipend(exited.Gasometer.Gas()); err != nil {
			return err
		}
		if err := parent.Gasometer.RecordRefund(int64(exited.Gasometer.RefundedGas())); err != nil {
			return err
		}
	case ExitReverted:
		log.Trace("evm: exit substate", "kind", "reverted", "depth", exited.Depth)
		if err := parent.Gasometer.RecordStipend(exited.Gasometer.Gas()); err != nil {
			return err
		}
	case ExitFailed:
		log.Trace("evm: exit substate", "kind", "failed", "depth", exited.Depth)
	}
	return nil
}
