package vm

import "sort"

// Deconstruct runs the apply builder (spec §4.6): it walks the outermost
// frame's state map, emits a Modify for every address not in the deleted
// set, then a Delete for every deleted address, and returns the logs and
// internal-call trace accumulated over the whole transaction. It panics if
// called before the substate stack has unwound to exactly one frame —
// calling it mid-transaction is a programmer error, not a runtime one.
func (e *Executor) Deconstruct() ([]Apply, []LogEntry, []InternalTransaction) {
	if e.stack.Depth() != 0 {
		panic("vm: Deconstruct called before the substate stack unwound to the outermost frame")
	}
	top := e.stack.top()

	addrs := make([]Address, 0, len(top.State))
	for addr := range top.State {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return lessAddress(addrs[i], addrs[j])
	})

	applies := make([]Apply, 0, len(addrs)+top.Deleted.Cardinality())
	for _, addr := range addrs {
		if top.Deleted.Contains(addr) {
			continue
		}
		acc := top.State[addr]
		applies = append(applies, Apply{
			Kind:         ApplyModify,
			Address:      addr,
			Basic:        acc.Basic,
			Code:         acc.Code,
			Storage:      acc.Storage,
			ResetStorage: acc.ResetStorage,
		})
	}

	deleted := top.Deleted.ToSlice()
	sort.Slice(deleted, func(i, j int) bool {
		return lessAddress(deleted[i], deleted[j])
	})
	for _, addr := range deleted {
		applies = append(applies, Apply{Kind: ApplyDelete, Address: addr})
	}

	return applies, top.Logs, e.trace
}

func lessAddress(a, b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
