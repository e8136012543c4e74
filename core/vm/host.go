package vm

import "github.com/ethereum/go-ethereum/crypto"

// Balance already satisfies Host (declared in executor.go); CodeSize, Code
// and Storage below are thin renames of executor.go's CodeSizeOf/CodeOf/
// StorageOf to the names Host requires.

func (e *Executor) CodeSize(addr Address) int {
	return e.CodeSizeOf(addr)
}

func (e *Executor) Code(addr Address) Bytes {
	return e.CodeOf(addr)
}

func (e *Executor) Storage(addr Address, key Hash) Hash {
	return e.StorageOf(addr, key)
}

// OriginalStorage returns zero for any account reset or newly created this
// transaction (ResetStorage == true), else the backend's stored value —
// never a value written earlier in this same transaction (spec §4.5).
func (e *Executor) OriginalStorage(addr Address, key Hash) Hash {
	if acc, ok := e.Account(addr); ok && acc.ResetStorage {
		return Hash{}
	}
	return e.backend.Storage(addr, key)
}

// Exists reports whether addr has any observable presence, per
// Config.EmptyConsideredExists (EIP-161 toggle). When the toggle is set, any
// substate record or backend-known account counts; otherwise existence is
// derived strictly from nonce/balance/code-length, consulting the backend's
// code length too when the frame hasn't loaded it — Backend.Exists itself is
// never consulted in the strict branch, since "known to the backend" and
// "non-empty per EIP-161" are different predicates.
func (e *Executor) Exists(addr Address) bool {
	acc, ok := e.Account(addr)
	if e.cfg.EmptyConsideredExists {
		return ok || e.backend.Exists(addr)
	}
	if ok {
		return acc.Basic.Nonce != 0 || !acc.Basic.Balance.IsZero() ||
			(acc.CodeKnown() && len(acc.Code) != 0) || (!acc.CodeKnown() && len(e.backend.Code(addr)) != 0)
	}
	basic := e.backend.Basic(addr)
	return basic.Nonce != 0 || !basic.Balance.IsZero() || len(e.backend.Code(addr)) != 0
}

func (e *Executor) GasLeft() uint64 {
	return e.stack.top().Gasometer.Gas()
}

// Deleted scans every frame newest-to-oldest, not just the top one: an
// address marked deleted in an ancestor frame stays deleted for the rest of
// the transaction even after a child with its own, unrelated Deleted set is
// entered (same lookup discipline as Account, executor.go).
func (e *Executor) Deleted(addr Address) bool {
	for i := len(e.stack.frames) - 1; i >= 0; i-- {
		if e.stack.frames[i].Deleted.Contains(addr) {
			return true
		}
	}
	return false
}

func (e *Executor) GasPrice() *Word         { return e.chain.GasPrice }
func (e *Executor) Origin() Address         { return e.chain.Origin }
func (e *Executor) BlockHash(n uint64) Hash { return e.chain.GetHash(n) }
func (e *Executor) BlockNumber() *Word      { return e.chain.BlockNumber }
func (e *Executor) Coinbase() Address       { return e.chain.Coinbase }
func (e *Executor) Timestamp() *Word        { return e.chain.Timestamp }
func (e *Executor) Difficulty() *Word       { return e.chain.Difficulty }
func (e *Executor) BlockGasLimit() uint64   { return e.chain.GasLimit }
func (e *Executor) ChainID() *Word          { return e.chain.ChainID }

// SetStorage writes key=value into addr's in-frame storage.
func (e *Executor) SetStorage(addr Address, key, value Hash) error {
	e.AccountMut(addr).Storage[key] = value
	return nil
}

// Log appends a log entry to the top frame, scoped to addr.
func (e *Executor) Log(addr Address, topics []Hash, data Bytes) error {
	top := e.stack.top()
	top.Logs = append(top.Logs, LogEntry{Address: addr, Topics: topics, Data: data})
	return nil
}

// MarkDelete transfers addr's full balance to beneficiary, zeroes addr's
// balance, and adds addr to the frame's deleted set (spec §4.5). A
// self-destruct to itself (addr == beneficiary) still zeroes the balance,
// matching the reference executor's mark_delete.
func (e *Executor) MarkDelete(addr, beneficiary Address) error {
	value := e.AccountMut(addr).Basic.Balance
	e.Deposit(beneficiary, value)
	e.AccountMut(addr).Basic.Balance = new(Word)
	e.stack.top().Deleted.Add(addr)
	return nil
}

// Create is the interpreter-invoked CREATE/CREATE2 callback: it always
// passes takeL64 = true (interpreter calls are never top-level), so the
// 63/64 gas reservation applies whenever Config.CallL64AfterGas is set.
func (e *Executor) Create(caller Address, scheme CreateScheme, value *Word, initCode Bytes, targetGas *uint64) (ExitReason, *Address, Bytes) {
	return e.createInner(caller, scheme, value, initCode, targetGas, true)
}

// Call is the interpreter-invoked CALL/CALLCODE/DELEGATECALL/STATICCALL
// callback; takeStipend is true only for KindCall (CALL proper), matching
// the reference executor's call stipend rule.
func (e *Executor) Call(codeAddr Address, kind CallKind, transfer *Transfer, input Bytes, targetGas *uint64, isStatic bool, callCtx CallContext) (ExitReason, Bytes) {
	takeStipend := kind == KindCall
	return e.callInner(codeAddr, transfer, input, targetGas, isStatic, true, takeStipend, callCtx, kind)
}

// PreValidate records an opcode's gas/memory cost against the top frame's
// gasometer and rejects state-modifying opcodes inside a static frame
// before the opcode runs (spec §4.5).
func (e *Executor) PreValidate(ctx CallContext, gasCost, memoryCost uint64, isStateModifying bool) error {
	top := e.stack.top()
	if isStateModifying && top.IsStatic {
		return ErrStaticModeViolation
	}
	if err := top.Gasometer.RecordOpcode(gasCost, memoryCost); err != nil {
		return err
	}
	return nil
}

// CodeHash implements the EIP-161 empty-account rule: an "empty" account
// (zero balance, zero nonce, no code) reports the zero hash; otherwise
// Keccak-256 of the known code, falling back to the backend's stored hash
// when code has not been loaded into the current frame.
func (e *Executor) CodeHash(addr Address) Hash {
	acc, ok := e.Account(addr)
	basic, codeSize := e.backend.Basic(addr), e.backend.CodeSize(addr)
	if ok {
		basic = acc.Basic
		if acc.CodeKnown() {
			codeSize = len(acc.Code)
		}
	}
	if basic.Nonce == 0 && basic.Balance.IsZero() && codeSize == 0 {
		return Hash{}
	}
	if ok && acc.CodeKnown() {
		return crypto.Keccak256Hash(acc.Code)
	}
	return e.backend.CodeHash(addr)
}
