package vm

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Executor is the façade (spec §4.2): the five components' entry point. An
// Executor is single-use and not safe for concurrent use, exactly like the
// teacher's EVM type ("The EVM should never be reused and is not thread
// safe").
type Executor struct {
	backend      Backend
	cfg          Config
	newRuntime   RuntimeFactory
	precompile   Precompile
	gasTable     IntrinsicCostTable
	newGasometer GasometerFactory
	chain        ChainContext

	stack *SubstateStack
	trace []InternalTransaction
}

// NewExecutor constructs an Executor with a fresh, single pre-transaction
// frame whose gas limit is gasLimit.
func NewExecutor(backend Backend, cfg Config, chain ChainContext, newGasometer GasometerFactory, gasLimit uint64, newRuntime RuntimeFactory, precompile Precompile, gasTable IntrinsicCostTable) *Executor {
	return &Executor{
		backend:      backend,
		cfg:          cfg,
		newRuntime:   newRuntime,
		precompile:   precompile,
		gasTable:     gasTable,
		newGasometer: newGasometer,
		chain:        chain,
		stack:        newSubstateStack(newGasometer(gasLimit)),
	}
}

// Gas returns the gas remaining in the current (top) frame.
func (e *Executor) Gas() uint64 {
	return e.stack.top().Gasometer.Gas()
}

// UsedGas is the EIP-2200-compatible refund-capped gas usage: total charged
// minus min(total/2, refunded).
func (e *Executor) UsedGas() uint64 {
	g := e.stack.top().Gasometer
	used := g.TotalUsedGas()
	refund := g.RefundedGas()
	refundCap := used / 2
	if refund < refundCap {
		refundCap = refund
	}
	return used - refundCap
}

// Fee is UsedGas() * price, a convenience a host computing the total
// transaction charge otherwise has to reimplement; carried over from the
// reference executor's fee() method (SPEC_FULL.md "supplemented features").
func (e *Executor) Fee(price *Word) *Word {
	return new(uint256.Int).Mul(new(uint256.Int).SetUint64(e.UsedGas()), price)
}

// Account returns the newest-wins view of addr across the frame stack. It
// does not consult the backend: when no frame holds addr it reports false,
// and the query helpers below fall through to the backend themselves.
func (e *Executor) Account(addr Address) (Account, bool) {
	for i := len(e.stack.frames) - 1; i >= 0; i-- {
		if acc, ok := e.stack.frames[i].State[addr]; ok {
			return *acc, true
		}
	}
	return Account{}, false
}

// Balance, Nonce, CodeOf and StorageOf are read-only query helpers layered
// over Account, each falling through to the backend on a full miss.
func (e *Executor) Balance(addr Address) *Word {
	if acc, ok := e.Account(addr); ok {
		return acc.Basic.Balance
	}
	return e.backend.Basic(addr).Balance
}

func (e *Executor) Nonce(addr Address) uint64 {
	if acc, ok := e.Account(addr); ok {
		return acc.Basic.Nonce
	}
	return e.backend.Basic(addr).Nonce
}

func (e *Executor) CodeOf(addr Address) Bytes {
	if acc, ok := e.Account(addr); ok && acc.CodeKnown() {
		return acc.Code
	}
	return e.backend.Code(addr)
}

func (e *Executor) CodeSizeOf(addr Address) int {
	if acc, ok := e.Account(addr); ok && acc.CodeKnown() {
		return len(acc.Code)
	}
	return e.backend.CodeSize(addr)
}

func (e *Executor) StorageOf(addr Address, key Hash) Hash {
	if acc, ok := e.Account(addr); ok {
		if v, touched := acc.Storage[key]; touched {
			return v
		}
		if acc.ResetStorage {
			return Hash{}
		}
	}
	return e.backend.Storage(addr, key)
}

// AccountMut returns a mutable handle to addr in the top frame, cloning it
// from the newest ancestor that has it, or synthesizing a default account
// read from the backend (spec §4.2 account_mut). The returned pointer
// aliases the frame's own storage, so mutations through it are visible to
// every subsequent lookup without a separate write-back step.
func (e *Executor) AccountMut(addr Address) *Account {
	top := e.stack.top()
	if acc, ok := top.State[addr]; ok {
		return acc
	}
	var account *Account
	if existing, ok := e.Account(addr); ok {
		cloned := existing.Clone()
		account = &cloned
	} else {
		basic := e.backend.Basic(addr)
		if basic.Balance == nil {
			basic.Balance = new(Word)
		}
		account = &Account{Basic: basic, Storage: make(map[Hash]Hash)}
	}
	top.State[addr] = account
	return account
}

// Withdraw removes value from addr's balance, failing with ErrOutOfFund if
// insufficient.
func (e *Executor) Withdraw(addr Address, value *Word) error {
	src := e.AccountMut(addr)
	if src.Basic.Balance.Lt(value) {
		return ErrOutOfFund
	}
	src.Basic.Balance = new(uint256.Int).Sub(src.Basic.Balance, value)
	return nil
}

// Deposit adds value to addr's balance.
func (e *Executor) Deposit(addr Address, value *Word) {
	dst := e.AccountMut(addr)
	dst.Basic.Balance = new(uint256.Int).Add(dst.Basic.Balance, value)
}

// TransferValue withdraws from t.Source then deposits to t.Target. Deposit
// only happens after a successful withdrawal; a zero-value transfer still
// touches both accounts (spec §4.2).
func (e *Executor) TransferValue(t Transfer) error {
	if err := e.Withdraw(t.Source, t.Value); err != nil {
		return err
	}
	e.Deposit(t.Target, t.Value)
	return nil
}

// CreateAddress computes the address scheme derives to, consulting the
// caller's current nonce for the Legacy scheme via the executor's own
// frame-aware lookup.
func (e *Executor) CreateAddress(scheme CreateScheme) Address {
	if scheme.legacy != nil {
		return createAddress(scheme, e.Nonce(scheme.legacy.Caller))
	}
	return createAddress(scheme, 0)
}

// TransactCreate is the CREATE-transaction entry point (spec §6): it records
// the intrinsic create-transaction cost against the outermost frame, then
// runs create_inner with take_l64 = false and gasLimit as the target gas.
func (e *Executor) TransactCreate(caller Address, value *Word, initCode Bytes, gasLimit uint64) ExitReason {
	cost := e.gasTable.CreateTransactionCost(initCode)
	if err := e.stack.top().Gasometer.RecordTransaction(cost); err != nil {
		return classifyErr(err)
	}
	reason, _, _ := e.createInner(caller, Legacy(caller), value, initCode, &gasLimit, false)
	return reason
}

// TransactCreate2 is the CREATE2-transaction entry point. code_hash is
// always Keccak-256(init_code), computed here rather than trusted from the
// caller (spec §6).
func (e *Executor) TransactCreate2(caller Address, value *Word, initCode Bytes, salt Hash, gasLimit uint64) ExitReason {
	cost := e.gasTable.CreateTransactionCost(initCode)
	if err := e.stack.top().Gasometer.RecordTransaction(cost); err != nil {
		return classifyErr(err)
	}
	codeHash := crypto.Keccak256Hash(initCode)
	reason, _, _ := e.createInner(caller, Create2(caller, codeHash, salt), value, initCode, &gasLimit, false)
	return reason
}

// TransactCall is the CALL-transaction entry point. It bumps the caller's
// nonce itself (spec §9.3: the reference executor does this in
// transact_call, not inside call_inner, unlike the create family).
func (e *Executor) TransactCall(caller, address Address, value *Word, data Bytes, gasLimit uint64) (ExitReason, Bytes) {
	cost := e.gasTable.CallTransactionCost(data)
	if err := e.stack.top().Gasometer.RecordTransaction(cost); err != nil {
		return classifyErr(err), nil
	}
	e.AccountMut(caller).Basic.Nonce++

	callCtx := CallContext{Caller: caller, Address: address, ApparentValue: value}
	log.Debug("evm: transact_call", "caller", caller, "address", address, "value", value)
	return e.callInner(address, &Transfer{Source: caller, Target: address, Value: value}, data, &gasLimit, false, false, false, callCtx, KindCall)
}
