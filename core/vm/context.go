package vm

// ChainContext provides the EVM with auxiliary block/chain information. Once
// constructed it should never be mutated; it mirrors the Context struct the
// teacher's core/vm/evm.go attaches to the EVM, trimmed to the block/chain
// accessors of the Host surface (§4.5). The Executor's Host methods return
// these fields directly; the Backend's own block/chain accessors are not
// called by the Executor.
type ChainContext struct {
	Origin      Address
	GasPrice    *Word
	Coinbase    Address
	GasLimit    uint64
	BlockNumber *Word
	Timestamp   *Word
	Difficulty  *Word
	ChainID     *Word
	GetHash     func(blockNumber uint64) Hash
}

// CallKind names which of the four call opcodes a nested call stands for,
// mirroring the split the teacher expresses as four EVM methods (Call,
// CallCode, DelegateCall, StaticCall). The constants below describe each
// opcode's semantics. The core itself uses the kind only to grant the call
// stipend to KindCall; the caller of Host.Call builds the CallContext and
// Transfer and passes isStatic, and none of these are derived from the kind.
type CallKind int

const (
	// KindCall executes addr's code against addr's own storage, transfers
	// value from caller to addr.
	KindCall CallKind = iota
	// KindCallCode executes addr's code against the caller's storage and
	// identity, transfers value from caller to itself.
	KindCallCode
	// KindDelegateCall executes addr's code against the grandparent
	// caller's identity and value; no transfer occurs.
	KindDelegateCall
	// KindStaticCall is a KindCall made with isStatic true and no value.
	KindStaticCall
)

// CallContext is the per-frame (caller, address, value) triple passed to the
// interpreter, exactly the reference executor's Context struct.
type CallContext struct {
	Caller        Address
	Address       Address
	ApparentValue *Word
}
