package vm

// Backend is the read-only persistent-state and block-context collaborator.
// It is borrowed immutably for the lifetime of an Executor; the core never
// writes through it directly.
type Backend interface {
	Basic(addr Address) Basic
	Code(addr Address) Bytes
	CodeHash(addr Address) Hash
	CodeSize(addr Address) int
	Storage(addr Address, key Hash) Hash
	Exists(addr Address) bool

	GasPrice() *Word
	Origin() Address
	BlockHash(number uint64) Hash
	BlockNumber() *Word
	Coinbase() Address
	Timestamp() *Word
	Difficulty() *Word
	BlockGasLimit() uint64
	ChainID() *Word
}

// Gasometer meters gas and refunds for exactly one substate frame. The cost
// tables behind RecordOpcode are an external collaborator; the core only
// records the numbers the tables produce.
type Gasometer interface {
	// Gas returns the gas remaining in this frame.
	Gas() uint64
	// TotalUsedGas returns the cumulative gas charged in this frame.
	TotalUsedGas() uint64
	// RefundedGas returns the cumulative refund accrued in this frame.
	RefundedGas() uint64

	RecordCost(cost uint64) error
	RecordRefund(delta int64) error
	RecordStipend(gas uint64) error
	RecordDeposit(codeLen int) error
	RecordTransaction(cost uint64) error
	RecordOpcode(gasCost, memoryCost uint64) error
	// Fail marks the gasometer as having consumed all of its gas, so that
	// a subsequent Gas() call reports zero. Used on Error/Fatal exits,
	// where no gas returns to the parent.
	Fail()
}

// GasometerFactory constructs a fresh Gasometer scoped to one frame with the
// given gas limit.
type GasometerFactory func(gasLimit uint64) Gasometer

// IntrinsicCostTable computes the flat, pre-execution gas cost of a
// transaction from its payload (data length, zero/non-zero byte counts,
// ...). It is the free-function half of the external gas-cost tables —
// gasometer::create_transaction_cost / call_transaction_cost in the
// reference executor — kept separate from the per-frame Gasometer because
// it runs once, before any frame exists to charge it against.
type IntrinsicCostTable interface {
	CreateTransactionCost(initCode Bytes) uint64
	CallTransactionCost(data Bytes) uint64
}

// Runtime is the opcode interpreter. The core constructs one per frame and
// drives it to completion; it never inspects intermediate steps.
type Runtime interface {
	Run(code, input Bytes, ctx CallContext, host Host) (ExitReason, Bytes)
}

// RuntimeFactory constructs a Runtime bound to a particular Host/Gasometer
// pairing (via the Host passed to Run), analogous to the teacher's
// NewEVMInterpreter(evm, vmConfig).
type RuntimeFactory func() Runtime

// PrecompileResult is what a Precompile reports when it recognizes the
// target address.
type PrecompileResult struct {
	Kind ExitSucceedKind
	Out  Bytes
	Cost uint64
}

// Precompile looks up and, if matched, runs a precompiled contract at addr.
// ok is false when addr is not a precompile, in which case the call engine
// falls through to driving the Runtime. The create engine never consults it.
type Precompile func(addr Address, input Bytes, gasLimit uint64) (ok bool, result PrecompileResult, err error)

// Host is the capability surface the Runtime calls back into (spec §4.5).
// It is implemented by *Executor.
type Host interface {
	Balance(addr Address) *Word
	CodeSize(addr Address) int
	CodeHash(addr Address) Hash
	Code(addr Address) Bytes
	Storage(addr Address, key Hash) Hash
	OriginalStorage(addr Address, key Hash) Hash
	Exists(addr Address) bool
	GasLeft() uint64
	Deleted(addr Address) bool

	GasPrice() *Word
	Origin() Address
	BlockHash(number uint64) Hash
	BlockNumber() *Word
	Coinbase() Address
	Timestamp() *Word
	Difficulty() *Word
	BlockGasLimit() uint64
	ChainID() *Word

	SetStorage(addr Address, key, value Hash) error
	Log(addr Address, topics []Hash, data Bytes) error
	MarkDelete(addr, beneficiary Address) error
	Create(caller Address, scheme CreateScheme, value *Word, initCode Bytes, targetGas *uint64) (ExitReason, *Address, Bytes)
	Call(codeAddr Address, kind CallKind, transfer *Transfer, input Bytes, targetGas *uint64, isStatic bool, callCtx CallContext) (ExitReason, Bytes)

	// PreValidate computes opcode/memory gas costs through the gasometer,
	// rejects state-modifying opcodes when the current frame is static,
	// and records the cost before the opcode executes.
	PreValidate(ctx CallContext, gasCost, memoryCost uint64, isStateModifying bool) error
}
