package vm

// Config carries the subset of chain/fork configuration the core consults.
// Everything else (opcode pricing, precompile activation, block validation
// rules) belongs to the gasometer, the precompile set or the backend.
type Config struct {
	// CallStackLimit bounds nested call/create depth. A call at depth
	// exactly CallStackLimit is allowed; depth CallStackLimit+1 is rejected.
	CallStackLimit int

	// CallL64AfterGas enables the 63/64 gas reservation rule for
	// interpreter-invoked (nested) calls and creates. Top-level
	// transact_* entry points never apply it.
	CallL64AfterGas bool

	// CallStipend is the gas gift added to a value-bearing call when the
	// caller is an interpreter invoking CALL (not CALLCODE/DELEGATECALL).
	CallStipend uint64

	// CreateContractLimit, if non-nil, is the maximum size in bytes of
	// code returned by a contract creation's init code.
	CreateContractLimit *int

	// CreateIncreaseNonce bumps a newly created account's nonce to 1
	// immediately after the value transfer (EIP-161 accounts).
	CreateIncreaseNonce bool

	// EmptyConsideredExists selects the EIP-161 "exists" semantics: when
	// true, any account record (even one with zero balance/nonce/code)
	// counts as existing.
	EmptyConsideredExists bool
}
