package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Transfer describes a pending value movement between two accounts.
type Transfer struct {
	Source Address
	Target Address
	Value  *Word
}

// CreateScheme selects how a new contract's address is derived. It is a
// closed sum type: exactly one of Legacy, Create2 or Fixed is populated,
// mirroring the reference executor's CreateScheme enum.
type CreateScheme struct {
	legacy  *legacyScheme
	create2 *create2Scheme
	fixed   *Address
}

type legacyScheme struct {
	Caller Address
}

type create2Scheme struct {
	Caller   Address
	CodeHash Hash
	Salt     Hash
}

// Legacy builds a CreateScheme for the CREATE opcode / transact_create.
func Legacy(caller Address) CreateScheme {
	return CreateScheme{legacy: &legacyScheme{Caller: caller}}
}

// Create2 builds a CreateScheme for the CREATE2 opcode / transact_create2.
func Create2(caller Address, codeHash, salt Hash) CreateScheme {
	return CreateScheme{create2: &create2Scheme{Caller: caller, CodeHash: codeHash, Salt: salt}}
}

// Fixed builds a CreateScheme that derives to the literal address given,
// used by hosts that pre-assign contract addresses (e.g. genesis-time
// deployments).
func Fixed(addr Address) CreateScheme {
	return CreateScheme{fixed: &addr}
}

// createAddress computes the new contract's address for scheme. The legacy
// branch needs the caller's current nonce, which only the executor's
// frame-aware lookup can supply.
func createAddress(scheme CreateScheme, nonce uint64) Address {
	switch {
	case scheme.legacy != nil:
		return legacyCreateAddress(scheme.legacy.Caller, nonce)
	case scheme.create2 != nil:
		return create2Address(scheme.create2.Caller, scheme.create2.CodeHash, scheme.create2.Salt)
	case scheme.fixed != nil:
		return *scheme.fixed
	default:
		panic("vm: zero-value CreateScheme")
	}
}

// legacyCreateAddress is Keccak256(RLP[caller, nonce])[12:], bit-for-bit the
// same derivation crypto.CreateAddress performs and the reference
// executor's create_address(CreateScheme::Legacy) performs via
// rlp::RlpStream.
func legacyCreateAddress(caller Address, nonce uint64) Address {
	data, err := rlp.EncodeToBytes([]interface{}{caller, nonce})
	if err != nil {
		// rlp.EncodeToBytes only fails on unsupported types; a fixed-size
		// address and a uint64 are always supported.
		panic(err)
	}
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// create2Address is Keccak256(0xff || caller || salt || codeHash)[12:].
func create2Address(caller Address, codeHash, salt Hash) Address {
	return crypto.CreateAddress2(caller, salt, codeHash[:])
}
