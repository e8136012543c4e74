// Package vmtest provides small, scripted fakes for core/vm's narrow
// collaborator interfaces (Backend, Gasometer, Runtime, IntrinsicCostTable),
// used to drive the executor end-to-end in tests without a real opcode
// interpreter or persistent store. It has no Precompile fake; tests pass a
// nil Precompile.
package vmtest

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/rastamanvibe/cloverevm/core/vm"
)

// Backend is an in-memory fake satisfying vm.Backend. Construct it with
// NewBackend: the zero value has no account map (Seed panics) and no chain
// context. Every account not explicitly seeded reads as empty/zero.
type Backend struct {
	Accounts map[vm.Address]*vm.Account
	Chain    vm.ChainContext
}

// NewBackend constructs an empty Backend with a reasonable default chain
// context (origin/coinbase zero, gas price 1, a fixed block gas limit).
func NewBackend() *Backend {
	return &Backend{
		Accounts: make(map[vm.Address]*vm.Account),
		Chain: vm.ChainContext{
			GasPrice:    uint256.NewInt(1),
			GasLimit:    30_000_000,
			BlockNumber: uint256.NewInt(1),
			Timestamp:   uint256.NewInt(1),
			Difficulty:  uint256.NewInt(0),
			ChainID:     uint256.NewInt(1337),
			GetHash:     func(uint64) vm.Hash { return vm.Hash{} },
		},
	}
}

// Seed installs addr with the given balance, nonce and code.
func (b *Backend) Seed(addr vm.Address, balance *uint256.Int, nonce uint64, code vm.Bytes) {
	b.Accounts[addr] = &vm.Account{
		Basic: vm.Basic{Nonce: nonce, Balance: balance},
		Code:  code,
	}
}

func (b *Backend) Basic(addr vm.Address) vm.Basic {
	if acc, ok := b.Accounts[addr]; ok {
		return acc.Basic.Clone()
	}
	return vm.Basic{Balance: new(uint256.Int)}
}

func (b *Backend) Code(addr vm.Address) vm.Bytes {
	if acc, ok := b.Accounts[addr]; ok {
		return acc.Code
	}
	return nil
}

func (b *Backend) CodeHash(addr vm.Address) vm.Hash {
	code := b.Code(addr)
	if len(code) == 0 {
		return vm.Hash{}
	}
	return crypto.Keccak256Hash(code)
}

func (b *Backend) CodeSize(addr vm.Address) int { return len(b.Code(addr)) }

func (b *Backend) Storage(addr vm.Address, key vm.Hash) vm.Hash {
	if acc, ok := b.Accounts[addr]; ok && acc.Storage != nil {
		return acc.Storage[key]
	}
	return vm.Hash{}
}

func (b *Backend) Exists(addr vm.Address) bool {
	_, ok := b.Accounts[addr]
	return ok
}

func (b *Backend) GasPrice() *vm.Word         { return b.Chain.GasPrice }
func (b *Backend) Origin() vm.Address         { return b.Chain.Origin }
func (b *Backend) BlockHash(n uint64) vm.Hash { return b.Chain.GetHash(n) }
func (b *Backend) BlockNumber() *vm.Word      { return b.Chain.BlockNumber }
func (b *Backend) Coinbase() vm.Address       { return b.Chain.Coinbase }
func (b *Backend) Timestamp() *vm.Word        { return b.Chain.Timestamp }
func (b *Backend) Difficulty() *vm.Word       { return b.Chain.Difficulty }
func (b *Backend) BlockGasLimit() uint64      { return b.Chain.GasLimit }
func (b *Backend) ChainID() *vm.Word          { return b.Chain.ChainID }

// Gasometer is a straight-line fake: no opcode cost table, just linear
// bookkeeping of limit/used/refund against the recorded numbers.
type Gasometer struct {
	limit  uint64
	used   uint64
	refund int64
	failed bool
}

func NewGasometerFactory() vm.GasometerFactory {
	return func(gasLimit uint64) vm.Gasometer { return &Gasometer{limit: gasLimit} }
}

func (g *Gasometer) Gas() uint64 {
	if g.failed {
		return 0
	}
	return g.limit - g.used
}

func (g *Gasometer) TotalUsedGas() uint64 { return g.used }

func (g *Gasometer) RefundedGas() uint64 {
	if g.refund < 0 {
		return 0
	}
	return uint64(g.refund)
}

func (g *Gasometer) RecordCost(cost uint64) error {
	if cost > g.limit-g.used {
		g.failed = true
		return errors.New("out of gas")
	}
	g.used += cost
	return nil
}

func (g *Gasometer) RecordRefund(delta int64) error {
	g.refund += delta
	return nil
}

func (g *Gasometer) RecordStipend(gas uint64) error {
	g.limit += gas
	return nil
}

func (g *Gasometer) RecordDeposit(codeLen int) error {
	return g.RecordCost(uint64(codeLen) * 200)
}

func (g *Gasometer) RecordTransaction(cost uint64) error { return g.RecordCost(cost) }

func (g *Gasometer) RecordOpcode(gasCost, memoryCost uint64) error {
	return g.RecordCost(gasCost + memoryCost)
}

func (g *Gasometer) Fail() { g.failed = true }

// IntrinsicCostTable is a fake with fixed per-byte linear pricing, loosely
// modeled on the real EIP-2028 calldata schedule without reproducing its
// exact constants (tests only need determinism, not consensus accuracy).
type IntrinsicCostTable struct {
	Base        uint64
	PerInitWord uint64
	PerByte     uint64
}

func NewIntrinsicCostTable() IntrinsicCostTable {
	return IntrinsicCostTable{Base: 21000, PerInitWord: 2, PerByte: 16}
}

func (c IntrinsicCostTable) CreateTransactionCost(initCode vm.Bytes) uint64 {
	return c.Base + uint64(len(initCode))*c.PerByte + uint64((len(initCode)+31)/32)*c.PerInitWord
}

func (c IntrinsicCostTable) CallTransactionCost(data vm.Bytes) uint64 {
	return c.Base + uint64(len(data))*c.PerByte
}

// ScriptedRuntime is a Runtime fake driven by a caller-supplied function, so
// a test can simulate any interpreter behavior (including callbacks into
// Host via Create/Call/SetStorage/Log/MarkDelete) without a real bytecode
// interpreter.
type ScriptedRuntime struct {
	Fn func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes)
}

func (r ScriptedRuntime) Run(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
	return r.Fn(code, input, ctx, host)
}

// NewRuntimeFactory returns a RuntimeFactory that always constructs a fresh
// ScriptedRuntime wrapping fn.
func NewRuntimeFactory(fn func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes)) vm.RuntimeFactory {
	return func() vm.Runtime { return ScriptedRuntime{Fn: fn} }
}
