// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package vm implements the core of a stack-based EVM executor: a layered,
// transactional view of world state over a read-only backend, nested
// message-call/contract-creation orchestration, and the journal that is
// produced once a top-level transaction completes.
//
// The opcode interpreter, the gas-cost tables and the persistent backend are
// external collaborators; this package only drives them through the narrow
// interfaces declared in interfaces.go.
package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address identifies an account.
type Address = common.Address

// Hash is a 32-byte digest, used both for storage keys/values and for
// code/block hashes.
type Hash = common.Hash

// Bytes is a variable-length byte sequence (code, calldata, return data).
type Bytes = []byte

// Word is a 256-bit unsigned integer with wraparound arithmetic.
type Word = uint256.Int

// Basic holds the two pieces of account state that are not code or storage.
type Basic struct {
	Nonce   uint64
	Balance *Word
}

// Clone returns a deep copy of b, so mutating the clone never mutates b.
func (b Basic) Clone() Basic {
	return Basic{Nonce: b.Nonce, Balance: new(Word).Set(b.Balance)}
}

// Account is the transient, in-substate view of an account. Code is nil when
// it has not yet been fetched from the backend; a non-nil, possibly empty,
// slice means the backend has been consulted and the code is known (see
// spec invariant: "code = some(empty) and code = none are distinguishable").
type Account struct {
	Basic        Basic
	Code         Bytes
	Storage      map[Hash]Hash
	ResetStorage bool
}

// CodeKnown reports whether Code has been loaded from some source (backend
// or an ancestor frame), as opposed to simply being unset on a freshly
// synthesized default account.
func (a Account) CodeKnown() bool {
	return a.Code != nil
}

// Clone returns a deep copy of a, including its storage map.
func (a Account) Clone() Account {
	storage := make(map[Hash]Hash, len(a.Storage))
	for k, v := range a.Storage {
		storage[k] = v
	}
	var code Bytes
	if a.Code != nil {
		code = make(Bytes, len(a.Code))
		copy(code, a.Code)
	}
	return Account{
		Basic:        a.Basic.Clone(),
		Code:         code,
		Storage:      storage,
		ResetStorage: a.ResetStorage,
	}
}

// LogEntry is one emitted event, scoped to the frame that produced it.
type LogEntry struct {
	Address Address
	Topics  []Hash
	Data    Bytes
}

// InternalTransaction records one completed sub-call for analytics/auditing.
// It carries no consensus weight.
type InternalTransaction struct {
	Parent  Address
	Node    Address
	GasUsed uint64
}

// ApplyKind distinguishes the two shapes an Apply entry can take.
type ApplyKind int

const (
	// ApplyModify upserts the given account fields.
	ApplyModify ApplyKind = iota
	// ApplyDelete removes the account entirely.
	ApplyDelete
)

// Apply is one journal entry produced by the apply builder (§4.6). For
// ApplyDelete entries only Address is meaningful.
type Apply struct {
	Kind ApplyKind

	Address      Address
	Basic        Basic
	Code         Bytes // nil if code wasn't touched this transaction
	Storage      map[Hash]Hash
	ResetStorage bool
}
