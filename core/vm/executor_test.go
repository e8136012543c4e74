package vm_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	vm "github.com/rastamanvibe/cloverevm/core/vm"
	"github.com/rastamanvibe/cloverevm/core/vm/vmtest"
)

var testConfig = vm.Config{
	CallStackLimit:        1024,
	CallL64AfterGas:       true,
	CallStipend:           2300,
	CreateIncreaseNonce:   true,
	EmptyConsideredExists: false,
}

func newExecutor(backend *vmtest.Backend, gasLimit uint64, run vm.RuntimeFactory) *vm.Executor {
	return vm.NewExecutor(
		backend,
		testConfig,
		backend.Chain,
		vmtest.NewGasometerFactory(),
		gasLimit,
		run,
		nil,
		vmtest.NewIntrinsicCostTable(),
	)
}

// stoppedRuntime simulates an interpreter that touches nothing and returns
// immediately, as if it executed a bare STOP.
func stoppedRuntime() vm.RuntimeFactory {
	return vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		return vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, nil
	})
}

func TestSimpleTransfer(t *testing.T) {
	backend := vmtest.NewBackend()
	a := vm.Address{0xA}
	b := vm.Address{0xB}
	backend.Seed(a, uint256.NewInt(100), 0, nil)
	backend.Seed(b, uint256.NewInt(0), 0, nil)

	e := newExecutor(backend, 1_000_000, stoppedRuntime())
	reason, _ := e.TransactCall(a, b, uint256.NewInt(30), nil, 21000)
	require.Equal(t, vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, reason)

	applies, _, _ := e.Deconstruct()
	byAddr := applyMap(applies)
	require.Equal(t, uint64(70), byAddr[a].Basic.Balance.Uint64())
	require.Equal(t, uint64(1), byAddr[a].Basic.Nonce)
	require.Equal(t, uint64(30), byAddr[b].Basic.Balance.Uint64())
}

func TestCreateThenCall(t *testing.T) {
	backend := vmtest.NewBackend()
	caller := vm.Address{0xC}
	backend.Seed(caller, uint256.NewInt(0), 0, nil)

	runtime := vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		return vm.ExitSucceed{Kind: vm.ExitSucceedReturned}, vm.Bytes{0x00}
	})
	e := newExecutor(backend, 1_000_000, runtime)
	newAddr := e.CreateAddress(vm.Legacy(caller)) // nonce is still 0 here

	reason := e.TransactCreate(caller, uint256.NewInt(0), vm.Bytes{0x60, 0x00}, 100_000)
	require.IsType(t, vm.ExitSucceed{}, reason)

	applies, _, _ := e.Deconstruct()
	byAddr := applyMap(applies)
	require.Equal(t, uint64(1), byAddr[caller].Basic.Nonce, "transact_create's create_inner bumps the caller's nonce once")

	newAcc, ok := byAddr[newAddr]
	require.True(t, ok)
	require.Equal(t, vm.Bytes{0x00}, newAcc.Code)
	require.Equal(t, uint64(1), newAcc.Basic.Nonce, "create_increase_nonce bumps the new account to 1")
}

func TestRevertInNestedCall(t *testing.T) {
	backend := vmtest.NewBackend()
	a := vm.Address{0x0A}
	b := vm.Address{0x0B}
	c := vm.Address{0x0C}
	backend.Seed(a, uint256.NewInt(0), 0, nil)
	backend.Seed(b, uint256.NewInt(0), 0, vm.Bytes{0x01})
	backend.Seed(c, uint256.NewInt(0), 0, vm.Bytes{0x02})

	runtime := vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		if ctx.Address == c {
			_ = host.SetStorage(c, vm.Hash{1}, vm.Hash{1})
			_ = host.Log(c, nil, vm.Bytes{0x01})
			return vm.ExitRevert{}, nil
		}
		// ctx.Address == b: B calls C, then stops regardless of C's outcome.
		reason, _ := host.Call(c, vm.KindCall, nil, nil, nil, false, vm.CallContext{Caller: b, Address: c})
		require.IsType(t, vm.ExitRevert{}, reason)
		return vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, nil
	})
	e := newExecutor(backend, 1_000_000, runtime)

	reason, _ := e.TransactCall(a, b, uint256.NewInt(0), nil, 21000)
	require.Equal(t, vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, reason)

	applies, logs, trace := e.Deconstruct()
	byAddr := applyMap(applies)
	// C's SSTORE never merges: either C is absent from the journal or its
	// storage map doesn't carry the reverted write.
	if cAcc, ok := byAddr[c]; ok {
		require.Empty(t, cAcc.Storage)
	}
	require.Len(t, logs, 1, "C's log is still present per spec.md's preserved (surprising) behavior")
	require.Len(t, trace, 2, "one InternalTransaction per completed sub-call (A->B, B->C)")
}

func TestCreate2Collision(t *testing.T) {
	backend := vmtest.NewBackend()
	caller := vm.Address{0x0D}
	backend.Seed(caller, uint256.NewInt(0), 5, nil)

	initCode := vm.Bytes{0x60, 0x00}
	salt := vm.Hash{0x01}

	e := newExecutor(backend, 1_000_000, stoppedRuntime())
	// Pre-seed the address CREATE2 derives to with non-empty code so the
	// collision check fires.
	collisionAddr := e.CreateAddress(vm.Create2(caller, crypto.Keccak256Hash(initCode), salt))
	backend.Seed(collisionAddr, uint256.NewInt(0), 0, vm.Bytes{0x01, 0x02, 0x03})

	reason := e.TransactCreate2(caller, uint256.NewInt(0), initCode, salt, 100_000)
	require.IsType(t, vm.ExitError{}, reason)
	require.ErrorIs(t, reason.(vm.ExitError).Err, vm.ErrCreateCollision)

	applies, _, _ := e.Deconstruct()
	byAddr := applyMap(applies)
	require.Equal(t, uint64(6), byAddr[caller].Basic.Nonce, "caller nonce still bumped by create_inner before the collision check")
}

func TestStaticViolation(t *testing.T) {
	backend := vmtest.NewBackend()
	a := vm.Address{0x0E}
	target := vm.Address{0x0F}
	backend.Seed(a, uint256.NewInt(0), 0, nil)
	backend.Seed(target, uint256.NewInt(0), 0, vm.Bytes{0x01})

	runtime := vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		if err := host.PreValidate(ctx, 5000, 0, true); err != nil {
			return vm.ExitError{Err: err}, nil
		}
		_ = host.SetStorage(ctx.Address, vm.Hash{1}, vm.Hash{1})
		return vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, nil
	})
	e := newExecutor(backend, 1_000_000, runtime)

	reason, _ := e.Call(target, vm.KindStaticCall, nil, nil, nil, true, vm.CallContext{Caller: a, Address: target})
	require.IsType(t, vm.ExitError{}, reason)
	require.ErrorIs(t, reason.(vm.ExitError).Err, vm.ErrStaticModeViolation)

	acc, ok := e.Account(target)
	if ok {
		require.Empty(t, acc.Storage)
	}
}

func TestSelfDestructToSelf(t *testing.T) {
	backend := vmtest.NewBackend()
	s := vm.Address{0x10}
	backend.Seed(s, uint256.NewInt(55), 0, vm.Bytes{0x01})

	runtime := vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		_ = host.MarkDelete(s, s)
		require.Equal(t, uint64(0), host.Balance(s).Uint64())
		return vm.ExitSucceed{Kind: vm.ExitSucceedSuicided}, nil
	})
	e := newExecutor(backend, 1_000_000, runtime)

	caller := vm.Address{0x11}
	backend.Seed(caller, uint256.NewInt(0), 0, nil)
	reason, _ := e.TransactCall(caller, s, uint256.NewInt(0), nil, 21000)
	require.Equal(t, vm.ExitSucceed{Kind: vm.ExitSucceedSuicided}, reason)

	applies, _, _ := e.Deconstruct()
	var sawDelete bool
	for _, a := range applies {
		if a.Address == s {
			require.Equal(t, vm.ApplyDelete, a.Kind)
			sawDelete = true
		}
	}
	require.True(t, sawDelete)
}

func TestDeletedScansAncestorFrames(t *testing.T) {
	backend := vmtest.NewBackend()
	caller := vm.Address{0x30}
	a := vm.Address{0x31}
	b := vm.Address{0x32}
	backend.Seed(caller, uint256.NewInt(0), 0, nil)
	backend.Seed(a, uint256.NewInt(10), 0, vm.Bytes{0x01})
	backend.Seed(b, uint256.NewInt(0), 0, vm.Bytes{0x02})

	var sawDeleted bool
	runtime := vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		switch ctx.Address {
		case a:
			// A marks itself deleted (depth 0's own Deleted set), then calls
			// into B, pushing a fresh depth-1 frame with an empty Deleted set.
			_ = host.MarkDelete(a, a)
			reason, _ := host.Call(b, vm.KindCall, nil, nil, nil, false, vm.CallContext{Caller: a, Address: b})
			require.IsType(t, vm.ExitSucceed{}, reason)
			return vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, nil
		case b:
			// B must still see A as deleted by scanning up to the depth-0
			// ancestor frame, not just its own (empty) Deleted set.
			sawDeleted = host.Deleted(a)
			return vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, nil
		default:
			t.Fatalf("unexpected address %v", ctx.Address)
			return vm.ExitFatal{}, nil
		}
	})
	e := newExecutor(backend, 1_000_000, runtime)

	reason, _ := e.TransactCall(caller, a, uint256.NewInt(0), nil, 21000)
	require.Equal(t, vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, reason)
	require.True(t, sawDeleted, "B (depth 1) must see A deleted in the depth-0 ancestor frame")
}

func TestExistsStrictEIP161(t *testing.T) {
	backend := vmtest.NewBackend()
	caller := vm.Address{0x40}
	empty := vm.Address{0x41}    // known to the backend, but empty per EIP-161
	withCode := vm.Address{0x42} // touched (zero basic) but code not yet loaded into the frame
	backend.Seed(caller, uint256.NewInt(0), 0, nil)
	backend.Seed(empty, uint256.NewInt(0), 0, vm.Bytes{})
	backend.Seed(withCode, uint256.NewInt(0), 0, vm.Bytes{0x01})

	runtime := vmtest.NewRuntimeFactory(func(code, input vm.Bytes, ctx vm.CallContext, host vm.Host) (vm.ExitReason, vm.Bytes) {
		require.False(t, host.Exists(empty), "zero balance/nonce/code is not 'exists' under strict EIP-161, even though the backend knows the address")
		require.True(t, host.Exists(withCode), "non-empty backend code counts even before the frame has loaded it")
		require.False(t, host.Exists(vm.Address{0xFF}), "an address unknown to both the frame and the backend is not 'exists'")
		return vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, nil
	})
	e := newExecutor(backend, 1_000_000, runtime)

	// The zero-value transfer still touches withCode (AccountMut), but never
	// loads its code, exercising the "code not loaded, fall back to the
	// backend's code length" branch.
	reason, _ := e.TransactCall(caller, withCode, uint256.NewInt(0), nil, 21000)
	require.Equal(t, vm.ExitSucceed{Kind: vm.ExitSucceedStopped}, reason)
}

func applyMap(applies []vm.Apply) map[vm.Address]vm.Apply {
	m := make(map[vm.Address]vm.Apply, len(applies))
	for _, a := range applies {
		m[a.Address] = a
	}
	return m
}
