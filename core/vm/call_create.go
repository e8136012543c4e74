package vm

import (
	"github.com/ethereum/go-ethereum/log"
)

func l64(gas uint64) uint64 {
	return gas - gas/64
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// createInner is the Create engine (spec §4.3). takeL64 is true only for
// interpreter-invoked CREATE/CREATE2 (via Host.Create); the top-level
// TransactCreate/TransactCreate2 entry points always pass false.
func (e *Executor) createInner(caller Address, scheme CreateScheme, value *Word, initCode Bytes, targetGas *uint64, takeL64 bool) (ExitReason, *Address, Bytes) {
	top := e.stack.top()
	if top.Depth != nil && *top.Depth > e.cfg.CallStackLimit {
		return ExitError{Err: ErrCallTooDeep}, nil, nil
	}
	if e.Balance(caller).Lt(value) {
		return ExitError{Err: ErrOutOfFund}, nil, nil
	}

	afterGas := top.Gasometer.Gas()
	if takeL64 && e.cfg.CallL64AfterGas {
		afterGas = l64(afterGas)
	}
	gasLimit := afterGas
	if targetGas != nil {
		gasLimit = min64(afterGas, *targetGas)
	}
	if err := top.Gasometer.RecordCost(gasLimit); err != nil {
		return classifyErr(err), nil, nil
	}

	address := e.CreateAddress(scheme)
	e.AccountMut(caller).Basic.Nonce++

	log.Debug("evm: create", "caller", caller, "address", address, "gas_limit", gasLimit)
	e.stack.Enter(e.newGasometer(gasLimit), false)

	if reason := e.checkCreateCollision(address); reason != nil {
		_ = e.stack.Exit(ExitFailed)
		return *reason, nil, nil
	}

	newAcc := e.AccountMut(address)
	newAcc.ResetStorage = true
	newAcc.Storage = make(map[Hash]Hash)

	if err := e.TransferValue(Transfer{Source: caller, Target: address, Value: value}); err != nil {
		_ = e.stack.Exit(ExitReverted)
		return ExitError{Err: err}, nil, nil
	}

	if e.cfg.CreateIncreaseNonce {
		e.AccountMut(address).Basic.Nonce++
	}

	ctx := CallContext{Caller: caller, Address: address, ApparentValue: value}
	runtime := e.newRuntime()
	reason, ret := runtime.Run(initCode, nil, ctx, e)

	switch r := reason.(type) {
	case ExitSucceed:
		if e.cfg.CreateContractLimit != nil && len(ret) > *e.cfg.CreateContractLimit {
			e.stack.top().Gasometer.Fail()
			_ = e.stack.Exit(ExitFailed)
			return ExitError{Err: ErrCreateContractLimit}, nil, nil
		}
		if err := e.stack.top().Gasometer.RecordDeposit(len(ret)); err != nil {
			e.stack.top().Gasometer.Fail()
			_ = e.stack.Exit(ExitFailed)
			return classifyErr(err), nil, nil
		}
		e.AccountMut(address).Code = ret
		if err := e.stack.Exit(ExitSucceeded); err != nil {
			return classifyErr(err), nil, nil
		}
		return r, &address, nil
	case ExitError:
		e.stack.top().Gasometer.Fail()
		_ = e.stack.Exit(ExitFailed)
		return r, nil, nil
	case ExitRevert:
		_ = e.stack.Exit(ExitReverted)
		return r, nil, ret
	case ExitFatal:
		e.stack.top().Gasometer.Fail()
		_ = e.stack.Exit(ExitFailed)
		return r, nil, nil
	default:
		panic("vm: unknown ExitReason")
	}
}

// checkCreateCollision implements step 8 of spec §4.3: the derived account
// must have no code and a zero nonce, checked from inside the child frame
// (so a backend read that surfaces non-empty code is cached there too).
func (e *Executor) checkCreateCollision(address Address) *ExitReason {
	acc := e.AccountMut(address)
	if !acc.CodeKnown() {
		acc.Code = e.backend.Code(address)
	}
	if len(acc.Code) != 0 {
		reason := ExitReason(ExitError{Err: ErrCreateCollision})
		return &reason
	}
	if e.Nonce(address) != 0 {
		reason := ExitReason(ExitError{Err: ErrCreateCollision})
		return &reason
	}
	return nil
}

// callInner is the Call engine (spec §4.4).
func (e *Executor) callInner(codeAddress Address, transfer *Transfer, input Bytes, targetGas *uint64, isStatic, takeL64, takeStipend bool, ctx CallContext, kind CallKind) (ExitReason, Bytes) {
	top := e.stack.top()
	afterGas := top.Gasometer.Gas()
	if takeL64 && e.cfg.CallL64AfterGas {
		afterGas = l64(afterGas)
	}
	gasLimit := afterGas
	if targetGas != nil {
		gasLimit = min64(*targetGas, afterGas)
	}
	if err := top.Gasometer.RecordCost(gasLimit); err != nil {
		return classifyErr(err), nil
	}

	if takeStipend && transfer != nil && !transfer.Value.IsZero() {
		sum := gasLimit + e.cfg.CallStipend
		if sum < gasLimit { // saturating add
			sum = ^uint64(0)
		}
		gasLimit = sum
	}

	code := e.CodeOf(codeAddress)

	e.stack.Enter(e.newGasometer(gasLimit), isStatic)
	e.AccountMut(ctx.Address) // touch, ensuring the account exists in the frame

	if depth := e.stack.top().Depth; depth != nil && *depth > e.cfg.CallStackLimit {
		_ = e.stack.Exit(ExitReverted)
		return ExitError{Err: ErrCallTooDeep}, nil
	}

	if transfer != nil {
		if err := e.TransferValue(*transfer); err != nil {
			_ = e.stack.Exit(ExitReverted)
			return ExitError{Err: err}, nil
		}
	}

	if e.precompile != nil {
		if ok, result, err := e.precompile(codeAddress, input, gasLimit); ok {
			if err != nil {
				_ = e.stack.Exit(ExitFailed)
				return ExitError{Err: err}, nil
			}
			if cerr := e.stack.top().Gasometer.RecordCost(result.Cost); cerr != nil {
				_ = e.stack.Exit(ExitFailed)
				return classifyErr(cerr), nil
			}
			if eerr := e.stack.Exit(ExitSucceeded); eerr != nil {
				return classifyErr(eerr), nil
			}
			return ExitSucceed{Kind: result.Kind}, result.Out
		}
	}

	log.Debug("evm: call", "code_address", codeAddress, "gas_limit", gasLimit, "static", isStatic)
	runtime := e.newRuntime()
	reason, ret := runtime.Run(code, input, ctx, e)

	gasUsed := gasLimit - e.stack.top().Gasometer.Gas()
	e.trace = append(e.trace, InternalTransaction{Parent: ctx.Caller, Node: ctx.Address, GasUsed: gasUsed})

	switch r := reason.(type) {
	case ExitSucceed:
		if err := e.stack.Exit(ExitSucceeded); err != nil {
			return classifyErr(err), nil
		}
		return r, ret
	case ExitError:
		_ = e.stack.Exit(ExitFailed)
		return r, nil
	case ExitRevert:
		_ = e.stack.Exit(ExitReverted)
		return r, ret
	case ExitFatal:
		e.stack.top().Gasometer.Fail()
		_ = e.stack.Exit(ExitFailed)
		return r, nil
	default:
		panic("vm: unknown ExitReason")
	}
}

