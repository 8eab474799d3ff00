package engine

import (
	"errors"

	"github.com/google/uuid"

	"github.com/casperlabs/execution-engine/execution"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/log"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/systemcontracts"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

// DeployRequest bundles run_deploy's inputs (§4.1).
type DeployRequest struct {
	SessionCode    []byte
	SessionArgs    [][]byte
	PaymentCode    []byte
	PaymentArgs    [][]byte
	Address        key.Key // must be an Account key; see the base_key rename noted in design
	AuthorizedKeys key.PublicKeySet
	Blocktime      uint64
	Nonce          uint64
	PrestateHash   key.Hash
	GasLimit       result.Gas
	ProtocolVersion uint64
	CorrelationID  string
}

// RunDeploy drives the full precondition sequence and three-phase
// execution pipeline. The only error this method returns is
// RootNotFoundError; every other failure is encoded inside the returned
// ExecutionResult.
func (e *EngineState) RunDeploy(req DeployRequest) (result.ExecutionResult, error) {
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	reader, err := e.history.Checkout(req.PrestateHash)
	if err != nil {
		if rnf, ok := err.(*RootNotFoundError); ok {
			return result.ExecutionResult{}, rnf
		}
		return result.PreconditionFailure(&result.StorageError{Cause: err}), nil
	}
	tc := trackingcopy.New(reader)

	addr, ok := req.Address.AsAccount()
	if !ok {
		return result.PreconditionFailure(&result.AuthorizationError{Reason: "address is not an account key"}), nil
	}

	account, err := tc.GetAccount(addr)
	if err != nil {
		if errors.Is(err, trackingcopy.ErrKeyNotFound) {
			return result.PreconditionFailure(&result.AuthorizationError{Reason: "account does not exist"}), nil
		}
		if errors.Is(err, trackingcopy.ErrTypeMismatch) {
			return result.PreconditionFailure(&result.AuthorizationError{Reason: "address does not resolve to an account"}), nil
		}
		return result.PreconditionFailure(&result.StorageError{Cause: err}), nil
	}

	if !account.CanAuthorize(req.AuthorizedKeys) {
		return result.PreconditionFailure(&result.AuthorizationError{Reason: "authorized keys empty or not fully associated"}), nil
	}

	if e.config.NonceCheckEnabled {
		nonceErr, err := tc.HandleNonce(addr, account, req.Nonce)
		if err != nil {
			return result.PreconditionFailure(&result.StorageError{Cause: err}), nil
		}
		if nonceErr != nil {
			log.Warn("run_deploy: nonce precondition failed", "correlation_id", req.CorrelationID, "expected", nonceErr.Expected, "found", nonceErr.Found)
			return result.PreconditionFailure(nonceErr), nil
		}
	}

	if !account.CanDeployWith(req.AuthorizedKeys) {
		return result.PreconditionFailure(&result.AuthorizationError{Reason: "deployment threshold not met"}), nil
	}

	sessionModule, err := e.preprocessor.Preprocess(req.SessionCode)
	if err != nil {
		return result.PreconditionFailure(&result.WasmPreprocessingError{Cause: err}), nil
	}

	if !e.config.PaymentCodeEnabled {
		sessionResult := e.executor.Exec(sessionModule, req.SessionArgs, result.PhaseSession, req.GasLimit, tc)
		return result.ExecutionResult{Effects: tc.Effect(), Cost: sessionResult.Cost, Error: sessionResult.Error}, nil
	}

	mintURef, posURef, failure := e.resolveSystemContracts(account)
	if failure != nil {
		return *failure, nil
	}

	mint := systemcontracts.NewMint(tc)
	posContract, _, err := tc.GetSystemContractInfo(posURef)
	if err != nil {
		return result.PreconditionFailure(&result.DeployError{Reason: "pos contract not installed"}), nil
	}
	paymentPurseURef, err := systemcontracts.PaymentPurseURef(posContract)
	if err != nil {
		return result.PreconditionFailure(&result.DeployError{Reason: err.Error()}), nil
	}
	rewardsPurseURef, err := systemcontracts.RewardsPurseURef(posContract)
	if err != nil {
		return result.PreconditionFailure(&result.DeployError{Reason: err.Error()}), nil
	}

	rewardsBalanceKey, err := mint.BalanceKey(mintURef, rewardsPurseURef)
	if err != nil {
		return result.PreconditionFailure(&result.DeployError{Reason: "rewards purse balance key not found"}), nil
	}
	mainBalanceKey, err := mint.BalanceKey(mintURef, account.MainPurse.Value())
	if err != nil {
		return result.PreconditionFailure(&result.DeployError{Reason: "main purse balance key not found"}), nil
	}
	paymentBalanceKey, err := mint.BalanceKey(mintURef, paymentPurseURef)
	if err != nil {
		return result.PreconditionFailure(&result.DeployError{Reason: "payment purse balance key not found"}), nil
	}

	mainBalance, err := tc.GetPurseBalance(mainBalanceKey)
	if err != nil {
		return result.PreconditionFailure(&result.StorageError{Cause: err}), nil
	}
	maxPayment := value.NewU512(e.config.MaxPayment)
	if mainBalance.LessThan(maxPayment) {
		log.Warn("run_deploy: main purse below max payment", "correlation_id", req.CorrelationID, "balance", mainBalance.String())
		return result.PreconditionFailure(&result.InsufficientPaymentError{}), nil
	}

	paymentModule, err := e.preprocessor.Preprocess(req.PaymentCode)
	if err != nil {
		return result.PreconditionFailure(&result.WasmPreprocessingError{Cause: err}), nil
	}

	payGasLimit := result.Gas(e.config.MaxPayment / e.config.ConvRate)
	markP := tc.Mark()
	paymentResult := e.executor.Exec(paymentModule, req.PaymentArgs, result.PhasePayment, payGasLimit, tc)
	cP := paymentResult.Cost

	bPay, err := tc.GetPurseBalance(paymentBalanceKey)
	if err != nil {
		return result.PreconditionFailure(&result.StorageError{Cause: err}), nil
	}

	if !(paymentResult.Ok() && bPay.GreaterOrEqual(maxPayment)) {
		log.Warn("run_deploy: forced transfer", "correlation_id", req.CorrelationID, "payment_error", paymentResult.Error)
		tc.Rollback(markP)
		markT := tc.Mark()
		if transferErr := mint.Transfer(mainBalanceKey, rewardsBalanceKey, maxPayment); transferErr != nil {
			return result.PreconditionFailure(&result.StorageError{Cause: transferErr}), nil
		}
		errOut := paymentResult.Error
		if errOut == nil {
			errOut = &result.InsufficientPaymentError{}
		}
		return result.ExecutionResult{Effects: tc.EffectSince(markT), Cost: cP, Error: errOut}, nil
	}

	sessionGasLimit := sessionGasLimitFor(bPay, e.config.ConvRate, cP)
	markS := tc.Mark()
	sessionResult := e.executor.Exec(sessionModule, req.SessionArgs, result.PhaseSession, sessionGasLimit, tc)
	cS := sessionResult.Cost
	sessionErr := sessionResult.Error
	if !sessionResult.Ok() {
		tc.Rollback(markS)
	}

	finalizeModule, err := e.preprocessor.Deserialize(posContract.ModuleBytes)
	if err != nil {
		return result.ExecutionResult{Effects: tc.Effect(), Cost: cP.Add(cS), Error: &result.FinalizeError{Cause: err}}, nil
	}
	motes := uint64(cP.Add(cS)) * e.config.ConvRate
	markF := tc.Mark()
	finalizeResult := e.executor.ExecDirect(finalizeModule, [][]byte{execution.MotesArg(motes)}, tc)
	if !finalizeResult.Ok() {
		log.Warn("run_deploy: finalize failed", "correlation_id", req.CorrelationID, "cause", finalizeResult.Error)
		tc.Rollback(markF)
		return result.ExecutionResult{Effects: tc.Effect(), Cost: cP.Add(cS), Error: &result.FinalizeError{Cause: finalizeResult.Error}}, nil
	}

	log.Trace("run_deploy: settled", "correlation_id", req.CorrelationID, "cost", cP.Add(cS), "blocktime", params.UnixTimestampToTime(req.Blocktime))
	return result.ExecutionResult{Effects: tc.Effect(), Cost: cP.Add(cS), Error: sessionErr}, nil
}

// resolveSystemContracts resolves the Mint and PoS URefs from account's
// named keys, per §4.1 step 8. Deliberately does not fetch the Mint's own
// installed Contract value: the design notes flag fetching the full
// contract just to read one URef as wasteful, so callers that only need
// purse-balance lookups use the URef directly against the tracking copy.
func (e *EngineState) resolveSystemContracts(account *value.Account) (mintURef, posURef key.URef, failure *result.ExecutionResult) {
	mintKey, ok := account.NamedKeys[params.MintName]
	if !ok {
		f := result.PreconditionFailure(&result.MissingSystemContractError{Name: params.MintName})
		return key.URef{}, key.URef{}, &f
	}
	mintURef, ok = mintKey.AsURef()
	if !ok {
		f := result.PreconditionFailure(&result.DeployError{Reason: "mint named key is not a uref"})
		return key.URef{}, key.URef{}, &f
	}
	posKey, ok := account.NamedKeys[params.PoSName]
	if !ok {
		f := result.PreconditionFailure(&result.MissingSystemContractError{Name: params.PoSName})
		return key.URef{}, key.URef{}, &f
	}
	posURef, ok = posKey.AsURef()
	if !ok {
		f := result.PreconditionFailure(&result.DeployError{Reason: "pos named key is not a uref"})
		return key.URef{}, key.URef{}, &f
	}
	return mintURef, posURef, nil
}

// sessionGasLimitFor computes (bPay/convRate) - cP, saturating at zero.
func sessionGasLimitFor(bPay value.U512, convRate uint64, cP result.Gas) result.Gas {
	limit := bPay.Div(value.NewU512(convRate)).Uint64()
	if limit < uint64(cP) {
		return 0
	}
	return result.Gas(limit) - cP
}
