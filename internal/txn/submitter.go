package txn

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	// ErrReverted marks a transaction that was mined with a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrBusy is returned while another submission from the same flow is in progress.
	ErrBusy = errors.New("a transaction is already being submitted")
)

// Backend is the provider surface needed to submit and confirm transactions.
// *chain.Client satisfies it.
type Backend interface {
	bind.DeployBackend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Submitter signs, sends and waits for transactions from one account.
type Submitter struct {
	backend Backend
	signer  Signer
	logger  *zap.Logger

	// Sends are serialised so pending nonces never collide.
	mu sync.Mutex
}

func NewSubmitter(backend Backend, signer Signer, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{backend: backend, signer: signer, logger: logger}
}

func (s *Submitter) From() common.Address {
	return s.signer.Address()
}

// Send submits one call and blocks until it is mined. A failed receipt is returned
// together with an error wrapping ErrReverted.
func (s *Submitter) Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		value = new(big.Int)
	}
	from := s.signer.Address()

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	// 20% headroom over the estimate.
	gas += gas / 5

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := s.signer.SignTx(tx)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	s.logger.Info("transaction sent", zap.String("tx", signed.Hash().Hex()), zap.String("to", to.Hex()), zap.Uint64("nonce", nonce))

	receipt, err := bind.WaitMined(ctx, s.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		reason := s.revertReason(ctx, from, signed, receipt.BlockNumber)
		return receipt, fmt.Errorf("%w: tx %s %s", ErrReverted, signed.Hash().Hex(), reason)
	}
	s.logger.Info("transaction mined", zap.String("tx", signed.Hash().Hex()), zap.Uint64("gas_used", receipt.GasUsed))
	return receipt, nil
}

// revertReason replays a failed transaction as a call to recover its revert string.
func (s *Submitter) revertReason(ctx context.Context, from common.Address, tx *types.Transaction, block *big.Int) string {
	msg := ethereum.CallMsg{From: from, To: tx.To(), Gas: tx.Gas(), Value: tx.Value(), Data: tx.Data()}
	out, err := s.backend.CallContract(ctx, msg, block)
	if err != nil {
		return err.Error()
	}
	reason, err := abi.UnpackRevert(out)
	if err != nil {
		return "execution reverted"
	}
	return reason
}
