// Package chaintest serves a scripted eth JSON-RPC namespace in process, for tests that
// exercise contract reads and transaction submission without a node.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// CallHandler answers an eth_call to one contract.
type CallHandler func(from common.Address, data []byte) ([]byte, error)

// Fake is the scripted chain state.
type Fake struct {
	mu sync.Mutex

	ChainID  uint64
	Head     uint64
	GasPrice *big.Int
	Gas      uint64
	// FailReceipts marks every mined transaction as reverted.
	FailReceipts bool

	logs     []types.Log
	handlers map[common.Address]CallHandler
	nonces   map[common.Address]uint64
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	calls    map[string]int
}

func New(chainID uint64) *Fake {
	return &Fake{
		ChainID:  chainID,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      210_000,
		handlers: make(map[common.Address]CallHandler),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		calls:    make(map[string]int),
	}
}

// Handle routes eth_call requests for addr to h.
func (f *Fake) Handle(addr common.Address, h CallHandler) {
	f.mu.Lock()
	f.handlers[addr] = h
	f.mu.Unlock()
}

// AddLogs appends logs returned by eth_getLogs when they match the filter.
func (f *Fake) AddLogs(logs ...types.Log) {
	f.mu.Lock()
	f.logs = append(f.logs, logs...)
	f.mu.Unlock()
}

// Sent returns the transactions received so far.
func (f *Fake) Sent() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

// Calls returns how many times an RPC method was served.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Dial starts an in-process server for the fake.
func (f *Fake) Dial() (*rpc.Client, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", &ethService{f: f}); err != nil {
		return nil, err
	}
	return rpc.DialInProc(srv), nil
}

func (f *Fake) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a callArgs) payload() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

type filterArgs struct {
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
	Address   []common.Address `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
}

type ethService struct {
	f *Fake
}

func (s *ethService) ChainId(ctx context.Context) (*hexutil.Big, error) {
	s.f.count("eth_chainId")
	return (*hexutil.Big)(new(big.Int).SetUint64(s.f.ChainID)), nil
}

func (s *ethService) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	s.f.count("eth_blockNumber")
	return hexutil.Uint64(s.f.Head), nil
}

func (s *ethService) Call(ctx context.Context, args callArgs, _ rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	s.f.count("eth_call")
	if args.To == nil {
		return nil, errors.New("missing to")
	}
	s.f.mu.Lock()
	h, ok := s.f.handlers[*args.To]
	s.f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no contract at %s", args.To.Hex())
	}
	var from common.Address
	if args.From != nil {
		from = *args.From
	}
	return h(from, args.payload())
}

func (s *ethService) GetLogs(ctx context.Context, crit filterArgs) ([]types.Log, error) {
	s.f.count("eth_getLogs")
	from, err := hexutil.DecodeUint64(crit.FromBlock)
	if err != nil {
		return nil, fmt.Errorf("fromBlock: %w", err)
	}
	to, err := hexutil.DecodeUint64(crit.ToBlock)
	if err != nil {
		return nil, fmt.Errorf("toBlock: %w", err)
	}

	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	out := make([]types.Log, 0)
	for _, log := range s.f.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if len(crit.Address) > 0 && !containsAddress(crit.Address, log.Address) {
			continue
		}
		if !topicsMatch(crit.Topics, log.Topics) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (s *ethService) GetTransactionCount(ctx context.Context, addr common.Address, _ rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	s.f.count("eth_getTransactionCount")
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return hexutil.Uint64(s.f.nonces[addr]), nil
}

func (s *ethService) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	s.f.count("eth_gasPrice")
	return (*hexutil.Big)(new(big.Int).Set(s.f.GasPrice)), nil
}

func (s *ethService) EstimateGas(ctx context.Context, args callArgs) (hexutil.Uint64, error) {
	s.f.count("eth_estimateGas")
	return hexutil.Uint64(s.f.Gas), nil
}

func (s *ethService) SendRawTransaction(ctx context.Context, input hexutil.Bytes) (common.Hash, error) {
	s.f.count("eth_sendRawTransaction")
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	sender, err := types.Sender(types.LatestSignerForChainID(new(big.Int).SetUint64(s.f.ChainID)), tx)
	if err != nil {
		return common.Hash{}, err
	}

	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	s.f.nonces[sender] = tx.Nonce() + 1
	s.f.sent = append(s.f.sent, tx)
	s.f.Head++

	status := types.ReceiptStatusSuccessful
	if s.f.FailReceipts {
		status = types.ReceiptStatusFailed
	}
	s.f.receipts[tx.Hash()] = &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: tx.Gas(),
		GasUsed:           tx.Gas(),
		Logs:              []*types.Log{},
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).SetUint64(s.f.Head),
		BlockHash:         common.BigToHash(new(big.Int).SetUint64(s.f.Head)),
	}
	return tx.Hash(), nil
}

func (s *ethService) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	s.f.count("eth_getTransactionReceipt")
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.f.receipts[hash], nil
}

func (s *ethService) GetCode(ctx context.Context, addr common.Address, _ rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	s.f.count("eth_getCode")
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if _, ok := s.f.handlers[addr]; ok {
		return hexutil.Bytes{0x60, 0x80}, nil
	}
	return hexutil.Bytes{}, nil
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

func topicsMatch(filter [][]common.Hash, topics []common.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alternatives := range filter {
		if len(alternatives) == 0 {
			continue
		}
		found := false
		for _, want := range alternatives {
			if topics[i] == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
