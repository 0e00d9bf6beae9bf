package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"directionalLiquidity/internal/model"
)

// MintEvent is a decoded market Mint log.
type MintEvent struct {
	Sender      common.Address
	To          common.Address
	PairID      *big.Int
	LongX       *big.Int
	ShortX      *big.Int
	LongY       *big.Int
	ShortY      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
}

// CreateEvent is a decoded market Create log.
type CreateEvent struct {
	Token0      common.Address
	Token1      common.Address
	PairID      *big.Int
	BlockNumber uint64
}

// MintTopic returns topic0 of the Mint event.
func MintTopic() (common.Hash, error) {
	return eventTopic("Mint")
}

// CreateTopic returns topic0 of the Create event.
func CreateTopic() (common.Hash, error) {
	return eventTopic("Create")
}

func eventTopic(name string) (common.Hash, error) {
	parsed, err := MarketABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse market abi: %w", err)
	}
	event, ok := parsed.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown event %s", name)
	}
	return event.ID, nil
}

// AddressTopic left-pads an address to a topic word.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// UintTopic encodes an indexed uint256.
func UintTopic(v *big.Int) common.Hash {
	return common.BigToHash(v)
}

// DecodeMint decodes a Mint log emitted by the market.
func DecodeMint(log types.Log) (MintEvent, error) {
	parsed, err := MarketABI()
	if err != nil {
		return MintEvent{}, fmt.Errorf("parse market abi: %w", err)
	}
	event := parsed.Events["Mint"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return MintEvent{}, err
	}

	var indexed struct {
		Sender common.Address
		To     common.Address
		PairId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return MintEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return MintEvent{}, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	v, err := asBigInts(values, 4)
	if err != nil {
		return MintEvent{}, fmt.Errorf("unexpected mint values: %w", err)
	}

	return MintEvent{
		Sender:      indexed.Sender,
		To:          indexed.To,
		PairID:      indexed.PairId,
		LongX:       v[0],
		ShortX:      v[1],
		LongY:       v[2],
		ShortY:      v[3],
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
	}, nil
}

// DecodeCreate decodes a Create log emitted by the market.
func DecodeCreate(log types.Log) (CreateEvent, error) {
	parsed, err := MarketABI()
	if err != nil {
		return CreateEvent{}, fmt.Errorf("parse market abi: %w", err)
	}
	event := parsed.Events["Create"]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return CreateEvent{}, err
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		PairId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return CreateEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	return CreateEvent{
		Token0:      indexed.Token0,
		Token1:      indexed.Token1,
		PairID:      indexed.PairId,
		BlockNumber: log.BlockNumber,
	}, nil
}

// PairID derives a pair identifier locally as keccak256(token0 ++ token1) over the sorted
// addresses. It is only a display hint; the market's getPairId is authoritative.
func PairID(token0, token1 common.Address) *big.Int {
	if model.LessAddress(token1, token0) {
		token0, token1 = token1, token0
	}
	return new(big.Int).SetBytes(crypto.Keccak256(token0.Bytes(), token1.Bytes()))
}

func parseIndexedTopics(event abi.Event, topics []common.Hash) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	if topics[0] != event.ID {
		return nil, fmt.Errorf("topic0 %s is not %s", topics[0].Hex(), event.Name)
	}
	return topics[1:], nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
