package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestDecodeMint(t *testing.T) {
	marketABI, err := MarketABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	pairID := big.NewInt(77)

	data, err := marketABI.Events["Mint"].Inputs.NonIndexed().Pack(
		big.NewInt(100),
		big.NewInt(200),
		big.NewInt(300),
		big.NewInt(400),
	)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}

	log := types.Log{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []common.Hash{marketABI.Events["Mint"].ID, AddressTopic(sender), AddressTopic(owner), UintTopic(pairID)},
		Data:        data,
		BlockNumber: 12345,
	}

	mint, err := DecodeMint(log)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	if mint.Sender != sender || mint.To != owner {
		t.Fatalf("address mismatch: %+v", mint)
	}
	if mint.PairID.Cmp(pairID) != 0 {
		t.Fatalf("pair id mismatch: %s", mint.PairID)
	}
	if mint.LongX.Int64() != 100 || mint.ShortX.Int64() != 200 || mint.LongY.Int64() != 300 || mint.ShortY.Int64() != 400 {
		t.Fatalf("amount mismatch: %+v", mint)
	}
	if mint.BlockNumber != 12345 {
		t.Fatalf("block mismatch: %d", mint.BlockNumber)
	}
}

func TestDecodeCreate(t *testing.T) {
	topic, err := CreateTopic()
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	create, err := DecodeCreate(types.Log{
		Topics: []common.Hash{topic, AddressTopic(token0), AddressTopic(token1), UintTopic(big.NewInt(9))},
	})
	if err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if create.Token0 != token0 || create.Token1 != token1 || create.PairID.Int64() != 9 {
		t.Fatalf("create mismatch: %+v", create)
	}
}

func TestDecodeRejectsWrongShape(t *testing.T) {
	mintTopic, err := MintTopic()
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	if _, err := DecodeMint(types.Log{Topics: []common.Hash{mintTopic}}); err == nil {
		t.Fatalf("expected error for missing indexed topics")
	}

	createTopic, err := CreateTopic()
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	other := []common.Hash{mintTopic, {}, {}, {}}
	if _, err := DecodeCreate(types.Log{Topics: other}); err == nil {
		t.Fatalf("expected error for foreign topic0")
	}
	if createTopic == mintTopic {
		t.Fatalf("event topics collide")
	}
}

func TestPairIDOrderIndependent(t *testing.T) {
	a := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := common.HexToAddress("0x0bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	if PairID(a, b).Cmp(PairID(b, a)) != 0 {
		t.Fatalf("pair id depends on argument order")
	}
	if PairID(a, b).Sign() == 0 {
		t.Fatalf("pair id is zero")
	}
}
