package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Known chain IDs.
const (
	Mainnet           uint64 = 1
	Sepolia           uint64 = 11155111
	Sonic             uint64 = 146
	SonicBlazeTestnet uint64 = 57054
)

var ErrUnsupportedChain = errors.New("market and router are not deployed on this chain")

// Deployment is the pair of contracts the toolkit talks to.
type Deployment struct {
	ChainID uint64
	Market  common.Address
	Router  common.Address
}

var deployments = map[uint64]Deployment{
	SonicBlazeTestnet: {
		ChainID: SonicBlazeTestnet,
		Market:  common.HexToAddress("0x1b4C769a1E14C9dbB158da0b9E3e5A53826AA9F5"),
		Router:  common.HexToAddress("0x91205B2C56bc078B5777Fc96919A6CA4f7BDc3C7"),
	},
}

// ChainName returns a display name for known chains.
func ChainName(chainID uint64) string {
	switch chainID {
	case Mainnet:
		return "mainnet"
	case Sepolia:
		return "sepolia"
	case Sonic:
		return "sonic"
	case SonicBlazeTestnet:
		return "sonic-blaze-testnet"
	default:
		return fmt.Sprintf("chain-%d", chainID)
	}
}

// ResolveDeployment returns the contract addresses for cfg. Explicit market and router
// settings override the built-in table.
func ResolveDeployment(cfg Config) (Deployment, error) {
	dep, known := deployments[cfg.ChainID]
	dep.ChainID = cfg.ChainID

	if cfg.Market != "" {
		addr, err := ParseAddress(cfg.Market)
		if err != nil {
			return Deployment{}, fmt.Errorf("market: %w", err)
		}
		dep.Market = addr
	}
	if cfg.Router != "" {
		addr, err := ParseAddress(cfg.Router)
		if err != nil {
			return Deployment{}, fmt.Errorf("router: %w", err)
		}
		dep.Router = addr
	}

	if dep.Market == (common.Address{}) || dep.Router == (common.Address{}) {
		if !known {
			return Deployment{}, fmt.Errorf("%w: %s", ErrUnsupportedChain, ChainName(cfg.ChainID))
		}
		return Deployment{}, fmt.Errorf("incomplete deployment for %s", ChainName(cfg.ChainID))
	}
	return dep, nil
}

// ParseAddress validates a hex address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
