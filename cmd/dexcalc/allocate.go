package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/config"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/model"
)

func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split two deposit totals into long and short legs",
		RunE:  runSplit,
	}
	cmd.Flags().String("a", "", "total of token A (human units)")
	cmd.Flags().String("b", "", "total of token B (human units)")
	cmd.Flags().Int("slider", 50, "bullishness on token A, 0-100")
	cmd.Flags().Uint8("decimals-a", 18, "token A decimals for the on-chain amounts")
	cmd.Flags().Uint8("decimals-b", 18, "token B decimals for the on-chain amounts")
	return cmd
}

type splitOutput struct {
	Slider int             `json:"slider"`
	Human  amm.Allocation  `json:"human"`
	Units  unitsAllocation `json:"units"`
}

type unitsAllocation struct {
	ALong  string `json:"a_long"`
	AShort string `json:"a_short"`
	BLong  string `json:"b_long"`
	BShort string `json:"b_short"`
}

func runSplit(cmd *cobra.Command, _ []string) error {
	aText, _ := cmd.Flags().GetString("a")
	bText, _ := cmd.Flags().GetString("b")
	slider, _ := cmd.Flags().GetInt("slider")
	decA, _ := cmd.Flags().GetUint8("decimals-a")
	decB, _ := cmd.Flags().GetUint8("decimals-b")

	totalA, err := amount.ParseDecimal(aText)
	if err != nil {
		return fmt.Errorf("a: %w", err)
	}
	totalB, err := amount.ParseDecimal(bText)
	if err != nil {
		return fmt.Errorf("b: %w", err)
	}

	human, err := amm.Split(totalA, totalB, slider)
	if err != nil {
		return err
	}
	units, err := amm.SplitUnits(amount.FromDecimal(totalA, decA), amount.FromDecimal(totalB, decB), slider)
	if err != nil {
		return err
	}

	return printJSON(splitOutput{
		Slider: slider,
		Human:  human,
		Units: unitsAllocation{
			ALong:  units.ALong.String(),
			AShort: units.AShort.String(),
			BLong:  units.BLong.String(),
			BShort: units.BShort.String(),
		},
	})
}

func newRatioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratio",
		Short: "Pair a deposit amount with the other token at the pool price",
		RunE:  runRatio,
	}
	chainFlags(cmd.Flags())
	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().String("amount-a", "", "edited amount of token A (human units)")
	cmd.Flags().String("amount-b", "", "edited amount of token B (human units)")
	return cmd
}

type ratioOutput struct {
	TokenA   model.Token          `json:"token_a"`
	TokenB   model.Token          `json:"token_b"`
	PairID   string               `json:"local_pair_id"`
	Reserves model.ReservesRecord `json:"reserves"`
	NewPool  bool                 `json:"new_pool"`
	Edited   string               `json:"edited"`
	AmountA  decimal.Decimal      `json:"amount_a"`
	AmountB  decimal.Decimal      `json:"amount_b"`
	Price    *amm.PoolPrice       `json:"price,omitempty"`
}

func runRatio(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	aText, _ := cmd.Flags().GetString("amount-a")
	bText, _ := cmd.Flags().GetString("amount-b")
	if aText == "" && bText == "" {
		return fmt.Errorf("amount-a or amount-b is required")
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	tokenA, tokenB, err := tokensFromFlags(cmd, s, "token-a", "token-b")
	if err != nil {
		return err
	}
	reader := market.NewReader(s.client, s.deployment.Market, s.deployment.Router)
	reserves, err := reader.GetReserves(s.ctx, tokenA.Address, tokenB.Address)
	if err != nil {
		return fmt.Errorf("get reserves: %w", err)
	}

	enforcer, err := amm.NewRatioEnforcer(tokenA, tokenB, reserves)
	if err != nil {
		return err
	}

	out := ratioOutput{
		TokenA:   tokenA,
		TokenB:   tokenB,
		PairID:   market.PairID(tokenA.Address, tokenB.Address).String(),
		Reserves: reserves.Record(),
		NewPool:  !reserves.Exists(),
	}
	field, text := amm.FieldA, aText
	if aText == "" {
		field, text = amm.FieldB, bText
	}
	value, err := amount.ParseDecimal(text)
	if err != nil {
		return err
	}
	out.Edited = field.String()

	update := enforcer.Apply(field, value)
	// A new pool takes both amounts as given; they set its initial price.
	if !update.Recomputed && aText != "" && bText != "" {
		other, err := amount.ParseDecimal(bText)
		if err != nil {
			return err
		}
		update = enforcer.Apply(amm.FieldB, other)
	}
	out.AmountA, out.AmountB = update.A, update.B

	if price, ok := amm.CurrentPrice(reserves, tokenA, tokenB); ok {
		out.Price = &price
	} else if price, ok := amm.InitialPrice(update.A, update.B); ok {
		out.Price = &price
	}

	s.logger.Info("ratio",
		zap.String("pair", tokenA.Symbol+"/"+tokenB.Symbol),
		zap.Bool("new_pool", out.NewPool),
		zap.Bool("recomputed", update.Recomputed),
	)
	return printJSON(out)
}
