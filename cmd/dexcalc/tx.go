package main

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/config"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/model"
	"directionalLiquidity/internal/txn"
)

func txFlags(flags *pflag.FlagSet) {
	chainFlags(flags)
	flags.String("private-key", "", "hex private key of the signing account")
	flags.String("owner", "", "recipient and allowance owner (defaults to the signer)")
	flags.Duration("deadline", 0, "override the default transaction deadline")
	flags.Bool("dry-run", false, "print the calls without signing or sending")
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit two tokens split into long and short legs",
		RunE:  runAdd,
	}
	txFlags(cmd.Flags())
	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().String("amount-a", "0", "total of token A (human units)")
	cmd.Flags().String("amount-b", "0", "total of token B (human units)")
	cmd.Flags().Int("slider", 50, "bullishness on token A, 0-100")
	cmd.Flags().Uint64("min-bps", 0, "derive per-leg minimums with this tolerance, 0 sends zero minimums")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Withdraw from a directional LP position",
		RunE:  runRemove,
	}
	txFlags(cmd.Flags())
	cmd.Flags().String("token-a", "", "first token of the pair")
	cmd.Flags().String("token-b", "", "second token of the pair")
	cmd.Flags().String("long0", "", `token0 long LP to withdraw: amount, "25%" or "max"`)
	cmd.Flags().String("short0", "", "token0 short LP to withdraw")
	cmd.Flags().String("long1", "", "token1 long LP to withdraw")
	cmd.Flags().String("short1", "", "token1 short LP to withdraw")
	return cmd
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap an exact input amount against one side of a pool",
		RunE:  runSwap,
	}
	txFlags(cmd.Flags())
	cmd.Flags().String("token-in", "", "input token address")
	cmd.Flags().String("token-out", "", "output token address")
	cmd.Flags().String("amount", "", "input amount (human units)")
	cmd.Flags().Bool("long", true, "trade against the long side of the pool")
	return cmd
}

type txOutput struct {
	txn.Outcome
	Quote   *quoteOutput `json:"quote,omitempty"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
}

// txSession is a session plus the flows bound to one owner.
type txSession struct {
	*session
	cfg    config.TxConfig
	reader *market.Reader
	flows  *txn.Flows
}

func openTxSession(cmd *cobra.Command) (*txSession, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTx(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if !cfg.DryRun && cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private-key is required unless --dry-run is set")
	}

	s, err := openSession(cfg.Config)
	if err != nil {
		return nil, err
	}

	reader := market.NewReader(s.client, s.deployment.Market, s.deployment.Router)
	flows := &txn.Flows{Reader: reader, Deadline: cfg.Deadline, Logger: s.logger}

	if cfg.PrivateKey != "" {
		signer, err := txn.NewKeySigner(cfg.PrivateKey, new(big.Int).SetUint64(s.deployment.ChainID))
		if err != nil {
			s.Close()
			return nil, err
		}
		flows.Owner = signer.Address()
		if !cfg.DryRun {
			flows.Submitter = txn.NewSubmitter(s.client, signer, s.logger)
		}
	}
	if cfg.Owner != "" {
		owner, err := config.ParseAddress(cfg.Owner)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("owner: %w", err)
		}
		flows.Owner = owner
	}
	if flows.Owner == (common.Address{}) {
		s.Close()
		return nil, fmt.Errorf("owner is required for a dry run without a private key")
	}

	s.logger.Info("transaction session",
		zap.String("owner", flows.Owner.Hex()),
		zap.Bool("dry_run", flows.Submitter == nil),
		zap.String("chain", config.ChainName(s.deployment.ChainID)),
	)
	return &txSession{session: s, cfg: cfg, reader: reader, flows: flows}, nil
}

// finish prints the outcome and converts a failure into a user-facing error.
func (t *txSession) finish(op string, out txOutput, err error) error {
	if err != nil {
		out.Error = err.Error()
		out.Message = txn.DescribeError(err)
		t.logger.Error(op+" failed", zap.Error(err))
	}
	if perr := printJSON(out); perr != nil && err == nil {
		return perr
	}
	if err != nil {
		return errors.New(out.Message)
	}
	return nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	t, err := openTxSession(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	tokenA, tokenB, err := tokensFromFlags(cmd, t.session, "token-a", "token-b")
	if err != nil {
		return err
	}
	aText, _ := cmd.Flags().GetString("amount-a")
	bText, _ := cmd.Flags().GetString("amount-b")
	slider, _ := cmd.Flags().GetInt("slider")
	minBps, _ := cmd.Flags().GetUint64("min-bps")

	totalA, err := amount.Parse(aText, tokenA.Decimals)
	if err != nil {
		return fmt.Errorf("amount-a: %w", err)
	}
	totalB, err := amount.Parse(bText, tokenB.Decimals)
	if err != nil {
		return fmt.Errorf("amount-b: %w", err)
	}
	legs, err := amm.SplitUnits(totalA, totalB, slider)
	if err != nil {
		return err
	}

	outcome, err := t.flows.AddLiquidity(t.ctx, txn.AddParams{
		TokenA:       tokenA.Address,
		TokenB:       tokenB.Address,
		AmountALong:  legs.ALong,
		AmountAShort: legs.AShort,
		AmountBLong:  legs.BLong,
		AmountBShort: legs.BShort,
		MinimumBps:   minBps,
	})
	return t.finish("add", txOutput{Outcome: outcome}, err)
}

func runRemove(cmd *cobra.Command, _ []string) error {
	t, err := openTxSession(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	var req model.WithdrawalRequest
	for _, c := range []struct {
		flag string
		dst  *model.WithdrawalAmount
	}{
		{"long0", &req.Long0},
		{"short0", &req.Short0},
		{"long1", &req.Long1},
		{"short1", &req.Short1},
	} {
		text, _ := cmd.Flags().GetString(c.flag)
		w, err := amm.ParseWithdrawal(text)
		if err != nil {
			return fmt.Errorf("%s: %w", c.flag, err)
		}
		*c.dst = w
	}

	aText, _ := cmd.Flags().GetString("token-a")
	bText, _ := cmd.Flags().GetString("token-b")
	addrA, err := config.ParseAddress(aText)
	if err != nil {
		return fmt.Errorf("token-a: %w", err)
	}
	addrB, err := config.ParseAddress(bText)
	if err != nil {
		return fmt.Errorf("token-b: %w", err)
	}
	token0, token1, err := model.SortAddresses(addrA, addrB)
	if err != nil {
		return err
	}

	pairID, err := t.reader.GetPairID(t.ctx, token0, token1)
	if err != nil {
		return fmt.Errorf("get pair id: %w", err)
	}
	balances, err := t.reader.BalanceOf(t.ctx, t.flows.Owner, pairID)
	if err != nil {
		return fmt.Errorf("lp balance: %w", err)
	}

	outcome, err := t.flows.RemoveLiquidity(t.ctx, txn.RemoveParams{
		Token0:      token0,
		Token1:      token1,
		Balances:    balances,
		Request:     req,
		SlippageBps: t.cfg.SlippageBps,
	})
	return t.finish("remove", txOutput{Outcome: outcome}, err)
}

func runSwap(cmd *cobra.Command, _ []string) error {
	t, err := openTxSession(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	tokenIn, tokenOut, err := tokensFromFlags(cmd, t.session, "token-in", "token-out")
	if err != nil {
		return err
	}
	text, _ := cmd.Flags().GetString("amount")
	long, _ := cmd.Flags().GetBool("long")
	in, err := amount.Parse(text, tokenIn.Decimals)
	if err != nil {
		return err
	}
	if amount.IsHighSlippage(t.cfg.SlippageBps) {
		t.logger.Warn("high slippage tolerance", zap.Uint64("slippage_bps", t.cfg.SlippageBps))
	}

	outcome, err := t.flows.Swap(t.ctx, txn.SwapParams{
		TokenIn:     tokenIn.Address,
		TokenOut:    tokenOut.Address,
		AmountIn:    in,
		Long:        long,
		SlippageBps: t.cfg.SlippageBps,
	})
	out := txOutput{Outcome: outcome}
	if outcome.Quote != nil {
		q := newQuoteOutput(*outcome.Quote, tokenIn, tokenOut, long)
		out.Quote = &q
	}
	return t.finish("swap", out, err)
}
