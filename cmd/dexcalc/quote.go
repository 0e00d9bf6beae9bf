package main

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"directionalLiquidity/internal/amm"
	"directionalLiquidity/internal/amount"
	"directionalLiquidity/internal/config"
	"directionalLiquidity/internal/market"
	"directionalLiquidity/internal/model"
	"directionalLiquidity/internal/quoter"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a directional swap",
		RunE:  runQuote,
	}
	chainFlags(cmd.Flags())
	cmd.Flags().String("token-in", "", "input token address")
	cmd.Flags().String("token-out", "", "output token address")
	cmd.Flags().String("amount", "", "input amount (human units); output amount with --exact-out")
	cmd.Flags().Bool("long", true, "trade against the long side of the pool")
	cmd.Flags().Bool("exact-out", false, "treat --amount as the desired output")
	cmd.Flags().Bool("watch", false, "read input amounts from stdin, one per line, and quote the latest")
	cmd.Flags().Duration("debounce", quoter.DefaultDelay, "quiet period before a watched amount is quoted")
	return cmd
}

type quoteOutput struct {
	Seq         uint64          `json:"seq,omitempty"`
	TokenIn     string          `json:"token_in"`
	TokenOut    string          `json:"token_out"`
	Long        bool            `json:"long"`
	AmountIn    string          `json:"amount_in"`
	AmountOut   string          `json:"amount_out"`
	MinimumOut  string          `json:"minimum_out"`
	MaximumIn   string          `json:"maximum_in"`
	PriceImpact decimal.Decimal `json:"price_impact_pct"`
	Level       amm.ImpactLevel `json:"impact"`
	HighImpact  bool            `json:"high_impact"`
	// Router cross-check of a one-shot quote.
	RouterAmount string `json:"router_amount,omitempty"`
	RouterMatch  *bool  `json:"router_match,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newQuoteOutput(q amm.SwapQuote, in, out model.Token, long bool) quoteOutput {
	return quoteOutput{
		TokenIn:     in.Symbol,
		TokenOut:    out.Symbol,
		Long:        long,
		AmountIn:    formatUnits(q.AmountIn, in.Decimals),
		AmountOut:   formatUnits(q.AmountOut, out.Decimals),
		MinimumOut:  formatUnits(q.MinimumOut, out.Decimals),
		MaximumIn:   formatUnits(q.MaximumIn, in.Decimals),
		PriceImpact: q.PriceImpact,
		Level:       q.Level,
		HighImpact:  amm.IsHighImpact(q.PriceImpact),
	}
}

func formatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return ""
	}
	return amount.Format(v, decimals)
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	long, _ := cmd.Flags().GetBool("long")
	exactOut, _ := cmd.Flags().GetBool("exact-out")
	watch, _ := cmd.Flags().GetBool("watch")
	if amount.IsHighSlippage(cfg.SlippageBps) {
		fmt.Fprintf(os.Stderr, "warning: slippage tolerance %d bps is high\n", cfg.SlippageBps)
	}

	s, err := openSession(cfg.Config)
	if err != nil {
		return err
	}
	defer s.Close()

	tokenIn, tokenOut, err := tokensFromFlags(cmd, s, "token-in", "token-out")
	if err != nil {
		return err
	}
	reader := market.NewReader(s.client, s.deployment.Market, s.deployment.Router)

	if watch {
		return watchQuotes(s, reader, cfg, tokenIn, tokenOut, long)
	}

	text, _ := cmd.Flags().GetString("amount")
	reserves, err := reader.GetReserves(s.ctx, tokenIn.Address, tokenOut.Address)
	if err != nil {
		return fmt.Errorf("get reserves: %w", err)
	}
	token0In := model.LessAddress(tokenIn.Address, tokenOut.Address)

	var quote amm.SwapQuote
	if exactOut {
		want, err := amount.Parse(text, tokenOut.Decimals)
		if err != nil {
			return err
		}
		quote, err = amm.QuoteExactOut(want, reserves, token0In, long, cfg.SlippageBps)
		if err != nil {
			return err
		}
	} else {
		in, err := amount.Parse(text, tokenIn.Decimals)
		if err != nil {
			return err
		}
		quote, err = amm.Quote(in, reserves, token0In, long, cfg.SlippageBps)
		if err != nil {
			return err
		}
	}

	s.logger.Debug("quote",
		zap.String("amount_in", quote.AmountIn.String()),
		zap.String("amount_out", quote.AmountOut.String()),
		zap.String("impact", quote.PriceImpact.String()),
	)
	out := newQuoteOutput(quote, tokenIn, tokenOut, long)

	check, err := reader.CheckQuote(s.ctx, quote, exactOut)
	if err != nil {
		s.logger.Warn("router quote check failed", zap.Error(err))
		return printJSON(out)
	}
	routerToken := tokenOut
	if exactOut {
		routerToken = tokenIn
	}
	out.RouterAmount = formatUnits(check.Amount, routerToken.Decimals)
	out.RouterMatch = &check.Match
	if !check.Match {
		s.logger.Warn("router quote differs", zap.String("router_amount", check.Amount.String()))
	}
	return printJSON(out)
}

// watchQuotes feeds stdin lines through the debounced quoter and prints every published
// result. It returns once the quote for the last line has been printed.
func watchQuotes(s *session, reader *market.Reader, cfg config.QuoteConfig, tokenIn, tokenOut model.Token, long bool) error {
	q := quoter.New(reader, cfg.Debounce, s.metrics, s.logger)

	printed := make(chan uint64, 1)
	go func() {
		for res := range q.Results() {
			out := quoteOutput{TokenIn: tokenIn.Symbol, TokenOut: tokenOut.Symbol, Long: long}
			if res.Err != nil {
				out.Error = res.Err.Error()
			} else {
				out = newQuoteOutput(res.Quote, tokenIn, tokenOut, long)
			}
			out.Seq = res.Seq
			if err := printJSON(out); err != nil {
				s.logger.Warn("print quote", zap.Error(err))
			}
			select {
			case <-printed:
			default:
			}
			printed <- res.Seq
		}
		close(printed)
	}()

	var last uint64
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seq, err := q.Submit(s.ctx, quoter.Request{
			TokenIn:     tokenIn,
			TokenOut:    tokenOut,
			AmountIn:    line,
			Long:        long,
			SlippageBps: cfg.SlippageBps,
		})
		if err != nil {
			q.Close()
			return err
		}
		last = seq
	}
	if err := scanner.Err(); err != nil {
		q.Close()
		return fmt.Errorf("read stdin: %w", err)
	}

	for last != 0 {
		select {
		case seq, ok := <-printed:
			if !ok || seq == last {
				last = 0
			}
		case <-s.ctx.Done():
			last = 0
		}
	}
	q.Close()
	return s.ctx.Err()
}

// tokensFromFlags reads two token address flags and fetches their metadata.
func tokensFromFlags(cmd *cobra.Command, s *session, nameA, nameB string) (model.Token, model.Token, error) {
	aText, _ := cmd.Flags().GetString(nameA)
	bText, _ := cmd.Flags().GetString(nameB)
	addrA, err := config.ParseAddress(aText)
	if err != nil {
		return model.Token{}, model.Token{}, fmt.Errorf("%s: %w", nameA, err)
	}
	addrB, err := config.ParseAddress(bText)
	if err != nil {
		return model.Token{}, model.Token{}, fmt.Errorf("%s: %w", nameB, err)
	}
	if addrA == addrB {
		return model.Token{}, model.Token{}, model.ErrSameToken
	}

	tokens := market.NewTokenMetaCache()
	tokenA, err := tokens.Lookup(s.ctx, s.client, addrA, s.logger)
	if err != nil {
		return model.Token{}, model.Token{}, fmt.Errorf("%s metadata: %w", nameA, err)
	}
	tokenB, err := tokens.Lookup(s.ctx, s.client, addrB, s.logger)
	if err != nil {
		return model.Token{}, model.Token{}, fmt.Errorf("%s metadata: %w", nameB, err)
	}
	tokenA.ChainID = s.deployment.ChainID
	tokenB.ChainID = s.deployment.ChainID
	return tokenA, tokenB, nil
}
