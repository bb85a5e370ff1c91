// Command simulation drives the trading engine through a scripted price path
// on a throwaway database, then prints the orders, fills and equity curve it
// produced. Useful for eyeballing strategy settings without touching the
// exchange or a shared store.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/bitkub-trader/internal/database"
	"github.com/ksred/bitkub-trader/internal/engine"
	"github.com/ksred/bitkub-trader/internal/store"
	"github.com/ksred/bitkub-trader/internal/types"
)

func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// scriptedSource replays a fixed price path, one step per cycle.
type scriptedSource struct {
	paths map[types.Pair][]float64
	step  map[types.Pair]int
}

func newScriptedSource(paths map[types.Pair][]float64) *scriptedSource {
	return &scriptedSource{paths: paths, step: make(map[types.Pair]int)}
}

func (s *scriptedSource) Quote(_ context.Context, pair types.Pair) (types.MarketSnapshot, error) {
	path := s.paths[pair]
	if len(path) == 0 {
		return types.MarketSnapshot{}, fmt.Errorf("no price path for %s", pair)
	}
	i := s.step[pair]
	if i >= len(path) {
		i = len(path) - 1
	}
	s.step[pair]++

	price := path[i]
	// A tight synthetic book around the scripted price.
	return types.MarketSnapshot{
		Pair:      pair,
		LastPrice: price,
		BestBid:   price * 0.999,
		BestAsk:   price * 1.001,
		Timestamp: time.Now(),
	}, nil
}

func main() {
	dir, err := os.MkdirTemp("", "trader-sim")
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	db, err := database.NewDatabase(filepath.Join(dir, "sim.db"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	st := store.NewDatabase(db)

	// BTC dips through the buy trigger, recovers through the sell trigger;
	// ETH stays flat between its triggers.
	source := newScriptedSource(map[types.Pair][]float64{
		types.PairBTCTHB: {1250000, 1210000, 1190000, 1180000, 1230000, 1290000, 1310000, 1320000},
		types.PairETHTHB: {32000, 32100, 32050, 31900, 32000, 32200, 32150, 32300},
	})

	processor := engine.NewProcessor(st, source, engine.DefaultInterval)

	ctx := context.Background()
	const cycles = 8
	for i := 0; i < cycles; i++ {
		processor.Tick(ctx)
	}

	printResults(st)
}

func printResults(st *store.Database) {
	orders, err := st.RecentOrders(50)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to read orders")
	}
	fills, err := st.RecentFills(50)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to read fills")
	}
	equity, err := st.EquityHistory(types.ModePaper, 50)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to read equity history")
	}
	balances, err := st.Balances(types.ModePaper)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to read balances")
	}

	fmt.Printf("\n=== Orders (%d) ===\n", len(orders))
	for _, o := range orders {
		fmt.Printf("%-8s %-9s %-6s price=%.2f qty=%.8f filled=%.8f fee=%.2f\n",
			o.OrderID[:8], o.Pair, o.Side, o.Price, o.Quantity, o.FilledQuantity, o.Fee)
	}

	fmt.Printf("\n=== Fills (%d) ===\n", len(fills))
	for _, f := range fills {
		fmt.Printf("%-8s order=%-8s price=%.2f qty=%.8f fee=%.2f\n",
			f.FillID[:8], f.OrderID[:8], f.Price, f.Quantity, f.Fee)
	}

	fmt.Printf("\n=== Equity (%d points) ===\n", len(equity))
	for i := len(equity) - 1; i >= 0; i-- {
		s := equity[i]
		fmt.Printf("%s total=%.2f thb=%.2f btc=%.8f eth=%.8f\n",
			s.Timestamp.Format(time.RFC3339), s.TotalValueTHB, s.THB, s.BTC, s.ETH)
	}

	fmt.Printf("\nFinal balances: THB=%.2f BTC=%.8f ETH=%.8f\n", balances.THB, balances.BTC, balances.ETH)
}
