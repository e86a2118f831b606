// Package feature derives deterministic trading signals' raw ingredients
// (mid price, spread, imbalance, entropy, volatility, RSI, ...) from order
// book and price-history state. Every exported method is a pure function of
// its inputs except Volatility, which appends to a private bounded history
// ring (§4.3).
package feature

import (
	"sync"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

const defaultHistoryLen = 1000

var (
	two                   = decimal.NewFromInt(2)
	hundred               = decimal.NewFromInt(100)
	annualizationConstant = decimal.NewFromInt(724) // sqrt(525600) approximated for determinism
)

// Calculator computes book- and price-derived features. It carries a
// bounded price-history ring (default length 1000) used only by Volatility;
// every other method is a pure function of its arguments.
type Calculator struct {
	mu         sync.Mutex
	historyLen int
	history    []decimal.Decimal
}

// NewCalculator creates a feature calculator with the given history ring
// length. A length <= 0 selects the default of 1000.
func NewCalculator(historyLen int) *Calculator {
	if historyLen <= 0 {
		historyLen = defaultHistoryLen
	}
	return &Calculator{historyLen: historyLen}
}

// MidPrice returns (best_bid + best_ask) / 2, or false if either side of the
// book is empty.
func MidPrice(book *types.OrderBook) (decimal.Decimal, bool) {
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).DivRound(two, 18), true
}

// Spread returns best_ask - best_bid, or false if either side is empty.
func Spread(book *types.OrderBook) (decimal.Decimal, bool) {
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// SpreadPct returns spread / mid * 100, or false if mid is undefined or zero.
func SpreadPct(book *types.OrderBook) (decimal.Decimal, bool) {
	mid, ok := MidPrice(book)
	if !ok || mid.IsZero() {
		return decimal.Zero, false
	}
	spread, ok := Spread(book)
	if !ok {
		return decimal.Zero, false
	}
	return spread.DivRound(mid, 18).Mul(hundred), true
}

// DepthImbalance returns (sum(bid_qty) - sum(ask_qty)) / (sum(bid_qty) +
// sum(ask_qty)) over all levels, or zero if both sums are zero.
func DepthImbalance(book *types.OrderBook) decimal.Decimal {
	bidQty := sumQuantity(book.Bids)
	askQty := sumQuantity(book.Asks)
	denom := bidQty.Add(askQty)
	if denom.IsZero() {
		return decimal.Zero
	}
	return bidQty.Sub(askQty).DivRound(denom, 18)
}

func sumQuantity(levels []types.BookLevel) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range levels {
		sum = sum.Add(l.Quantity)
	}
	return sum
}

// CexLiquidity returns the arithmetic mean of sum(price*qty) over the top-10
// bids and top-10 asks.
func CexLiquidity(book *types.OrderBook) decimal.Decimal {
	bidNotional := topNotional(book.Bids, 10)
	askNotional := topNotional(book.Asks, 10)
	return bidNotional.Add(askNotional).DivRound(two, 18)
}

func topNotional(levels []types.BookLevel, n int) decimal.Decimal {
	sum := decimal.Zero
	for i, l := range levels {
		if i >= n {
			break
		}
		sum = sum.Add(l.Price.Mul(l.Quantity))
	}
	return sum
}

// ContradictionScore returns |onchain - cex| / cex, or zero if cex is zero.
func ContradictionScore(onchainLiquidity, cexLiquidity decimal.Decimal) decimal.Decimal {
	if cexLiquidity.IsZero() {
		return decimal.Zero
	}
	return onchainLiquidity.Sub(cexLiquidity).Abs().DivRound(cexLiquidity, 18)
}

// Entropy returns spread_pct * (1 + |imbalance|).
func Entropy(spreadPct, imbalance decimal.Decimal) decimal.Decimal {
	return spreadPct.Mul(decimal.NewFromInt(1).Add(imbalance.Abs()))
}

// Volatility appends price to the calculator's bounded history and returns
// the annualized population-variance volatility of simple returns. Returns
// zero if fewer than two prices have been observed.
func (c *Calculator) Volatility(price decimal.Decimal) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, price)
	if len(c.history) > c.historyLen {
		c.history = c.history[len(c.history)-c.historyLen:]
	}
	if len(c.history) < 2 {
		return decimal.Zero
	}

	returns := make([]decimal.Decimal, 0, len(c.history)-1)
	for i := 1; i < len(c.history); i++ {
		prev := c.history[i-1]
		if prev.IsZero() {
			continue
		}
		ret := c.history[i].Sub(prev).DivRound(prev, 18)
		returns = append(returns, ret)
	}
	if len(returns) == 0 {
		return decimal.Zero
	}

	mean := decimal.Zero
	for _, r := range returns {
		mean = mean.Add(r)
	}
	mean = mean.DivRound(decimal.NewFromInt(int64(len(returns))), 18)

	variance := decimal.Zero
	for _, r := range returns {
		diff := r.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.DivRound(decimal.NewFromInt(int64(len(returns))), 18)

	stdDev := sqrtDecimal(variance)
	return stdDev.Mul(annualizationConstant)
}

// sqrtDecimal computes a decimal square root via Newton's method to a fixed
// 18-digit precision, avoiding any float64 round-trip in the hot path.
func sqrtDecimal(x decimal.Decimal) decimal.Decimal {
	if x.Sign() <= 0 {
		return decimal.Zero
	}
	guess := x
	for i := 0; i < 64; i++ {
		next := guess.Add(x.DivRound(guess, 18)).DivRound(two, 18)
		if next.Sub(guess).Abs().LessThan(decimal.New(1, -15)) {
			return next
		}
		guess = next
	}
	return guess
}

// RSI computes the standard Wilder relative strength index over the given
// price series and period. Returns 100 if every change is non-negative.
func RSI(prices []decimal.Decimal, period int) decimal.Decimal {
	if len(prices) < 2 || period <= 0 {
		return decimal.Zero
	}

	gains := decimal.Zero
	losses := decimal.Zero
	n := 0
	allNonNegative := true
	for i := 1; i < len(prices) && n < period; i++ {
		delta := prices[i].Sub(prices[i-1])
		if delta.IsNegative() {
			allNonNegative = false
			losses = losses.Add(delta.Abs())
		} else {
			gains = gains.Add(delta)
		}
		n++
	}
	if n == 0 {
		return decimal.Zero
	}

	avgGain := gains.DivRound(decimal.NewFromInt(int64(n)), 18)
	avgLoss := losses.DivRound(decimal.NewFromInt(int64(n)), 18)

	// Wilder smoothing over every change after the seed window.
	p := decimal.NewFromInt(int64(period))
	for i := n + 1; i < len(prices); i++ {
		delta := prices[i].Sub(prices[i-1])
		allNonNegative = allNonNegative && !delta.IsNegative()
		avgGain = avgGain.Mul(p.Sub(decimal.NewFromInt(1))).Add(decimal.Max(delta, decimal.Zero)).DivRound(p, 18)
		avgLoss = avgLoss.Mul(p.Sub(decimal.NewFromInt(1))).Add(decimal.Max(delta.Neg(), decimal.Zero)).DivRound(p, 18)
	}
	if allNonNegative {
		return hundred
	}
	if avgLoss.IsZero() {
		return hundred
	}

	rs := avgGain.DivRound(avgLoss, 18)
	return hundred.Sub(hundred.DivRound(decimal.NewFromInt(1).Add(rs), 18))
}
