package detector

import (
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/cache"
	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/sol"
)

var (
	q64Big  = new(big.Int).Lsh(big.NewInt(1), 64)
	q128Big = new(big.Int).Lsh(big.NewInt(1), 128)
)

type pricedPool struct {
	view  cache.View
	price *big.Int
}

// probePair prices every live pool on the pair, and when the cheapest and
// dearest sit on different venues with enough spread, simulates the
// two-leg round trip and gates the result. The probe uses the same
// simulators as backrun detection; there is no separate math path.
func (d *Detector) probePair(pair cache.MintPair, poolKeys []solana.PublicKey, opType pkg.OpportunityType, confidence float64, seenSlot uint64) {
	priced := make([]pricedPool, 0, len(poolKeys))
	maxSlot := uint64(0)
	for _, key := range poolKeys {
		entry, ok := d.cache.Entry(key)
		if !ok {
			continue
		}
		view, ok := entry.View()
		if !ok {
			d.cache.Counters().StaleSkips.Add(1)
			continue
		}
		price, err := d.spotPriceQ64(view, pair.Lo)
		if err != nil || price.Sign() <= 0 {
			continue
		}
		priced = append(priced, pricedPool{view: view, price: price})
		if view.Slot > maxSlot {
			maxSlot = view.Slot
		}
	}
	if len(priced) < 2 {
		return
	}

	cheap, dear := priced[0], priced[0]
	for _, p := range priced[1:] {
		if p.price.Cmp(cheap.price) < 0 {
			cheap = p
		}
		if p.price.Cmp(dear.price) > 0 {
			dear = p
		}
	}
	if cheap.view.Venue == dear.view.Venue {
		return
	}

	spread := new(big.Int).Sub(dear.price, cheap.price)
	spread.Mul(spread, big.NewInt(10000))
	spread.Div(spread, cheap.price)
	if spread.IsInt64() && spread.Int64() < d.cfg.MinSpreadBps {
		return
	}

	if d.rejectedAt(cheap.view.Key, dear.view.Key, maxSlot) {
		return
	}

	best, ok := d.bestRoundTrip(pair, cheap.view, dear.view, confidence, seenSlot, maxSlot, opType)
	if !ok {
		d.markRejected(cheap.view.Key, dear.view.Key, maxSlot)
		return
	}
	d.emit(*best)
}

// bestRoundTrip probes a small ladder of input sizes and keeps the most
// profitable round trip that clears every viability gate.
func (d *Detector) bestRoundTrip(pair cache.MintPair, cheap, dear cache.View, confidence float64, seenSlot, maxSlot uint64, opType pkg.OpportunityType) (*pkg.Opportunity, bool) {
	if confidence < d.cfg.MinConfidence {
		return nil, false
	}

	costs := cosmath.NewInt(d.cfg.GasBudgetLamports + d.cfg.TipBudgetLamports)
	maxPosition := cosmath.NewInt(d.cfg.MaxPositionLamports)

	var best *pkg.Opportunity
	for _, divisor := range []int64{100, 10, 1} {
		input := maxPosition.QuoRaw(divisor)
		if !input.IsPositive() {
			continue
		}

		baseOut, err := d.simulateLeg(cheap, pair.Hi, input)
		if err != nil || !baseOut.IsPositive() {
			continue
		}
		baseOut = d.haircutTransferFee(pair.Lo, baseOut)

		quoteOut, err := d.simulateLeg(dear, pair.Lo, baseOut)
		if err != nil || !quoteOut.IsPositive() {
			continue
		}
		quoteOut = d.haircutTransferFee(pair.Hi, quoteOut)

		net := quoteOut.Sub(input).Sub(costs)
		if net.LT(cosmath.NewInt(d.cfg.MinProfitLamports)) {
			continue
		}
		profitBps := net.MulRaw(10000).Quo(input).Int64()
		if profitBps < d.cfg.MinProfitBps {
			continue
		}
		if float64(profitBps)/10000 < d.cfg.MinProfitPct {
			continue
		}
		if input.GT(maxPosition) {
			continue
		}

		if best == nil || net.GT(best.ExpectedProfit) {
			best = &pkg.Opportunity{
				ID:   newOpportunityID(),
				Type: opType,
				Path: []pkg.SwapLeg{
					{Venue: cheap.Venue, Pool: cheap.Key, InputMint: pair.Hi, OutputMint: pair.Lo, AmountIn: input, AmountOut: baseOut},
					{Venue: dear.Venue, Pool: dear.Key, InputMint: pair.Lo, OutputMint: pair.Hi, AmountIn: baseOut, AmountOut: quoteOut},
				},
				InputAmount:    input,
				ExpectedOutput: quoteOut,
				ExpectedProfit: net,
				ProfitBps:      profitBps,
				Confidence:     confidence,
				DetectedAt:     nowUTC(),
				ExpirySlot:     seenSlot + d.cfg.ExpirySlotBuffer,
			}
		}
	}
	if best == nil {
		return nil, false
	}

	d.log.Info("opportunity detected",
		zap.String("id", best.ID),
		zap.String("type", string(best.Type)),
		zap.String("profit", best.ExpectedProfit.String()),
		zap.Int64("profit_bps", best.ProfitBps),
		zap.Uint64("max_slot", maxSlot))
	return best, true
}

// simulateLeg runs one swap leg on a pool view with the venue's simulator.
func (d *Detector) simulateLeg(view cache.View, inputMint solana.PublicKey, amountIn cosmath.Int) (cosmath.Int, error) {
	switch view.Venue {
	case pkg.VenuePumpSwap:
		meta := view.CP
		baseReserve, err := d.readVault(meta.BaseVault)
		if err != nil {
			return cosmath.Int{}, err
		}
		quoteReserve, err := d.readVault(meta.QuoteVault)
		if err != nil {
			return cosmath.Int{}, err
		}
		if inputMint == meta.BaseMint {
			res, err := pump.SimulateSell(baseReserve, quoteReserve, amountIn, meta.FeeBps)
			if err != nil {
				return cosmath.Int{}, err
			}
			return res.AmountOut, nil
		}
		res, err := pump.SimulateBuy(baseReserve, quoteReserve, amountIn, meta.FeeBps)
		if err != nil {
			return cosmath.Int{}, err
		}
		return res.AmountOut, nil

	case pkg.VenueRaydiumV4:
		meta := view.CP
		baseReserve, quoteReserve, err := d.v4Reserves(meta)
		if err != nil {
			return cosmath.Int{}, err
		}
		inReserve, outReserve := baseReserve, quoteReserve
		if inputMint == meta.QuoteMint {
			inReserve, outReserve = quoteReserve, baseReserve
		}
		out, _, err := raydium.SimulateSwapV4(inReserve, outReserve, amountIn, meta.FeeNumerator, meta.FeeDenominator)
		return out, err

	case pkg.VenueRaydiumClmm:
		meta := view.CLMM
		zeroForOne := inputMint == meta.Mint0
		res, err := raydium.SimulateCLMMExactIn(meta.Snapshot, view.Ticks, amountIn, zeroForOne, nil)
		if err != nil {
			return cosmath.Int{}, err
		}
		return res.AmountOut, nil

	case pkg.VenueMeteoraDlmm:
		meta := view.DLMM
		if !amountIn.IsUint64() {
			return cosmath.Int{}, fmt.Errorf("dlmm input %s: %w", amountIn, pkg.ErrFieldOutOfRange)
		}
		dir := meteora.SwapXToY
		if inputMint == meta.MintY {
			dir = meteora.SwapYToX
		}
		res, err := meteora.SimulateDLMM(meta.Snapshot, view.Bins, amountIn.Uint64(), dir, meteora.FeeOnOutput)
		if err != nil {
			return cosmath.Int{}, err
		}
		return res.AmountOut, nil
	}
	return cosmath.Int{}, fmt.Errorf("venue %s: %w", view.Venue, pkg.ErrUnknownProgramKey)
}

// spotPriceQ64 prices baseMint in the pair's other mint, Q64.64.
func (d *Detector) spotPriceQ64(view cache.View, baseMint solana.PublicKey) (*big.Int, error) {
	switch view.Venue {
	case pkg.VenuePumpSwap, pkg.VenueRaydiumV4:
		meta := view.CP
		var baseReserve, quoteReserve cosmath.Int
		var err error
		if view.Venue == pkg.VenueRaydiumV4 {
			baseReserve, quoteReserve, err = d.v4Reserves(meta)
		} else {
			baseReserve, err = d.readVault(meta.BaseVault)
			if err == nil {
				quoteReserve, err = d.readVault(meta.QuoteVault)
			}
		}
		if err != nil {
			return nil, err
		}
		if !baseReserve.IsPositive() || !quoteReserve.IsPositive() {
			return nil, fmt.Errorf("empty reserves")
		}
		price := new(big.Int).Mul(quoteReserve.BigInt(), q64Big)
		price.Div(price, baseReserve.BigInt())
		return orientPrice(price, meta.BaseMint == baseMint)

	case pkg.VenueRaydiumClmm:
		meta := view.CLMM
		sqrt := meta.Snapshot.SqrtPriceX64.BigInt()
		price := new(big.Int).Mul(sqrt, sqrt)
		price.Rsh(price, 64)
		return orientPrice(price, meta.Mint0 == baseMint)

	case pkg.VenueMeteoraDlmm:
		meta := view.DLMM
		price := meteora.PriceOfBin(meta.Snapshot.ActiveId, meta.Snapshot.BinStep)
		return orientPrice(price, meta.MintX == baseMint)
	}
	return nil, fmt.Errorf("venue %s: %w", view.Venue, pkg.ErrUnknownProgramKey)
}

// orientPrice inverts the Q64 price when the requested base is the pool's
// quote side.
func orientPrice(price *big.Int, baseIsPoolBase bool) (*big.Int, error) {
	if baseIsPoolBase {
		return price, nil
	}
	if price.Sign() <= 0 {
		return nil, pkg.ErrDivByZero
	}
	return new(big.Int).Div(q128Big, price), nil
}

// haircutTransferFee shaves a Token-2022 transfer fee off an expected
// output when the mint carries one.
func (d *Detector) haircutTransferFee(mint solana.PublicKey, amount cosmath.Int) cosmath.Int {
	data, ok := d.store.GetData(mint)
	if !ok {
		return amount
	}
	bps, ok := sol.TransferFeeBpsFromMint(data)
	if !ok || bps == 0 {
		return amount
	}
	return amount.MulRaw(int64(10000 - bps)).QuoRaw(10000)
}
