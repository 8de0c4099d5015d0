package detector

import (
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/cache"
	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/sol"
	"github.com/solana-zh/solarb/pkg/state"
)

// simulatePendingSwap predicts a pending swap's vault outcomes and folds
// them into the transaction's speculative delta. Returns true when the pool
// was simulated.
func (d *Detector) simulatePendingSwap(venue pkg.VenueName, poolKey solana.PublicKey, inst *state.DecodedInstruction, delta *state.SpeculativeDelta) bool {
	entry, ok := d.cache.Entry(poolKey)
	if !ok {
		return false
	}
	view, ok := entry.View()
	if !ok {
		d.cache.Counters().StaleSkips.Add(1)
		return false
	}

	var err error
	switch venue {
	case pkg.VenuePumpSwap:
		err = d.simulatePendingPump(view, inst, delta)
	case pkg.VenueRaydiumV4:
		err = d.simulatePendingV4(view, inst, delta)
	case pkg.VenueRaydiumClmm:
		err = d.simulatePendingCLMM(view, inst, delta)
	case pkg.VenueMeteoraDlmm:
		err = d.simulatePendingDLMM(view, inst, delta)
	default:
		return false
	}
	if err != nil {
		d.cache.Counters().StaleSkips.Add(1)
		d.log.Debug("pending swap simulation skipped",
			zap.Stringer("pool", poolKey), zap.String("venue", string(venue)), zap.Error(err))
		return false
	}
	return true
}

func (d *Detector) simulatePendingPump(view cache.View, inst *state.DecodedInstruction, delta *state.SpeculativeDelta) error {
	name, ok := d.swapDiscs[pkg.VenuePumpSwap].Match(inst.Data)
	if !ok || len(inst.Data) < 24 {
		return fmt.Errorf("not a pump swap instruction")
	}
	meta := view.CP

	baseReserve, err := d.readVault(meta.BaseVault)
	if err != nil {
		return err
	}
	quoteReserve, err := d.readVault(meta.QuoteVault)
	if err != nil {
		return err
	}

	var baseAfter, quoteAfter cosmath.Int
	var inMint, outMint solana.PublicKey
	var amountIn, amountOut cosmath.Int

	switch name {
	case "buy":
		// Exact-out with a known max-in: solve the smallest input reaching
		// the desired base output.
		desiredOut := cosmath.NewIntFromUint64(binary.LittleEndian.Uint64(inst.Data[8:16]))
		maxIn := cosmath.NewIntFromUint64(binary.LittleEndian.Uint64(inst.Data[16:24]))
		quoteIn, solved := pump.SolveBuyExactOut(baseReserve, quoteReserve, desiredOut, maxIn, meta.FeeBps)
		if !solved {
			return fmt.Errorf("exact-out unreachable within max-in")
		}
		res, err := pump.SimulateBuy(baseReserve, quoteReserve, quoteIn, meta.FeeBps)
		if err != nil {
			return err
		}
		baseAfter, quoteAfter = res.NewBaseReserve, res.NewQuoteReserve
		inMint, outMint = meta.QuoteMint, meta.BaseMint
		amountIn, amountOut = quoteIn, res.AmountOut
	case "sell":
		baseIn := cosmath.NewIntFromUint64(binary.LittleEndian.Uint64(inst.Data[8:16]))
		res, err := pump.SimulateSell(baseReserve, quoteReserve, baseIn, meta.FeeBps)
		if err != nil {
			return err
		}
		baseAfter, quoteAfter = res.NewBaseReserve, res.NewQuoteReserve
		inMint, outMint = meta.BaseMint, meta.QuoteMint
		amountIn, amountOut = baseIn, res.AmountOut
	default:
		return fmt.Errorf("unhandled pump instruction %s", name)
	}

	if err := d.patchVault(delta, meta.BaseVault, baseAfter); err != nil {
		return err
	}
	if err := d.patchVault(delta, meta.QuoteVault, quoteAfter); err != nil {
		return err
	}
	addMintDelta(delta, inMint, amountIn)
	addMintDelta(delta, outMint, amountOut.Neg())
	raiseConfidence(delta, cpConfidence)
	return nil
}

// v4Reserves computes a V4 pool's effective reserves: vault balances plus
// open-orders totals, minus pending PnL. A missing open-orders account
// contributes nothing.
func (d *Detector) v4Reserves(meta *cache.CPPoolMeta) (base, quote cosmath.Int, err error) {
	base, err = d.readVault(meta.BaseVault)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	quote, err = d.readVault(meta.QuoteVault)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	if !meta.OpenOrders.IsZero() {
		if data, ok := d.store.GetData(meta.OpenOrders); ok {
			var oo raydium.OpenOrders
			if decodeErr := oo.Decode(data); decodeErr == nil {
				base = base.Add(cosmath.NewIntFromUint64(oo.BaseTokenTotal))
				quote = quote.Add(cosmath.NewIntFromUint64(oo.QuoteTokenTotal))
			}
		}
	}

	base = base.Sub(cosmath.NewIntFromUint64(meta.BaseNeedTakePnl))
	quote = quote.Sub(cosmath.NewIntFromUint64(meta.QuoteNeedTakePnl))
	return base, quote, nil
}

// simulatePendingV4 handles the swap-base-in opcode. The instruction does
// not name the input side; the quote-to-base direction dominates pending
// flow and is assumed.
func (d *Detector) simulatePendingV4(view cache.View, inst *state.DecodedInstruction, delta *state.SpeculativeDelta) error {
	if len(inst.Data) < 17 || inst.Data[0] != v4SwapBaseIn {
		return fmt.Errorf("not a v4 swap-base-in instruction")
	}
	meta := view.CP

	baseReserve, quoteReserve, err := d.v4Reserves(meta)
	if err != nil {
		return err
	}

	amountIn := cosmath.NewIntFromUint64(binary.LittleEndian.Uint64(inst.Data[1:9]))
	amountOut, _, err := raydium.SimulateSwapV4(quoteReserve, baseReserve, amountIn, meta.FeeNumerator, meta.FeeDenominator)
	if err != nil {
		return err
	}

	// The predicted vault images shift by the swapped amounts from their
	// raw balances, not from the effective reserves.
	rawBase, err := d.readVault(meta.BaseVault)
	if err != nil {
		return err
	}
	rawQuote, err := d.readVault(meta.QuoteVault)
	if err != nil {
		return err
	}
	if err := d.patchVault(delta, meta.QuoteVault, rawQuote.Add(amountIn)); err != nil {
		return err
	}
	if err := d.patchVault(delta, meta.BaseVault, rawBase.Sub(amountOut)); err != nil {
		return err
	}
	addMintDelta(delta, meta.QuoteMint, amountIn)
	addMintDelta(delta, meta.BaseMint, amountOut.Neg())
	raiseConfidence(delta, cpConfidence)
	return nil
}

func (d *Detector) simulatePendingCLMM(view cache.View, inst *state.DecodedInstruction, delta *state.SpeculativeDelta) error {
	if _, ok := d.swapDiscs[pkg.VenueRaydiumClmm].Match(inst.Data); !ok || len(inst.Data) < 41 {
		return fmt.Errorf("not a clmm swap instruction")
	}
	meta := view.CLMM

	amountIn := cosmath.NewIntFromUint64(binary.LittleEndian.Uint64(inst.Data[8:16]))

	// The input vault rides at a fixed account position; it names the
	// direction. The is_base_input flag is the fallback.
	zeroForOne := inst.Data[40] != 0
	if len(inst.Accounts) > 6 {
		switch inst.Accounts[5] {
		case meta.Vault0:
			zeroForOne = true
		case meta.Vault1:
			zeroForOne = false
		}
	}

	res, err := raydium.SimulateCLMMExactIn(meta.Snapshot, view.Ticks, amountIn, zeroForOne, nil)
	if err != nil {
		return err
	}

	vault0, err := d.readVault(meta.Vault0)
	if err != nil {
		return err
	}
	vault1, err := d.readVault(meta.Vault1)
	if err != nil {
		return err
	}

	if zeroForOne {
		err = d.patchVault(delta, meta.Vault0, vault0.Add(res.AmountIn))
		if err == nil {
			err = d.patchVault(delta, meta.Vault1, vault1.Sub(res.AmountOut))
		}
		addMintDelta(delta, meta.Mint0, res.AmountIn)
		addMintDelta(delta, meta.Mint1, res.AmountOut.Neg())
	} else {
		err = d.patchVault(delta, meta.Vault1, vault1.Add(res.AmountIn))
		if err == nil {
			err = d.patchVault(delta, meta.Vault0, vault0.Sub(res.AmountOut))
		}
		addMintDelta(delta, meta.Mint1, res.AmountIn)
		addMintDelta(delta, meta.Mint0, res.AmountOut.Neg())
	}
	if err != nil {
		return err
	}
	raiseConfidence(delta, clmmConfidence)
	return nil
}

// simulatePendingDLMM handles the swap-family instructions. The x-to-y
// direction is assumed when the accounts do not disambiguate it.
func (d *Detector) simulatePendingDLMM(view cache.View, inst *state.DecodedInstruction, delta *state.SpeculativeDelta) error {
	name, ok := d.swapDiscs[pkg.VenueMeteoraDlmm].Match(inst.Data)
	if !ok || len(inst.Data) < 16 {
		return fmt.Errorf("not a dlmm swap instruction")
	}
	if name == "swap_exact_out" {
		return fmt.Errorf("dlmm exact-out input unknown pre-confirmation")
	}
	meta := view.DLMM

	amountIn := binary.LittleEndian.Uint64(inst.Data[8:16])
	res, err := meteora.SimulateDLMM(meta.Snapshot, view.Bins, amountIn, meteora.SwapXToY, meteora.FeeOnOutput)
	if err != nil {
		return err
	}

	reserveX, err := d.readVault(meta.ReserveX)
	if err != nil {
		return err
	}
	reserveY, err := d.readVault(meta.ReserveY)
	if err != nil {
		return err
	}

	if err := d.patchVault(delta, meta.ReserveX, reserveX.Add(res.AmountIn)); err != nil {
		return err
	}
	if err := d.patchVault(delta, meta.ReserveY, reserveY.Sub(res.AmountOut)); err != nil {
		return err
	}
	addMintDelta(delta, meta.MintX, res.AmountIn)
	addMintDelta(delta, meta.MintY, res.AmountOut.Neg())
	raiseConfidence(delta, dlmmConfidence)
	return nil
}

// readVault reads a vault token-account balance from confirmed state.
func (d *Detector) readVault(key solana.PublicKey) (cosmath.Int, error) {
	data, ok := d.store.GetData(key)
	if !ok {
		return cosmath.Int{}, fmt.Errorf("vault %s: %w", key, pkg.ErrVaultReadMissing)
	}
	amount, err := sol.TokenAccountAmount(data)
	if err != nil {
		return cosmath.Int{}, err
	}
	return cosmath.NewIntFromUint64(amount), nil
}

// patchVault records the predicted post-swap vault image in the delta.
func (d *Detector) patchVault(delta *state.SpeculativeDelta, key solana.PublicKey, newAmount cosmath.Int) error {
	if newAmount.IsNegative() || !newAmount.IsUint64() {
		return fmt.Errorf("vault %s: predicted amount %s: %w", key, newAmount, pkg.ErrFieldOutOfRange)
	}
	data, ok := d.store.GetData(key)
	if !ok {
		return fmt.Errorf("vault %s: %w", key, pkg.ErrVaultReadMissing)
	}
	patched, err := sol.PatchTokenAccountAmount(data, newAmount.Uint64())
	if err != nil {
		return err
	}
	delta.PredictedData[key] = patched
	return nil
}

func addMintDelta(delta *state.SpeculativeDelta, mint solana.PublicKey, amount cosmath.Int) {
	if existing, ok := delta.MintDeltas[mint]; ok {
		delta.MintDeltas[mint] = existing.Add(amount)
		return
	}
	delta.MintDeltas[mint] = amount
}

func raiseConfidence(delta *state.SpeculativeDelta, confidence float64) {
	if confidence > delta.Confidence {
		delta.Confidence = confidence
	}
}
