// =============================
// File: internal/graduation/router.go
// =============================
package graduation

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/venue"
)

// MarketName tags router trades in events.
const MarketName = "venue"

// RouterAddress держит переработанную часть комиссии, пока она добавляется
// в ликвидность. Позиция сразу сжигается, пыль от пропорции остаётся здесь.
func RouterAddress(launch domain.LaunchID) domain.Address {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("router"), launch.Bytes()}, domain.ProgramID)
	if err != nil {
		panic("derive router address: " + err.Error())
	}
	return addr
}

// routerFeeBps returns the platform fee the router charges for a launch, or
// an error if the launch cannot be traded through the router yet.
func routerFeeBps(tx *ledger.Tx, rec domain.LaunchRecord) (uint64, error) {
	switch rec.Type.(type) {
	case domain.InstantLaunch:
		if rec.Graduation == domain.NotGraduated {
			return 0, domain.Precondition(domain.CodeNotGraduated, "%s still trades on the curve", rec.Symbol)
		}
		return 0, nil
	case domain.ProjectRaise:
		if rec.Graduation != domain.TradingEnabled {
			return 0, domain.Precondition(domain.CodeTradingDisabled, "trading of %s is not enabled", rec.Symbol)
		}
		return tx.Params.RouterFeeBps, nil
	default:
		return 0, domain.Validation(domain.CodeBadParams, "unknown launch type %T", rec.Type)
	}
}

// RouterBuy buys tokens on the venue.
type RouterBuy struct {
	Launch domain.LaunchID
	Amount uint64
	MinOut uint64
}

func (RouterBuy) Name() string { return "router_buy" }

func (o RouterBuy) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	feeBps, err := routerFeeBps(tx, rec)
	if err != nil {
		return err
	}
	if o.Amount == 0 {
		return domain.Validation(domain.CodeBadAmount, "buy amount must be positive")
	}

	fee := domain.Bps(o.Amount, feeBps)
	if fee > 0 {
		if err := tx.TransferNative(tx.Caller, rec.Escrow(), fee); err != nil {
			return err
		}
		fees.Accrue(tx, rec.ID, domain.RolePlatform, fee)
	}
	q, err := venue.SwapNativeForTokens(tx, rec.ID, tx.Caller, o.Amount-fee, o.MinOut)
	if err != nil {
		return err
	}

	tx.Emit(&events.TradeEvent{
		BaseEvent:    tx.Base(events.TradeExecuted, rec.ID),
		Trader:       tx.Caller,
		Side:         events.SideBuy,
		Market:       MarketName,
		NativeAmount: o.Amount,
		TokenAmount:  q.Out,
		Fee:          fee,
		FeeBps:       feeBps,
		PriceAfter:   q.PriceAfter,
	})
	return nil
}

// RouterSell sells tokens on the venue. For PROJECT_RAISE launches the
// platform fee is taken from the proceeds and part of it is recycled into
// permanently locked liquidity.
type RouterSell struct {
	Launch domain.LaunchID
	Amount uint64
	MinOut uint64
}

func (RouterSell) Name() string { return "router_sell" }

func (o RouterSell) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	feeBps, err := routerFeeBps(tx, rec)
	if err != nil {
		return err
	}
	if o.Amount == 0 {
		return domain.Validation(domain.CodeBadAmount, "sell amount must be positive")
	}

	q, err := venue.SwapTokensForNative(tx, rec.ID, tx.Caller, o.Amount, 0)
	if err != nil {
		return err
	}
	fee := domain.Bps(q.Out, feeBps)
	if net := q.Out - fee; net < o.MinOut {
		return domain.Slippage(net, o.MinOut)
	}
	if fee > 0 {
		if err := collectSellFee(tx, rec, fee); err != nil {
			return err
		}
	}

	tx.Emit(&events.TradeEvent{
		BaseEvent:    tx.Base(events.TradeExecuted, rec.ID),
		Trader:       tx.Caller,
		Side:         events.SideSell,
		Market:       MarketName,
		NativeAmount: q.Out - fee,
		TokenAmount:  o.Amount,
		Fee:          fee,
		FeeBps:       feeBps,
		PriceAfter:   q.PriceAfter,
	})
	return nil
}

// collectSellFee takes fee from the seller. The recycled share buys tokens
// with half and pairs them with the other half as liquidity that is burned;
// the rest accrues to the platform. Shares below the minimum claim are not
// worth a swap and go to the platform whole.
func collectSellFee(tx *ledger.Tx, rec domain.LaunchRecord, fee uint64) error {
	recycle := domain.Bps(fee, tx.Params.RecycleBps)
	if recycle < tx.Params.MinClaim {
		recycle = 0
	}
	platform := fee - recycle

	if err := tx.TransferNative(tx.Caller, rec.Escrow(), platform); err != nil {
		return err
	}
	fees.Accrue(tx, rec.ID, domain.RolePlatform, platform)
	if recycle == 0 {
		return nil
	}

	router := RouterAddress(rec.ID)
	if err := tx.TransferNative(tx.Caller, router, recycle); err != nil {
		return err
	}
	half := recycle / 2
	bought, err := venue.SwapNativeForTokens(tx, rec.ID, router, half, 0)
	if err != nil {
		return err
	}
	if _, _, _, err := venue.AddLiquidity(tx, rec.ID, router, bought.Out, recycle-half); err != nil {
		return err
	}
	_, err = venue.BurnPosition(tx, rec.ID, router)
	return err
}
