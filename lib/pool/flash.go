package pool

import (
	cons "github.com/DaggerToothCaster/v3-core/lib/constants"
	"github.com/DaggerToothCaster/v3-core/lib/fullmath"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Flash lends any requested amounts of both tokens for the duration of the
// callback. The callback must return everything lent plus the pool fee on
// each borrowed amount; whatever is paid on top of the loan accrues to
// in-range liquidity (minus the protocol cut), even when overpaid.
func (p *Pool) Flash(recipient string, amount0, amount1 *ui.Int, data []byte, cb FlashCallback) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if p.Liquidity.IsZero() {
		return ErrNoLiquidity
	}
	if amount0 == nil {
		amount0 = new(ui.Int)
	}
	if amount1 == nil {
		amount1 = new(ui.Int)
	}

	feePips := ui.NewInt(uint64(p.Fee))
	feeDen := ui.NewInt(uint64(cons.FeeDenominator))
	fee0, err := fullmath.MulDivRoundingUp(amount0, feePips, feeDen)
	if err != nil {
		return err
	}
	fee1, err := fullmath.MulDivRoundingUp(amount1, feePips, feeDen)
	if err != nil {
		return err
	}

	balance0Before, err := p.Token0.BalanceOf(p.Address)
	if err != nil {
		return err
	}
	balance1Before, err := p.Token1.BalanceOf(p.Address)
	if err != nil {
		return err
	}

	if !amount0.IsZero() {
		if err := p.Token0.Transfer(p.Address, recipient, amount0); err != nil {
			return err
		}
	}
	if !amount1.IsZero() {
		if err := p.Token1.Transfer(p.Address, recipient, amount1); err != nil {
			return err
		}
	}

	if err := cb.FlashCallback(fee0, fee1, data); err != nil {
		return err
	}

	balance0After, err := p.Token0.BalanceOf(p.Address)
	if err != nil {
		return err
	}
	balance1After, err := p.Token1.BalanceOf(p.Address)
	if err != nil {
		return err
	}
	if new(ui.Int).Add(balance0Before, fee0).Cmp(balance0After) > 0 {
		return ErrInsufficientFlash
	}
	if new(ui.Int).Add(balance1Before, fee1).Cmp(balance1After) > 0 {
		return ErrInsufficientFlash
	}

	// everything received beyond the loan is fee income
	paid0 := new(ui.Int).Sub(balance0After, balance0Before)
	paid1 := new(ui.Int).Sub(balance1After, balance1Before)

	if !paid0.IsZero() {
		if err := p.accrueFlashFee(paid0, p.Slot0.FeeProtocol0, p.ProtocolFees.Token0, p.FeeGrowthGlobal0X128); err != nil {
			return err
		}
	}
	if !paid1.IsZero() {
		if err := p.accrueFlashFee(paid1, p.Slot0.FeeProtocol1, p.ProtocolFees.Token1, p.FeeGrowthGlobal1X128); err != nil {
			return err
		}
	}

	p.log.Info("flash",
		zap.String("recipient", recipient),
		zap.String("amount0", amount0.Dec()), zap.String("amount1", amount1.Dec()),
		zap.String("paid0", paid0.Dec()), zap.String("paid1", paid1.Dec()))
	return nil
}

func (p *Pool) accrueFlashFee(paid *ui.Int, feeProtocol uint8, protocolFees, feeGrowthGlobalX128 *ui.Int) error {
	lpShare := paid
	if feeProtocol > 0 {
		cut := new(ui.Int).Div(paid, ui.NewInt(uint64(feeProtocol)))
		protocolFees.Add(protocolFees, cut)
		lpShare = new(ui.Int).Sub(paid, cut)
	}
	growth, err := fullmath.MulDiv(lpShare, cons.Q128, p.Liquidity)
	if err != nil {
		return err
	}
	feeGrowthGlobalX128.Add(feeGrowthGlobalX128, growth)
	return nil
}

// SetFeeProtocol sets the denominator of the protocol's cut of swap and
// flash fees per token. Valid values are 0 (off) or 4 through 10 (1/4th
// down to 1/10th of fees).
func (p *Pool) SetFeeProtocol(feeProtocol0, feeProtocol1 uint8) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if !validFeeProtocol(feeProtocol0) || !validFeeProtocol(feeProtocol1) {
		return ErrInvalidFeeProtocol
	}
	p.log.Info("set fee protocol",
		zap.Uint8("feeProtocol0", feeProtocol0), zap.Uint8("feeProtocol1", feeProtocol1))
	p.Slot0.FeeProtocol0 = feeProtocol0
	p.Slot0.FeeProtocol1 = feeProtocol1
	return nil
}

func validFeeProtocol(fp uint8) bool {
	return fp == 0 || (fp >= 4 && fp <= 10)
}

// CollectProtocol withdraws accrued protocol fees, clamping each request to
// what is owed.
func (p *Pool) CollectProtocol(recipient string, amount0Requested, amount1Requested *ui.Int) (amount0, amount1 *ui.Int, err error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	amount0 = minAmount(amount0Requested, p.ProtocolFees.Token0)
	amount1 = minAmount(amount1Requested, p.ProtocolFees.Token1)

	if !amount0.IsZero() {
		if err := p.Token0.Transfer(p.Address, recipient, amount0); err != nil {
			return nil, nil, err
		}
		p.ProtocolFees.Token0.Sub(p.ProtocolFees.Token0, amount0)
	}
	if !amount1.IsZero() {
		if err := p.Token1.Transfer(p.Address, recipient, amount1); err != nil {
			return amount0, new(ui.Int), err
		}
		p.ProtocolFees.Token1.Sub(p.ProtocolFees.Token1, amount1)
	}

	p.log.Info("collect protocol",
		zap.String("recipient", recipient),
		zap.String("amount0", amount0.Dec()), zap.String("amount1", amount1.Dec()))
	return amount0, amount1, nil
}
