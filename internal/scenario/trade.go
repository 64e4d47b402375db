package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"localhost-23231/antik/internal/session"
	"localhost-23231/antik/internal/task"
)

// Order types accepted by TradeParams.
const (
	OrderMarket = "Market"
	OrderLimit  = "Limit"
)

// TradeParams configures a short/long position scenario.
type TradeParams struct {
	// TokenURL is the futures page of the token to trade.
	TokenURL string
	// PositionPercent is the share of available balance to commit, 1-100.
	PositionPercent int
	// OrderType is OrderMarket or OrderLimit.
	OrderType string
	// LimitPrice is required for limit orders.
	LimitPrice string
}

// Validate checks the parameters before any browser is started.
func (p TradeParams) Validate() error {
	if p.TokenURL == "" {
		return errors.New("token link is required")
	}
	if p.PositionPercent < 1 || p.PositionPercent > 100 {
		return fmt.Errorf("position percent must be 1-100, got %d", p.PositionPercent)
	}
	switch p.OrderType {
	case OrderMarket:
	case OrderLimit:
		if p.LimitPrice == "" {
			return errors.New("limit price is required for limit orders")
		}
		if _, err := strconv.ParseFloat(p.LimitPrice, 64); err != nil {
			return fmt.Errorf("invalid limit price %q", p.LimitPrice)
		}
	default:
		return fmt.Errorf("unknown order type %q", p.OrderType)
	}
	return nil
}

// OpenShort opens a short futures position and leaves the browser open.
func OpenShort(p TradeParams) task.Scenario {
	return openPosition("open short", selectors.shortTab, p)
}

// OpenLong opens a long futures position and leaves the browser open.
func OpenLong(p TradeParams) task.Scenario {
	return openPosition("open long", selectors.longTab, p)
}

// openPosition is the shared short/long script; only the direction tab
// differs between the two.
func openPosition(name, directionTab string, p TradeParams) task.Scenario {
	url := session.NormalizeURL(p.TokenURL)

	return task.Scenario{
		Name:        name,
		KeepBrowser: true,
		Steps: []task.Step{
			navigate(url),
			settle(3 * time.Second),
			{
				Name:       "dismiss promo popup",
				BestEffort: true,
				Run: func(ctx context.Context, run *task.Run) error {
					if !run.Driver.Exists(ctx, selectors.promoClose) {
						return errors.New("no popup present")
					}
					return run.Driver.Click(ctx, selectors.promoClose)
				},
			},
			{
				Name: "select direction",
				Run: func(ctx context.Context, run *task.Run) error {
					return run.Driver.Click(ctx, directionTab)
				},
			},
			{
				Name: "choose order type",
				Run: func(ctx context.Context, run *task.Run) error {
					if p.OrderType == OrderLimit {
						if err := run.Driver.Click(ctx, selectors.limitTab); err != nil {
							return err
						}
						run.Log("Limit order at %s", p.LimitPrice)
						return run.Driver.SendKeys(ctx, selectors.limitPriceInput, p.LimitPrice)
					}
					run.Log("Market order")
					return run.Driver.Click(ctx, selectors.marketTab)
				},
			},
			{
				Name: "set position size",
				Run: func(ctx context.Context, run *task.Run) error {
					run.Log("Position size: %d%%", p.PositionPercent)
					script := fmt.Sprintf(selectors.percentScript, p.PositionPercent)
					var ok bool
					if err := run.Driver.Evaluate(ctx, script, &ok); err != nil {
						return fmt.Errorf("failed to set position percent: %w", err)
					}
					if !ok {
						return errors.New("percent control not found")
					}
					return nil
				},
			},
			{
				Name: "confirm order",
				Run: func(ctx context.Context, run *task.Run) error {
					if err := run.Driver.Click(ctx, selectors.confirmOrder); err != nil {
						return fmt.Errorf("confirm button: %w", err)
					}
					run.Values["order_type"] = p.OrderType
					run.Values["percent"] = p.PositionPercent
					run.Values["token_url"] = url
					run.Log("Order submitted")
					return nil
				},
			},
		},
	}
}
