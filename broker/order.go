package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// ErrUnknownOrderKind means a request reached the blotter with a kind it
// cannot resolve. It indicates a programming error upstream.
var ErrUnknownOrderKind = errors.New("unknown order kind")

// Kind tags which field of a Request specifies the fill.
type Kind int

const (
	// KindMarket fills at the first intraday tick.
	KindMarket Kind = iota
	// KindPrice is a limit order; the fill time is searched for.
	KindPrice
	// KindTicker fills at a given intraday time; the price is looked up.
	KindTicker
)

func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindPrice:
		return "price"
	case KindTicker:
		return "ticker"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Request is a proposed order before resolution. Amount is signed: positive
// buys, negative sells.
type Request struct {
	Kind   Kind
	Asset  market.Asset
	Amount float64
	Price  float64   // KindPrice
	At     time.Time // KindTicker
}

func MarketOrder(asset market.Asset, amount float64) Request {
	return Request{Kind: KindMarket, Asset: asset, Amount: amount}
}

func PriceOrder(asset market.Asset, amount, price float64) Request {
	return Request{Kind: KindPrice, Asset: asset, Amount: amount, Price: price}
}

func TickerOrder(asset market.Asset, amount float64, at time.Time) Request {
	return Request{Kind: KindTicker, Asset: asset, Amount: amount, At: at}
}

// Order is the canonical resolved order: both price and time are known.
type Order struct {
	Asset  market.Asset
	Amount float64
	Price  float64
	Time   time.Time
	Kind   Kind
}

// Direction is +1 for buys, -1 for sells and 0 for an empty order.
func (o Order) Direction() int {
	switch {
	case o.Amount > 0:
		return 1
	case o.Amount < 0:
		return -1
	}
	return 0
}

// Rejection is a request the blotter or a control dropped, with the reason.
type Rejection struct {
	Request Request
	Time    time.Time
	Reason  string
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s %s %v: %s", r.Request.Kind, r.Request.Asset, r.Request.Amount, r.Reason)
}
