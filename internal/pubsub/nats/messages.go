package nats

import (
	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/fixedpoint"
)

// Amounts are encoded as decimal strings so that 18-decimal values survive
// JSON consumers that parse numbers as float64.

// TradeMessage is the payload of a trade subject.
type TradeMessage struct {
	ID             string `json:"id"`
	Token          string `json:"token"`
	User           string `json:"user"`
	TxHash         string `json:"txHash"`
	Block          uint64 `json:"block"`
	Side           string `json:"side"`
	Amount         string `json:"amount"`
	AmountInQuote  string `json:"amountInQuote"`
	AmountInStable string `json:"amountInStable"`
	Price          string `json:"price"`
	PriceInStable  string `json:"priceInStable"`
	Fees           string `json:"fees"`
	Timestamp      int64  `json:"timestamp"`
}

func newTradeMessage(t *domain.Trade) TradeMessage {
	return TradeMessage{
		ID:             t.ID,
		Token:          t.Token,
		User:           t.User,
		TxHash:         t.TxHash,
		Block:          t.Block,
		Side:           t.Side(),
		Amount:         fixedpoint.ToDecimal(t.Amount).String(),
		AmountInQuote:  t.AmountInQuote.String(),
		AmountInStable: t.AmountInStable.String(),
		Price:          t.Price.String(),
		PriceInStable:  t.PriceInStable.String(),
		Fees:           fixedpoint.ToDecimal(t.Fees).String(),
		Timestamp:      t.Timestamp,
	}
}

// CandleMessage is the payload of a candle subject.
type CandleMessage struct {
	Token     string `json:"token"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

func newCandleMessage(c *domain.Candle) CandleMessage {
	return CandleMessage{
		Token:     c.Token,
		Interval:  c.Interval,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Open:      c.Open.String(),
		High:      c.High.String(),
		Low:       c.Low.String(),
		Close:     c.Close.String(),
		Volume:    fixedpoint.ToDecimal(c.Volume).String(),
	}
}

// PriceMessage is the payload of the price subject.
type PriceMessage struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

func newPriceMessage(s *domain.PriceSample) PriceMessage {
	return PriceMessage{Price: s.Price.String(), Timestamp: s.Timestamp}
}
