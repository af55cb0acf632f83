package feed

import "rodeo-indexer/internal/domain"

const (
	methodSubscribe = "subscribe"

	messageEvent      = "event"
	messageError      = "error"
	messageSubscribed = "subscribed"
)

// subscribeRequest asks the feed for events from FromBlock onwards, inclusive.
type subscribeRequest struct {
	Method    string `json:"method"`
	FromBlock uint64 `json:"fromBlock"`
}

// serverMessage is one frame sent by the feed.
type serverMessage struct {
	Type  string        `json:"type"`
	Event *domain.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}
