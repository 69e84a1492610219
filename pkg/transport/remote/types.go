package remote

type EmptyRequest struct {
}

type EmptyResponse struct {
}

type ConnectRequest struct {
	TimeoutMillis int64
}

type ExchangeRequest struct {
	Cla         byte
	Ins         byte
	P1          byte
	P2          byte
	Data        []byte
	MaxResponse int
	CheckStatus bool
}

// ExchangeResponse carries the card's answer or the reason it never
// arrived. Status is the non-success status word, zero otherwise; Lost
// reports a broken link with its reason.
type ExchangeResponse struct {
	Data   []byte
	Status uint16
	Lost   bool
	Reason string
}
