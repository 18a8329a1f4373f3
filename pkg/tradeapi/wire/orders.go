package wire

import (
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// GetOrdersRequest: client_id=1 include_matched=2 include_canceled=3
// include_active=4.
type GetOrdersRequest struct {
	ClientID string
	Filter   tradeapi.OrderFilter
}

func (r *GetOrdersRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	e.bool(2, r.Filter.IncludeMatched)
	e.bool(3, r.Filter.IncludeCanceled)
	e.bool(4, r.Filter.IncludeActive)
	return e.result()
}

// GetOrdersResult: client_id=1 orders=2.
type GetOrdersResult struct {
	ClientID string
	Orders   []tradeapi.Order
}

func (r *GetOrdersResult) UnmarshalProto(b []byte) error {
	*r = GetOrdersResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.ClientID = f.str()
		case 2:
			o, err := decodeOrder(f.b)
			if err != nil {
				return err
			}
			r.Orders = append(r.Orders, *o)
		}
		return nil
	})
}

// NewOrderRequest: client_id=1 security_board=2 security_code=3
// buy_sell=4 quantity=5 use_credit=6 price=7 property=8 condition=9
// valid_before=10.
type NewOrderRequest struct {
	Order tradeapi.NewOrderRequest
}

func (r *NewOrderRequest) MarshalProto() ([]byte, error) {
	o := r.Order
	var e encoder
	e.string(1, o.ClientID)
	e.string(2, o.SecurityBoard)
	e.string(3, o.SecurityCode)
	e.int32(4, int32(o.BuySell))
	e.int32(5, o.Quantity)
	e.bool(6, o.UseCredit)
	e.doubleValue(7, o.Price)
	e.int32(8, int32(o.Property))
	if o.Condition != nil {
		e.nested(9, func(s *encoder) { encodeCondition(s, o.Condition) })
	}
	if o.ValidBefore != nil {
		e.nested(10, func(s *encoder) { encodeValidBefore(s, o.ValidBefore) })
	}
	return e.result()
}

// NewOrderResult: client_id=1 transaction_id=2 security_code=3.
type NewOrderResult struct {
	Result tradeapi.NewOrderResult
}

func (r *NewOrderResult) UnmarshalProto(b []byte) error {
	r.Result = tradeapi.NewOrderResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.Result.ClientID = f.str()
		case 2:
			r.Result.TransactionID = f.int32()
		case 3:
			r.Result.SecurityCode = f.str()
		}
		return nil
	})
}

// CancelOrderRequest: client_id=1 transaction_id=2.
type CancelOrderRequest struct {
	ClientID      string
	TransactionID int32
}

func (r *CancelOrderRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	e.int32(2, r.TransactionID)
	return e.result()
}

// CancelOrderResult: client_id=1 transaction_id=2.
type CancelOrderResult struct {
	Result tradeapi.CancelOrderResult
}

func (r *CancelOrderResult) UnmarshalProto(b []byte) error {
	r.Result = tradeapi.CancelOrderResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.Result.ClientID = f.str()
		case 2:
			r.Result.TransactionID = f.int32()
		}
		return nil
	})
}

// MarshalProto нужен серверной стороне.
func (r *GetOrdersResult) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	for i := range r.Orders {
		o := &r.Orders[i]
		e.nested(2, func(s *encoder) { encodeOrder(s, o) })
	}
	return e.result()
}
