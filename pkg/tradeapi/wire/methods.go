package wire

// Полные имена методов Trade API v1.
const (
	MethodGetEvents = "/grpc.tradeapi.v1.Events/GetEvents"

	MethodGetOrders   = "/grpc.tradeapi.v1.Orders/GetOrders"
	MethodNewOrder    = "/grpc.tradeapi.v1.Orders/NewOrder"
	MethodCancelOrder = "/grpc.tradeapi.v1.Orders/CancelOrder"

	MethodGetStops   = "/grpc.tradeapi.v1.Stops/GetStops"
	MethodNewStop    = "/grpc.tradeapi.v1.Stops/NewStop"
	MethodCancelStop = "/grpc.tradeapi.v1.Stops/CancelStop"

	MethodGetPortfolio = "/grpc.tradeapi.v1.Portfolios/GetPortfolio"

	MethodGetDayCandles      = "/grpc.tradeapi.v1.Candles/GetDayCandles"
	MethodGetIntradayCandles = "/grpc.tradeapi.v1.Candles/GetIntradayCandles"

	MethodGetSecurities = "/grpc.tradeapi.v1.Securities/GetSecurities"
)

// EventsServiceName и EventsStreamName описывают bidi-метод событий;
// используются и клиентом, и тестовыми серверами.
const (
	EventsServiceName = "grpc.tradeapi.v1.Events"
	EventsStreamName  = "GetEvents"
)
