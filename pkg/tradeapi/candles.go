package tradeapi

import (
	"math"
	"time"
)

// DayTimeFrame — тайм-фрейм дневных свечей.
type DayTimeFrame int32

const (
	DayTimeFrameUnspecified DayTimeFrame = 0
	DayTimeFrameD1          DayTimeFrame = 1
	DayTimeFrameW1          DayTimeFrame = 2
)

// IntradayTimeFrame — тайм-фрейм внутридневных свечей.
type IntradayTimeFrame int32

const (
	IntradayTimeFrameUnspecified IntradayTimeFrame = 0
	IntradayTimeFrameM1          IntradayTimeFrame = 1
	IntradayTimeFrameM5          IntradayTimeFrame = 2
	IntradayTimeFrameM15         IntradayTimeFrame = 3
	IntradayTimeFrameH1          IntradayTimeFrame = 4
)

// Date — календарная дата без времени (google.type.Date).
type Date struct {
	Year  int32
	Month int32
	Day   int32
}

// DateOf берёт дату из t в его часовом поясе.
func DateOf(t time.Time) Date {
	return Date{Year: int32(t.Year()), Month: int32(t.Month()), Day: int32(t.Day())}
}

// Time возвращает полночь UTC этой даты.
func (d Date) Time() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC)
}

// IsZero — дата не задана.
func (d Date) IsZero() bool { return d == Date{} }

// DayInterval — интервал запроса дневных свечей.
// Count ограничивает число свечей (если From или To не заданы).
type DayInterval struct {
	From  Date
	To    Date
	Count int32
}

// IntradayInterval — интервал запроса внутридневных свечей.
type IntradayInterval struct {
	From  time.Time
	To    time.Time
	Count int32
}

// Decimal — число в виде мантиссы и количества знаков после запятой.
type Decimal struct {
	Num   int64
	Scale uint32
}

// Float64 переводит Decimal в float64.
func (d Decimal) Float64() float64 {
	return float64(d.Num) / math.Pow10(int(d.Scale))
}

// DayCandle — дневная свеча.
type DayCandle struct {
	Date   Date
	Open   Decimal
	Close  Decimal
	High   Decimal
	Low    Decimal
	Volume int64
}

// IntradayCandle — внутридневная свеча.
type IntradayCandle struct {
	Timestamp time.Time
	Open      Decimal
	Close     Decimal
	High      Decimal
	Low       Decimal
	Volume    int64
}
