package rates

import (
	"fmt"
	"time"
)

// Kind classifies rate lookup failures.
type Kind int

const (
	// KindSourceUnavailable covers transport errors and non-2xx responses.
	KindSourceUnavailable Kind = iota + 1
	// KindDataCorrupt means the body could not be decoded as a rate table.
	KindDataCorrupt
	// KindRatesNotFound means the table for the date has no entries.
	KindRatesNotFound
	// KindRateNotFound means the table exists but lacks the requested currency.
	KindRateNotFound
)

func (k Kind) String() string {
	switch k {
	case KindSourceUnavailable:
		return "unavailable"
	case KindDataCorrupt:
		return "corrupt"
	case KindRatesNotFound:
		return "rates_not_found"
	case KindRateNotFound:
		return "rate_not_found"
	default:
		return "unknown"
	}
}

// Error is returned by Client for every classified failure.
type Error struct {
	Kind     Kind
	Currency string
	Date     time.Time
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("rates: %s for %s", e.Kind, e.Date.Format(DateLayout))
	if e.Currency != "" {
		msg += " " + e.Currency
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code is logged as err_code.
func (e *Error) Code() string {
	switch e.Kind {
	case KindSourceUnavailable:
		return "RATES_UNAVAILABLE"
	case KindDataCorrupt:
		return "RATES_CORRUPT"
	case KindRatesNotFound:
		return "RATES_NOT_FOUND"
	case KindRateNotFound:
		return "RATE_NOT_FOUND"
	default:
		return "RATES_UNKNOWN"
	}
}
