package serialdiag

import (
	"fmt"
	"time"
)

// ValidateState validates serial line parameters
func ValidateState(s State) error {
	if !isValidBaudRate(s.BaudRate) {
		return fmt.Errorf("invalid baud rate %d, must be one of: %v", s.BaudRate, supportedBaudRates)
	}

	if s.DataBits < DataBits5 || s.DataBits > DataBits8 {
		return fmt.Errorf("data bits must be 5-8, got: %d", s.DataBits)
	}

	switch s.Parity {
	case ParityNone, ParityOdd, ParityEven, ParityMark, ParitySpace:
	default:
		return fmt.Errorf("invalid parity value: %d", s.Parity)
	}

	switch s.StopBits {
	case StopBits1, StopBits1Half, StopBits2:
	default:
		return fmt.Errorf("invalid stop bits value: %d", s.StopBits)
	}

	return nil
}

// ValidateTimeouts validates the timeout parameters
func ValidateTimeouts(t Timeouts) error {
	fields := []struct {
		name string
		d    time.Duration
	}{
		{"read interval", t.ReadInterval},
		{"read total constant", t.ReadTotalConstant},
		{"read total multiplier", t.ReadTotalMultiplier},
		{"write total constant", t.WriteTotalConstant},
		{"write total multiplier", t.WriteTotalMultiplier},
	}
	for _, f := range fields {
		if f.d < 0 {
			return fmt.Errorf("%s timeout cannot be negative: %v", f.name, f.d)
		}
	}
	return nil
}

func isValidBaudRate(rate BaudRate) bool {
	for _, v := range supportedBaudRates {
		if rate == v {
			return true
		}
	}
	return false
}
