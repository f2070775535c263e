package txutils

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/ruteri/certificate-registry/interfaces"
)

// DefaultGasBufferPercent is the margin added on top of a raw gas estimate.
const DefaultGasBufferPercent = 20

// GasWithBuffer returns estimate increased by percent, rounded to the nearest
// unit. Results that do not fit a uint64 fail with a NumericOverflow error.
func GasWithBuffer(estimate uint64, percent uint64) (uint64, error) {
	if percent > ^uint64(0)-100 {
		return 0, overflowError(estimate, percent)
	}
	scaled, overflow := math.SafeMul(estimate, 100+percent)
	if overflow {
		return 0, overflowError(estimate, percent)
	}
	scaled, overflow = math.SafeAdd(scaled, 50)
	if overflow {
		return 0, overflowError(estimate, percent)
	}
	return scaled / 100, nil
}

func overflowError(estimate, percent uint64) *interfaces.RegistryError {
	return &interfaces.RegistryError{
		Kind:    interfaces.KindNumericOverflow,
		Message: interfaces.ErrNumericOverflow.Message,
		Details: fmt.Sprintf("gas estimate %d with %d%% buffer exceeds uint64", estimate, percent),
	}
}
