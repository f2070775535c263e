package ledgersim

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

// RevertError is the JSON-RPC error a node returns for a reverted call.
// Its data is the ABI encoded Error(string) payload.
type RevertError struct {
	reason string
	data   []byte
}

// NewRevertError builds the error returned for a revert with reason.
func NewRevertError(reason string) *RevertError {
	stringTy, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	if err != nil {
		return &RevertError{reason: reason}
	}
	data := append(append([]byte{}, revertSelector...), packed...)
	return &RevertError{reason: reason, data: data}
}

func (e *RevertError) Error() string {
	if e.reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.reason
}

// ErrorCode returns the JSON-RPC code nodes use for reverts.
func (e *RevertError) ErrorCode() int {
	return 3
}

// ErrorData returns the hex encoded revert payload.
func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(e.data)
}
