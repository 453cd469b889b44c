package xcall

import (
	"errors"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/gas"
)

// Protocol errors. Every registry failure wraps exactly one of these, so
// callers can classify it with errors.Is.
var (
	ErrNonExistentCall          = errors.New("non-existent call")
	ErrIllegalProxyAddress      = errors.New("illegal proxy address")
	ErrIllegalRpcServer         = errors.New("illegal rpc server")
	ErrIncorrectProxy           = errors.New("incorrect proxy")
	ErrIncorrectServer          = errors.New("incorrect server")
	ErrNonExistentCallExecution = errors.New("non-existent call execution")
	ErrFailedCallRequest        = errors.New("failed call request")
	ErrFailedCallExecution      = errors.New("failed call execution")
	ErrMultipleExecution        = errors.New("multiple execution")
	ErrMultipleAcknowledgement  = errors.New("multiple acknowledgement")

	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnknownRelay  = errors.New("unknown relay")
	ErrUnknownMethod = errors.New("unknown method")

	ErrInsufficientResources = gas.ErrInsufficientResources
	ErrCodec                 = types.ErrCodec
)
