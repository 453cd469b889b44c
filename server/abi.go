package server

import (
	"context"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
)

var _ xcall.Contract = (*Server)(nil)

// Call dispatches ABI-encoded input to the registry methods.
func (s *Server) Call(ctx context.Context, f *xcall.Frame, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: input of %d bytes", xcall.ErrUnknownMethod, len(input))
	}
	method, err := xcall.ServerABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", xcall.ErrUnknownMethod, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s arguments: %w", xcall.ErrCodec, method.Name, err)
	}

	switch method.Name {
	case "executeCall":
		return nil, s.ExecuteCall(ctx, f, args[0].([]byte))
	case "addProxy":
		pc := ProxyConfig{Confirmations: args[2].(uint64), ChainID: args[3].(uint64)}
		return nil, s.RegisterProxy(ctx, f,
			types.Address(args[0].(gethcommon.Address)),
			types.Address(args[1].(gethcommon.Address)), pc)
	}
	return nil, fmt.Errorf("%w: %s", xcall.ErrUnknownMethod, method.Name)
}
