package proxy

import (
	"context"
	"fmt"
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/xcall"
	"github.com/eth2030/xcall/core/types"
)

var _ xcall.Contract = (*Proxy)(nil)

// Call dispatches ABI-encoded input to the registry methods.
func (p *Proxy) Call(ctx context.Context, f *xcall.Frame, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: input of %d bytes", xcall.ErrUnknownMethod, len(input))
	}
	method, err := xcall.ProxyABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", xcall.ErrUnknownMethod, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s arguments: %w", xcall.ErrCodec, method.Name, err)
	}

	switch method.Name {
	case "callContract":
		id, err := p.CallContract(ctx, f,
			types.Address(args[0].(gethcommon.Address)),
			args[1].([]byte), args[2].([]byte), args[3].(string))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(id.ToBig())
	case "requestCall":
		id, overflow := uint256.FromBig(args[0].(*big.Int))
		if overflow {
			return nil, fmt.Errorf("%w: callId overflows 256 bits", xcall.ErrCodec)
		}
		return nil, p.RequestCall(ctx, f, id)
	case "acknowledgeCall":
		return nil, p.AcknowledgeCall(ctx, f, args[0].([]byte))
	case "nextCallId":
		id, err := p.NextCallID()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(id.ToBig())
	}
	return nil, fmt.Errorf("%w: %s", xcall.ErrUnknownMethod, method.Name)
}
