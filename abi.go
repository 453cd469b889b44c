package xcall

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/eth2030/xcall/core/types"
	"github.com/eth2030/xcall/crypto"
)

const proxyABIJSON = `[
  {"type":"function","name":"callContract","stateMutability":"nonpayable",
   "inputs":[{"name":"contractAddress","type":"address"},{"name":"dappSpecificId","type":"bytes"},
             {"name":"callData","type":"bytes"},{"name":"callback","type":"string"}],
   "outputs":[{"name":"callId","type":"uint256"}]},
  {"type":"function","name":"requestCall","stateMutability":"nonpayable",
   "inputs":[{"name":"callId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"acknowledgeCall","stateMutability":"nonpayable",
   "inputs":[{"name":"proof","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"nextCallId","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"CallPrepared","anonymous":false,
   "inputs":[{"name":"callId","type":"uint256","indexed":false}]},
  {"type":"event","name":"CallRequested","anonymous":false,
   "inputs":[{"name":"callId","type":"uint256","indexed":false},{"name":"caller","type":"address","indexed":false},
             {"name":"remoteServer","type":"address","indexed":false},{"name":"remoteContract","type":"address","indexed":false},
             {"name":"callData","type":"bytes","indexed":false}]},
  {"type":"event","name":"CallAcknowledged","anonymous":false,
   "inputs":[{"name":"callId","type":"uint256","indexed":false},{"name":"success","type":"bool","indexed":false}]}
]`

const serverABIJSON = `[
  {"type":"function","name":"executeCall","stateMutability":"nonpayable",
   "inputs":[{"name":"proof","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"addProxy","stateMutability":"nonpayable",
   "inputs":[{"name":"proxy","type":"address"},{"name":"relay","type":"address"},
             {"name":"confirmations","type":"uint64"},{"name":"chainId","type":"uint64"}],"outputs":[]},
  {"type":"event","name":"CallExecuted","anonymous":false,
   "inputs":[{"name":"callId","type":"uint256","indexed":false},{"name":"remoteRPCProxy","type":"address","indexed":false},
             {"name":"success","type":"bool","indexed":false},{"name":"data","type":"bytes","indexed":false}]}
]`

// ProxyABI and ServerABI describe the call surface and events of the
// origin-side and target-side registries.
var (
	ProxyABI  = mustParseABI(proxyABIJSON)
	ServerABI = mustParseABI(serverABIJSON)
)

var callbackArgs = mustArguments("bytes", "bool", "bytes")

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("xcall: invalid ABI: %v", err))
	}
	return parsed
}

func mustArguments(kinds ...string) abi.Arguments {
	args := make(abi.Arguments, len(kinds))
	for i, k := range kinds {
		typ, err := abi.NewType(k, "", nil)
		if err != nil {
			panic(fmt.Sprintf("xcall: invalid ABI type %s: %v", k, err))
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args
}

// CallbackSignature returns the canonical signature of a callback method
// called name: name(bytes,bool,bytes).
func CallbackSignature(name string) string {
	return name + "(bytes,bool,bytes)"
}

// EncodeCallback returns the calldata invoking callback name with the
// acknowledged outcome.
func EncodeCallback(name string, dappSpecificID []byte, success bool, data []byte) ([]byte, error) {
	packed, err := callbackArgs.Pack(dappSpecificID, success, data)
	if err != nil {
		return nil, err
	}
	selector := crypto.Keccak256([]byte(CallbackSignature(name)))[:4]
	return append(selector, packed...), nil
}

// DecodeCallback splits callback calldata into its selector and arguments.
func DecodeCallback(input []byte) (selector [4]byte, dappSpecificID []byte, success bool, data []byte, err error) {
	if len(input) < 4 {
		return selector, nil, false, nil, fmt.Errorf("%w: short callback input", ErrCodec)
	}
	copy(selector[:], input[:4])
	vals, err := callbackArgs.Unpack(input[4:])
	if err != nil {
		return selector, nil, false, nil, fmt.Errorf("%w: callback arguments: %w", ErrCodec, err)
	}
	return selector, vals[0].([]byte), vals[1].(bool), vals[2].([]byte), nil
}

// Selector returns the 4-byte method identifier of signature.
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature)))
	return sel
}

func eventID(a abi.ABI, name string) types.Hash {
	return types.Hash(a.Events[name].ID)
}
