package geth

import (
	"crypto/ecdsa"
	"math/big"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/eth2030/xcall/core/types"
)

// Account is a secp256k1 key and the address derived from it.
type Account struct {
	Key     *ecdsa.PrivateKey
	Address types.Address
}

// GenerateAccount creates a fresh random account.
func GenerateAccount() (*Account, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewAccount(key), nil
}

// NewAccount wraps an existing key.
func NewAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{Key: key, Address: FromGethAddress(gethcrypto.PubkeyToAddress(key.PublicKey))}
}

// SignCall signs an EIP-1559 transaction calling to with input.
func (a *Account) SignCall(chainID *big.Int, nonce uint64, to types.Address, input []byte, gas uint64) (*types.Transaction, error) {
	gto := ToGethAddress(to)
	tx, err := gethtypes.SignNewTx(a.Key, gethtypes.LatestSignerForChainID(chainID), &gethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(1_000_000_000),
		Gas:       gas,
		To:        &gto,
		Data:      input,
	})
	if err != nil {
		return nil, err
	}
	return FromGethTransaction(tx)
}

// Sender recovers the address that signed tx.
func Sender(tx *types.Transaction) (types.Address, error) {
	gtx, err := ToGethTransaction(tx)
	if err != nil {
		return types.Address{}, err
	}
	from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(gtx.ChainId()), gtx)
	if err != nil {
		return types.Address{}, err
	}
	return FromGethAddress(from), nil
}
