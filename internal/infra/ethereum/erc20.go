package ethereum

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chandraveer04/token-browser/internal/domain"
)

var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const erc20ABIJSON = `[
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// 老合约（MKR 之类）name/symbol 返回 bytes32
const erc20Bytes32ABIJSON = `[
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

var (
	erc20ABI        = mustABI(erc20ABIJSON)
	erc20Bytes32ABI = mustABI(erc20Bytes32ABIJSON)
)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

// decodeString 先按 string 解，失败再按 bytes32 解
func decodeString(method string, out []byte) (string, error) {
	if len(out) == 0 {
		return "", fmt.Errorf("%s: empty return data", method)
	}
	if vals, err := erc20ABI.Unpack(method, out); err == nil && len(vals) == 1 {
		if s, ok := vals[0].(string); ok {
			return s, nil
		}
	}
	vals, err := erc20Bytes32ABI.Unpack(method, out)
	if err != nil || len(vals) != 1 {
		return "", fmt.Errorf("%s: undecodable return data", method)
	}
	b32, ok := vals[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return string(bytes.TrimRight(b32[:], "\x00")), nil
}

func decodeUint8(method string, out []byte) (uint8, error) {
	vals, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", method, err)
	}
	v, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return v, nil
}

func decodeBigInt(method string, out []byte) (*big.Int, error) {
	vals, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return v, nil
}

// decodeTransfer 只认标准 ERC-20 Transfer（3 个 topic，data 为 uint256）
func decodeTransfer(l types.Log) (domain.TransferEvent, bool) {
	if len(l.Topics) != 3 || l.Topics[0] != TransferTopic || len(l.Data) != 32 || l.Removed {
		return domain.TransferEvent{}, false
	}
	return domain.TransferEvent{
		Token:       l.Address,
		From:        common.BytesToAddress(l.Topics[1].Bytes()),
		To:          common.BytesToAddress(l.Topics[2].Bytes()),
		Amount:      new(big.Int).SetBytes(l.Data),
		TxHash:      l.TxHash.Hex(),
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, true
}
