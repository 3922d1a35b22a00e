package domain

import (
	"strconv"
	"strings"

	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// Network 支持的链
type Network string

const (
	NetworkDevelopment Network = "development" // 本地 Ganache
	NetworkMainnet     Network = "mainnet"
	NetworkPolygon     Network = "polygon"
	NetworkBSC         Network = "bsc"
)

var Networks = []Network{NetworkDevelopment, NetworkMainnet, NetworkPolygon, NetworkBSC}

func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", xerr.New(xerr.ValidationError, "unsupported network: "+s)
	}
	return n, nil
}

func (n Network) Valid() bool {
	switch n {
	case NetworkDevelopment, NetworkMainnet, NetworkPolygon, NetworkBSC:
		return true
	}
	return false
}

func (n Network) ChainID() int64 {
	switch n {
	case NetworkDevelopment:
		return 1337
	case NetworkMainnet:
		return 1
	case NetworkPolygon:
		return 137
	case NetworkBSC:
		return 56
	}
	return 0
}

// ChainIDString 记录里存十进制字符串
func (n Network) ChainIDString() string {
	return strconv.FormatInt(n.ChainID(), 10)
}

func (n Network) NativeSymbol() string {
	switch n {
	case NetworkPolygon:
		return "MATIC"
	case NetworkBSC:
		return "BNB"
	default:
		return "ETH"
	}
}
