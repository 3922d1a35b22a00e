package chainreader

import "github.com/chandraveer04/token-browser/internal/domain"

// DefaultCandidates 各网络常见代币；development 为空，运行时取节点账户
func DefaultCandidates() map[domain.Network][]domain.Candidate {
	return map[domain.Network][]domain.Candidate{
		domain.NetworkMainnet: {
			{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Name: "Wrapped Ether", Symbol: "WETH"},
			{Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Name: "Tether USD", Symbol: "USDT"},
			{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Name: "USD Coin", Symbol: "USDC"},
			{Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Name: "Dai Stablecoin", Symbol: "DAI"},
			{Address: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", Name: "Uniswap", Symbol: "UNI"},
			{Address: "0x514910771AF9Ca656af840dff83E8264EcF986CA", Name: "ChainLink Token", Symbol: "LINK"},
		},
		domain.NetworkPolygon: {
			{Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Name: "Wrapped Ether", Symbol: "WETH"},
			{Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Name: "Tether USD", Symbol: "USDT"},
			{Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Name: "USD Coin", Symbol: "USDC"},
		},
		domain.NetworkBSC: {
			{Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Name: "Wrapped BNB", Symbol: "WBNB"},
			{Address: "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56", Name: "BUSD Token", Symbol: "BUSD"},
			{Address: "0x55d398326f99059fF775485246999027B3197955", Name: "Tether USD", Symbol: "USDT"},
		},
	}
}
