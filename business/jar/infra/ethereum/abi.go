package ethereum

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// ERC20ABI is the subset of ERC-20 the reader and discovery use.
const ERC20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}
	],"name":"Transfer","type":"event"}
]`

// erc20Bytes32ABI covers pre-standard tokens (MKR, SAI) whose symbol is bytes32.
const erc20Bytes32ABI = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`

// ReleaseABI is the release contract: burn threshold of the resource token
// in exchange for the listed assets held by the jar.
const ReleaseABI = `[
	{"inputs":[],"name":"threshold","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"nonce","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[
		{"name":"nonce","type":"uint256"},
		{"name":"assets","type":"address[]"},
		{"name":"recipient","type":"address"}
	],"name":"release","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// TransferTopic is keccak256("Transfer(address,address,uint256)").
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var (
	erc20ABI        = mustParse(ERC20ABI)
	erc20Bytes32    = mustParse(erc20Bytes32ABI)
	releaseContract = mustParse(ReleaseABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

var errNotERC20 = errors.New("not an ERC-20 token")

func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}

// notERC20 reports whether err means the address does not answer as a token.
func notERC20(err error) bool {
	return isRevert(err) || errors.Is(err, errNotERC20)
}
