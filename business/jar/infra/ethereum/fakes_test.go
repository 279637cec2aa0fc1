package ethereum

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var errTransport = errors.New("connection refused")

type callKey struct {
	to       common.Address
	selector string
}

// scriptedCaller answers eth_call by contract and method selector.
type scriptedCaller struct {
	mu      sync.Mutex
	answers map[callKey][]byte
	errs    map[callKey]error
	calls   int
}

func newScriptedCaller() *scriptedCaller {
	return &scriptedCaller{
		answers: make(map[callKey][]byte),
		errs:    make(map[callKey]error),
	}
}

func (c *scriptedCaller) answer(to common.Address, contract abi.ABI, method string, values ...any) {
	out, err := contract.Methods[method].Outputs.Pack(values...)
	if err != nil {
		panic(err)
	}
	c.answers[callKey{to, string(contract.Methods[method].ID)}] = out
}

func (c *scriptedCaller) fail(to common.Address, contract abi.ABI, method string, err error) {
	c.errs[callKey{to, string(contract.Methods[method].ID)}] = err
}

func (c *scriptedCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	key := callKey{*msg.To, string(msg.Data[:4])}
	if err := c.errs[key]; err != nil {
		return nil, err
	}
	if out, ok := c.answers[key]; ok {
		return bytes.Clone(out), nil
	}
	return nil, nil
}

func (c *scriptedCaller) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
