package ledger

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// AnchorABI is the interface of the anchoring contract: one state-changing
// call that records a digest together with an optional content id and the
// submitter, and the event it emits.
const AnchorABI = `[
	{"type":"function","name":"anchor","stateMutability":"nonpayable",
	 "inputs":[{"name":"digest","type":"bytes32"},{"name":"cid","type":"string"},{"name":"submitter","type":"string"}],
	 "outputs":[]},
	{"type":"event","name":"Anchored","anonymous":false,
	 "inputs":[{"name":"digest","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true},
	           {"name":"cid","type":"string","indexed":false},{"name":"submitter","type":"string","indexed":false}]}
]`

const anchorMethod = "anchor"

// chain is the part of an Ethereum node the backend talks to.
// *ethclient.Client satisfies it.
type chain interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// EthereumOptions configures the Ethereum backend.
type EthereumOptions struct {
	RPCURL     string
	Contract   string
	PrivateKey string
}

// Ethereum anchors digests by calling the anchor contract and verifies them
// by decoding the input of the anchoring transaction.
type Ethereum struct {
	chain    chain
	abi      abi.ABI
	contract *bind.BoundContract
	address  common.Address
	key      *ecdsa.PrivateKey
	account  common.Address

	mu      sync.Mutex
	chainID *big.Int
}

var dialEthereum = func(ctx context.Context, url string) (chain, error) {
	return ethclient.DialContext(ctx, url)
}

// NewEthereum dials the node at opts.RPCURL. The chain id is fetched on
// first use so that an offline node does not prevent startup.
func NewEthereum(ctx context.Context, opts EthereumOptions) (*Ethereum, error) {
	if !common.IsHexAddress(opts.Contract) {
		return nil, fmt.Errorf("invalid contract address %q", opts.Contract)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	c, err := dialEthereum(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.RPCURL, err)
	}
	return newEthereum(c, common.HexToAddress(opts.Contract), key)
}

func newEthereum(c chain, address common.Address, key *ecdsa.PrivateKey) (*Ethereum, error) {
	parsed, err := abi.JSON(strings.NewReader(AnchorABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &Ethereum{
		chain:    c,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, c, c, c),
		address:  address,
		key:      key,
		account:  crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (e *Ethereum) Name() string { return "ethereum" }

// Anchor sends the anchor transaction and waits until it is mined.
func (e *Ethereum) Anchor(ctx context.Context, d [32]byte, contentID, submitter string) (string, error) {
	chainID, err := e.getChainID(ctx)
	if err != nil {
		return "", err
	}
	auth, err := bind.NewKeyedTransactorWithChainID(e.key, chainID)
	if err != nil {
		return "", fmt.Errorf("transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := e.contract.Transact(auth, anchorMethod, d, contentID, submitter)
	if err != nil {
		return "", fmt.Errorf("send anchor tx: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, e.chain, tx)
	if err != nil {
		return "", fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("anchor tx %s reverted", tx.Hash().Hex())
	}
	return tx.Hash().Hex(), nil
}

// Verify reports whether txID is a successful anchor call on our contract
// whose digest argument equals d.
func (e *Ethereum) Verify(ctx context.Context, d [32]byte, txID string) (bool, error) {
	if !isTxHash(txID) {
		return false, nil
	}
	hash := common.HexToHash(txID)

	tx, pending, err := e.chain.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch tx: %w", err)
	}
	if pending {
		return false, fmt.Errorf("tx %s is still pending", txID)
	}
	if tx.To() == nil || *tx.To() != e.address {
		return false, nil
	}

	receipt, err := e.chain.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, nil
	}

	recorded, ok := e.decodeDigest(tx.Data())
	if !ok {
		return false, nil
	}
	return bytes.Equal(recorded[:], d[:]), nil
}

func (e *Ethereum) Network(ctx context.Context) (NetworkInfo, error) {
	chainID, err := e.getChainID(ctx)
	if err != nil {
		return NetworkInfo{}, err
	}
	block, err := e.chain.BlockNumber(ctx)
	if err != nil {
		return NetworkInfo{}, fmt.Errorf("block number: %w", err)
	}
	return NetworkInfo{
		ChainID:     chainID.String(),
		LatestBlock: block,
		Contract:    e.address.Hex(),
		Account:     e.account.Hex(),
	}, nil
}

func (e *Ethereum) getChainID(ctx context.Context) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.chainID != nil {
		return e.chainID, nil
	}
	id, err := e.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	e.chainID = id
	return id, nil
}

func (e *Ethereum) decodeDigest(data []byte) ([32]byte, bool) {
	var out [32]byte
	if len(data) < 4 {
		return out, false
	}
	method, err := e.abi.MethodById(data[:4])
	if err != nil || method.Name != anchorMethod {
		return out, false
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) == 0 {
		return out, false
	}
	out, ok := args[0].([32]byte)
	return out, ok
}

func isTxHash(s string) bool {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != 2*common.HashLength {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
