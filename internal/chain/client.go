package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/soundlease/soundlease-backend/pkg/config"
	"github.com/soundlease/soundlease-backend/pkg/logger"
)

// Reader is the log-query and read-call capability the aggregator consumes.
type Reader interface {
	HeadBlock(ctx context.Context) (uint64, error)
	FilterIssuedByCreator(ctx context.Context, fromBlock uint64, creator common.Address) ([]IssuedEvent, error)
	FilterIssuedByLicensee(ctx context.Context, fromBlock uint64, licensee common.Address) ([]IssuedEvent, error)
	IsLicenseActive(ctx context.Context, licenseID *big.Int) (bool, error)
}

// Writer is the state-changing capability used by issuance and deactivation.
type Writer interface {
	IssueLicense(ctx context.Context, licensee common.Address, licenseType uint8, durationDays uint64, contentRef string) (IssueReceipt, error)
	DeactivateLicense(ctx context.Context, licenseID *big.Int) (common.Hash, error)
}

// IssueReceipt carries the outcome of a mined issueLicense transaction.
type IssueReceipt struct {
	LicenseID *big.Int
	TxHash    common.Hash
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

type rpcBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Client wraps an Ethereum RPC connection with typed access to the deployed
// license contract. Writes sign with the configured issuer key.
type Client struct {
	backend        rpcBackend
	contractABI    abi.ABI
	contract       common.Address
	chainID        *big.Int
	issuerKey      *ecdsa.PrivateKey
	issuerAddr     common.Address
	confirmTimeout time.Duration
}

func NewClient(ctx context.Context, cfg config.ChainConfig, logg *logger.Logger) (*Client, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("contract address %q is not a valid address", cfg.ContractAddress)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc endpoint: %w", err)
	}

	client, err := newClient(eth, cfg)
	if err != nil {
		return nil, err
	}

	if logg != nil {
		fields := map[string]any{"contract": cfg.ContractAddress, "chain_id": cfg.ChainID}
		if client.issuerKey != nil {
			fields["issuer"] = client.issuerAddr.Hex()
		}
		logg.Info(logg.WithFields(ctx, fields), "chain client initialized")
	}
	return client, nil
}

func newClient(backend rpcBackend, cfg config.ChainConfig) (*Client, error) {
	contractABI, err := parseABI()
	if err != nil {
		return nil, fmt.Errorf("parsing contract abi: %w", err)
	}

	client := &Client{
		backend:        backend,
		contractABI:    contractABI,
		contract:       common.HexToAddress(cfg.ContractAddress),
		chainID:        big.NewInt(cfg.ChainID),
		confirmTimeout: cfg.ConfirmTimeout,
	}

	if key := strings.TrimSpace(cfg.IssuerKey); key != "" {
		privKey, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing issuer key: %w", err)
		}
		client.issuerKey = privKey
		client.issuerAddr = crypto.PubkeyToAddress(privKey.PublicKey)
	}

	return client, nil
}

// IssuerAddress returns the address writes are signed with, or the zero
// address when no issuer key is configured.
func (c *Client) IssuerAddress() common.Address {
	return c.issuerAddr
}

// Close releases the underlying RPC connection when there is one. Test
// backends without a Close method are left alone.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.backend == nil {
		return errors.New("chain client not initialized")
	}
	_, err := c.backend.BlockNumber(ctx)
	return err
}

func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	if c == nil || c.backend == nil {
		return 0, errors.New("chain client not initialized")
	}
	return c.backend.BlockNumber(ctx)
}

func (c *Client) FilterIssuedByCreator(ctx context.Context, fromBlock uint64, creator common.Address) ([]IssuedEvent, error) {
	return c.filterIssued(ctx, fromBlock, &creator, nil)
}

func (c *Client) FilterIssuedByLicensee(ctx context.Context, fromBlock uint64, licensee common.Address) ([]IssuedEvent, error) {
	return c.filterIssued(ctx, fromBlock, nil, &licensee)
}

func (c *Client) filterIssued(ctx context.Context, fromBlock uint64, creator, licensee *common.Address) ([]IssuedEvent, error) {
	if c == nil || c.backend == nil {
		return nil, errors.New("chain client not initialized")
	}

	eventID := c.contractABI.Events[issuedEventName].ID
	topics := [][]common.Hash{{eventID}, nil, nil, nil}
	if creator != nil {
		topics[2] = []common.Hash{addressTopic(*creator)}
	}
	if licensee != nil {
		topics[3] = []common.Hash{addressTopic(*licensee)}
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   nil, // latest
		Addresses: []common.Address{c.contract},
		Topics:    topics,
	}

	logs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filtering issued logs: %w", err)
	}

	events := make([]IssuedEvent, 0, len(logs))
	for _, entry := range logs {
		event, err := parseIssuedLog(c.contractABI, entry)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (c *Client) IsLicenseActive(ctx context.Context, licenseID *big.Int) (bool, error) {
	var active bool
	if err := c.call(ctx, "isLicenseActive", &active, licenseID); err != nil {
		return false, err
	}
	return active, nil
}

func (c *Client) LicenseCounter(ctx context.Context) (*big.Int, error) {
	var counter *big.Int
	if err := c.call(ctx, "licenseCounter", &counter); err != nil {
		return nil, err
	}
	return counter, nil
}

func (c *Client) ContentRef(ctx context.Context, licenseID *big.Int) (string, error) {
	var ref string
	if err := c.call(ctx, "getIpfsHash", &ref, licenseID); err != nil {
		return "", err
	}
	return ref, nil
}

// License reads the full stored tuple at the given index.
func (c *Client) License(ctx context.Context, index *big.Int) (Record, error) {
	if c == nil || c.backend == nil {
		return Record{}, errors.New("chain client not initialized")
	}

	data, err := c.contractABI.Pack("licenses", index)
	if err != nil {
		return Record{}, fmt.Errorf("packing licenses call: %w", err)
	}
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return Record{}, fmt.Errorf("calling licenses: %w", err)
	}
	values, err := c.contractABI.Unpack("licenses", raw)
	if err != nil {
		return Record{}, fmt.Errorf("unpacking licenses result: %w", err)
	}
	if len(values) != 7 {
		return Record{}, fmt.Errorf("licenses result has %d values, want 7", len(values))
	}

	return Record{
		Creator:        values[0].(common.Address),
		Licensee:       values[1].(common.Address),
		LicenseType:    values[2].(uint8),
		StartTimestamp: values[3].(*big.Int).Uint64(),
		EndTimestamp:   values[4].(*big.Int).Uint64(),
		ContentRef:     values[5].(string),
		IsActive:       values[6].(bool),
	}, nil
}

func (c *Client) call(ctx context.Context, method string, out any, args ...any) error {
	if c == nil || c.backend == nil {
		return errors.New("chain client not initialized")
	}

	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("packing %s call: %w", method, err)
	}
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	if err := c.contractABI.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("unpacking %s result: %w", method, err)
	}
	return nil
}

func (c *Client) IssueLicense(ctx context.Context, licensee common.Address, licenseType uint8, durationDays uint64, contentRef string) (IssueReceipt, error) {
	data, err := c.contractABI.Pack("issueLicense", licensee, licenseType, new(big.Int).SetUint64(durationDays), contentRef)
	if err != nil {
		return IssueReceipt{}, fmt.Errorf("packing issueLicense call: %w", err)
	}

	receipt, err := c.transact(ctx, data)
	if err != nil {
		return IssueReceipt{}, err
	}

	eventID := c.contractABI.Events[issuedEventName].ID
	for _, entry := range receipt.Logs {
		if len(entry.Topics) == 0 || entry.Topics[0] != eventID {
			continue
		}
		event, err := parseIssuedLog(c.contractABI, *entry)
		if err != nil {
			return IssueReceipt{}, err
		}
		return IssueReceipt{LicenseID: event.LicenseID, TxHash: receipt.TxHash}, nil
	}
	return IssueReceipt{}, errors.New("mined transaction carries no issuance event")
}

func (c *Client) DeactivateLicense(ctx context.Context, licenseID *big.Int) (common.Hash, error) {
	data, err := c.contractABI.Pack("deactivateLicense", licenseID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("packing deactivateLicense call: %w", err)
	}

	receipt, err := c.transact(ctx, data)
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}

func (c *Client) transact(ctx context.Context, calldata []byte) (*types.Receipt, error) {
	if c == nil || c.backend == nil {
		return nil, errors.New("chain client not initialized")
	}
	if c.issuerKey == nil {
		return nil, errors.New("issuer key not configured, writes disabled")
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.issuerAddr)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gas price: %w", err)
	}
	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: c.issuerAddr,
		To:   &c.contract,
		Data: calldata,
	})
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gasLimit, gasPrice, calldata)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.issuerKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}

	waitCtx := ctx
	if c.confirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.confirmTimeout)
		defer cancel()
	}
	receipt, err := bind.WaitMined(waitCtx, waitBackend{c.backend}, signed)
	if err != nil {
		return nil, fmt.Errorf("waiting for inclusion: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", receipt.TxHash)
	}
	return receipt, nil
}

// waitBackend adapts the narrow rpcBackend to bind.DeployBackend.
type waitBackend struct {
	rpcBackend
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}
