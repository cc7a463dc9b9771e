package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// licenseABI is the fixed interface of the pre-deployed MusicLicense contract.
const licenseABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "licenseId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "creator", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "licensee", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "licenseType", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "startTimestamp", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "endTimestamp", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "ipfsHash", "type": "string"}
    ],
    "name": "LicenseIssued",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_licenseId", "type": "uint256"}],
    "name": "deactivateLicense",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_licenseId", "type": "uint256"}],
    "name": "getIpfsHash",
    "outputs": [{"internalType": "string", "name": "", "type": "string"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_licenseId", "type": "uint256"}],
    "name": "isLicenseActive",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "_licensee", "type": "address"},
      {"internalType": "uint8", "name": "_licenseType", "type": "uint8"},
      {"internalType": "uint256", "name": "_durationInDays", "type": "uint256"},
      {"internalType": "string", "name": "_ipfsHash", "type": "string"}
    ],
    "name": "issueLicense",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "licenseCounter",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "name": "licenses",
    "outputs": [
      {"internalType": "address", "name": "creator", "type": "address"},
      {"internalType": "address", "name": "licensee", "type": "address"},
      {"internalType": "uint8", "name": "licenseType", "type": "uint8"},
      {"internalType": "uint256", "name": "startTimestamp", "type": "uint256"},
      {"internalType": "uint256", "name": "endTimestamp", "type": "uint256"},
      {"internalType": "string", "name": "ipfsHash", "type": "string"},
      {"internalType": "bool", "name": "isActive", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const issuedEventName = "LicenseIssued"

func parseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(licenseABI))
}

// IssuedEvent is one decoded LicenseIssued log entry.
type IssuedEvent struct {
	LicenseID      *big.Int
	Creator        common.Address
	Licensee       common.Address
	LicenseType    uint8
	StartTimestamp uint64
	EndTimestamp   uint64
	ContentRef     string
}

// Record is the full on-chain license tuple from licenses(index).
type Record struct {
	Creator        common.Address
	Licensee       common.Address
	LicenseType    uint8
	StartTimestamp uint64
	EndTimestamp   uint64
	ContentRef     string
	IsActive       bool
}

func parseIssuedLog(contractABI abi.ABI, log types.Log) (IssuedEvent, error) {
	if len(log.Topics) != 4 {
		return IssuedEvent{}, fmt.Errorf("issued log has %d topics, want 4", len(log.Topics))
	}
	if log.Topics[0] != contractABI.Events[issuedEventName].ID {
		return IssuedEvent{}, fmt.Errorf("log topic %s is not %s", log.Topics[0], issuedEventName)
	}

	event := IssuedEvent{
		LicenseID: new(big.Int).SetBytes(log.Topics[1].Bytes()),
		Creator:   common.BytesToAddress(log.Topics[2].Bytes()),
		Licensee:  common.BytesToAddress(log.Topics[3].Bytes()),
	}

	values, err := contractABI.Unpack(issuedEventName, log.Data)
	if err != nil {
		return IssuedEvent{}, fmt.Errorf("unpacking issued log data: %w", err)
	}
	if len(values) != 4 {
		return IssuedEvent{}, fmt.Errorf("issued log data has %d values, want 4", len(values))
	}

	licenseType, ok := values[0].(uint8)
	if !ok {
		return IssuedEvent{}, fmt.Errorf("license type has unexpected type %T", values[0])
	}
	start, ok := values[1].(*big.Int)
	if !ok {
		return IssuedEvent{}, fmt.Errorf("start timestamp has unexpected type %T", values[1])
	}
	end, ok := values[2].(*big.Int)
	if !ok {
		return IssuedEvent{}, fmt.Errorf("end timestamp has unexpected type %T", values[2])
	}
	ref, ok := values[3].(string)
	if !ok {
		return IssuedEvent{}, fmt.Errorf("content ref has unexpected type %T", values[3])
	}

	event.LicenseType = licenseType
	event.StartTimestamp = start.Uint64()
	event.EndTimestamp = end.Uint64()
	event.ContentRef = ref
	return event, nil
}
