// Package certregistry is a Go binding for the certificate registry contract.
package certregistry

import (
	"context"
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
)

// CertRegistryABI is the input ABI of the registry contract.
const CertRegistryABI = "[{\"inputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"constructor\"},{\"anonymous\":false,\"inputs\":[{\"indexed\":false,\"internalType\":\"string\",\"name\":\"id\",\"type\":\"string\"},{\"indexed\":false,\"internalType\":\"string\",\"name\":\"studentName\",\"type\":\"string\"},{\"indexed\":false,\"internalType\":\"string\",\"name\":\"courseName\",\"type\":\"string\"},{\"indexed\":false,\"internalType\":\"string\",\"name\":\"issueDate\",\"type\":\"string\"},{\"indexed\":false,\"internalType\":\"address\",\"name\":\"issuer\",\"type\":\"address\"}],\"name\":\"CertificateIssued\",\"type\":\"event\"},{\"anonymous\":false,\"inputs\":[{\"indexed\":false,\"internalType\":\"string\",\"name\":\"id\",\"type\":\"string\"}],\"name\":\"CertificateRevoked\",\"type\":\"event\"},{\"anonymous\":false,\"inputs\":[{\"indexed\":false,\"internalType\":\"address\",\"name\":\"issuer\",\"type\":\"address\"}],\"name\":\"IssuerAuthorized\",\"type\":\"event\"},{\"anonymous\":false,\"inputs\":[{\"indexed\":false,\"internalType\":\"address\",\"name\":\"issuer\",\"type\":\"address\"}],\"name\":\"IssuerRevoked\",\"type\":\"event\"},{\"inputs\":[{\"internalType\":\"address\",\"name\":\"issuer\",\"type\":\"address\"}],\"name\":\"authorizeIssuer\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"address\",\"name\":\"\",\"type\":\"address\"}],\"name\":\"authorizedIssuers\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"string\",\"name\":\"id\",\"type\":\"string\"}],\"name\":\"getCertificateDetails\",\"outputs\":[{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"},{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"},{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"},{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"},{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"},{\"internalType\":\"address\",\"name\":\"\",\"type\":\"address\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"address\",\"name\":\"issuer\",\"type\":\"address\"}],\"name\":\"isAuthorizedIssuer\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"string\",\"name\":\"id\",\"type\":\"string\"},{\"internalType\":\"string\",\"name\":\"studentName\",\"type\":\"string\"},{\"internalType\":\"string\",\"name\":\"courseName\",\"type\":\"string\"},{\"internalType\":\"string\",\"name\":\"issueDate\",\"type\":\"string\"}],\"name\":\"issueCertificate\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"owner\",\"outputs\":[{\"internalType\":\"address\",\"name\":\"\",\"type\":\"address\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"string\",\"name\":\"id\",\"type\":\"string\"}],\"name\":\"revokeCertificate\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"address\",\"name\":\"issuer\",\"type\":\"address\"}],\"name\":\"revokeIssuer\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"string\",\"name\":\"id\",\"type\":\"string\"}],\"name\":\"verifyCertificate\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"}]"

// Event names as declared in the ABI.
const (
	EventCertificateIssued  = "CertificateIssued"
	EventCertificateRevoked = "CertificateRevoked"
	EventIssuerAuthorized   = "IssuerAuthorized"
	EventIssuerRevoked      = "IssuerRevoked"
)

var (
	parsedABI     abi.ABI
	parsedABIErr  error
	parsedABIOnce sync.Once
)

// ParsedABI returns the parsed contract ABI.
func ParsedABI() (*abi.ABI, error) {
	parsedABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(CertRegistryABI))
	})
	if parsedABIErr != nil {
		return nil, parsedABIErr
	}
	return &parsedABI, nil
}

// CertRegistry is a binding around the registry contract.
type CertRegistry struct {
	CertRegistryCaller
	CertRegistryTransactor
	CertRegistryFilterer
}

// CertRegistryCaller is a read-only binding around the registry contract.
type CertRegistryCaller struct {
	contract *bind.BoundContract
}

// CertRegistryTransactor is a write-only binding around the registry contract.
type CertRegistryTransactor struct {
	contract *bind.BoundContract
}

// CertRegistryFilterer is a log filtering binding around the registry contract.
type CertRegistryFilterer struct {
	address  common.Address
	abi      *abi.ABI
	filterer bind.ContractFilterer
}

// NewCertRegistry creates a new instance of CertRegistry, bound to a specific deployed contract.
func NewCertRegistry(address common.Address, backend bind.ContractBackend) (*CertRegistry, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, *parsed, backend, backend, backend)
	return &CertRegistry{
		CertRegistryCaller:     CertRegistryCaller{contract: contract},
		CertRegistryTransactor: CertRegistryTransactor{contract: contract},
		CertRegistryFilterer:   CertRegistryFilterer{address: address, abi: parsed, filterer: backend},
	}, nil
}

// NewCertRegistryFilterer creates a log filtering binding without write access.
func NewCertRegistryFilterer(address common.Address, filterer bind.ContractFilterer) (*CertRegistryFilterer, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	return &CertRegistryFilterer{address: address, abi: parsed, filterer: filterer}, nil
}

// CertRegistryCertificate is the tuple returned by getCertificateDetails.
type CertRegistryCertificate struct {
	Id          string
	StudentName string
	CourseName  string
	IssueDate   string
	IsValid     bool
	Issuer      common.Address
}

// VerifyCertificate is a free data retrieval call.
//
// Solidity: function verifyCertificate(string id) view returns(bool)
func (_CertRegistry *CertRegistryCaller) VerifyCertificate(opts *bind.CallOpts, id string) (bool, error) {
	var out []interface{}
	err := _CertRegistry.contract.Call(opts, &out, "verifyCertificate", id)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// GetCertificateDetails is a free data retrieval call.
//
// Solidity: function getCertificateDetails(string id) view returns(string, string, string, string, bool, address)
func (_CertRegistry *CertRegistryCaller) GetCertificateDetails(opts *bind.CallOpts, id string) (CertRegistryCertificate, error) {
	var out []interface{}
	err := _CertRegistry.contract.Call(opts, &out, "getCertificateDetails", id)
	if err != nil {
		return CertRegistryCertificate{}, err
	}
	if len(out) != 6 {
		return CertRegistryCertificate{}, fmt.Errorf("getCertificateDetails: unexpected output length %d", len(out))
	}
	return CertRegistryCertificate{
		Id:          *abi.ConvertType(out[0], new(string)).(*string),
		StudentName: *abi.ConvertType(out[1], new(string)).(*string),
		CourseName:  *abi.ConvertType(out[2], new(string)).(*string),
		IssueDate:   *abi.ConvertType(out[3], new(string)).(*string),
		IsValid:     *abi.ConvertType(out[4], new(bool)).(*bool),
		Issuer:      *abi.ConvertType(out[5], new(common.Address)).(*common.Address),
	}, nil
}

// IsAuthorizedIssuer is a free data retrieval call.
//
// Solidity: function isAuthorizedIssuer(address issuer) view returns(bool)
func (_CertRegistry *CertRegistryCaller) IsAuthorizedIssuer(opts *bind.CallOpts, issuer common.Address) (bool, error) {
	var out []interface{}
	err := _CertRegistry.contract.Call(opts, &out, "isAuthorizedIssuer", issuer)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// AuthorizedIssuers is a free data retrieval call reading the raw issuer mapping.
//
// Solidity: function authorizedIssuers(address) view returns(bool)
func (_CertRegistry *CertRegistryCaller) AuthorizedIssuers(opts *bind.CallOpts, arg0 common.Address) (bool, error) {
	var out []interface{}
	err := _CertRegistry.contract.Call(opts, &out, "authorizedIssuers", arg0)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Owner is a free data retrieval call.
//
// Solidity: function owner() view returns(address)
func (_CertRegistry *CertRegistryCaller) Owner(opts *bind.CallOpts) (common.Address, error) {
	var out []interface{}
	err := _CertRegistry.contract.Call(opts, &out, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// IssueCertificate is a paid mutator transaction.
//
// Solidity: function issueCertificate(string id, string studentName, string courseName, string issueDate) returns()
func (_CertRegistry *CertRegistryTransactor) IssueCertificate(opts *bind.TransactOpts, id string, studentName string, courseName string, issueDate string) (*types.Transaction, error) {
	return _CertRegistry.contract.Transact(opts, "issueCertificate", id, studentName, courseName, issueDate)
}

// RevokeCertificate is a paid mutator transaction.
//
// Solidity: function revokeCertificate(string id) returns()
func (_CertRegistry *CertRegistryTransactor) RevokeCertificate(opts *bind.TransactOpts, id string) (*types.Transaction, error) {
	return _CertRegistry.contract.Transact(opts, "revokeCertificate", id)
}

// AuthorizeIssuer is a paid mutator transaction.
//
// Solidity: function authorizeIssuer(address issuer) returns()
func (_CertRegistry *CertRegistryTransactor) AuthorizeIssuer(opts *bind.TransactOpts, issuer common.Address) (*types.Transaction, error) {
	return _CertRegistry.contract.Transact(opts, "authorizeIssuer", issuer)
}

// RevokeIssuer is a paid mutator transaction.
//
// Solidity: function revokeIssuer(address issuer) returns()
func (_CertRegistry *CertRegistryTransactor) RevokeIssuer(opts *bind.TransactOpts, issuer common.Address) (*types.Transaction, error) {
	return _CertRegistry.contract.Transact(opts, "revokeIssuer", issuer)
}

// CertRegistryCertificateIssued represents a CertificateIssued event raised by the registry.
type CertRegistryCertificateIssued struct {
	Id          string
	StudentName string
	CourseName  string
	IssueDate   string
	Issuer      common.Address
	Raw         types.Log
}

// CertRegistryCertificateRevoked represents a CertificateRevoked event raised by the registry.
type CertRegistryCertificateRevoked struct {
	Id  string
	Raw types.Log
}

// CertRegistryIssuerAuthorized represents an IssuerAuthorized event raised by the registry.
type CertRegistryIssuerAuthorized struct {
	Issuer common.Address
	Raw    types.Log
}

// CertRegistryIssuerRevoked represents an IssuerRevoked event raised by the registry.
type CertRegistryIssuerRevoked struct {
	Issuer common.Address
	Raw    types.Log
}

// ErrUnknownEvent is returned when a log does not belong to any registry event.
var ErrUnknownEvent = errors.New("log is not a registry event")

// EventName returns the registry event a log carries.
func (_CertRegistry *CertRegistryFilterer) EventName(log types.Log) (string, error) {
	if len(log.Topics) == 0 {
		return "", ErrUnknownEvent
	}
	ev, err := _CertRegistry.abi.EventByID(log.Topics[0])
	if err != nil {
		return "", ErrUnknownEvent
	}
	return ev.Name, nil
}

func (_CertRegistry *CertRegistryFilterer) topics() [][]common.Hash {
	return [][]common.Hash{{
		_CertRegistry.abi.Events[EventCertificateIssued].ID,
		_CertRegistry.abi.Events[EventCertificateRevoked].ID,
		_CertRegistry.abi.Events[EventIssuerAuthorized].ID,
		_CertRegistry.abi.Events[EventIssuerRevoked].ID,
	}}
}

// FilterRegistryLogs returns every registry event log in the block range of opts.
func (_CertRegistry *CertRegistryFilterer) FilterRegistryLogs(opts *bind.FilterOpts) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{_CertRegistry.address},
		Topics:    _CertRegistry.topics(),
	}
	ctx := context.Background()
	if opts != nil {
		query.FromBlock = new(big.Int).SetUint64(opts.Start)
		if opts.End != nil {
			query.ToBlock = new(big.Int).SetUint64(*opts.End)
		}
		if opts.Context != nil {
			ctx = opts.Context
		}
	}
	return _CertRegistry.filterer.FilterLogs(ctx, query)
}

// WatchRegistryLogs subscribes to registry event logs as they are produced.
func (_CertRegistry *CertRegistryFilterer) WatchRegistryLogs(opts *bind.WatchOpts, sink chan<- types.Log) (ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{_CertRegistry.address},
		Topics:    _CertRegistry.topics(),
	}
	ctx := context.Background()
	if opts != nil {
		if opts.Start != nil {
			query.FromBlock = new(big.Int).SetUint64(*opts.Start)
		}
		if opts.Context != nil {
			ctx = opts.Context
		}
	}
	return _CertRegistry.filterer.SubscribeFilterLogs(ctx, query, sink)
}

func (_CertRegistry *CertRegistryFilterer) unpack(out interface{}, event string, log types.Log) error {
	ev, ok := _CertRegistry.abi.Events[event]
	if !ok {
		return fmt.Errorf("abi: event %s not found", event)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return fmt.Errorf("%w: expected %s", ErrUnknownEvent, event)
	}
	return _CertRegistry.abi.UnpackIntoInterface(out, event, log.Data)
}

// ParseCertificateIssued is a log parse operation binding the contract event.
//
// Solidity: event CertificateIssued(string id, string studentName, string courseName, string issueDate, address issuer)
func (_CertRegistry *CertRegistryFilterer) ParseCertificateIssued(log types.Log) (*CertRegistryCertificateIssued, error) {
	event := new(CertRegistryCertificateIssued)
	if err := _CertRegistry.unpack(event, EventCertificateIssued, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// ParseCertificateRevoked is a log parse operation binding the contract event.
//
// Solidity: event CertificateRevoked(string id)
func (_CertRegistry *CertRegistryFilterer) ParseCertificateRevoked(log types.Log) (*CertRegistryCertificateRevoked, error) {
	event := new(CertRegistryCertificateRevoked)
	if err := _CertRegistry.unpack(event, EventCertificateRevoked, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// ParseIssuerAuthorized is a log parse operation binding the contract event.
//
// Solidity: event IssuerAuthorized(address issuer)
func (_CertRegistry *CertRegistryFilterer) ParseIssuerAuthorized(log types.Log) (*CertRegistryIssuerAuthorized, error) {
	event := new(CertRegistryIssuerAuthorized)
	if err := _CertRegistry.unpack(event, EventIssuerAuthorized, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// ParseIssuerRevoked is a log parse operation binding the contract event.
//
// Solidity: event IssuerRevoked(address issuer)
func (_CertRegistry *CertRegistryFilterer) ParseIssuerRevoked(log types.Log) (*CertRegistryIssuerRevoked, error) {
	event := new(CertRegistryIssuerRevoked)
	if err := _CertRegistry.unpack(event, EventIssuerRevoked, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
