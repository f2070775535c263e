package ledgersim

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/certificate-registry/bindings/certregistry"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/registry"
)

type execResult struct {
	output []byte
	gas    uint64
	log    *types.Log
}

// execute decodes input and applies it to m as sent by from.
func (b *Backend) execute(m *registry.Machine, from common.Address, input []byte) (*execResult, error) {
	if len(input) < 4 {
		return nil, NewRevertError("")
	}
	method, err := b.abi.MethodById(input[:4])
	if err != nil {
		return nil, NewRevertError("")
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("decoding %s arguments: %w", method.Name, err)
	}

	res := &execResult{gas: methodGas[method.Name]}

	var (
		ev     interfaces.Event
		outErr error
	)
	switch method.Name {
	case "issueCertificate":
		ev, outErr = m.Issue(from, interfaces.CertificateRequest{
			ID:          args[0].(string),
			StudentName: args[1].(string),
			CourseName:  args[2].(string),
			IssueDate:   args[3].(string),
		})
	case "revokeCertificate":
		ev, outErr = m.Revoke(from, args[0].(string))
	case "authorizeIssuer":
		ev, outErr = m.AuthorizeIssuer(from, args[0].(common.Address))
	case "revokeIssuer":
		ev, outErr = m.RevokeIssuer(from, args[0].(common.Address))
	case "verifyCertificate":
		valid, err := m.Verify(args[0].(string))
		if err != nil {
			return nil, revertFrom(err)
		}
		return packOutput(res, method, valid)
	case "getCertificateDetails":
		cert, err := m.Details(args[0].(string))
		if err != nil {
			return nil, revertFrom(err)
		}
		return packOutput(res, method, cert.ID, cert.StudentName, cert.CourseName, cert.IssueDate, cert.Valid, cert.Issuer)
	case "isAuthorizedIssuer", "authorizedIssuers":
		return packOutput(res, method, m.IsAuthorizedIssuer(args[0].(common.Address)))
	case "owner":
		return packOutput(res, method, m.Owner())
	default:
		return nil, NewRevertError("")
	}
	if outErr != nil {
		return nil, revertFrom(outErr)
	}

	lg, err := b.eventLog(ev)
	if err != nil {
		return nil, err
	}
	res.log = lg
	return res, nil
}

func packOutput(res *execResult, method *abi.Method, values ...interface{}) (*execResult, error) {
	out, err := method.Outputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s output: %w", method.Name, err)
	}
	res.output = out
	return res, nil
}

// eventLog encodes ev the way the contract emits it. Address, block and
// transaction fields are filled in on inclusion.
func (b *Backend) eventLog(ev interfaces.Event) (*types.Log, error) {
	var (
		name string
		args []interface{}
	)
	switch ev.Kind {
	case interfaces.CertificateIssued:
		name = certregistry.EventCertificateIssued
		args = []interface{}{ev.Certificate.ID, ev.Certificate.StudentName, ev.Certificate.CourseName, ev.Certificate.IssueDate, ev.Issuer}
	case interfaces.CertificateRevoked:
		name = certregistry.EventCertificateRevoked
		args = []interface{}{ev.CertificateID}
	case interfaces.IssuerAuthorized:
		name = certregistry.EventIssuerAuthorized
		args = []interface{}{ev.Issuer}
	case interfaces.IssuerRevoked:
		name = certregistry.EventIssuerRevoked
		args = []interface{}{ev.Issuer}
	default:
		return nil, fmt.Errorf("unknown event kind %d", ev.Kind)
	}

	event := b.abi.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}
	return &types.Log{Topics: []common.Hash{event.ID}, Data: data}, nil
}

func revertFrom(err error) error {
	var rerr *interfaces.RegistryError
	if errors.As(err, &rerr) {
		return NewRevertError(rerr.Details)
	}
	return err
}
