package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/certificate-registry/bindings/certregistry"
	"github.com/ruteri/certificate-registry/interfaces"
)

// DecodeEvent converts a registry contract log into an interfaces.Event.
func DecodeEvent(filterer *certregistry.CertRegistryFilterer, lg types.Log) (interfaces.Event, error) {
	name, err := filterer.EventName(lg)
	if err != nil {
		return interfaces.Event{}, err
	}

	ev := interfaces.Event{
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}

	switch name {
	case certregistry.EventCertificateIssued:
		issued, err := filterer.ParseCertificateIssued(lg)
		if err != nil {
			return interfaces.Event{}, err
		}
		ev.Kind = interfaces.CertificateIssued
		ev.CertificateID = issued.Id
		ev.Issuer = issued.Issuer
		ev.Certificate = &interfaces.Certificate{
			ID:          issued.Id,
			StudentName: issued.StudentName,
			CourseName:  issued.CourseName,
			IssueDate:   issued.IssueDate,
			Valid:       true,
			Issuer:      issued.Issuer,
		}
	case certregistry.EventCertificateRevoked:
		revoked, err := filterer.ParseCertificateRevoked(lg)
		if err != nil {
			return interfaces.Event{}, err
		}
		ev.Kind = interfaces.CertificateRevoked
		ev.CertificateID = revoked.Id
	case certregistry.EventIssuerAuthorized:
		authorized, err := filterer.ParseIssuerAuthorized(lg)
		if err != nil {
			return interfaces.Event{}, err
		}
		ev.Kind = interfaces.IssuerAuthorized
		ev.Issuer = authorized.Issuer
	case certregistry.EventIssuerRevoked:
		revoked, err := filterer.ParseIssuerRevoked(lg)
		if err != nil {
			return interfaces.Event{}, err
		}
		ev.Kind = interfaces.IssuerRevoked
		ev.Issuer = revoked.Issuer
	default:
		return interfaces.Event{}, fmt.Errorf("%w: %s", certregistry.ErrUnknownEvent, name)
	}
	return ev, nil
}
