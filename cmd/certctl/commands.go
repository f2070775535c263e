package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/certificate-registry/api"
	"github.com/ruteri/certificate-registry/indexer"
	"github.com/ruteri/certificate-registry/interfaces"
)

func (e *env) cmdIssue() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.Issue(e.ctx, interfaces.CertificateRequest{
		ID:          e.cCtx.String(flagID.Name),
		StudentName: e.cCtx.String(flagStudent.Name),
		CourseName:  e.cCtx.String(flagCourse.Name),
		IssueDate:   e.cCtx.String(flagDate.Name),
	}))
}

func (e *env) cmdRevoke() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.Revoke(e.ctx, e.cCtx.String(flagID.Name)))
}

func (e *env) cmdVerify() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.Verify(e.ctx, e.cCtx.String(flagID.Name)))
}

func (e *env) cmdShow() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.Details(e.ctx, e.cCtx.String(flagID.Name)))
}

func (e *env) cmdCheck() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.Check(e.ctx, e.cCtx.String(flagID.Name)))
}

func (e *env) cmdAuthorizeIssuer() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.AuthorizeIssuer(e.ctx, e.cCtx.String(flagAddress.Name)))
}

func (e *env) cmdRevokeIssuer() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.RevokeIssuer(e.ctx, e.cCtx.String(flagAddress.Name)))
}

func (e *env) cmdIsIssuer() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.IsAuthorizedIssuer(e.ctx, e.cCtx.String(flagAddress.Name)))
}

func (e *env) cmdOwner() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	return e.respond(svc.IsOwner(e.ctx, e.cCtx.String(flagOptionalAddress.Name)))
}

type whoami struct {
	Address      string `json:"address"`
	IsOwner      bool   `json:"isOwner"`
	IsAuthorized bool   `json:"isAuthorized"`
}

func (e *env) cmdWhoami() error {
	client, err := e.registry()
	if err != nil {
		return err
	}
	caller := client.Caller()
	if caller == (common.Address{}) {
		return fmt.Errorf("no signing key configured")
	}

	svc := api.NewService(client, nil, e.log)
	owner := svc.IsOwner(e.ctx, "")
	if !owner.Success {
		return e.respond(owner)
	}
	authorized := svc.IsAuthorizedIssuer(e.ctx, caller.Hex())
	if !authorized.Success {
		return e.respond(authorized)
	}

	return e.print(whoami{
		Address:      caller.Hex(),
		IsOwner:      *owner.IsOwner,
		IsAuthorized: *authorized.IsAuthorized,
	})
}

func (e *env) cmdHealth() error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	status := svc.Health(e.ctx)
	if err := e.print(status); err != nil {
		return err
	}
	if status.Status != "OK" {
		return fmt.Errorf("registry unhealthy: %s", status.Problems)
	}
	return nil
}

func (e *env) cmdIndex() error {
	store, err := e.indexStore()
	if err != nil {
		return err
	}
	client, err := e.registry()
	if err != nil {
		return err
	}
	readPolicy, err := e.cfg.ReadPolicy()
	if err != nil {
		return err
	}

	ix, err := indexer.New(e.eth, client.Address(), store, e.log,
		indexer.WithStartBlock(e.cfg.Index.StartBlock),
		indexer.WithBatchSize(e.cfg.Index.BatchSize),
		indexer.WithReadPolicy(readPolicy))
	if err != nil {
		return err
	}

	n, err := ix.Sync(e.ctx)
	if err != nil {
		return err
	}
	last, _, err := store.LastBlock(e.ctx)
	if err != nil {
		return err
	}
	e.log.Info("index synchronized", "newEvents", n, "lastBlock", last)

	if e.cCtx.Bool(flagWatch.Name) {
		return ix.Watch(e.ctx)
	}
	return e.print(map[string]uint64{"newEvents": uint64(n), "lastBlock": last})
}

func (e *env) cmdListIssued() error {
	store, err := e.indexStore()
	if err != nil {
		return err
	}
	addr := e.cCtx.String(flagAddress.Name)
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid address %q", addr)
	}

	certs, err := store.ListByIssuer(e.ctx, common.HexToAddress(addr))
	if err != nil {
		return err
	}
	views := make([]*api.CertificateView, 0, len(certs))
	for i := range certs {
		views = append(views, api.NewCertificateView(&certs[i]))
	}
	return e.print(views)
}

func (e *env) cmdHistory() error {
	store, err := e.indexStore()
	if err != nil {
		return err
	}
	events, err := store.History(e.ctx, e.cCtx.String(flagID.Name))
	if err != nil {
		return err
	}
	return e.print(events)
}

func (e *env) cmdArchiveGet() error {
	archive, err := e.archiveBackend()
	if err != nil {
		return err
	}
	if archive == nil {
		return fmt.Errorf("no archive configured, set --archive or archive.locations")
	}

	id, err := interfaces.NewContentIDFromHex(e.cCtx.String(flagContentID.Name))
	if err != nil {
		return err
	}
	var contentType interfaces.ContentType
	switch e.cCtx.String(flagContentType.Name) {
	case interfaces.ReceiptType.String():
		contentType = interfaces.ReceiptType
	case interfaces.CertificateType.String():
		contentType = interfaces.CertificateType
	default:
		return fmt.Errorf("unknown archive type %q", e.cCtx.String(flagContentType.Name))
	}

	data, err := archive.Fetch(e.ctx, id, contentType)
	if err != nil {
		return err
	}
	_, err = e.out.Write(append(data, '\n'))
	return err
}
