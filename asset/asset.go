// Package asset is the orchestration facade: it sequences the document
// model, verifier, composer and lineage tracer against the ledger and the
// object store to publish assets, authorize compute-to-data requests and
// answer marketplace queries.
package asset

import (
	"context"
	"fmt"

	"xdao.co/datatoken/compose"
	"xdao.co/datatoken/ddo"
	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/jobs"
	"xdao.co/datatoken/lineage"
	"xdao.co/datatoken/optemplate"
	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/store"
	"xdao.co/datatoken/verify"
)

// Orchestrator wires the external collaborators. Directory and Jobs are
// optional; operations needing them fail cleanly when unset.
type Orchestrator struct {
	Registry  registry.Registry
	Templates registry.TemplateIndex
	Directory registry.Directory
	Store     store.ObjectStore
	Jobs      *jobs.Book
}

func (o *Orchestrator) verifier() *verify.Verifier {
	return &verify.Verifier{Registry: o.Registry, Templates: o.Templates, Store: o.Store}
}

func (o *Orchestrator) composer() *compose.Composer {
	return &compose.Composer{Registry: o.Registry, Source: o.verifier()}
}

// PublishOptions controls the publish-time checks.
type PublishOptions struct {
	// SkipServiceCheck publishes without verifying services against the
	// registry, for documents whose children or templates are published
	// in the same batch.
	SkipServiceCheck bool
}

// Publish stores the document and mints its token. The document is written
// to the object store before the mint, so any consumer who can resolve the
// token always finds a corresponding document. Returns the locator.
func (o *Orchestrator) Publish(ctx context.Context, doc *ddo.DDO, issuer registry.Signer, opts PublishOptions) (string, error) {
	if doc == nil || !doc.DT.Defined() || doc.Proof == nil || doc.Proof.Checksum == "" {
		return "", NewError(ErrInvalidDocument, "document must be built before publishing")
	}
	if err := ddo.Validate(doc); err != nil {
		return "", NewError(ErrInvalidDocument, err.Error())
	}
	if !opts.SkipServiceCheck {
		ok, err := o.verifier().Services(ctx, doc)
		if err != nil {
			return "", fmt.Errorf("asset: publish %s: %w", doc.DT, err)
		}
		if !ok {
			return "", NewError(ErrServiceCheck, "declared services failed verification")
		}
	}

	b, err := ddo.Encode(doc)
	if err != nil {
		return "", NewError(ErrInternal, err.Error())
	}
	locator, err := o.Store.Put(b)
	if err != nil {
		return "", fmt.Errorf("asset: store document %s: %w", doc.DT, err)
	}

	err = o.Registry.MintToken(ctx, doc.DT, doc.Creator, !doc.IsComposite(), doc.Proof.Checksum, locator.String(), issuer)
	if err != nil {
		return "", fmt.Errorf("asset: mint %s: %w", doc.DT, err)
	}
	return locator.String(), nil
}

// PublishTemplate stores an operation template and registers it, so leaf
// services can reference it afterwards.
func (o *Orchestrator) PublishTemplate(ctx context.Context, tpl *optemplate.Template, issuer registry.Signer) (string, error) {
	if tpl == nil || !tpl.TID.Defined() || tpl.Checksum == "" {
		return "", NewError(ErrInvalidDocument, "template must be built before publishing")
	}
	b, err := optemplate.Encode(tpl)
	if err != nil {
		return "", NewError(ErrInternal, err.Error())
	}
	locator, err := o.Store.Put(b)
	if err != nil {
		return "", fmt.Errorf("asset: store template %s: %w", tpl.TID, err)
	}
	if err := o.Templates.RegisterTemplate(ctx, tpl.TID, tpl.Checksum, locator.String(), issuer); err != nil {
		return "", fmt.Errorf("asset: register template %s: %w", tpl.TID, err)
	}
	return locator.String(), nil
}

// Grant records the authorization edge childDT -> compositeDT.
func (o *Orchestrator) Grant(ctx context.Context, childDT, compositeDT dtid.DT, owner registry.Signer) error {
	return o.composer().Grant(ctx, childDT, compositeDT, owner)
}

// Activate transitions a composite token to active once every declared
// child has granted it.
func (o *Orchestrator) Activate(ctx context.Context, compositeDT dtid.DT, childDTs []dtid.DT, aggregator registry.Signer) error {
	return o.composer().Activate(ctx, compositeDT, childDTs, aggregator)
}

// AuthorizeComputeRequest decides whether compute may run on dt under the
// composite cdt.
//
// Checks short-circuit in a fixed order: an existing grant edge authorizes
// immediately, before anything else is looked at, including the signature.
// Otherwise ownerAddress must own dt, the composite's document must resolve
// and pass integrity, the signature must verify over the issuer-bound
// message, and the document's workflow must consume dt specifically.
//
// A missing token, document or grant denies with false; only registry or
// store unavailability returns an error.
func (o *Orchestrator) AuthorizeComputeRequest(ctx context.Context, cdt, dt dtid.DT, ownerAddress, signature string) (bool, error) {
	v := o.verifier()

	granted, err := v.CheckPermission(ctx, dt, cdt)
	if err != nil {
		return false, err
	}
	if granted {
		// Previously authorized. Note the supplied signature is never
		// inspected on this path.
		return true, nil
	}

	owns, err := v.CheckOwner(ctx, dt, ownerAddress)
	if err != nil {
		return false, err
	}
	if !owns {
		return false, nil
	}

	doc, record, ok, err := v.Document(ctx, cdt)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	message := verify.ComputeAuthMessage(record.Issuer, cdt)
	if !v.Signature(record.Issuer, signature, message) {
		return false, nil
	}

	return v.ServicesFor(ctx, doc, dt)
}

// AuthorizeJobRequest decides whether a specific job execution is covered:
// the job must exist, the signature must verify over the job-bound message,
// and dt must have granted the job's composite token.
func (o *Orchestrator) AuthorizeJobRequest(ctx context.Context, jobID string, dt dtid.DT, address, signature string) (bool, error) {
	if o.Jobs == nil {
		return false, NewError(ErrUnavailable, "job book not configured")
	}
	job, err := o.Jobs.Job(ctx, jobID)
	if err == jobs.ErrJobNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	v := o.verifier()
	if !v.Signature(address, signature, verify.JobAuthMessage(address, jobID)) {
		return false, nil
	}
	return v.CheckPermission(ctx, dt, job.CDT)
}

// Marketplace enumerates the published tokens visible to consumers.
// Algorithm assets are excluded; entries whose document cannot be resolved
// or fails integrity are skipped rather than reported, listing is
// best-effort visibility.
func (o *Orchestrator) Marketplace(ctx context.Context) ([]MarketplaceEntry, error) {
	entries, err := o.Registry.AvailableTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("asset: marketplace: %w", err)
	}

	v := o.verifier()
	out := make([]MarketplaceEntry, 0, len(entries))
	for _, entry := range entries {
		doc, _, ok, err := v.Document(ctx, entry.DT)
		if err != nil || !ok {
			continue
		}
		if doc.Metadata.Type == ddo.Algorithm {
			continue
		}
		out = append(out, MarketplaceEntry{
			DT:          entry.DT.String(),
			Issuer:      entry.Record.Issuer,
			IssuerName:  o.issuerName(ctx, entry.Record.Issuer),
			Name:        doc.Metadata.Name,
			Figure:      doc.Metadata.Figure,
			IsComposite: doc.IsComposite(),
		})
	}
	return out, nil
}

// Details resolves one token fully: ledger record, document view and, for
// composites, the rendered lineage. ok is false when the token or its
// document is absent or tampered.
func (o *Orchestrator) Details(ctx context.Context, dt dtid.DT) (*Details, bool, error) {
	v := o.verifier()
	doc, record, ok, err := v.Document(ctx, dt)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	details := &Details{
		DT:          dt.String(),
		Owner:       record.Owner,
		Issuer:      record.Issuer,
		IssuerName:  o.issuerName(ctx, record.Issuer),
		State:       string(record.State),
		Name:        doc.Metadata.Name,
		Type:        string(doc.Metadata.Type),
		Description: doc.Metadata.Description,
		Figure:      doc.Metadata.Figure,
		IsComposite: doc.IsComposite(),
	}
	for _, svc := range doc.Services {
		details.Services = append(details.Services, ServiceView{
			Index:    svc.Index,
			Endpoint: svc.Endpoint,
			Price:    svc.Attributes.Price,
			OpName:   svc.Attributes.OpName,
		})
	}

	if doc.IsComposite() {
		tracer := &lineage.Tracer{Source: v}
		tree, err := tracer.Trace(ctx, dt)
		if err != nil {
			return nil, false, err
		}
		details.Lineage = lineage.Render(tree)
	}
	return details, true, nil
}

// Trace reconstructs the lineage tree of a token for audit.
func (o *Orchestrator) Trace(ctx context.Context, dt dtid.DT) (*lineage.Tree, error) {
	tracer := &lineage.Tracer{Source: o.verifier()}
	return tracer.Trace(ctx, dt)
}

func (o *Orchestrator) issuerName(ctx context.Context, issuer string) string {
	if o.Directory == nil {
		return ""
	}
	name, err := o.Directory.EnterpriseName(ctx, issuer)
	if err != nil {
		return ""
	}
	return name
}
