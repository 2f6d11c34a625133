package asset

import (
	"xdao.co/datatoken/lineage"
)

// MarketplaceEntry is the projection of one listed token.
type MarketplaceEntry struct {
	DT          string `json:"dt"`
	Issuer      string `json:"issuer"`
	IssuerName  string `json:"issuerName,omitempty"`
	Name        string `json:"name"`
	Figure      string `json:"figure,omitempty"`
	IsComposite bool   `json:"isComposite"`
}

// ServiceView is the projection of one service for detail queries.
type ServiceView struct {
	Index    string `json:"index"`
	Endpoint string `json:"endpoint,omitempty"`
	Price    string `json:"price"`
	OpName   string `json:"opName,omitempty"`
}

// Details is the full view of one token: ledger record, document metadata
// and, for composites, the rendered lineage.
type Details struct {
	DT          string                `json:"dt"`
	Owner       string                `json:"owner"`
	Issuer      string                `json:"issuer"`
	IssuerName  string                `json:"issuerName,omitempty"`
	State       string                `json:"state"`
	Name        string                `json:"name"`
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Figure      string                `json:"figure,omitempty"`
	IsComposite bool                  `json:"isComposite"`
	Services    []ServiceView         `json:"services,omitempty"`
	Lineage     *lineage.RenderedNode `json:"lineage,omitempty"`
}
