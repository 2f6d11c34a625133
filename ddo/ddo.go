// Package ddo implements the data token document model (DDO).
//
// A DDO describes one published asset: its metadata, the services it
// exposes, the child tokens it is composed from, and a proof checksum
// computed over the document's canonical bytes. Canonical bytes are the
// document's identity; any party holding the registry-recorded checksum can
// detect tampering by recomputing it.
package ddo

import (
	"fmt"

	"xdao.co/datatoken/dtid"
)

// AssetType classifies what a token stands for.
type AssetType string

const (
	Dataset   AssetType = "Dataset"
	Algorithm AssetType = "Algorithm"
	Operation AssetType = "Operation"
)

// Metadata carries the descriptive attributes of an asset.
// Name and Type are mandatory; everything else is informational.
type Metadata struct {
	Name        string            `json:"name"`
	Type        AssetType         `json:"type"`
	Description string            `json:"description,omitempty"`
	Figure      string            `json:"figure,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// WorkflowEntry binds one child token into a composite service: which of
// the child's services is consumed and under which constraint.
type WorkflowEntry struct {
	Service    string            `json:"service"`
	Constraint map[string]string `json:"constraint,omitempty"`
}

// Descriptor is either a leaf descriptor (Template + Constraint, referencing
// a published operation template) or a composite descriptor (Workflow,
// mapping child token -> consumed service). Exactly one of the two forms
// is valid for a given service.
type Descriptor struct {
	Template   dtid.DT                   `json:"template"`
	Constraint map[string]string         `json:"constraint,omitempty"`
	Workflow   map[dtid.DT]WorkflowEntry `json:"workflow,omitempty"`
}

// Attributes holds the commercial terms of a service. Price is mandatory.
type Attributes struct {
	Price  string            `json:"price"`
	OpName string            `json:"opName,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// Service is one capability an asset exposes.
type Service struct {
	Index      string     `json:"index"`
	Endpoint   string     `json:"endpoint"`
	Descriptor Descriptor `json:"descriptor"`
	Attributes Attributes `json:"attributes"`
}

// Proof binds the document to its canonical checksum. Immutable once created.
type Proof struct {
	Type     string `json:"type"`
	Created  string `json:"created,omitempty"`
	Checksum string `json:"checksum"`
}

// DDO is the asset document.
//
// Invariants:
//   - DT is assigned exactly once, after services are finalized and before
//     the proof is created.
//   - IsComposite() == (len(ChildDTs) > 0).
//   - The proof checksum covers the fully populated document, DT and
//     ChildDTs included, with only the proof itself cleared.
type DDO struct {
	DT       dtid.DT   `json:"dt"`
	Creator  string    `json:"creator"`
	Metadata Metadata  `json:"metadata"`
	Services []Service `json:"services"`
	ChildDTs []dtid.DT `json:"childDts,omitempty"`
	Proof    *Proof    `json:"proof,omitempty"`
}

// IsComposite reports whether the document declares child tokens.
func (d *DDO) IsComposite() bool { return len(d.ChildDTs) > 0 }

// Service returns the service with the given index, if present.
func (d *DDO) Service(index string) (*Service, bool) {
	for i := range d.Services {
		if d.Services[i].Index == index {
			return &d.Services[i], true
		}
	}
	return nil, false
}

// Build assembles a fresh DDO: validates the declared services, assigns a
// newly generated token identifier, and attaches the proof checksum over the
// finalized structure.
func Build(metadata Metadata, services []Service, owner string, childDTs []dtid.DT) (*DDO, error) {
	d := &DDO{
		Creator:  owner,
		Metadata: metadata,
		Services: append([]Service(nil), services...),
		ChildDTs: append([]dtid.DT(nil), childDTs...),
	}
	if err := Validate(d); err != nil {
		return nil, err
	}

	dt, err := dtid.New()
	if err != nil {
		return nil, wrapError(KindInternal, "DT-INT-001", "token identifier generation failed", err)
	}
	d.DT = dt

	if err := CreateProof(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate enforces the document invariants that do not require external
// lookups. Registry-dependent checks (template existence, child service
// resolution) live in the verify package.
func Validate(d *DDO) error {
	if d.Creator == "" {
		return newError(KindValidation, "DT-VAL-001", "missing creator address")
	}
	if d.Metadata.Name == "" {
		return newError(KindValidation, "DT-VAL-101", "missing metadata name")
	}
	if d.Metadata.Type == "" {
		return newError(KindValidation, "DT-VAL-102", "missing metadata type")
	}
	if len(d.Services) == 0 {
		return newError(KindValidation, "DT-VAL-103", "document declares no services")
	}

	declared := make(map[dtid.DT]bool, len(d.ChildDTs))
	for _, c := range d.ChildDTs {
		if !c.Defined() {
			return newError(KindValidation, "DT-VAL-142", "undefined child token identifier")
		}
		if declared[c] {
			return newError(KindValidation, "DT-VAL-141", fmt.Sprintf("duplicate child token %s", c))
		}
		declared[c] = true
	}

	seen := make(map[string]bool, len(d.Services))
	for i := range d.Services {
		s := &d.Services[i]
		if s.Index == "" {
			return newError(KindValidation, "DT-VAL-111", "service index must not be empty")
		}
		if seen[s.Index] {
			return newError(KindValidation, "DT-VAL-112", fmt.Sprintf("duplicate service index %q", s.Index))
		}
		seen[s.Index] = true
		if s.Attributes.Price == "" {
			return newError(KindValidation, "DT-VAL-113", fmt.Sprintf("service %q missing price", s.Index))
		}
		if err := validateDescriptor(s, declared, d.IsComposite()); err != nil {
			return err
		}
	}
	return nil
}

func validateDescriptor(s *Service, declared map[dtid.DT]bool, composite bool) error {
	if composite {
		if s.Descriptor.Template.Defined() {
			return newError(KindValidation, "DT-VAL-122",
				fmt.Sprintf("composite service %q must not reference a template", s.Index))
		}
		if len(s.Descriptor.Workflow) == 0 {
			return newError(KindValidation, "DT-VAL-131",
				fmt.Sprintf("composite service %q missing workflow", s.Index))
		}
		for child, entry := range s.Descriptor.Workflow {
			if !declared[child] {
				return newError(KindValidation, "DT-VAL-132",
					fmt.Sprintf("service %q workflow references undeclared child %s", s.Index, child))
			}
			if entry.Service == "" {
				return newError(KindValidation, "DT-VAL-133",
					fmt.Sprintf("service %q workflow entry for %s missing service index", s.Index, child))
			}
		}
		return nil
	}

	if len(s.Descriptor.Workflow) > 0 {
		return newError(KindValidation, "DT-VAL-123",
			fmt.Sprintf("leaf service %q must not declare a workflow", s.Index))
	}
	if !s.Descriptor.Template.Defined() {
		return newError(KindValidation, "DT-VAL-121",
			fmt.Sprintf("leaf service %q missing operation template", s.Index))
	}
	return nil
}
