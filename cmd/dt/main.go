package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/asset"
	"xdao.co/datatoken/ddo"
	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/lineage"
	"xdao.co/datatoken/optemplate"
	"xdao.co/datatoken/registry/grpcregistry"
	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/backends"
	"xdao.co/datatoken/store/bundle"
	"xdao.co/datatoken/store/storeconfig"
	"xdao.co/datatoken/verify"
	"xdao.co/datatoken/wallet"

	_ "xdao.co/datatoken/store/grpcstore"
	_ "xdao.co/datatoken/store/ipfs"
	_ "xdao.co/datatoken/store/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "locator":
		return cmdLocator(args[1:], out, errOut)
	case "template":
		return cmdTemplate(args[1:], out, errOut)
	case "publish":
		return cmdPublish(args[1:], out, errOut)
	case "grant":
		return cmdGrant(args[1:], out, errOut)
	case "activate":
		return cmdActivate(args[1:], out, errOut)
	case "authorize":
		return cmdAuthorize(args[1:], out, errOut)
	case "enterprise":
		return cmdEnterprise(args[1:], out, errOut)
	case "marketplace":
		return cmdMarketplace(args[1:], out, errOut)
	case "details":
		return cmdDetails(args[1:], out, errOut)
	case "trace":
		return cmdTrace(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "dt: data token CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dt key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  dt key list")
	fmt.Fprintln(w, "  dt key address --name <name>")
	fmt.Fprintln(w, "  dt locator <file>")
	fmt.Fprintln(w, "  dt template --name <n> --operation <op> [--param <p> ...] --signer <key>")
	fmt.Fprintln(w, "  dt publish --file <draft.json> --signer <key> [--skip-service-check]")
	fmt.Fprintln(w, "  dt grant --child <dt> --composite <dt> --signer <key>")
	fmt.Fprintln(w, "  dt activate --composite <dt> --child <dt> [--child <dt> ...] --signer <key>")
	fmt.Fprintln(w, "  dt authorize --cdt <dt> --dt <dt> (--signer <key> | --owner <addr> --signature <b64>)")
	fmt.Fprintln(w, "  dt enterprise --name <n> [--description <d>] --signer <key>")
	fmt.Fprintln(w, "  dt marketplace [--json]")
	fmt.Fprintln(w, "  dt details --dt <dt> [--json]")
	fmt.Fprintln(w, "  dt trace --dt <dt> [--report [--signer <key>] [--traced-at <RFC3339>]]")
	fmt.Fprintln(w, "  dt export --dt <dt> [--dt ...] --out <bundle.tar>")
	fmt.Fprintln(w, "  dt import --in <bundle.tar> [--ignore-unknown]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - ledger access uses --ledger-target (a dt-ledgerd instance)")
	fmt.Fprintln(w, "  - documents use --backend plus backend flags, or --store-config <file>")
	fmt.Fprintln(w, "  - keys are stored under ~/.datatoken/keys (0600 seed files)")
	fmt.Fprintln(w, "  - publish drafts are JSON: {\"metadata\":..., \"services\":..., \"childDts\":...}")
}

type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// connFlags holds the shared ledger and document store connection flags.
// Registering them also registers every linked store backend's flags so a
// single Parse pass accepts the full set.
type connFlags struct {
	ledgerTarget string
	dialTimeout  time.Duration
	rpcTimeout   time.Duration
	backend      string
	storeConfig  string
}

func registerConnFlags(fs *flag.FlagSet) *connFlags {
	cf := &connFlags{}
	fs.StringVar(&cf.ledgerTarget, "ledger-target", "127.0.0.1:7788", "Ledger gRPC target host:port")
	fs.DurationVar(&cf.dialTimeout, "ledger-dial-timeout", 5*time.Second, "Ledger dial timeout")
	fs.DurationVar(&cf.rpcTimeout, "ledger-timeout", 0, "Per-RPC ledger timeout (0 = none)")
	fs.StringVar(&cf.backend, "backend", "localfs", "Document store backend name")
	fs.StringVar(&cf.storeConfig, "store-config", "", "JSON store config file (overrides --backend)")
	backends.RegisterFlags(fs, backends.UsageCLI)
	return cf
}

func (cf *connFlags) openStore() (store.ObjectStore, func() error, error) {
	if cf.storeConfig != "" {
		cfg, err := storeconfig.LoadFile(cf.storeConfig)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(backends.UsageCLI, "")
	}
	return backends.Open(cf.backend, backends.UsageCLI)
}

func (cf *connFlags) open() (*asset.Orchestrator, func(), error) {
	ledger, err := grpcregistry.Dial(cf.ledgerTarget, grpcregistry.DialOptions{Timeout: cf.dialTimeout})
	if err != nil {
		return nil, nil, fmt.Errorf("dial ledger: %w", err)
	}
	ledger.Timeout = cf.rpcTimeout

	objects, closeStore, err := cf.openStore()
	if err != nil {
		_ = ledger.Close()
		return nil, nil, err
	}

	orch := &asset.Orchestrator{
		Registry:  ledger,
		Templates: ledger,
		Directory: ledger,
		Store:     objects,
	}
	cleanup := func() {
		if closeStore != nil {
			_ = closeStore()
		}
		_ = ledger.Close()
	}
	return orch, cleanup, nil
}

func loadSigner(name string) (*wallet.Wallet, error) {
	ks, err := wallet.OpenKeyStore("")
	if err != nil {
		return nil, err
	}
	return ks.Load(name)
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "address":
		return cmdKeyAddress(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "dt key: minimal local wallet management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dt key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  dt key list")
	fmt.Fprintln(w, "  dt key address --name <name>")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (file under ~/.datatoken/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing key file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := wallet.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		seed, err = wallet.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	address, path, err := ks.Save(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created wallet: %s\n", address)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := wallet.OpenKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	names, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return 0
}

func cmdKeyAddress(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key address", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	fs.StringVar(&name, "name", "", "Key name")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	w, err := loadSigner(name)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, w.Address())
	return 0
}

func cmdLocator(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("locator", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dt locator <file>")
		return 2
	}
	path := fs.Arg(0)
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}
	id, err := store.Locator(b)
	if err != nil {
		fmt.Fprintf(errOut, "locator: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id.String())
	return 0
}

func cmdTemplate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var operation string
	var params stringList
	var signerName string
	cf := registerConnFlags(fs)

	fs.StringVar(&name, "name", "", "Template name")
	fs.StringVar(&operation, "operation", "", "Operation identifier")
	fs.Var(&params, "param", "Accepted constraint parameter (repeatable)")
	fs.StringVar(&signerName, "signer", "", "Stored key to sign the registration")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" || operation == "" {
		fmt.Fprintln(errOut, "missing --name or --operation")
		return 2
	}
	if signerName == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}

	signer, err := loadSigner(signerName)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	tpl, err := optemplate.Build(name, operation, params)
	if err != nil {
		fmt.Fprintf(errOut, "build template: %v\n", err)
		return 2
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	locator, err := orch.PublishTemplate(context.Background(), tpl, signer)
	if err != nil {
		fmt.Fprintf(errOut, "publish template: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Template-Locator: %s\n", locator)
	fmt.Fprintln(out, tpl.TID)
	return 0
}

// draftDocument is the publish input: a document before identity and proof
// are assigned. Creator comes from the signing wallet.
type draftDocument struct {
	Metadata ddo.Metadata  `json:"metadata"`
	Services []ddo.Service `json:"services"`
	ChildDTs []dtid.DT     `json:"childDts,omitempty"`
}

func cmdPublish(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var filePath string
	var signerName string
	var skipServiceCheck bool
	cf := registerConnFlags(fs)

	fs.StringVar(&filePath, "file", "", "Draft document JSON file")
	fs.StringVar(&signerName, "signer", "", "Stored key that owns and signs the token")
	fs.BoolVar(&skipServiceCheck, "skip-service-check", false, "Publish without verifying services against the ledger")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if filePath == "" {
		fmt.Fprintln(errOut, "missing --file")
		return 2
	}
	if signerName == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}

	signer, err := loadSigner(signerName)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(filePath), err)
		return 1
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var draft draftDocument
	if err := dec.Decode(&draft); err != nil {
		fmt.Fprintf(errOut, "parse draft: %v\n", err)
		return 2
	}

	doc, err := ddo.Build(draft.Metadata, draft.Services, signer.Address(), draft.ChildDTs)
	if err != nil {
		fmt.Fprintf(errOut, "build document: %v\n", err)
		return 2
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	locator, err := orch.Publish(context.Background(), doc, signer, asset.PublishOptions{SkipServiceCheck: skipServiceCheck})
	if err != nil {
		fmt.Fprintf(errOut, "publish: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Document-Locator: %s\n", locator)
	fmt.Fprintln(out, doc.DT)
	return 0
}

func cmdGrant(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var childStr string
	var compositeStr string
	var signerName string
	cf := registerConnFlags(fs)

	fs.StringVar(&childStr, "child", "", "Child token identifier")
	fs.StringVar(&compositeStr, "composite", "", "Composite token identifier")
	fs.StringVar(&signerName, "signer", "", "Stored key of the child token's owner")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if childStr == "" || compositeStr == "" {
		fmt.Fprintln(errOut, "missing --child or --composite")
		return 2
	}
	if signerName == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}
	child, err := dtid.Parse(childStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --child: %v\n", err)
		return 2
	}
	composite, err := dtid.Parse(compositeStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --composite: %v\n", err)
		return 2
	}
	signer, err := loadSigner(signerName)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	if err := orch.Grant(context.Background(), child, composite, signer); err != nil {
		fmt.Fprintf(errOut, "grant: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}

func cmdActivate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("activate", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var compositeStr string
	var childStrs stringList
	var signerName string
	cf := registerConnFlags(fs)

	fs.StringVar(&compositeStr, "composite", "", "Composite token identifier")
	fs.Var(&childStrs, "child", "Child token identifier (repeatable)")
	fs.StringVar(&signerName, "signer", "", "Stored key of the composite's owner")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if compositeStr == "" {
		fmt.Fprintln(errOut, "missing --composite")
		return 2
	}
	if len(childStrs) == 0 {
		fmt.Fprintln(errOut, "missing --child")
		return 2
	}
	if signerName == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}
	composite, err := dtid.Parse(compositeStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --composite: %v\n", err)
		return 2
	}
	children := make([]dtid.DT, 0, len(childStrs))
	for _, s := range childStrs {
		child, err := dtid.Parse(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --child %q: %v\n", s, err)
			return 2
		}
		children = append(children, child)
	}
	signer, err := loadSigner(signerName)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	if err := orch.Activate(context.Background(), composite, children, signer); err != nil {
		fmt.Fprintf(errOut, "activate: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}

func cmdAuthorize(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("authorize", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cdtStr string
	var dtStr string
	var owner string
	var signature string
	var signerName string
	cf := registerConnFlags(fs)

	fs.StringVar(&cdtStr, "cdt", "", "Consumed data token (the composite requesting compute)")
	fs.StringVar(&dtStr, "dt", "", "Target data token")
	fs.StringVar(&owner, "owner", "", "Claimed owner address (with --signature)")
	fs.StringVar(&signature, "signature", "", "Base64 signature over the compute auth message")
	fs.StringVar(&signerName, "signer", "", "Stored key to sign the request locally (instead of --owner/--signature)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cdtStr == "" || dtStr == "" {
		fmt.Fprintln(errOut, "missing --cdt or --dt")
		return 2
	}
	cdt, err := dtid.Parse(cdtStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --cdt: %v\n", err)
		return 2
	}
	dt, err := dtid.Parse(dtStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --dt: %v\n", err)
		return 2
	}

	switch {
	case signerName != "":
		if owner != "" || signature != "" {
			fmt.Fprintln(errOut, "conflicting flags: --signer cannot be combined with --owner or --signature")
			return 2
		}
		w, err := loadSigner(signerName)
		if err != nil {
			fmt.Fprintf(errOut, "load key: %v\n", err)
			return 1
		}
		owner = w.Address()
		signature, err = w.Sign(verify.ComputeAuthMessage(owner, cdt))
		if err != nil {
			fmt.Fprintf(errOut, "sign: %v\n", err)
			return 1
		}
	case owner == "" || signature == "":
		fmt.Fprintln(errOut, "missing signer: use --signer, or --owner with --signature")
		return 2
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	ok, err := orch.AuthorizeComputeRequest(context.Background(), cdt, dt, owner, signature)
	if err != nil {
		fmt.Fprintf(errOut, "authorize: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(out, "DENIED")
		return 1
	}
	fmt.Fprintln(out, "GRANTED")
	return 0
}

func cmdEnterprise(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("enterprise", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var description string
	var signerName string
	cf := registerConnFlags(fs)

	fs.StringVar(&name, "name", "", "Enterprise display name")
	fs.StringVar(&description, "description", "", "Optional description")
	fs.StringVar(&signerName, "signer", "", "Stored key of the enterprise address")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if signerName == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}
	signer, err := loadSigner(signerName)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	ledger, ok := orch.Directory.(*grpcregistry.Client)
	if !ok {
		fmt.Fprintln(errOut, "directory not available")
		return 1
	}
	if err := ledger.RegisterEnterprise(context.Background(), signer.Address(), name, description, signer); err != nil {
		fmt.Fprintf(errOut, "register enterprise: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, signer.Address())
	return 0
}

func cmdMarketplace(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("marketplace", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var asJSON bool
	cf := registerConnFlags(fs)
	fs.BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	entries, err := orch.Marketplace(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "marketplace: %v\n", err)
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	for _, e := range entries {
		kind := "leaf"
		if e.IsComposite {
			kind = "composite"
		}
		issuer := e.Issuer
		if e.IssuerName != "" {
			issuer = e.IssuerName
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", e.DT, kind, e.Name, issuer)
	}
	return 0
}

func cmdDetails(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("details", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dtStr string
	var asJSON bool
	cf := registerConnFlags(fs)

	fs.StringVar(&dtStr, "dt", "", "Token identifier")
	fs.BoolVar(&asJSON, "json", false, "Emit JSON")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dtStr == "" {
		fmt.Fprintln(errOut, "missing --dt")
		return 2
	}
	dt, err := dtid.Parse(dtStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --dt: %v\n", err)
		return 2
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	details, ok, err := orch.Details(context.Background(), dt)
	if err != nil {
		fmt.Fprintf(errOut, "details: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(errOut, "token not found or document unresolvable")
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(details); err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(out, "DT:     %s\n", details.DT)
	fmt.Fprintf(out, "Name:   %s\n", details.Name)
	fmt.Fprintf(out, "Type:   %s\n", details.Type)
	fmt.Fprintf(out, "Owner:  %s\n", details.Owner)
	if details.IssuerName != "" {
		fmt.Fprintf(out, "Issuer: %s (%s)\n", details.IssuerName, details.Issuer)
	} else {
		fmt.Fprintf(out, "Issuer: %s\n", details.Issuer)
	}
	fmt.Fprintf(out, "State:  %s\n", details.State)
	for _, s := range details.Services {
		fmt.Fprintf(out, "Service: %s price=%s", s.Index, s.Price)
		if s.OpName != "" {
			fmt.Fprintf(out, " op=%s", s.OpName)
		}
		fmt.Fprintln(out)
	}
	return 0
}

func cmdTrace(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dtStr string
	var asReport bool
	var signerName string
	var tracedAt string
	cf := registerConnFlags(fs)

	fs.StringVar(&dtStr, "dt", "", "Token identifier")
	fs.BoolVar(&asReport, "report", false, "Emit the canonical lineage report instead of a tree")
	fs.StringVar(&signerName, "signer", "", "Stored key to sign the report (with --report)")
	fs.StringVar(&tracedAt, "traced-at", "", "Optional RFC3339 timestamp for the report (omit for deterministic output)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dtStr == "" {
		fmt.Fprintln(errOut, "missing --dt")
		return 2
	}
	dt, err := dtid.Parse(dtStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --dt: %v\n", err)
		return 2
	}

	var opts lineage.ReportOptions
	if tracedAt != "" {
		t, perr := time.Parse(time.RFC3339, tracedAt)
		if perr != nil {
			fmt.Fprintf(errOut, "invalid --traced-at (expected RFC3339): %v\n", perr)
			return 2
		}
		opts.TracedAt = t
	}
	if signerName != "" {
		if !asReport {
			fmt.Fprintln(errOut, "--signer requires --report")
			return 2
		}
		signer, err := loadSigner(signerName)
		if err != nil {
			fmt.Fprintf(errOut, "load key: %v\n", err)
			return 1
		}
		opts.Signer = signer
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	tree, err := orch.Trace(context.Background(), dt)
	if err != nil {
		fmt.Fprintf(errOut, "trace: %v\n", err)
		return 1
	}

	if asReport {
		report, err := lineage.RenderReport(tree, opts)
		if err != nil {
			fmt.Fprintf(errOut, "report: %v\n", err)
			return 1
		}
		_, _ = out.Write(report)
		return 0
	}
	if err := lineage.WriteText(out, tree); err != nil {
		fmt.Fprintf(errOut, "render: %v\n", err)
		return 1
	}
	return 0
}

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dtStrs stringList
	var outPath string
	cf := registerConnFlags(fs)

	fs.Var(&dtStrs, "dt", "Token identifier to export (repeatable)")
	fs.StringVar(&outPath, "out", "", "Output bundle file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(dtStrs) == 0 {
		fmt.Fprintln(errOut, "missing --dt")
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	orch, cleanup, err := cf.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer cleanup()

	ctx := context.Background()
	locators := make([]cid.Cid, 0, len(dtStrs))
	labels := make(map[string]cid.Cid, len(dtStrs))
	for _, s := range dtStrs {
		dt, err := dtid.Parse(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --dt %q: %v\n", s, err)
			return 2
		}
		record, err := orch.Registry.TokenRecord(ctx, dt)
		if err != nil {
			fmt.Fprintf(errOut, "resolve %s: %v\n", dt, err)
			return 1
		}
		locator, err := store.ParseLocator(record.Locator)
		if err != nil {
			fmt.Fprintf(errOut, "locator for %s: %v\n", dt, err)
			return 1
		}
		locators = append(locators, locator)
		labels[dt.String()] = locator
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
		return 1
	}
	defer f.Close()

	err = bundle.Export(f, orch.Store, locators, bundle.ExportOptions{Labels: labels, IncludeIndex: true})
	if err != nil {
		_ = os.Remove(outPath)
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(errOut, "close %s: %v\n", outPath, err)
		return 1
	}
	fmt.Fprintf(out, "exported %d document(s) to %s\n", len(locators), outPath)
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var inPath string
	var ignoreUnknown bool
	cf := registerConnFlags(fs)

	fs.StringVar(&inPath, "in", "", "Input bundle file")
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unrecognized bundle entries instead of failing")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inPath == "" {
		fmt.Fprintln(errOut, "missing --in")
		return 2
	}

	objects, closeStore, err := cf.openStore()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeStore != nil {
		defer closeStore()
	}

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", inPath, err)
		return 1
	}
	defer f.Close()

	err = bundle.ImportWithOptions(f, objects, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}
