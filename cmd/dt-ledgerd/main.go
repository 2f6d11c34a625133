package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/datatoken/registry/grpcregistry"
	"xdao.co/datatoken/registry/memregistry"
	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/backends"
	"xdao.co/datatoken/store/grpcstore"
	"xdao.co/datatoken/store/storeconfig"

	_ "xdao.co/datatoken/store/ipfs"
	_ "xdao.co/datatoken/store/localfs"
	_ "xdao.co/datatoken/store/memstore"
)

func main() {
	fs := flag.NewFlagSet("dt-ledgerd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7788", "listen address")
	backend := fs.String("backend", "localfs", "document store backend name")
	storeConfig := fs.String("store-config", "", "JSON store config file (overrides --backend)")
	operator := fs.String("operator", "", "operator address allowed to register enterprises (empty allows any)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	backends.RegisterFlags(fs, backends.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range backends.List(backends.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	objects, closeFn, err := openStore(*storeConfig, *backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	var opts []memregistry.Option
	if *operator != "" {
		opts = append(opts, memregistry.WithOperator(*operator))
	}
	ledger := memregistry.New(opts...)

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcregistry.RegisterLedgerServer(s, &grpcregistry.Server{Ledger: ledger})
	grpcstore.RegisterObjectStoreServer(s, &grpcstore.Server{Store: objects})

	fmt.Fprintf(os.Stderr, "dt-ledgerd listening on %s (backend=%s)\n", lis.Addr().String(), *backend)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(configPath, backend string) (store.ObjectStore, func() error, error) {
	if configPath != "" {
		cfg, err := storeconfig.LoadFile(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(backends.UsageDaemon, "")
	}
	return backends.Open(backend, backends.UsageDaemon)
}
