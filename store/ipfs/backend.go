package ipfs

import (
	"flag"

	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/backends"
)

var (
	flagBin string
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "ipfs",
		Description: "IPFS document store (shells out to the Kubo CLI)",
		Usage:       backends.UsageCLI | backends.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "", "Path to the ipfs binary; empty uses $PATH (for --backend=ipfs)")
		},
		Open: func() (store.ObjectStore, func() error, error) {
			return New(Options{Bin: flagBin}), nil, nil
		},
	})
}
