package memstore

import (
	"flag"

	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/backends"
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "mem",
		Description: "In-memory document store (contents lost on exit)",
		Usage:       backends.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (store.ObjectStore, func() error, error) {
			return New(), nil, nil
		},
	})
}
