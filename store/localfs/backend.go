package localfs

import (
	"flag"
	"fmt"

	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/backends"
)

var (
	flagLocalDir string
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "localfs",
		Description: "Local filesystem document store (directory)",
		Usage:       backends.UsageCLI | backends.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "Document store directory (for --backend=localfs)")
		},
		Open: func() (store.ObjectStore, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			s, err := New(flagLocalDir)
			return s, nil, err
		},
	})
}
