package grpcregistry

import (
	"sort"
	"strings"

	"xdao.co/datatoken/dtid"
)

// Ledger writes travel with an explicit signature envelope: the client signs
// an operation-specific message with its wallet, the server verifies the
// signature against the claimed address before applying the write. Both
// sides must build the message byte for byte identically.

func mintMessage(dt dtid.DT, owner, checksum, locator string) []byte {
	return []byte("mint" + dt.String() + owner + checksum + locator)
}

func grantMessage(childDT, compositeDT dtid.DT) []byte {
	return []byte("grant" + childDT.String() + compositeDT.String())
}

func activateMessage(compositeDT dtid.DT, childDTs []dtid.DT) []byte {
	// Child order must not affect the signature.
	ids := make([]string, 0, len(childDTs))
	for _, child := range childDTs {
		ids = append(ids, child.String())
	}
	sort.Strings(ids)
	return []byte("activate" + compositeDT.String() + strings.Join(ids, ""))
}

func templateMessage(tid dtid.DT, checksum, locator string) []byte {
	return []byte("template" + tid.String() + checksum + locator)
}

func enterpriseMessage(address, name string) []byte {
	return []byte("enterprise" + address + name)
}
