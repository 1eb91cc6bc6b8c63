package transport

import (
	_ "embed"
)

// DefaultCluster is a three player cluster snapshot that storage.Store
// Restore accepts.
//
//go:embed fixtures/cluster.json
var DefaultCluster []byte
