package bot

import (
	"github.com/midoluz/meshgate/pkg/types"
)

// broadcastLabel is the display name of the broadcast destination.
const broadcastLabel = "ALL"

// NodeTable is the snapshot view of known nodes maintained by the mesh
// transport. Lookups must not block; a miss is not an error.
type NodeTable interface {
	ShortName(id types.NodeId) (string, bool)
}

// Directory resolves node identifiers to display labels.
type Directory struct {
	table NodeTable
}

func NewDirectory(table NodeTable) *Directory {
	return &Directory{table: table}
}

// Resolve returns the display label for a node: "ALL" for the broadcast
// sentinel, the node's short name when the table knows it, and otherwise the
// canonical "!xxxxxxxx" form, which is always recoverable back to the id.
func (d *Directory) Resolve(id types.NodeId) string {
	if id.IsBroadcast() {
		return broadcastLabel
	}

	if name, ok := d.table.ShortName(id); ok {
		return name
	}

	return id.String()
}

// ResolveRaw resolves identifiers that arrive in string form ("^all",
// "!xxxxxxxx" or bare hex). Unparseable input is returned as-is rather than
// dropped; the label is for display only.
func (d *Directory) ResolveRaw(raw string) string {
	id, err := types.ParseNodeId(raw)
	if err != nil {
		return raw
	}
	return d.Resolve(id)
}
