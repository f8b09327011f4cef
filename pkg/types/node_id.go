package types

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeId is a Meshtastic node number.
type NodeId uint32

// Broadcast is the destination sentinel addressing every node on the mesh.
const Broadcast NodeId = 0xFFFFFFFF

// broadcastAlias is the textual broadcast destination used by the device
// client API.
const broadcastAlias = "^all"

func (n NodeId) IsBroadcast() bool {
	return n == Broadcast
}

// String returns the canonical "!xxxxxxxx" form. The rendering is lossless:
// ParseNodeId(n.String()) == n for any id.
func (n NodeId) String() string {
	return fmt.Sprintf("!%08x", uint32(n))
}

// Hex returns the bare 8-digit hexadecimal form without the "!" prefix,
// as stored in event sink rows.
func (n NodeId) Hex() string {
	return fmt.Sprintf("%08x", uint32(n))
}

// ParseNodeId accepts the "!xxxxxxxx" form, a bare hexadecimal form and the
// "^all" broadcast alias.
func ParseNodeId(s string) (NodeId, error) {
	if s == broadcastAlias {
		return Broadcast, nil
	}

	value := strings.TrimPrefix(s, "!")
	num, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", s)
	}

	return NodeId(num), nil
}

func (n NodeId) MarshalYAML() (any, error) {
	return n.String(), nil
}

func (n *NodeId) UnmarshalYAML(node *yaml.Node) error {
	value, err := ParseNodeId(node.Value)
	if err != nil {
		return err
	}

	*n = value

	return nil
}

func (n NodeId) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", n.String())), nil
}

func (n *NodeId) UnmarshalJSON(data []byte) error {
	value := string(data)
	if len(value) > 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	num, err := ParseNodeId(value)
	if err != nil {
		return err
	}

	*n = num
	return nil
}
