package decoder

import (
	"strings"

	"github.com/flowscan/indexer/util"
)

// EventType is a parsed fully-qualified event type. Contract events look
// like A.<owner>.<contract>.<event>; protocol events like flow.AccountCreated
// carry no owner address.
type EventType struct {
	OwnerAddress string
	ContractName string
	EventName    string
}

// ParseEventType splits a fully-qualified event type id. Types with fewer
// than four segments, or not rooted at the account namespace, are treated as
// protocol events: the last two segments become contract and event name.
func ParseEventType(typeID string) EventType {
	parts := strings.Split(typeID, ".")
	if len(parts) >= 4 && parts[0] == "A" {
		return EventType{
			OwnerAddress: normalizeAddress(parts[1]),
			ContractName: parts[2],
			EventName:    parts[3],
		}
	}
	if len(parts) >= 2 {
		return EventType{
			ContractName: parts[len(parts)-2],
			EventName:    parts[len(parts)-1],
		}
	}
	return EventType{EventName: typeID}
}

// TokenContract rebuilds the A.<owner>.<contract> id that identifies the
// token a transfer event belongs to. Empty for protocol events.
func (t EventType) TokenContract() string {
	if t.OwnerAddress == "" {
		return ""
	}
	return "A." + util.TrimHexPrefix(t.OwnerAddress) + "." + t.ContractName
}

func normalizeAddress(addr string) string {
	addr = util.TrimHexPrefix(addr)
	if addr == "" {
		return ""
	}
	return "0x" + strings.ToLower(addr)
}
