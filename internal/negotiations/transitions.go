package negotiations

import (
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

type action int

const (
	actionNoop action = iota
	actionUpdate
	actionAccept
)

// decide applies the transition table. Terminal states only accept themselves as a no-op.
func decide(current, target enums.NegotiationStatus) (action, error) {
	switch current {
	case enums.NegotiationStatusPending:
		switch target {
		case enums.NegotiationStatusPending:
			return actionNoop, nil
		case enums.NegotiationStatusAccepted:
			return actionAccept, nil
		case enums.NegotiationStatusCounter, enums.NegotiationStatusRejected:
			return actionUpdate, nil
		}
	case enums.NegotiationStatusCounter:
		switch target {
		case enums.NegotiationStatusAccepted:
			return actionAccept, nil
		case enums.NegotiationStatusCounter, enums.NegotiationStatusRejected:
			return actionUpdate, nil
		}
	case enums.NegotiationStatusRejected, enums.NegotiationStatusAccepted:
		if target == current {
			return actionNoop, nil
		}
	}
	return actionNoop, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move negotiation from %s to %s", current, target).
		WithDetails(map[string]any{"current": current, "target": target})
}
