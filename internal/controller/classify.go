package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamc/sensorwatch/internal/sensors"
)

// Class is the user-facing category of a failure.
type Class int

const (
	ClassNone Class = iota
	ClassNetwork
	ClassServer
	ClassValidation
	ClassOfflineDegraded
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassNetwork:
		return "network"
	case ClassServer:
		return "server"
	case ClassValidation:
		return "validation"
	case ClassOfflineDegraded:
		return "offline"
	default:
		return "unknown"
	}
}

// OfflineMessage is shown instead of a network error when the session was
// started in offline mode.
const OfflineMessage = "Offline mode: backend unavailable, no data to show"

// Notice is the single visible error line. The zero value means no notice.
type Notice struct {
	Class   Class
	Message string
}

// Empty reports whether n carries nothing to show.
func (n Notice) Empty() bool {
	return n.Class == ClassNone && n.Message == ""
}

// Classify maps a gateway error onto a Class. Malformed responses count as
// server faults. Unknown errors are treated the same way.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var (
		verr *sensors.ValidationError
		nerr *sensors.NetworkError
		serr *sensors.StatusError
		merr *sensors.MalformedError
	)
	switch {
	case errors.As(err, &verr):
		return ClassValidation
	case errors.As(err, &nerr):
		return ClassNetwork
	case errors.As(err, &serr), errors.As(err, &merr):
		return ClassServer
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ClassNetwork
	default:
		return ClassServer
	}
}

// Present turns err into the notice shown to the operator.
func Present(err error, offline bool) Notice {
	class := Classify(err)
	switch class {
	case ClassNone:
		return Notice{}
	case ClassNetwork:
		if offline {
			return Notice{Class: ClassOfflineDegraded, Message: OfflineMessage}
		}
		return Notice{Class: ClassNetwork, Message: fmt.Sprintf("Cannot reach the backend: %v", err)}
	default:
		return Notice{Class: class, Message: err.Error()}
	}
}
