package physics

import "errors"

var (
	// ErrInvalidMesh reports a segment whose geometry does not match its
	// declared shape.
	ErrInvalidMesh = errors.New("invalid mesh")
	// ErrDanglingAttachment reports an attachment to a segment that does not
	// exist or is not built before the child.
	ErrDanglingAttachment = errors.New("dangling attachment")
	// ErrAlreadyRegistered reports a second Register for the same agent.
	ErrAlreadyRegistered = errors.New("agent already registered")
	// ErrNotRegistered reports an Unregister for an agent without bodies.
	ErrNotRegistered = errors.New("agent not registered")
	// ErrInvalidStep reports a time step that is not positive and finite.
	ErrInvalidStep = errors.New("invalid time step")
	// ErrInvalidConfig reports a physics config that fails validation.
	ErrInvalidConfig = errors.New("invalid physics config")
)
