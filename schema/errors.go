package schema

import "errors"

var (
	// ErrInvalidMessage indicates a malformed update message.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrUnknownMessageType indicates an update message type the client does not understand.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrUnknownWindow indicates a reference to a window that does not exist.
	ErrUnknownWindow = errors.New("window does not exist")
	// ErrWindowKindMismatch indicates a window was described with a different kind than it was created with.
	ErrWindowKindMismatch = errors.New("window kind mismatch")
	// ErrUnknownWindowKind indicates a window kind outside grid, buffer and graphics.
	ErrUnknownWindowKind = errors.New("unknown window kind")
	// ErrLineInputPending indicates content arrived for a window awaiting line input.
	ErrLineInputPending = errors.New("window is awaiting line input")
	// ErrUnknownLine indicates a grid line outside the window's height.
	ErrUnknownLine = errors.New("grid line does not exist")
	// ErrUnknownInputKind indicates an input request with an unrecognized kind.
	ErrUnknownInputKind = errors.New("unknown input kind")
	// ErrUnknownSpecialInput indicates a special input request with an unrecognized type.
	ErrUnknownSpecialInput = errors.New("unknown special input type")
	// ErrUnknownDrawOp indicates a graphics operation with an unrecognized type.
	ErrUnknownDrawOp = errors.New("unknown draw operation")
	// ErrMissingSurface indicates the render surface could not be located.
	ErrMissingSurface = errors.New("render surface not available")
	// ErrSessionClosed indicates the session was closed.
	ErrSessionClosed = errors.New("session closed")
)
