package clips

import "errors"

var (
	// ErrEndOfClip marks the end of one bounded read pass. It is not a failure:
	// the next ReadPacket starts a new pass from the clip start.
	ErrEndOfClip = errors.New("end of clip")

	ErrEmptyURL       = errors.New("clip url is required")
	ErrNilOpener      = errors.New("clip media opener is required")
	ErrClosed         = errors.New("clip is not open")
	ErrAlreadyOpen    = errors.New("clip is already open")
	ErrFreed          = errors.New("clip has been freed")
	ErrNoVideoStream  = errors.New("source has no video stream")
	ErrInvalidBounds  = errors.New("invalid clip bounds")
	ErrSeekOutOfRange = errors.New("seek position outside clip bounds")
)
