package clips

import "github.com/kikiluvv/clipseq/internal/media"

// ReadState tracks which halves of the clip's packet range have been consumed
// during the current read pass.
type ReadState int

const (
	StateReading ReadState = iota
	StateVideoDone
	StateAudioDone
	StateBothDone
)

func (s ReadState) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateVideoDone:
		return "video_done"
	case StateAudioDone:
		return "audio_done"
	case StateBothDone:
		return "both_done"
	default:
		return "invalid"
	}
}

// Done reports whether the stream of the given kind is exhausted.
// Packets of unknown kind are always treated as done.
func (s ReadState) Done(kind media.StreamKind) bool {
	switch kind {
	case media.KindVideo:
		return s == StateVideoDone || s == StateBothDone
	case media.KindAudio:
		return s == StateAudioDone || s == StateBothDone
	default:
		return true
	}
}

// Finish returns the state after the stream of the given kind is exhausted
func (s ReadState) Finish(kind media.StreamKind) ReadState {
	switch {
	case kind == media.KindVideo && s == StateReading:
		return StateVideoDone
	case kind == media.KindVideo && s == StateAudioDone:
		return StateBothDone
	case kind == media.KindAudio && s == StateReading:
		return StateAudioDone
	case kind == media.KindAudio && s == StateVideoDone:
		return StateBothDone
	default:
		return s
	}
}
