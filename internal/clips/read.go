package clips

import (
	"errors"
	"fmt"

	"github.com/kikiluvv/clipseq/internal/media"
)

// ReadPacket returns the next packet inside the trim boundary.
//
// Call it in a loop until it returns ErrEndOfClip, which marks the end of one
// pass over the clip. Both the video and audio ranges must be exhausted (or
// the container must end) before the pass ends. The call after ErrEndOfClip
// starts a new pass from the clip start, so the same loop can run again.
//
// Packets before the start boundary (or before the target of the last
// SeekPTS) and packets of a stream that already finished are skipped. Any other error comes from the source and leaves the
// read state as it was.
func (c *Clip) ReadPacket() (media.Packet, error) {
	if !c.open {
		return media.Packet{}, ErrClosed
	}

	if c.state == StateBothDone {
		c.rearm()
	}
	if c.pendingSeek {
		if err := c.source.Seek(c.seekPTS); err != nil {
			return media.Packet{}, fmt.Errorf("seek %s to pts %d: %w", c.url, c.seekPTS, err)
		}
		c.pendingSeek = false
	}

	for {
		pkt, err := c.source.ReadPacket()
		if media.IsEndOfStream(err) {
			c.state = StateBothDone
			c.logger.Debug().Int64("frames", c.currentFrameIdx).Msg("source exhausted before clip end")
			return media.Packet{}, ErrEndOfClip
		}
		if err != nil {
			return media.Packet{}, fmt.Errorf("read %s: %w", c.url, err)
		}

		if c.state.Done(pkt.Kind) {
			continue
		}

		pts := c.videoDomainPTS(pkt)
		if pts > c.origEndPTS {
			c.state = c.state.Finish(pkt.Kind)
			if c.state == StateBothDone {
				c.logger.Debug().Int64("frames", c.currentFrameIdx).Msg("clip pass complete")
				return media.Packet{}, ErrEndOfClip
			}
			continue
		}
		if pts < c.seekFloor {
			continue
		}

		if pkt.Kind == media.KindVideo {
			c.currentFrameIdx++
			c.seekPTS = pts
		}
		return pkt, nil
	}
}

func (c *Clip) videoDomainPTS(pkt media.Packet) int64 {
	if pkt.Kind == media.KindAudio {
		return c.AudioToVideoPTS(pkt.PTS)
	}
	return pkt.PTS
}

// ForEachPacket runs one full read pass, handing every packet to fn.
// It stops early on the first error from fn or the source.
func (c *Clip) ForEachPacket(fn func(media.Packet) error) error {
	for {
		pkt, err := c.ReadPacket()
		if errors.Is(err, ErrEndOfClip) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(pkt); err != nil {
			return err
		}
	}
}
