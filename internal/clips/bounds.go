package clips

import "fmt"

// SetBounds trims the clip to the inclusive frame range startIdx..endIdx of
// the source file. The read cursor returns to the new start.
func (c *Clip) SetBounds(startIdx, endIdx int64) error {
	if !c.open {
		return ErrClosed
	}
	if startIdx < 0 || startIdx > endIdx {
		return fmt.Errorf("%w: start frame %d, end frame %d", ErrInvalidBounds, startIdx, endIdx)
	}

	end := c.FramePTS(endIdx)
	if end > c.video.LastPTS() {
		return fmt.Errorf("%w: end frame %d past last frame %d", ErrInvalidBounds, endIdx, c.FrameIdx(c.video.LastPTS()))
	}

	c.applyBounds(c.FramePTS(startIdx), end)
	return nil
}

// SetStartFrame moves the start boundary to frame idx of the source file
func (c *Clip) SetStartFrame(idx int64) error {
	return c.SetStart(c.FramePTS(idx))
}

// SetStart moves the start boundary to pts (source video time base)
func (c *Clip) SetStart(pts int64) error {
	if !c.open {
		return ErrClosed
	}
	if first := c.video.StartPTS; pts < first || pts > c.origEndPTS {
		return fmt.Errorf("%w: start pts %d outside [%d, %d]", ErrInvalidBounds, pts, first, c.origEndPTS)
	}

	c.applyBounds(pts, c.origEndPTS)
	return nil
}

// SetEndFrame moves the end boundary to frame idx of the source file
func (c *Clip) SetEndFrame(idx int64) error {
	return c.SetEnd(c.FramePTS(idx))
}

// SetEnd moves the end boundary to pts (source video time base)
func (c *Clip) SetEnd(pts int64) error {
	if !c.open {
		return ErrClosed
	}
	if last := c.video.LastPTS(); pts < c.origStartPTS || pts > last {
		return fmt.Errorf("%w: end pts %d outside [%d, %d]", ErrInvalidBounds, pts, c.origStartPTS, last)
	}

	c.applyBounds(c.origStartPTS, pts)
	return nil
}

func (c *Clip) applyBounds(start, end int64) {
	c.origStartPTS = start
	c.origEndPTS = end
	c.rearm()
	c.updateTimelineEnd()

	c.logger.Debug().
		Int64("orig_start_pts", start).
		Int64("orig_end_pts", end).
		Int64("end_pts", c.endPTS).
		Msg("clip bounds set")
}

// Seek moves the cursor to frame frameIdx counted from the clip start
func (c *Clip) Seek(frameIdx int64) error {
	return c.SeekPTS(frameIdx * c.frameDur)
}

// SeekPTS moves the cursor to relativePTS counted from the clip start and
// seeks the source there. A successful seek starts a new read pass that
// returns no packet before the target, even when the source lands on an
// earlier keyframe.
func (c *Clip) SeekPTS(relativePTS int64) error {
	if !c.open {
		return ErrClosed
	}

	abs := c.AbsPTS(relativePTS)
	if abs < c.origStartPTS || abs > c.origEndPTS {
		return fmt.Errorf("%w: pts %d not in [%d, %d]", ErrSeekOutOfRange, abs, c.origStartPTS, c.origEndPTS)
	}

	if err := c.source.Seek(abs); err != nil {
		return fmt.Errorf("seek %s to pts %d: %w", c.url, abs, err)
	}

	c.seekPTS = abs
	c.seekFloor = abs
	c.currentFrameIdx = relativePTS / c.frameDur
	c.state = c.initialState()
	c.pendingSeek = false
	return nil
}

// Reset returns the cursor to the clip start and re-arms the read state so a
// new pass can begin mid-loop.
func (c *Clip) Reset() error {
	if !c.open {
		return ErrClosed
	}
	c.rearm()
	return nil
}

// Move places the clip at startPTS on the timeline, keeping its length
func (c *Clip) Move(startPTS int64) error {
	if startPTS < 0 {
		return fmt.Errorf("%w: timeline start %d", ErrInvalidBounds, startPTS)
	}
	length := c.endPTS - c.startPTS
	c.startPTS = startPTS
	c.endPTS = startPTS + length
	return nil
}

// SetTimelineEnd overrides the timeline end derived from the trim length
func (c *Clip) SetTimelineEnd(endPTS int64) error {
	if endPTS < c.startPTS {
		return fmt.Errorf("%w: timeline end %d before start %d", ErrInvalidBounds, endPTS, c.startPTS)
	}
	c.endPTS = endPTS
	return nil
}
