package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kikiluvv/clipseq/internal/media"
)

// packetEntries are the per-packet fields requested from ffprobe
const packetEntries = "packet=stream_index,pts,dts,duration,size,pos,flags"

// packetIndex lists the packets of the selected streams in container order.
// Payloads are not loaded; Pos and Size locate them in the file.
func (e *Executor) packetIndex(ctx context.Context, filePath string, streams map[int]media.StreamKind) ([]media.Packet, error) {
	args := []string{
		"-v", "error",
		"-show_entries", packetEntries,
		"-of", "compact=p=0",
		filePath,
	}

	e.logger.Debug().
		Str("cmd", "ffprobe").
		Strs("args", args).
		Msg("indexing packets")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffprobe: %w", err)
	}

	packets, parseErr := readPacketIndex(stdout, streams)
	if parseErr != nil {
		// stop ffprobe so Wait does not block on a full pipe
		cancel()
	}

	if err := cmd.Wait(); err != nil && parseErr == nil {
		return nil, fmt.Errorf("ffprobe packet index failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if parseErr != nil {
		return nil, parseErr
	}

	e.logger.Debug().
		Str("file", filePath).
		Int("packets", len(packets)).
		Msg("packet index built")

	return packets, nil
}

// readPacketIndex parses ffprobe compact packet lines, keeping only packets of
// the given streams
func readPacketIndex(r io.Reader, streams map[int]media.StreamKind) ([]media.Packet, error) {
	scanner := bufio.NewScanner(r)
	var packets []media.Packet
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		pkt, ok, err := parsePacketLine(text)
		if err != nil {
			return nil, fmt.Errorf("packet index line %d: %w", line, err)
		}
		if !ok {
			continue
		}

		kind, selected := streams[pkt.Stream]
		if !selected {
			continue
		}
		pkt.Kind = kind
		packets = append(packets, pkt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read packet index: %w", err)
	}
	return packets, nil
}

// parsePacketLine parses one "key=value|key=value" record. ok is false for
// packets without any timestamp.
func parsePacketLine(line string) (media.Packet, bool, error) {
	pkt := media.Packet{Stream: -1, Pos: -1}
	var hasPTS, hasDTS bool

	for _, field := range strings.Split(line, "|") {
		key, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}

		switch key {
		case "stream_index":
			n, err := strconv.Atoi(value)
			if err != nil {
				return pkt, false, fmt.Errorf("stream_index %q: %w", value, err)
			}
			pkt.Stream = n
		case "pts":
			pkt.PTS, hasPTS = parseTS(value)
		case "dts":
			pkt.DTS, hasDTS = parseTS(value)
		case "duration":
			pkt.Duration, _ = parseTS(value)
		case "size":
			if n, ok := parseTS(value); ok {
				pkt.Size = int(n)
			}
		case "pos":
			if pos, ok := parseTS(value); ok {
				pkt.Pos = pos
			}
		case "flags":
			pkt.KeyFrame = strings.Contains(value, "K")
		}
	}

	if pkt.Stream < 0 {
		return pkt, false, fmt.Errorf("missing stream_index in %q", line)
	}

	switch {
	case hasPTS && !hasDTS:
		pkt.DTS = pkt.PTS
	case !hasPTS && hasDTS:
		pkt.PTS = pkt.DTS
	case !hasPTS && !hasDTS:
		return pkt, false, nil
	}
	return pkt, true, nil
}

// parseTS reads an integer field; ffprobe prints N/A for unset values
func parseTS(value string) (int64, bool) {
	if value == "" || value == "N/A" {
		return 0, false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
