package ffmpeg

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kikiluvv/clipseq/internal/clips"
	"github.com/kikiluvv/clipseq/internal/media"
	"github.com/kikiluvv/clipseq/internal/timebase"
	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// makeTestVideo renders a short test pattern with a sine tone
func makeTestVideo(t *testing.T, e *Executor, seconds int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp4")

	err := e.Run(context.Background(), RunOptions{
		Args: []string{
			"-f", "lavfi", "-i", "testsrc=size=320x240:rate=30",
			"-f", "lavfi", "-i", "sine=frequency=440:sample_rate=48000",
			"-t", strconv.Itoa(seconds),
			"-c:v", "libx264", "-g", "30", "-bf", "0", "-pix_fmt", "yuv420p",
			"-c:a", "aac",
			path,
		},
	})
	if err != nil {
		t.Fatalf("failed to render test video: %v", err)
	}
	return path
}

const probeJSON = `{
	"streams": [
		{
			"index": 0,
			"codec_name": "h264",
			"codec_type": "video",
			"width": 320,
			"height": 240,
			"pix_fmt": "yuv420p",
			"r_frame_rate": "30/1",
			"avg_frame_rate": "30/1",
			"time_base": "1/15360",
			"start_pts": 0,
			"duration_ts": 30720,
			"nb_frames": "60",
			"bit_rate": "52345"
		},
		{
			"index": 1,
			"codec_name": "aac",
			"codec_type": "audio",
			"sample_rate": "48000",
			"channels": 2,
			"time_base": "1/48000",
			"start_pts": 0,
			"duration_ts": 96000,
			"bit_rate": "128000"
		},
		{
			"index": 2,
			"codec_name": "mov_text",
			"codec_type": "subtitle",
			"time_base": "1/1000"
		}
	],
	"format": {
		"format_name": "mov,mp4,m4a,3gp,3g2,mj2",
		"duration": "2.000000",
		"bit_rate": "183000"
	}
}`

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(probeJSON))
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}

	if info.Duration != 2*time.Second {
		t.Errorf("expected duration 2s, got %v", info.Duration)
	}
	if info.Bitrate != 183000 {
		t.Errorf("expected bitrate 183000, got %d", info.Bitrate)
	}
	if len(info.Streams) != 2 {
		t.Fatalf("expected subtitle stream to be skipped, got %d streams", len(info.Streams))
	}

	video, ok := info.Video()
	if !ok {
		t.Fatal("no video stream")
	}
	if video.TimeBase != timebase.New(1, 15360) {
		t.Errorf("unexpected video time base %s", video.TimeBase)
	}
	if video.FrameDuration() != 512 {
		t.Errorf("expected frame duration 512, got %d", video.FrameDuration())
	}
	if video.Codec.Width != 320 || video.Codec.Height != 240 {
		t.Errorf("unexpected dimensions %dx%d", video.Codec.Width, video.Codec.Height)
	}
	if video.FrameCount != 60 {
		t.Errorf("expected 60 frames, got %d", video.FrameCount)
	}

	audio, ok := info.Audio()
	if !ok {
		t.Fatal("no audio stream")
	}
	if audio.Codec.SampleRate != 48000 || audio.Codec.Channels != 2 {
		t.Errorf("unexpected audio params %+v", audio.Codec)
	}
}

func TestParseProbeFrameRateFallback(t *testing.T) {
	data := `{"streams":[{"index":0,"codec_type":"video","time_base":"1/90000","r_frame_rate":"0/0","avg_frame_rate":"25/1"}],"format":{}}`
	info, err := parseProbe([]byte(data))
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	video, _ := info.Video()
	if video.FrameRate != timebase.New(25, 1) {
		t.Errorf("expected avg_frame_rate fallback, got %s", video.FrameRate)
	}

	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestParsePacketLine(t *testing.T) {
	tests := []struct {
		line    string
		wantOK  bool
		wantErr bool
		want    media.Packet
	}{
		{
			line:   "stream_index=0|pts=1024|dts=512|duration=512|size=2048|pos=4096|flags=K__",
			wantOK: true,
			want:   media.Packet{Stream: 0, PTS: 1024, DTS: 512, Duration: 512, Size: 2048, Pos: 4096, KeyFrame: true},
		},
		{
			line:   "stream_index=1|pts=N/A|dts=960|duration=1024|size=6|pos=N/A|flags=__",
			wantOK: true,
			want:   media.Packet{Stream: 1, PTS: 960, DTS: 960, Duration: 1024, Size: 6, Pos: -1},
		},
		{
			line:   "stream_index=1|pts=N/A|dts=N/A|duration=0|size=6|pos=10|flags=__",
			wantOK: false,
		},
		{
			line:    "pts=0|dts=0",
			wantErr: true,
		},
		{
			line:    "stream_index=x|pts=0",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		got, ok, err := parsePacketLine(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePacketLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if ok != tt.wantOK {
			t.Errorf("parsePacketLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			continue
		}
		if ok && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parsePacketLine(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestReadPacketIndex(t *testing.T) {
	input := strings.Join([]string{
		"stream_index=0|pts=0|dts=0|duration=512|size=4|pos=0|flags=K__",
		"stream_index=1|pts=0|dts=0|duration=1024|size=4|pos=4|flags=K__",
		"stream_index=2|pts=0|dts=0|duration=1|size=4|pos=8|flags=K__",
		"",
		"stream_index=0|pts=512|dts=512|duration=512|size=4|pos=12|flags=___",
	}, "\n")

	streams := map[int]media.StreamKind{0: media.KindVideo, 1: media.KindAudio}
	packets, err := readPacketIndex(strings.NewReader(input), streams)
	if err != nil {
		t.Fatalf("readPacketIndex failed: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("expected 3 packets, got %d", len(packets))
	}

	kinds := []media.StreamKind{media.KindVideo, media.KindAudio, media.KindVideo}
	for i, want := range kinds {
		if packets[i].Kind != want {
			t.Errorf("packet %d kind = %s, want %s", i, packets[i].Kind, want)
		}
	}

	if _, err := readPacketIndex(strings.NewReader("pts=0\n"), streams); err == nil {
		t.Error("expected error for line without stream index")
	}
}

// indexedFile writes a file whose packets are 4-byte records at known offsets
func indexedFile(t *testing.T) (*os.File, []media.Packet) {
	t.Helper()

	var (
		data    []byte
		packets []media.Packet
	)
	add := func(kind media.StreamKind, pts int64, key bool, payload string) {
		packets = append(packets, media.Packet{
			Kind:     kind,
			PTS:      pts,
			DTS:      pts,
			KeyFrame: key,
			Pos:      int64(len(data)),
			Size:     len(payload),
		})
		data = append(data, payload...)
	}

	// video 1/30 with a keyframe every 3 frames; audio 1/48000 at 1600 ticks per frame
	for i := range 9 {
		add(media.KindVideo, int64(i), i%3 == 0, "v00"+string(rune('0'+i)))
		add(media.KindAudio, int64(i)*1600, true, "a00"+string(rune('0'+i)))
	}

	path := filepath.Join(t.TempDir(), "indexed.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open fixture: %v", err)
	}
	return f, packets
}

func TestSourceSeekAndRead(t *testing.T) {
	f, packets := indexedFile(t)
	src := newSource(zerolog.Nop(), f, packets)
	src.video = media.Stream{Kind: media.KindVideo, TimeBase: timebase.New(1, 30), FrameRate: timebase.New(30, 1)}
	src.audio = media.Stream{Kind: media.KindAudio, TimeBase: timebase.Audio48k}
	src.hasAudio = true
	defer src.Close()

	pkt, err := src.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if string(pkt.Data) != "v000" {
		t.Errorf("expected first payload v000, got %q", pkt.Data)
	}

	// frame 5 is not a keyframe; the seek lands on frame 3
	if err := src.Seek(5); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	pkt, err = src.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if pkt.Kind != media.KindVideo || pkt.PTS != 3 || string(pkt.Data) != "v003" {
		t.Errorf("expected keyframe 3, got %s pts %d %q", pkt.Kind, pkt.PTS, pkt.Data)
	}

	if err := src.Seek(-1); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if pkt, _ = src.ReadPacket(); pkt.PTS != 0 {
		t.Errorf("seek before the first keyframe should rewind, got pts %d", pkt.PTS)
	}

	if err := src.Seek(8); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	var n int
	for {
		_, err := src.ReadPacket()
		if media.IsEndOfStream(err) {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		n++
	}
	if n != 6 {
		t.Errorf("expected 6 packets after keyframe 6, got %d", n)
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := src.ReadPacket(); err == nil {
		t.Error("expected error reading a closed source")
	}
}

func TestSeekKeepsLeadingAudio(t *testing.T) {
	f, _ := indexedFile(t)
	defer f.Close()

	// audio for frame 3 is stored just before the keyframe
	packets := []media.Packet{
		{Kind: media.KindVideo, PTS: 0, KeyFrame: true, Pos: -1},
		{Kind: media.KindAudio, PTS: 0, Pos: -1},
		{Kind: media.KindAudio, PTS: 4800, Pos: -1},
		{Kind: media.KindVideo, PTS: 3, KeyFrame: true, Pos: -1},
	}
	src := newSource(zerolog.Nop(), f, packets)
	src.video = media.Stream{Kind: media.KindVideo, TimeBase: timebase.New(1, 30)}
	src.audio = media.Stream{Kind: media.KindAudio, TimeBase: timebase.Audio48k}
	src.hasAudio = true

	if err := src.Seek(3); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	pkt, err := src.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if pkt.Kind != media.KindAudio || pkt.PTS != 4800 {
		t.Errorf("expected audio pts 4800 first, got %s pts %d", pkt.Kind, pkt.PTS)
	}
}

// videoSource serves frames video packets of size bytes each (1/30, one
// pts per frame, a keyframe every keyEvery frames) from a file holding
// fileSize bytes.
func videoSource(t *testing.T, frames, size, keyEvery, fileSize int) *Source {
	t.Helper()

	path := filepath.Join(t.TempDir(), "video.bin")
	if err := os.WriteFile(path, make([]byte, fileSize), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open fixture: %v", err)
	}

	packets := make([]media.Packet, 0, frames)
	for i := range frames {
		packets = append(packets, media.Packet{
			Kind:     media.KindVideo,
			PTS:      int64(i),
			DTS:      int64(i),
			Duration: 1,
			KeyFrame: i%keyEvery == 0,
			Pos:      int64(i * size),
			Size:     size,
		})
	}

	src := newSource(zerolog.Nop(), f, packets)
	src.video = media.Stream{
		Kind:      media.KindVideo,
		TimeBase:  timebase.New(1, 30),
		FrameRate: timebase.New(30, 1),
		Duration:  int64(frames),
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func openSourceClip(t *testing.T, src *Source) *clips.Clip {
	t.Helper()

	opener := media.OpenerFunc(func(context.Context, string) (media.Source, error) {
		return src, nil
	})
	c, err := clips.New("video.bin", opener)
	if err != nil {
		t.Fatalf("clips.New failed: %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return c
}

func TestReadPacketTruncatedFile(t *testing.T) {
	// ten 4-byte packets, but the file stops halfway through the fourth
	src := videoSource(t, 10, 4, 1, 14)

	if err := src.Seek(3); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	_, err := src.ReadPacket()
	if err == nil {
		t.Fatal("expected error for a short read")
	}
	if media.IsEndOfStream(err) {
		t.Errorf("short read reported as end of stream: %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestClipOverTruncatedFile(t *testing.T) {
	src := videoSource(t, 10, 4, 30, 14)
	c := openSourceClip(t, src)

	var (
		n   int
		err error
	)
	for n = 0; n < 10; n++ {
		if _, err = c.ReadPacket(); err != nil {
			break
		}
	}

	if n != 3 {
		t.Errorf("expected 3 complete packets before the truncation, got %d", n)
	}
	if errors.Is(err, clips.ErrEndOfClip) {
		t.Fatalf("truncated file ended the clip instead of failing: %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if c.State() != clips.StateAudioDone {
		t.Errorf("read error changed the state to %s", c.State())
	}
}

func TestClipSeekSkipsKeyframePreroll(t *testing.T) {
	// keyframes at 0 and 30; a seek to 45 lands the source on 30
	src := videoSource(t, 60, 4, 30, 240)
	c := openSourceClip(t, src)

	if err := c.SeekPTS(45); err != nil {
		t.Fatalf("SeekPTS failed: %v", err)
	}
	pkt, err := c.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if pkt.PTS != 45 {
		t.Errorf("expected first packet at pts 45, got %d", pkt.PTS)
	}
	if c.Cursor() != 45 {
		t.Errorf("expected cursor 45, got %d", c.Cursor())
	}
	if c.CurrentFrameIdx() != 46 {
		t.Errorf("expected frame counter 46, got %d", c.CurrentFrameIdx())
	}

	// the next pass starts from the clip start again
	for {
		if _, err = c.ReadPacket(); err != nil {
			break
		}
	}
	if !errors.Is(err, clips.ErrEndOfClip) {
		t.Fatalf("expected end of clip, got %v", err)
	}
	if pkt, err = c.ReadPacket(); err != nil || pkt.PTS != 0 {
		t.Errorf("expected pass to restart at pts 0, got %d (%v)", pkt.PTS, err)
	}
}

func TestFitStream(t *testing.T) {
	packets := []media.Packet{
		{Kind: media.KindVideo, PTS: 0, Duration: 512},
		{Kind: media.KindAudio, PTS: 0, Duration: 1024},
		{Kind: media.KindVideo, PTS: 1024, Duration: 512},
		{Kind: media.KindVideo, PTS: 512, Duration: 512},
		{Kind: media.KindAudio, PTS: 1024, Duration: 1024},
	}

	video := fitStream(media.Stream{Kind: media.KindVideo, TimeBase: timebase.New(1, 15360)}, packets, media.KindVideo)
	if video.FrameRate != timebase.New(15360, 512) {
		t.Errorf("expected frame rate from packet duration, got %s", video.FrameRate)
	}
	if video.Duration != 1536 {
		t.Errorf("expected duration 1536, got %d", video.Duration)
	}
	if video.LastPTS() != 1024 {
		t.Errorf("expected last pts 1024, got %d", video.LastPTS())
	}
	if video.FrameCount != 3 {
		t.Errorf("expected 3 frames, got %d", video.FrameCount)
	}

	audio := fitStream(media.Stream{Kind: media.KindAudio, TimeBase: timebase.Audio48k, Duration: 99}, packets, media.KindAudio)
	if audio.Duration != 2048 {
		t.Errorf("expected audio duration 2048, got %d", audio.Duration)
	}
}

func TestStreamOutputProgress(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	out := strings.Join([]string{
		"frame=12",
		"fps=24.5",
		"bitrate=512.0kbits/s",
		"out_time=00:00:00.400000",
		"speed=1.5x",
		"progress=continue",
		"frame=0",
		"progress=end",
	}, "\n")

	var got []Progress
	var lines int
	e.streamOutput(strings.NewReader(out), func(p *Progress) {
		got = append(got, *p)
	}, func(string) {
		lines++
	})

	if lines != 8 {
		t.Errorf("expected 8 log lines, got %d", lines)
	}
	if len(got) != 1 {
		t.Fatalf("expected one progress block, got %d", len(got))
	}
	if got[0].Frame != 12 || got[0].FPS != 24.5 || got[0].Speed != "1.5x" || got[0].Time != "00:00:00.400000" {
		t.Errorf("unexpected progress %+v", got[0])
	}
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := New(zerolog.New(os.Stderr), 4)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if exec.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if exec.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}

	if _, err := NewWithPaths(zerolog.Nop(), "/nonexistent/ffmpeg", "", 0); err == nil {
		t.Error("expected error for missing ffmpeg binary")
	}
}

func TestProbeAndOpen(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	path := makeTestVideo(t, e, 2)
	ctx := context.Background()

	info, err := e.Probe(ctx, path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	video, ok := info.Video()
	if !ok {
		t.Fatal("probe found no video stream")
	}
	if video.Codec.Width != 320 || video.Codec.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", video.Codec.Width, video.Codec.Height)
	}
	if _, ok := info.Audio(); !ok {
		t.Error("probe found no audio stream")
	}

	src, err := e.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	vs, _ := src.VideoStream()
	if frames := (vs.LastPTS()-vs.StartPTS)/vs.FrameDuration() + 1; frames != 60 {
		t.Errorf("expected 60 frames, got %d", frames)
	}

	var videoPackets int
	for {
		pkt, err := src.ReadPacket()
		if media.IsEndOfStream(err) {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		if len(pkt.Data) != pkt.Size {
			t.Fatalf("payload size %d does not match index size %d", len(pkt.Data), pkt.Size)
		}
		if pkt.Kind == media.KindVideo {
			videoPackets++
		}
	}
	if videoPackets != 60 {
		t.Errorf("expected 60 video packets, got %d", videoPackets)
	}

	if _, err := e.Open(ctx, filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error opening a missing file")
	}
}

func TestExtractClip(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	path := makeTestVideo(t, e, 3)
	ctx := context.Background()

	encoded := filepath.Join(t.TempDir(), "encoded.mp4")
	var progressCalls int
	err = e.ExtractClip(ctx, path, ClipOptions{
		Start:  500 * time.Millisecond,
		End:    1500 * time.Millisecond,
		Output: encoded,
		ProgressFunc: func(*Progress) {
			progressCalls++
		},
	})
	if err != nil {
		t.Fatalf("ExtractClip failed: %v", err)
	}
	info, err := e.Probe(ctx, encoded)
	if err != nil {
		t.Fatalf("Probe of extracted clip failed: %v", err)
	}
	if info.Duration < 900*time.Millisecond || info.Duration > 1200*time.Millisecond {
		t.Errorf("expected roughly 1s clip, got %v", info.Duration)
	}
	t.Logf("encoded clip: %v (%d progress updates)", info.Duration, progressCalls)

	if err := e.ExtractClip(ctx, path, ClipOptions{Start: time.Second, End: time.Second, Output: encoded}); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestExtractClipStreamCopy(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), 0)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	path := makeTestVideo(t, e, 3)

	out := filepath.Join(t.TempDir(), "copy.mp4")
	err = e.ExtractClip(context.Background(), path, ClipOptions{
		Start:     time.Second,
		End:       2 * time.Second,
		Output:    out,
		CopyCodec: true,
	})
	if err != nil {
		t.Fatalf("stream copy failed: %v", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Errorf("expected non-empty output, stat err %v", err)
	}
}

func TestStreamCopyUsesConfiguredBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg is a shell script")
	}

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	fake := filepath.Join(dir, "fake-ffmpeg")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > '" + argsFile + "'\n"
	if err := os.WriteFile(fake, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake ffmpeg: %v", err)
	}

	e, err := NewWithPaths(zerolog.Nop(), fake, fake, 0)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if e.onPath {
		t.Fatal("executor with custom binaries must not use the PATH transcoder")
	}

	out := filepath.Join(dir, "out.mp4")
	err = e.ExtractClip(context.Background(), "in.mp4", ClipOptions{
		Start:     time.Second,
		End:       3 * time.Second,
		Output:    out,
		CopyCodec: true,
	})
	if err != nil {
		t.Fatalf("stream copy failed: %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("configured ffmpeg was not run: %v", err)
	}
	args := strings.Join(strings.Fields(string(data)), " ")
	for _, want := range []string{"-i in.mp4", "-c copy " + out, "-ss 00:00:01.000", "-t 00:00:02.000"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in ffmpeg args %q", want, args)
		}
	}
}

func TestStreamCopyCancelled(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), 0)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	path := makeTestVideo(t, e, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "cancelled.mp4")
	err = e.ExtractClip(ctx, path, ClipOptions{
		Start:     0,
		End:       2 * time.Second,
		Output:    out,
		CopyCodec: true,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// ffmpeg has exited: a removed output stays removed
	os.Remove(out)
	time.Sleep(300 * time.Millisecond)
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output reappeared after cancelled export: %v", err)
	}
}
