package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/shared"
)

const (
	sampleRate = 48000
	channels   = 2
	// pcmChunk is 20ms of 48kHz stereo s16le, one Opus frame worth of samples.
	pcmChunk = sampleRate / 50 * channels * 2
)

// FFmpegOpts configures how streams are decoded and encoded.
type FFmpegOpts struct {
	Path        string
	Bitrate     string
	Passthrough bool
	Logger      *log.Logger
}

func (o FFmpegOpts) withDefaults() FFmpegOpts {
	if o.Path == "" {
		o.Path = "ffmpeg"
	}
	if o.Bitrate == "" {
		o.Bitrate = "128k"
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// passthroughArgs transcodes the input straight to Ogg/Opus on stdout.
func passthroughArgs(url, bitrate string, policy ReconnectPolicy) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, policy.Args()...)
	return append(args,
		"-i", url,
		"-map", "0:a",
		"-acodec", "libopus",
		"-b:a", bitrate,
		"-vbr", "on",
		"-f", "opus",
		"pipe:1",
	)
}

// decodeArgs decodes the input to raw PCM on stdout.
func decodeArgs(url string, policy ReconnectPolicy) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, policy.Args()...)
	return append(args,
		"-i", url,
		"-map", "0:a",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	)
}

// encodeArgs encodes raw PCM from stdin to Ogg/Opus on stdout.
func encodeArgs(bitrate string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
		"-acodec", "libopus",
		"-b:a", bitrate,
		"-vbr", "on",
		"-f", "opus",
		"pipe:1",
	}
}

// Stream is a running ffmpeg pipeline producing Opus packets for one item.
type Stream struct {
	cancel    context.CancelFunc
	packets   *OggReader
	cmds      []*exec.Cmd
	logger    *log.Logger
	closeOnce sync.Once
}

// StartStream launches ffmpeg for url. With a nil gain the passthrough pipeline is used.
func StartStream(opts FFmpegOpts, url string, policy ReconnectPolicy, gain *Gain) (*Stream, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Stream{cancel: cancel, logger: shared.WithLogger(opts.Logger, "component", "ffmpeg")}
	stderr := s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}).Writer()

	var (
		out io.ReadCloser
		err error
	)
	if gain == nil {
		out, err = s.startPassthrough(ctx, opts, url, policy, stderr)
	} else {
		out, err = s.startGainPipeline(ctx, opts, url, policy, gain, stderr)
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	s.packets = NewOggReader(out)
	return s, nil
}

func (s *Stream) startPassthrough(ctx context.Context, opts FFmpegOpts, url string, policy ReconnectPolicy, stderr io.Writer) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, opts.Path, passthroughArgs(url, opts.Bitrate, policy)...)
	cmd.Stderr = stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	s.cmds = append(s.cmds, cmd)
	return out, nil
}

func (s *Stream) startGainPipeline(ctx context.Context, opts FFmpegOpts, url string, policy ReconnectPolicy, gain *Gain, stderr io.Writer) (io.ReadCloser, error) {
	dec := exec.CommandContext(ctx, opts.Path, decodeArgs(url, policy)...)
	dec.Stderr = stderr
	pcm, err := dec.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe error: %w", err)
	}

	enc := exec.CommandContext(ctx, opts.Path, encodeArgs(opts.Bitrate)...)
	enc.Stderr = stderr
	encIn, err := enc.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe error: %w", err)
	}
	out, err := enc.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdout pipe error: %w", err)
	}

	if err := dec.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg decoder start error: %w", err)
	}
	s.cmds = append(s.cmds, dec)

	if err := enc.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg encoder start error: %w", err)
	}
	s.cmds = append(s.cmds, enc)

	go func() {
		defer encIn.Close()
		if err := CopyWithGain(encIn, pcm, gain); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			s.logger.Debug("pcm pump stopped", "err", err)
		}
	}()
	return out, nil
}

// CopyWithGain copies PCM from src to dst in 20ms chunks, applying the current gain to each chunk.
func CopyWithGain(dst io.Writer, src io.Reader, gain GainControl) error {
	buf := make([]byte, pcmChunk)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			chunk := buf[:n-n%2]
			ApplyGain(chunk, gain.Gain())
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// NextPacket returns the next Opus packet, or io.EOF once the pipeline is exhausted.
func (s *Stream) NextPacket() ([]byte, error) {
	return s.packets.ReadPacket()
}

// Close stops every process in the pipeline and reaps them. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		for _, cmd := range s.cmds {
			if err := cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Debug("ffmpeg exited", "err", err)
			}
		}
	})
}
