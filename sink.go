package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cwbudde/wav"
	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
)

// Sink consumes rendered mono blocks.
type Sink interface {
	Write(block []int16) error
	Close() error
}

// otoSink plays blocks on the default audio device. Write blocks until the
// device has taken the previous data, which paces the render loop.
type otoSink struct {
	ctx    *oto.Context
	player *oto.Player
	pw     *io.PipeWriter
	buf    []byte
}

func newOtoSink(sampleRate, blockSize int) (*otoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(2*blockSize) * time.Second / time.Duration(sampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: open device: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()
	logger.Info("audio: device opened", "sample_rate", sampleRate, "block", blockSize)
	return &otoSink{
		ctx:    ctx,
		player: player,
		pw:     pw,
		buf:    make([]byte, 0, 2*blockSize),
	}, nil
}

func (s *otoSink) Write(block []int16) error {
	s.buf = s.buf[:0]
	for _, v := range block {
		s.buf = binary.LittleEndian.AppendUint16(s.buf, uint16(v))
	}
	_, err := s.pw.Write(s.buf)
	return err
}

func (s *otoSink) Close() error {
	_ = s.pw.Close()
	return s.player.Close()
}

// wavSink writes blocks to a 16-bit mono WAV file.
type wavSink struct {
	f   *os.File
	enc *wav.Encoder
	buf *audio.Float32Buffer
}

func newWAVSink(path string, sampleRate int) (*wavSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: create %s: %w", path, err)
	}
	return &wavSink{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 1, 1),
		buf: &audio.Float32Buffer{
			Format: &audio.Format{
				SampleRate:  sampleRate,
				NumChannels: 1,
			},
			SourceBitDepth: 16,
		},
	}, nil
}

func (s *wavSink) Write(block []int16) error {
	s.buf.Data = s.buf.Data[:0]
	for _, v := range block {
		s.buf.Data = append(s.buf.Data, float32(v)/32768)
	}
	return s.enc.Write(s.buf)
}

func (s *wavSink) Close() error {
	if err := s.enc.Close(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("wav: finish: %w", err)
	}
	return s.f.Close()
}

// discardSink drops blocks. With a non-zero period it sleeps so blocks are
// consumed at the audio rate.
type discardSink struct {
	period time.Duration
	next   time.Time
}

func newDiscardSink(sampleRate, blockSize int) *discardSink {
	return &discardSink{period: time.Duration(blockSize) * time.Second / time.Duration(sampleRate)}
}

func (s *discardSink) Write([]int16) error {
	if s.period == 0 {
		return nil
	}
	now := time.Now()
	if s.next.IsZero() || now.Sub(s.next) > s.period {
		s.next = now
	}
	s.next = s.next.Add(s.period)
	time.Sleep(s.next.Sub(now))
	return nil
}

func (s *discardSink) Close() error { return nil }

// openSink builds the sink named by cfg.Output.
func openSink(cfg *Config) (Sink, error) {
	switch cfg.Output {
	case OutputAudio:
		return newOtoSink(cfg.SampleRate, cfg.BlockSize)
	case OutputWAV:
		return newWAVSink(cfg.WAVPath, cfg.SampleRate)
	case OutputNone:
		return newDiscardSink(cfg.SampleRate, cfg.BlockSize), nil
	}
	return nil, fmt.Errorf("unknown output %q", cfg.Output)
}
