package audio

import (
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes mono s16le pcm to path as a WAV file. Missing parent
// directories are created. The file appears atomically.
func WriteWAV(path string, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".wav-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	enc := wav.NewEncoder(tmp, sampleRate, BitDepth, Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: Channels,
			SampleRate:  sampleRate,
		},
		Data:           Samples(pcm),
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close wav: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move wav into place: %w", err)
	}
	return nil
}

// ReadWAV decodes a 16-bit mono WAV file into s16le pcm and its sample rate.
func ReadWAV(path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close() //nolint:errcheck

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	if dec.BitDepth != BitDepth || dec.NumChans != Channels {
		return nil, 0, fmt.Errorf("%s: want %d-bit mono, got %d-bit %d channels", path, BitDepth, dec.BitDepth, dec.NumChans)
	}
	return Encode(buf.Data), int(dec.SampleRate), nil
}
