package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Format of all PCM handled by this package.
const (
	Channels       = 1
	BitDepth       = 16
	BytesPerSample = BitDepth / 8
)

// Duration returns the playing time of mono s16le pcm at sampleRate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / (Channels * BytesPerSample)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Samples decodes mono s16le pcm. A trailing odd byte is ignored.
func Samples(pcm []byte) []int {
	out := make([]int, len(pcm)/BytesPerSample)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

// Encode packs samples as mono s16le, clipping to the int16 range.
func Encode(samples []int) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clip16(s)))
	}
	return out
}

// Resample converts mono s16le pcm from one rate to another with linear
// interpolation. The input is returned unchanged when the rates match.
func Resample(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 || len(pcm) < BytesPerSample {
		return pcm
	}

	in := Samples(pcm)
	n := int(int64(len(in)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}

	out := make([]int, n)
	step := float64(from) / float64(to)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = int(math.Round(float64(in[j])*(1-frac) + float64(in[j+1])*frac))
	}
	return Encode(out)
}

// Gain scales mono s16le pcm by factor, clipping at full scale. A factor of
// 1 or less than zero returns pcm unchanged.
func Gain(pcm []byte, factor float64) []byte {
	if factor == 1 || factor < 0 {
		return pcm
	}
	in := Samples(pcm)
	for i, s := range in {
		in[i] = int(math.Round(float64(s) * factor))
	}
	return Encode(in)
}

func clip16(s int) int16 {
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	default:
		return int16(s)
	}
}
