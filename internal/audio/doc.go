// Package audio plays and stores the 16-bit mono PCM produced by local
// speech engines. Playback goes through oto/v3; files are written as WAV.
package audio
