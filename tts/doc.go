// Package tts provides a small speech facade over a text-to-speech engine.
//
// A Speaker acquires an Engine, picks a language and voice, and offers
// Speak, Stop and SaveToFile. Completion callbacks are posted through a
// Dispatcher so that hosts receive them on their UI goroutine.
package tts
