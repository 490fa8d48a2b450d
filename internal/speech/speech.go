// Package speech converts between voice notes and text: ffmpeg transcoding,
// Whisper transcription over Groq's OpenAI-compatible API and ElevenLabs
// synthesis.
package speech

import (
	"context"
	"errors"
)

var ErrEmptyTranscript = errors.New("empty transcript")

// Transcoder converts the audio file at src into an MP3 at dst.
type Transcoder interface {
	ToMP3(ctx context.Context, src, dst string) error
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Synthesizer writes spoken text as MP3 to dst.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dst string) error
}
