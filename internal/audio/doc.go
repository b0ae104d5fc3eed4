// Package audio renders catalogued clips into the soundboard's playback
// format by shelling out to ffprobe and ffmpeg.
//
// Every render applies a linear gain derived from the clip's volume percent
// and writes 16-bit PCM WAV regardless of the source container.
package audio
