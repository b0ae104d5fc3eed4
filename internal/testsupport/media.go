package testsupport

// FFprobeStub reports a single audio stream unless the probed path contains
// "silent", in which case only a video stream is reported.
const FFprobeStub = `#!/bin/sh
for last; do :; done
case "$last" in
  *silent*) echo '{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"2.0"}}' ;;
  *) echo '{"streams":[{"index":0,"codec_type":"video","codec_name":"mjpeg"},{"index":1,"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2}],"format":{"duration":"1.5"}}' ;;
esac
`

// FFmpegStub writes a placeholder WAV to its final argument. Arguments are
// appended to $FFMPEG_ARGS_LOG when set, one invocation per line. Sources
// whose path contains "corrupt" fail with a decoder error on stderr.
const FFmpegStub = `#!/bin/sh
src=""
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then src="$arg"; fi
  prev="$arg"
  out="$arg"
done
if [ -n "$FFMPEG_ARGS_LOG" ]; then echo "$*" >> "$FFMPEG_ARGS_LOG"; fi
case "$src" in
  *corrupt*) echo "Invalid data found when processing input" >&2; exit 1 ;;
esac
printf 'RIFF' > "$out"
`

// WithMediaStubs installs FFprobeStub and FFmpegStub on PATH.
func WithMediaStubs() ConfigOption {
	return WithStubbedBinaries(map[string]string{
		"ffprobe": FFprobeStub,
		"ffmpeg":  FFmpegStub,
	})
}
