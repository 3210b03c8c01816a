package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index            int               `json:"index"`
	CodecName        string            `json:"codec_name"`
	CodecLongName    string            `json:"codec_long_name"`
	CodecType        string            `json:"codec_type"`
	SampleFmt        string            `json:"sample_fmt"`
	SampleRate       string            `json:"sample_rate"`
	Channels         int               `json:"channels"`
	ChannelLayout    string            `json:"channel_layout"`
	BitsPerSample    int               `json:"bits_per_sample"`
	BitsPerRawSample string            `json:"bits_per_raw_sample"`
	Duration         string            `json:"duration"`
	BitRate          string            `json:"bit_rate"`
	Tags             map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename       string            `json:"filename"`
	NBStreams      int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if stream.IsAudio() {
			count++
		}
	}
	return count
}

// PrimaryAudio returns the audio stream with the most channels, preferring
// the lowest index on ties. ok is false when there is no audio stream.
func (r Result) PrimaryAudio() (Stream, bool) {
	var candidates []Stream
	for _, stream := range r.Streams {
		if stream.IsAudio() {
			candidates = append(candidates, stream)
		}
	}
	if len(candidates) == 0 {
		return Stream{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Channels != candidates[j].Channels {
			return candidates[i].Channels > candidates[j].Channels
		}
		return candidates[i].Index < candidates[j].Index
	})
	return candidates[0], true
}

// DurationSeconds returns the container duration in seconds, falling back to
// the primary audio stream. Missing or invalid values yield 0.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	if stream, ok := r.PrimaryAudio(); ok {
		if d := parseFloat(stream.Duration); d > 0 {
			return d
		}
	}
	return 0
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if rate <= 0 {
		return 0
	}
	return int64(rate)
}

// Tags merges container and primary stream tags. Keys are lower-cased;
// container values win over stream values.
func (r Result) Tags() map[string]string {
	merged := make(map[string]string)
	if stream, ok := r.PrimaryAudio(); ok {
		for k, v := range stream.Tags {
			merged[strings.ToLower(k)] = v
		}
	}
	for k, v := range r.Format.Tags {
		merged[strings.ToLower(k)] = v
	}
	return merged
}

// IsAudio reports whether the stream carries audio.
func (s Stream) IsAudio() bool {
	return strings.EqualFold(s.CodecType, "audio")
}

// SampleRateHz parses the sample rate, or 0.
func (s Stream) SampleRateHz() int {
	rate := parseFloat(s.SampleRate)
	if rate <= 0 {
		return 0
	}
	return int(rate)
}

// BitDepth is the stream's sample bit depth. Lossless codecs report it in
// bits_per_raw_sample, PCM in bits_per_sample; lossy codecs have none.
func (s Stream) BitDepth() int {
	if raw, err := strconv.Atoi(strings.TrimSpace(s.BitsPerRawSample)); err == nil && raw > 0 {
		return raw
	}
	if s.BitsPerSample > 0 {
		return s.BitsPerSample
	}
	return 0
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}
