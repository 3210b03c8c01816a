package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"tonearm/internal/catalog"
	"tonearm/internal/logging"
	"tonearm/internal/media/ffprobe"
	"tonearm/internal/services"
)

// Probe is the technical data and tag set read from one file.
type Probe struct {
	Codec      string
	Duration   float64
	Channels   int
	BitDepth   int
	SampleRate int
	Tags       []catalog.Tag
}

// Values returns every value recorded for tag name, in order.
func (p Probe) Values(name string) []string {
	var out []string
	for _, t := range p.Tags {
		if t.Name == name {
			out = append(out, t.Value)
		}
	}
	return out
}

// Artists returns the artist tag values.
func (p Probe) Artists() []string {
	return p.Values(TagArtist)
}

// Extractor inspects a single audio file.
type Extractor interface {
	Probe(ctx context.Context, path string) (Probe, error)
}

// FFprobe extracts with the ffprobe binary and dhowden/tag.
type FFprobe struct {
	Binary    string
	AllowList []string
	Logger    *slog.Logger
}

// NewFFprobe builds an extractor. An empty allow-list keeps every known tag.
func NewFFprobe(binary string, allowList []string, logger *slog.Logger) *FFprobe {
	return &FFprobe{
		Binary:    binary,
		AllowList: allowList,
		Logger:    logging.NewComponentLogger(logger, "extractor"),
	}
}

// Probe inspects path. An ffprobe failure is returned as an error; a file
// whose embedded tags cannot be parsed still yields ffprobe's values.
func (f *FFprobe) Probe(ctx context.Context, path string) (Probe, error) {
	result, err := ffprobe.Inspect(ctx, f.Binary, path)
	if err != nil {
		return Probe{}, services.Wrap(services.ErrExternalService, "extractor", "ffprobe", path, err)
	}

	probe := Probe{Duration: result.DurationSeconds()}
	if stream, ok := result.PrimaryAudio(); ok {
		probe.Codec = stream.CodecName
		probe.Channels = stream.Channels
		probe.BitDepth = stream.BitDepth()
		probe.SampleRate = stream.SampleRateHz()
	}

	set := newTagSet()
	for key, value := range result.Tags() {
		set.addRaw(key, value)
	}
	if stream, ok := result.PrimaryAudio(); ok && stream.CodecLongName != "" {
		set.add(TagAudioCodec, stream.CodecLongName)
	}
	if err := f.readEmbedded(path, set); err != nil && f.Logger != nil {
		f.Logger.Debug("embedded tags unavailable",
			logging.String("path", path),
			logging.Error(err),
		)
	}

	probe.Tags = set.list(f.AllowList)
	return probe, nil
}

func (f *FFprobe) readEmbedded(path string, set *tagSet) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return fmt.Errorf("read tags: %w", err)
	}
	set.fill(TagTitle, meta.Title())
	set.fill(TagAlbum, meta.Album())
	set.fill(TagArtist, meta.Artist())
	set.fill(TagAlbumArtist, meta.AlbumArtist())
	set.fill(TagGenre, meta.Genre())
	if year := meta.Year(); year > 0 {
		set.fill(TagDatetime, strconv.Itoa(year))
	}
	if track, total := meta.Track(); track > 0 {
		set.fill(TagTrackNumber, strconv.Itoa(track))
		if total > 0 {
			set.fill(TagTrackCount, strconv.Itoa(total))
		}
	}
	if disc, total := meta.Disc(); disc > 0 {
		set.fill(TagDiscNumber, strconv.Itoa(disc))
		if total > 0 {
			set.fill(TagDiscCount, strconv.Itoa(total))
		}
	}
	return nil
}

// Extension returns the lower-cased file extension without the dot.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
