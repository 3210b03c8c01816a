package extractor

import (
	"strings"

	"tonearm/internal/catalog"
)

// Stored tag names.
const (
	TagAlbum       = "album"
	TagAlbumArtist = "album-artist"
	TagDiscNumber  = "album-disc-number"
	TagDiscCount   = "album-disc-count"
	TagArtist      = "artist"
	TagAudioCodec  = "audio-codec"
	TagDatetime    = "datetime"
	TagGenre       = "genre"
	TagTitle       = "title"
	TagTrackNumber = "track-number"
	TagTrackCount  = "track-count"
)

var knownTags = []string{
	TagAlbum, TagAlbumArtist, TagDiscNumber, TagDiscCount, TagArtist,
	TagAudioCodec, TagDatetime, TagGenre, TagTitle, TagTrackNumber, TagTrackCount,
}

// Container tag keys as ffprobe reports them (lower-cased) mapped onto
// stored names. Vorbis, ID3 and MP4 spellings differ.
var rawAliases = map[string]string{
	"album":        TagAlbum,
	"album_artist": TagAlbumArtist,
	"albumartist":  TagAlbumArtist,
	"album artist": TagAlbumArtist,
	"artist":       TagArtist,
	"date":         TagDatetime,
	"year":         TagDatetime,
	"genre":        TagGenre,
	"title":        TagTitle,
	"track":        TagTrackNumber,
	"tracknumber":  TagTrackNumber,
	"tracktotal":   TagTrackCount,
	"totaltracks":  TagTrackCount,
	"disc":         TagDiscNumber,
	"discnumber":   TagDiscNumber,
	"disctotal":    TagDiscCount,
	"totaldiscs":   TagDiscCount,
}

type tagSet struct {
	values map[string][]string
}

func newTagSet() *tagSet {
	return &tagSet{values: make(map[string][]string)}
}

func (s *tagSet) add(name, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	for _, existing := range s.values[name] {
		if existing == value {
			return
		}
	}
	s.values[name] = append(s.values[name], value)
}

// fill adds value only when name has no value yet.
func (s *tagSet) fill(name, value string) {
	if len(s.values[name]) > 0 {
		return
	}
	s.add(name, value)
}

// addRaw maps a container tag onto a stored name. "n/total" forms in track
// and disc tags are split into number and count.
func (s *tagSet) addRaw(key, value string) {
	name, ok := rawAliases[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return
	}
	switch name {
	case TagTrackNumber, TagDiscNumber:
		number, total, found := strings.Cut(value, "/")
		s.add(name, number)
		if found {
			countName := TagTrackCount
			if name == TagDiscNumber {
				countName = TagDiscCount
			}
			s.fill(countName, total)
		}
	default:
		s.add(name, value)
	}
}

// list flattens the set in vocabulary order, keeping names on allowList.
func (s *tagSet) list(allowList []string) []catalog.Tag {
	allowed := make(map[string]struct{}, len(allowList))
	for _, name := range allowList {
		allowed[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	var out []catalog.Tag
	for _, name := range knownTags {
		if len(allowed) > 0 {
			if _, ok := allowed[name]; !ok {
				continue
			}
		}
		for _, value := range s.values[name] {
			out = append(out, catalog.Tag{Name: name, Value: value})
		}
	}
	return out
}
