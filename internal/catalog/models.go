package catalog

import "time"

// UnknownFormat is recorded when the extractor cannot name the codec.
const UnknownFormat = "UNKNOWN"

// Audio is one cataloged audio file. URI is its identity key.
type Audio struct {
	ID        int64
	URI       string
	Path      string
	Name      string
	Extension string
	Format    string
	Duration  float64
	Channels  int
	Bits      int
	Hertz     int
	CreatedAt time.Time
}

// Tag is a single retained tag value. A file may carry several values for
// the same name.
type Tag struct {
	Name  string
	Value string
}

// ArtistType classifies an artist the way MusicBrainz does.
type ArtistType string

const (
	ArtistTypePerson    ArtistType = "person"
	ArtistTypeGroup     ArtistType = "group"
	ArtistTypeOrchestra ArtistType = "orchestra"
	ArtistTypeChoir     ArtistType = "choir"
	ArtistTypeCharacter ArtistType = "character"
	ArtistTypeOther     ArtistType = "other"
)

// Gender of a person artist.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Area is the geographic or administrative area associated with an artist.
// Areas are unique by name.
type Area struct {
	ID             int64
	Type           string
	Name           string
	SortName       string
	Disambiguation string
}

// Artist is a resolved or locally created artist. Name holds the tag value
// the artist was first seen under; MusicBrainzName the canonical name.
type Artist struct {
	ID              int64
	Name            string
	MusicBrainzName string
	MusicBrainzID   string
	SortName        string
	Type            ArtistType
	Gender          Gender
	Disambiguation  string
	AreaID          int64
	CreatedAt       time.Time
}

// Directory is one filesystem directory holding cataloged audio.
type Directory struct {
	ID        int64
	Path      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArtistSummary is an artist with the number of linked audio files and directories.
type ArtistSummary struct {
	Artist
	AreaName    string
	AudioCount  int
	FolderCount int
}

// Stats counts rows per catalog entity.
type Stats struct {
	Audio            int
	Tags             int
	Artists          int
	Areas            int
	Directories      int
	AudioArtists     int
	AudioDirectories int
	ArtistFolders    int
}
