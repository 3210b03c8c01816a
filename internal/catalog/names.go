package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// SanitizeName trims a tag value, drops control characters and collapses
// internal whitespace runs to a single space.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(cleaned), " ")
}

// NameKey is the exact-match key for artist names: NFC normalized, Unicode
// case folded and whitespace collapsed. "The  Beatles" and "the beatles"
// share a key; "Beatles" does not.
func NameKey(name string) string {
	return folder.String(norm.NFC.String(SanitizeName(name)))
}

// ParseArtistType maps free text onto a known artist type.
func ParseArtistType(value string) ArtistType {
	switch ArtistType(strings.ToLower(strings.TrimSpace(value))) {
	case ArtistTypePerson:
		return ArtistTypePerson
	case ArtistTypeGroup:
		return ArtistTypeGroup
	case ArtistTypeOrchestra:
		return ArtistTypeOrchestra
	case ArtistTypeChoir:
		return ArtistTypeChoir
	case ArtistTypeCharacter:
		return ArtistTypeCharacter
	case "":
		return ""
	default:
		return ArtistTypeOther
	}
}

// ParseGender maps free text onto a known gender.
func ParseGender(value string) Gender {
	switch Gender(strings.ToLower(strings.TrimSpace(value))) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	case "":
		return ""
	default:
		return GenderOther
	}
}
