// Package scanner walks the music library and catalogs new audio files.
//
// Every regular file is sniffed with mediatype; audio files not yet in the
// catalog are probed by an extractor.Extractor and stored with their tags in
// one transaction. Artist names with no local match are enqueued for
// MusicBrainz resolution inside that same transaction, so a crash never
// leaves a cataloged file without its pending artist jobs.
package scanner
