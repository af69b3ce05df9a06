package kodi

import (
	"fmt"
	"sort"
	"strings"
)

// SortMethod is a host sort method id as exposed by xbmcplugin.SORT_METHOD_*.
type SortMethod int

// Sort methods, numbered as the host numbers them.
const (
	SortMethodNone SortMethod = iota
	SortMethodLabel
	SortMethodLabelIgnoreThe
	SortMethodDate
	SortMethodSize
	SortMethodFile
	SortMethodDriveType
	SortMethodTrackNum
	SortMethodDuration
	SortMethodTitle
	SortMethodTitleIgnoreThe
	SortMethodArtist
	SortMethodArtistAndYear
	SortMethodArtistIgnoreThe
	SortMethodAlbum
	SortMethodAlbumIgnoreThe
	SortMethodGenre
	SortMethodCountry
	SortMethodVideoYear
	SortMethodVideoRating
	SortMethodVideoUserRating
	SortMethodDateAdded
	SortMethodProgramCount
	SortMethodPlaylistOrder
	SortMethodEpisode
	SortMethodVideoTitle
	SortMethodVideoSortTitle
	SortMethodVideoSortTitleIgnoreThe
	SortMethodProductionCode
	SortMethodSongRating
	SortMethodSongUserRating
	SortMethodMPAARating
	SortMethodVideoRuntime
	SortMethodStudio
	SortMethodStudioIgnoreThe
	SortMethodFullPath
	SortMethodLabelIgnoreFolders
	SortMethodLastPlayed
	SortMethodPlayCount
	SortMethodListeners
	SortMethodUnsorted
	SortMethodChannel
	SortMethodChannelNumber
	SortMethodBitrate
	SortMethodDateTaken
	SortMethodClientChannelOrder

	sortMethodMax
)

var sortMethodNames = [...]string{
	"NONE", "LABEL", "LABEL_IGNORE_THE", "DATE", "SIZE", "FILE", "DRIVE_TYPE",
	"TRACKNUM", "DURATION", "TITLE", "TITLE_IGNORE_THE", "ARTIST",
	"ARTIST_AND_YEAR", "ARTIST_IGNORE_THE", "ALBUM", "ALBUM_IGNORE_THE", "GENRE",
	"COUNTRY", "VIDEO_YEAR", "VIDEO_RATING", "VIDEO_USER_RATING", "DATEADDED",
	"PROGRAM_COUNT", "PLAYLIST_ORDER", "EPISODE", "VIDEO_TITLE", "VIDEO_SORT_TITLE",
	"VIDEO_SORT_TITLE_IGNORE_THE", "PRODUCTIONCODE", "SONG_RATING",
	"SONG_USER_RATING", "MPAA_RATING", "VIDEO_RUNTIME", "STUDIO",
	"STUDIO_IGNORE_THE", "FULLPATH", "LABEL_IGNORE_FOLDERS", "LASTPLAYED",
	"PLAYCOUNT", "LISTENERS", "UNSORTED", "CHANNEL", "CHANNEL_NUMBER", "BITRATE",
	"DATE_TAKEN", "CLIENT_CHANNEL_ORDER",
}

// Valid reports whether m is a known sort method.
func (m SortMethod) Valid() bool {
	return m >= SortMethodNone && m < sortMethodMax
}

// String returns the constant name without the SORT_METHOD_ prefix.
func (m SortMethod) String() string {
	if !m.Valid() {
		return fmt.Sprintf("SortMethod(%d)", int(m))
	}
	return sortMethodNames[m]
}

// SortMethods returns every sort method keyed by its SORT_METHOD_ constant name.
func SortMethods() map[string]SortMethod {
	m := make(map[string]SortMethod, len(sortMethodNames))
	for i, name := range sortMethodNames {
		m["SORT_METHOD_"+name] = SortMethod(i)
	}
	return m
}

// SortEntry is a sort method registered by a plugin with its label masks.
type SortEntry struct {
	Method     SortMethod `json:"method"`
	LabelMask  string     `json:"label_mask,omitempty"`
	Label2Mask string     `json:"label2_mask,omitempty"`
}

// ContentType is a directory content type passed to setContent.
type ContentType string

// Content types the host recognises.
const (
	ContentFiles       ContentType = "files"
	ContentSongs       ContentType = "songs"
	ContentArtists     ContentType = "artists"
	ContentAlbums      ContentType = "albums"
	ContentMovies      ContentType = "movies"
	ContentTVShows     ContentType = "tvshows"
	ContentEpisodes    ContentType = "episodes"
	ContentMusicVideos ContentType = "musicvideos"
	ContentVideos      ContentType = "videos"
	ContentImages      ContentType = "images"
	ContentGames       ContentType = "games"
)

var contentTypes = map[ContentType]bool{
	ContentFiles: true, ContentSongs: true, ContentArtists: true, ContentAlbums: true,
	ContentMovies: true, ContentTVShows: true, ContentEpisodes: true,
	ContentMusicVideos: true, ContentVideos: true, ContentImages: true, ContentGames: true,
}

// ParseContentType validates a content type name. Matching is case-insensitive.
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !contentTypes[ct] {
		return "", fmt.Errorf("%w: unknown content type %q (valid: %s)", ErrInvalidArgument, s, strings.Join(ContentTypes(), ", "))
	}
	return ct, nil
}

// ContentTypes returns the recognised content type names, sorted.
func ContentTypes() []string {
	names := make([]string, 0, len(contentTypes))
	for ct := range contentTypes {
		names = append(names, string(ct))
	}
	sort.Strings(names)
	return names
}

// InfoType selects the info label namespace of setInfo.
type InfoType string

// Info label namespaces.
const (
	InfoVideo    InfoType = "video"
	InfoMusic    InfoType = "music"
	InfoPictures InfoType = "pictures"
	InfoGame     InfoType = "game"
)

// ParseInfoType validates an info type.
func ParseInfoType(s string) (InfoType, error) {
	switch t := InfoType(strings.ToLower(s)); t {
	case InfoVideo, InfoMusic, InfoPictures, InfoGame:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown info type %q", ErrInvalidArgument, s)
}

// StreamType selects the stream namespace of addStreamInfo.
type StreamType string

// Stream namespaces.
const (
	StreamVideo    StreamType = "video"
	StreamAudio    StreamType = "audio"
	StreamSubtitle StreamType = "subtitle"
)

// ParseStreamType validates a stream type.
func ParseStreamType(s string) (StreamType, error) {
	switch t := StreamType(strings.ToLower(s)); t {
	case StreamVideo, StreamAudio, StreamSubtitle:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown stream type %q", ErrInvalidArgument, s)
}

// CacheDirective tells the session how long a Result may be reused.
type CacheDirective int

const (
	// CacheNone caches the Result for the remainder of the session.
	CacheNone CacheDirective = iota

	// CacheUpdateListing forces a new dispatch on the next navigation.
	CacheUpdateListing

	// CacheToDisk persists the Result beyond the process.
	CacheToDisk
)

// String returns the directive name.
func (d CacheDirective) String() string {
	switch d {
	case CacheNone:
		return "none"
	case CacheUpdateListing:
		return "update-listing"
	case CacheToDisk:
		return "cache-to-disk"
	default:
		return fmt.Sprintf("CacheDirective(%d)", int(d))
	}
}

// DirectoryOptions are the endOfDirectory arguments.
type DirectoryOptions struct {
	Succeeded     bool
	UpdateListing bool
	CacheToDisc   bool
}

// DefaultDirectoryOptions returns the host defaults: succeeded and cached to disc.
func DefaultDirectoryOptions() DirectoryOptions {
	return DirectoryOptions{Succeeded: true, CacheToDisc: true}
}

// DirectoryOption modifies DirectoryOptions.
type DirectoryOption func(*DirectoryOptions)

// WithSucceeded sets whether the listing succeeded.
func WithSucceeded(ok bool) DirectoryOption {
	return func(o *DirectoryOptions) {
		o.Succeeded = ok
	}
}

// WithUpdateListing sets whether the listing replaces the previous one.
func WithUpdateListing(update bool) DirectoryOption {
	return func(o *DirectoryOptions) {
		o.UpdateListing = update
	}
}

// WithCacheToDisc sets whether the listing may be cached to disc.
func WithCacheToDisc(cache bool) DirectoryOption {
	return func(o *DirectoryOptions) {
		o.CacheToDisc = cache
	}
}

// Directive returns the cache directive the options imply.
func (o DirectoryOptions) Directive() CacheDirective {
	switch {
	case o.UpdateListing:
		return CacheUpdateListing
	case o.CacheToDisc:
		return CacheToDisk
	default:
		return CacheNone
	}
}
