package validate

import (
	"fmt"
	"net/url"
)

// Text field length limits shared by the API and the web client.
const (
	MaxTitleLength        = 500
	MaxChannelLength      = 200
	MaxPlaylistNameLength = 200
	MaxVideoIDLength      = 64
	MaxThumbnailURLLength = 2048
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string        { return checkLen(s, MaxTitleLength, "title") }
func Channel(s string) string      { return checkLen(s, MaxChannelLength, "channel") }
func PlaylistName(s string) string { return checkLen(s, MaxPlaylistNameLength, "playlist name") }
func VideoID(s string) string      { return checkLen(s, MaxVideoIDLength, "video ID") }

// ThumbnailURL accepts an empty value or an absolute http(s) URL.
func ThumbnailURL(s string) string {
	if s == "" {
		return ""
	}
	if msg := checkLen(s, MaxThumbnailURLLength, "thumbnail URL"); msg != "" {
		return msg
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "thumbnail URL must be an http(s) URL"
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"title":        MaxTitleLength,
		"channel":      MaxChannelLength,
		"playlistName": MaxPlaylistNameLength,
		"videoId":      MaxVideoIDLength,
		"thumbnailUrl": MaxThumbnailURLLength,
	}
}
