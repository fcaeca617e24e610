package playback

// Track is a catalog entry selected for playback. ExternalID is its identity.
type Track struct {
	ExternalID   string `json:"videoId"`
	Title        string `json:"title"`
	Author       string `json:"channel"`
	ThumbnailURL string `json:"thumbnail"`
}

func (t Track) IsZero() bool {
	return t.ExternalID == ""
}

func (t Track) Same(other Track) bool {
	return t.ExternalID == other.ExternalID
}
