package domain

// CreativePayload is the nested creative structure returned by the per-ad
// lookup endpoint.
type CreativePayload struct {
	ObjectStorySpec struct {
		LinkData struct {
			Link string `json:"link"`
		} `json:"link_data"`
		VideoData struct {
			Link string `json:"link"`
		} `json:"video_data"`
	} `json:"object_story_spec"`
	EffectiveObjectStoryID string `json:"effective_object_story_id"`
	ThumbnailURL           string `json:"thumbnail_url"`
	ImageURL               string `json:"image_url"`
}

// CreativeResult is the outcome of one creative lookup. A failed lookup
// yields an all-empty result, never an error.
type CreativeResult struct {
	AdID         string `json:"ad_id"`
	StoryURL     string `json:"story_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}
