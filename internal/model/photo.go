package model

import "time"

// Photo represents an uploaded photo record
type Photo struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Tag is a normalized lowercase label attached to photos
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// PhotoMetadata holds the analysis output persisted for a photo.
// One row per photo, upserted on each (re)analysis.
type PhotoMetadata struct {
	PhotoID       int64       `json:"photoId"`
	Description   string      `json:"description"`
	Atmosphere    string      `json:"atmosphere"`
	Colors        []ColorInfo `json:"dominant_colors"`
	QualityScore  int         `json:"quality_score"`
	Sharpness     string      `json:"quality_sharpness"`
	Lighting      string      `json:"quality_lighting"`
	Composition   string      `json:"quality_composition"`
	OverallRating string      `json:"quality_overall"`
	AIModel       string      `json:"ai_model"`
	AnalyzedAt    time.Time   `json:"analyzedAt"`
}

// PhotoDetail is a photo with its tags and metadata, as returned by the API
// and carried on the completion event.
type PhotoDetail struct {
	Photo
	Tags     []Tag          `json:"tags"`
	Metadata *PhotoMetadata `json:"metadata,omitempty"`
}
