package model

// ColorInfo is one entry of a dominant-color palette
type ColorInfo struct {
	Hex        string `json:"hex"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// QualityAssessment rates a photo on a fixed ordinal scale.
// The textual ratings are in the language the analysis was requested in.
type QualityAssessment struct {
	Score       int    `json:"score"`
	Sharpness   string `json:"sharpness"`
	Lighting    string `json:"lighting"`
	Composition string `json:"composition"`
	Overall     string `json:"overall_rating"`
}

// AnalysisResult is the canonical, provider-independent analysis output.
// Every field is always populated: adapters fill safe defaults for anything
// a provider leaves out, so consumers never see a partial result.
type AnalysisResult struct {
	Tags        []string          `json:"tags"`
	Description string            `json:"description"`
	Atmosphere  string            `json:"atmosphere"`
	Colors      []ColorInfo       `json:"dominant_colors"`
	Quality     QualityAssessment `json:"quality"`
	Model       string            `json:"aiModel"`
}
