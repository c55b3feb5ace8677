package dto

// AssignModeratorRequest routes an escalated submission to a second examiner.
type AssignModeratorRequest struct {
	ModeratorID uint `json:"moderator_id" validate:"required,gt=0"`
}

// SimilarityRequest compares two plain-text bodies.
type SimilarityRequest struct {
	Left  string `json:"left" validate:"required"`
	Right string `json:"right" validate:"required"`
}

// SimilarityResponse reports the duplication estimate.
type SimilarityResponse struct {
	Percent int    `json:"percent"`
	Band    string `json:"band"`
}
