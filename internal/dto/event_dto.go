package dto

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the push transport.
const (
	EventSubmissionCreated = "submission.created"
	EventSubmissionUpdated = "submission.updated"
)

// SubmissionEvent is the wire envelope published for remote mutations.
type SubmissionEvent struct {
	Kind    string                 `json:"kind"`
	Source  string                 `json:"source"`
	SentAt  time.Time              `json:"sent_at"`
	Payload SubmissionEventPayload `json:"payload"`
}

// SubmissionEventPayload is the canonical shape of a pushed submission
// mutation. The transport does not guarantee field casing: payloads arrive
// in either camelCase or PascalCase depending on the publishing peer, so
// unmarshalling normalizes both conventions here. Nothing past this type
// ever inspects raw payload keys.
type SubmissionEventPayload struct {
	SubmissionID uint     `json:"submissionId"`
	ExamID       uint     `json:"examId"`
	ExaminerID   uint     `json:"examinerId"`
	StudentID    uint     `json:"studentId"`
	StudentName  string   `json:"studentName"`
	FileURL      string   `json:"fileUrl"`
	FileName     string   `json:"fileName"`
	TotalScore   *float64 `json:"totalScore"`
	Status       string   `json:"gradingStatus"`
}

// UnmarshalJSON accepts both casing conventions for every field.
func (p *SubmissionEventPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if err := pickUint(raw, &p.SubmissionID, "submissionId", "SubmissionId"); err != nil {
		return err
	}
	if err := pickUint(raw, &p.ExamID, "examId", "ExamId"); err != nil {
		return err
	}
	if err := pickUint(raw, &p.ExaminerID, "examinerId", "ExaminerId"); err != nil {
		return err
	}
	if err := pickUint(raw, &p.StudentID, "studentId", "StudentId"); err != nil {
		return err
	}
	if err := pickString(raw, &p.StudentName, "studentName", "StudentName"); err != nil {
		return err
	}
	if err := pickString(raw, &p.FileURL, "fileUrl", "FileUrl"); err != nil {
		return err
	}
	if err := pickString(raw, &p.FileName, "fileName", "FileName"); err != nil {
		return err
	}
	if err := pickFloatPtr(raw, &p.TotalScore, "totalScore", "TotalScore"); err != nil {
		return err
	}
	if err := pickString(raw, &p.Status, "gradingStatus", "GradingStatus"); err != nil {
		return err
	}

	return nil
}

func firstPresent(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && string(value) != "null" {
			return value, true
		}
	}
	return nil, false
}

func pickUint(raw map[string]json.RawMessage, target *uint, keys ...string) error {
	value, ok := firstPresent(raw, keys...)
	if !ok {
		return nil
	}
	return json.Unmarshal(value, target)
}

func pickString(raw map[string]json.RawMessage, target *string, keys ...string) error {
	value, ok := firstPresent(raw, keys...)
	if !ok {
		return nil
	}
	return json.Unmarshal(value, target)
}

func pickFloatPtr(raw map[string]json.RawMessage, target **float64, keys ...string) error {
	value, ok := firstPresent(raw, keys...)
	if !ok {
		return nil
	}
	var parsed float64
	if err := json.Unmarshal(value, &parsed); err != nil {
		return err
	}
	*target = &parsed
	return nil
}
