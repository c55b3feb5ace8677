package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmissionEventPayloadCamelCase(t *testing.T) {
	raw := `{
		"submissionId": 7,
		"examId": 2,
		"examinerId": 5,
		"studentId": 11,
		"studentName": "Ida Larsen",
		"fileUrl": "https://files.test/7.pdf",
		"fileName": "7.pdf",
		"totalScore": 4.25,
		"gradingStatus": "passed"
	}`

	var payload SubmissionEventPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Equal(t, uint(7), payload.SubmissionID)
	require.Equal(t, uint(2), payload.ExamID)
	require.Equal(t, uint(5), payload.ExaminerID)
	require.Equal(t, uint(11), payload.StudentID)
	require.Equal(t, "Ida Larsen", payload.StudentName)
	require.NotNil(t, payload.TotalScore)
	require.Equal(t, 4.25, *payload.TotalScore)
	require.Equal(t, "passed", payload.Status)
}

func TestSubmissionEventPayloadPascalCase(t *testing.T) {
	raw := `{
		"SubmissionId": 7,
		"ExamId": 2,
		"ExaminerId": 5,
		"StudentId": 11,
		"StudentName": "Ida Larsen",
		"FileUrl": "https://files.test/7.pdf",
		"FileName": "7.pdf",
		"TotalScore": 4.25,
		"GradingStatus": "passed"
	}`

	var payload SubmissionEventPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Equal(t, uint(7), payload.SubmissionID)
	require.Equal(t, "Ida Larsen", payload.StudentName)
	require.Equal(t, "https://files.test/7.pdf", payload.FileURL)
	require.Equal(t, "passed", payload.Status)
}

func TestSubmissionEventPayloadNullScore(t *testing.T) {
	raw := `{"submissionId": 3, "examId": 1, "examinerId": 2, "totalScore": null, "gradingStatus": "pending"}`

	var payload SubmissionEventPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Nil(t, payload.TotalScore)
	require.Equal(t, "pending", payload.Status)
}

func TestSubmissionEventEnvelopeRoundTrip(t *testing.T) {
	score := 9.0
	event := SubmissionEvent{
		Kind:   EventSubmissionUpdated,
		Source: "node-a",
		Payload: SubmissionEventPayload{
			SubmissionID: 4,
			ExamID:       1,
			ExaminerID:   2,
			TotalScore:   &score,
			Status:       "passed",
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded SubmissionEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, EventSubmissionUpdated, decoded.Kind)
	require.Equal(t, uint(4), decoded.Payload.SubmissionID)
	require.Equal(t, 9.0, *decoded.Payload.TotalScore)
}
