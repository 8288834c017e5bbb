package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionID_Deterministic(t *testing.T) {
	id1, canon1, err := SubmissionID("session-1", standardPayload())
	require.NoError(t, err)
	id2, canon2, err := SubmissionID("session-1", standardPayload())
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, canon1, canon2)
	assert.Len(t, id1, 64, "hex-encoded SHA-256")
}

func TestSubmissionID_SessionTokenIsPartOfIdentity(t *testing.T) {
	id1, _, err := SubmissionID("session-1", standardPayload())
	require.NoError(t, err)
	id2, _, err := SubmissionID("session-2", standardPayload())
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestSubmissionID_ChangesWithAnswers(t *testing.T) {
	p := standardPayload()
	id1, _, err := SubmissionID("s", p)
	require.NoError(t, err)

	p.Responses["1"] = AnswerString("different")
	id2, _, err := SubmissionID("s", p)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestHashWithDomain_Separation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainSubmission, data), hashWithDomain(DomainForm, data))
}

func TestFormHash_StableAcrossClones(t *testing.T) {
	sid := SectionID(1)
	form := &FormConfig{
		ID:        "f",
		Sections:  []Section{{ID: 1, Name: "A", OrderNumber: 1}},
		Questions: []Question{{ID: 1, SectionID: &sid, Type: QuestionText}},
		YearRules: []YearRule{{Condition: ConditionEquals, Value: "2024", SectionIDs: SectionSet{1}}},
	}
	h1, err := FormHash(form)
	require.NoError(t, err)
	h2, err := FormHash(form.Clone())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	form.YearRules[0].Value = "2025"
	h3, err := FormHash(form)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
