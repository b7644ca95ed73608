package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-personalizer/internal/leads"
	"github.com/jonathan/outreach-personalizer/internal/types"
)

func sequence(subjects ...string) []types.FollowUp {
	out := make([]types.FollowUp, len(subjects))
	for i, s := range subjects {
		out[i] = types.FollowUp{Subject: s, Body: "Following up"}
	}
	return out
}

func outcomeFixture() []types.RecordOutcome {
	return []types.RecordOutcome{
		{
			Index:    2,
			Identity: "Grace Hopper",
			Lead:     types.Lead{Index: 2, FirstName: "Grace", LastName: "Hopper", Company: "US Navy"},
			Artifact: &types.Artifact{
				Subject:   "Compilers at scale",
				Body:      "Hi Grace, ...",
				FollowUps: sequence("G1", "G2", "G3", "G4"),
				Score:     77,
			},
			ProfileStatus: types.FetchOK,
			CompanyStatus: types.FetchBlocked,
		},
		{
			Index:    0,
			Identity: "Ada Lovelace",
			Lead:     types.Lead{Index: 0, FirstName: "Ada", LastName: "Lovelace"},
			Artifact: &types.Artifact{
				Subject:   "Analytical engines",
				Body:      "Hi Ada, ...",
				FollowUps: sequence("A1", "A2", "A3", "A4"),
				Score:     91,
			},
			ProfileStatus: types.FetchTimeout,
		},
		{
			Index:        1,
			Identity:     "Bad Row",
			Lead:         types.Lead{Index: 1, LastName: "Row"},
			ErrorKind:    types.ErrorValidation,
			ErrorMessage: "first name is required",
		},
	}
}

func TestAssemble_OrdersByInputIndex(t *testing.T) {
	artifact, summary, err := Assemble(outcomeFixture())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 1, summary.ErrorCount)

	rows, err := csv.NewReader(bytes.NewReader(artifact)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 outcomes

	assert.Equal(t, "First name", rows[0][0])
	assert.Equal(t, "Ada", rows[1][0])
	assert.Equal(t, "", rows[2][0]) // invalid row has no first name
	assert.Equal(t, "Grace", rows[3][0])
}

func TestAssemble_WritesFollowUpColumns(t *testing.T) {
	artifact, _, err := Assemble(outcomeFixture())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(artifact)).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, "Follow-up 1 subject", rows[0][8])
	assert.Equal(t, "Follow-up 4 body", rows[0][15])

	adaRow := rows[1]
	assert.Equal(t, "A1", adaRow[8])
	assert.Equal(t, "Following up", adaRow[9])
	assert.Equal(t, "A4", adaRow[14])

	// The error row's sequence columns stay empty.
	assert.Equal(t, "", rows[2][8])
	assert.Equal(t, "", rows[2][15])
}

func TestAssemble_ErrorRowHasNoArtifact(t *testing.T) {
	artifact, _, err := Assemble(outcomeFixture())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(artifact)).ReadAll()
	require.NoError(t, err)

	errorRow := rows[2]
	assert.Equal(t, "", errorRow[6]) // subject
	assert.Equal(t, "", errorRow[7]) // body
	assert.Equal(t, "first name is required", errorRow[19])

	okRow := rows[1]
	assert.Equal(t, "Analytical engines", okRow[6])
	assert.Equal(t, "91", okRow[16])
	assert.Equal(t, "timeout", okRow[17])
	assert.Equal(t, "", okRow[19])
}

func TestAssemble_CountsScrapingOutcomes(t *testing.T) {
	_, summary, err := Assemble(outcomeFixture())
	require.NoError(t, err)

	// Grace: profile ok, company blocked. Ada: profile timed out, no
	// company URL. Bad row: nothing fetched.
	assert.Equal(t, types.ScrapingStats{
		ProfileSuccess: 1,
		ProfileFailure: 1,
		CompanyFailure: 1,
	}, summary.Scraping)
}

func TestAssemble_PartialFetchCountsAsSuccess(t *testing.T) {
	outcomes := []types.RecordOutcome{{
		Index:         0,
		Lead:          types.Lead{FirstName: "Ada", LastName: "Lovelace"},
		Artifact:      &types.Artifact{Subject: "s", Body: "b", Score: 10},
		ProfileStatus: types.FetchPartial,
		CompanyStatus: types.FetchOK,
	}}

	_, summary, err := Assemble(outcomes)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scraping.ProfileSuccess)
	assert.Equal(t, 1, summary.Scraping.CompanySuccess)
	assert.Equal(t, 0, summary.Scraping.ProfileFailure)
}

func TestAssemble_Deterministic(t *testing.T) {
	first, _, err := Assemble(outcomeFixture())
	require.NoError(t, err)
	second, _, err := Assemble(outcomeFixture())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssemble_Empty(t *testing.T) {
	artifact, summary, err := Assemble(nil)
	require.NoError(t, err)
	assert.Equal(t, types.Summary{}, summary)

	rows, err := csv.NewReader(bytes.NewReader(artifact)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

func TestSampleCSV_ParsesAsValidInput(t *testing.T) {
	rows, err := leads.ParseCSV(bytes.NewReader(SampleCSV()))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, raw := range rows {
		_, violations := leads.Validate(raw)
		assert.Empty(t, violations)
	}
}
