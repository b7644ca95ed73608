package leads

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = "First name,Last name,Email,Title,Company,Location,Linkedin url,Company website\n"

func TestParseCSV_Success(t *testing.T) {
	input := sampleHeader +
		"Ada,Lovelace,ada@example.com,VP Engineering,Analytical Engines,London,https://www.linkedin.com/in/ada,https://analyticalengines.example.com\n" +
		"Grace,Hopper,grace@example.com,Rear Admiral,US Navy,Arlington,https://www.linkedin.com/in/grace,\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, "Lovelace", rows[0].LastName)
	assert.Equal(t, "https://analyticalengines.example.com", rows[0].CompanyWebsite)
	assert.Equal(t, 1, rows[1].Index)
	assert.Empty(t, rows[1].CompanyWebsite)
}

func TestParseCSV_BOMAndCaseInsensitiveHeaders(t *testing.T) {
	input := "\ufeffFIRST NAME,last_name\nAda,Lovelace\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, "Lovelace", rows[0].LastName)
}

func TestParseCSV_SkipsEmptyRows(t *testing.T) {
	input := sampleHeader +
		"Ada,Lovelace,,,,,,\n" +
		",,,,,,,\n" +
		"Grace,Hopper,,,,,,\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Grace", rows[1].FirstName)
	assert.Equal(t, 1, rows[1].Index)
}

func TestParseCSV_EmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)

	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
	assert.Contains(t, err.Error(), "empty")
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(sampleHeader))
	require.Error(t, err)

	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
	assert.Contains(t, err.Error(), "no data rows")
}

func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	input := "First name,Email\nAda,ada@example.com\n"

	_, err := ParseCSV(strings.NewReader(input))
	require.Error(t, err)

	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
	assert.Contains(t, err.Error(), "last name")
}

func TestParseCSV_RowCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("First name,Last name\n")
	for i := 0; i <= MaxRows; i++ {
		fmt.Fprintf(&sb, "Lead%d,Example\n", i)
	}

	_, err := ParseCSV(strings.NewReader(sb.String()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum")
}
