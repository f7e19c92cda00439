package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Dataset {
	return Dataset{
		Title:   "Students",
		Headers: []string{"ID", "Name", "GPA"},
		Rows: []map[string]string{
			{"ID": "1", "Name": "Ann Lee", "GPA": "3.7"},
			{"ID": "2", "Name": "Stone, Bob", "GPA": "-"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "ID,Name,GPA\n1,Ann Lee,3.7\n2,\"Stone, Bob\",-\n", string(out))
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ".pdf", r.Extension())

	r, err = ForFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, ".csv", r.Extension())

	_, err = ForFormat("xlsx")
	assert.Error(t, err)
}
