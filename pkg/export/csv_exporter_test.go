package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderOrdersColumnsByHeader(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"Course Code", "Grade"},
		Rows: []map[string]string{
			{"Grade": "A", "Course Code": "MATH101"},
			{"Course Code": "PHYS201"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Course Code,Grade\nMATH101,A\nPHYS201,\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"Course Code", "Grade"},
		Rows:    []map[string]string{{"Course Code": "MATH101", "Grade": "A"}},
	}

	out, err := exporter.Render(data, "Transcript - Jane Doe")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRenderRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	require.Error(t, err)
}
