package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Attended", "Rate"},
		Rows: []map[string]string{
			{"Student": "Amel B", "Attended": "9", "Rate": "0.75"},
			{"Student": "Karim Z", "Attended": "12", "Rate": "1"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Student,Attended,Rate\nAmel B,9,0.75\nKarim Z,12,1\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
