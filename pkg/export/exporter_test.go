package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Family", "Students", "Tuition"},
		Rows: []map[string]string{
			{"Family": "Alvarez", "Students": "2", "Tuition": "6000.00"},
			{"Family": "Baker", "Students": "1", "Tuition": "4500.00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Contains(t, string(out), "Family,Students,Tuition")
	assert.Contains(t, string(out), "Alvarez,2,6000.00")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Tuition Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRenderContract(t *testing.T) {
	doc := ContractDocument{
		SchoolName: "Village Free School",
		YearName:   "2026-2027",
		FamilyName: "Alvarez",
		Students: []ContractStudentLine{
			{Name: "Maya Alvarez", Decision: "Full Time"},
			{Name: "Luca Alvarez", Decision: "Part Time"},
		},
		Tuition:    6000,
		Assistance: 500,
		Signatures: []ContractSignatureLine{
			{GuardianName: "Ana Alvarez", SignedAt: "2026-08-01"},
		},
		GeneratedAt: "2026-08-15",
	}
	out, err := NewPDFExporter().RenderContract(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRenderContractRequiresIdentity(t *testing.T) {
	_, err := NewPDFExporter().RenderContract(ContractDocument{})
	require.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Roster")
	require.NoError(t, err)
	// XLSX files are zip archives.
	assert.True(t, bytes.HasPrefix(out, []byte("PK")))
}

func TestXLSXExporterRequiresHeaders(t *testing.T) {
	_, err := NewXLSXExporter().Render(Dataset{}, "Roster")
	require.Error(t, err)
}
