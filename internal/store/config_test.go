package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchdeck/internal/models"
	"launchdeck/internal/storage"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	dir := t.TempDir()
	backups := storage.NewWithProvider(storage.NewLocalProvider(filepath.Join(dir, "backups")))
	s, err := OpenConfigStore(filepath.Join(dir, "config.yaml"), backups)
	require.NoError(t, err)
	return s
}

func sampleDocument() *models.ConfigDocument {
	return &models.ConfigDocument{
		Settings: models.Settings{Title: "Home", GridColumns: 4},
		Categories: []models.Category{
			{Name: "Dev", Icon: "code", Order: 1},
			{Name: "Ops", Icon: "server", Order: 2},
		},
		Services: []models.Service{
			{Category: "Dev", Name: "gitea", URL: "http://git.local", Port: 3000, Local: true},
			{Category: "Ops", Name: "portainer", URL: "http://docker.local", Port: 9000, Local: true},
			{Category: "Ops", Name: "grafana", URL: "http://grafana.local", Port: 3001},
		},
	}
}

func TestOpenCreatesDefaultDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	s, err := OpenConfigStore(path, nil)
	require.NoError(t, err)

	doc := s.Get()
	assert.Equal(t, "Dashboard", doc.Settings.Title)
	assert.Empty(t, doc.Categories)

	// The defaulted document is persisted so operators can hand-edit it.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings:\n  bogus_key: 1\n"), 0o644))

	_, err := OpenConfigStore(path, nil)
	assert.Error(t, err)
}

func TestReplaceRoundTrip(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Replace(sampleDocument()))

	// replace(read()) is a no-op.
	before := s.Get()
	require.NoError(t, s.Replace(before))
	assert.Equal(t, before, s.Get())
}

func TestReplaceDuplicateServiceRejected(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Replace(sampleDocument()))
	original := s.Get()

	bad := sampleDocument()
	bad.Services = append(bad.Services, models.Service{Category: "Dev", Name: "gitea"})

	err := s.Replace(bad)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, original, s.Get(), "document must be unchanged after a rejected write")
}

func TestReplaceDuplicateCategoryRejected(t *testing.T) {
	s := newTestConfigStore(t)

	bad := sampleDocument()
	bad.Categories = append(bad.Categories, models.Category{Name: "Dev"})

	assert.ErrorIs(t, s.Replace(bad), ErrValidation)
}

func TestSameServiceNameInDifferentCategoriesAllowed(t *testing.T) {
	s := newTestConfigStore(t)

	doc := sampleDocument()
	doc.Services = append(doc.Services, models.Service{Category: "Ops", Name: "gitea"})

	assert.NoError(t, s.Replace(doc))
}

func TestReplaceServicesKeepsRestOfDocument(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Replace(sampleDocument()))

	require.NoError(t, s.ReplaceServices([]models.Service{
		{Category: "Dev", Name: "drone", Port: 8000},
	}))

	doc := s.Get()
	assert.Len(t, doc.Services, 1)
	assert.Len(t, doc.Categories, 2)
	assert.Equal(t, "Home", doc.Settings.Title)
}

func TestProjectCSV(t *testing.T) {
	s := newTestConfigStore(t)

	doc := sampleDocument()
	doc.Services = []models.Service{
		{Category: "Ops", Name: "bbb", Port: 9000, Local: true, Description: "second"},
		{Category: "Dev", Name: "aaa", Port: 9000, Local: true, Description: "first"},
		{Category: "Dev", Name: "low", Port: 80, Local: true},
		{Category: "Dev", Name: "hidden", Port: 1, Local: false},
	}
	require.NoError(t, s.Replace(doc))

	lines := strings.Split(strings.TrimSpace(s.ProjectCSV()), "\n")
	require.Len(t, lines, 4, "header plus three local services")

	// Exact header text is a compatibility contract.
	assert.Equal(t, "Port,Service,Description", lines[0])
	// Port ascending, ties broken by name.
	assert.Equal(t, "80,low,", lines[1])
	assert.Equal(t, "9000,aaa,first", lines[2])
	assert.Equal(t, "9000,bbb,second", lines[3])
}

func TestWriteCSV(t *testing.T) {
	s := newTestConfigStore(t)
	dir := t.TempDir()

	doc := sampleDocument()
	doc.Settings.CSVPath = filepath.Join(dir, "ports.csv")
	doc.Settings.CSVBackupDir = filepath.Join(dir, "csv-backups")
	require.NoError(t, s.Replace(doc))

	require.NoError(t, s.WriteCSV())

	content, err := os.ReadFile(doc.Settings.CSVPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Port,Service,Description"))

	copies, err := os.ReadDir(doc.Settings.CSVBackupDir)
	require.NoError(t, err)
	assert.Len(t, copies, 1)
}

func TestWriteCSVWithoutPathFails(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Replace(sampleDocument()))

	assert.ErrorIs(t, s.WriteCSV(), ErrValidation)
}

func TestBackupAndRestore(t *testing.T) {
	s := newTestConfigStore(t)

	first := sampleDocument()
	require.NoError(t, s.Replace(first))

	second := sampleDocument()
	second.Settings.Title = "Changed"
	require.NoError(t, s.Replace(second))

	ids, err := s.ListBackups()
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	// The newest backup holds the document as it was before the second
	// replace.
	require.NoError(t, s.Restore(ids[0]))
	assert.Equal(t, "Home", s.Get().Settings.Title)
}

func TestRestoreUnknownBackup(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Replace(sampleDocument()))
	before := s.Get()

	err := s.Restore("20990101-000000-deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, s.Get())
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Replace(sampleDocument()))

	doc := s.Get()
	doc.Services[0].Name = "tampered"
	doc.Settings.Title = "tampered"

	fresh := s.Get()
	assert.Equal(t, "gitea", fresh.Services[0].Name)
	assert.Equal(t, "Home", fresh.Settings.Title)
}
