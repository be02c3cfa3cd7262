package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"launchdeck/internal/models"
	"launchdeck/internal/storage"
)

// ConfigStore owns the dashboard document (settings + categories +
// services). The document lives in a single hand-editable YAML file; writes
// serialize behind one mutex and follow validate -> backup -> persist, so a
// failed write never leaves partial state behind.
type ConfigStore struct {
	path    string
	backups *storage.Client // nil disables backups

	mu  sync.RWMutex
	doc *models.ConfigDocument
}

// OpenConfigStore loads the document from path, creating a defaulted one
// when the file does not exist yet.
func OpenConfigStore(path string, backups *storage.Client) (*ConfigStore, error) {
	s := &ConfigStore{path: path, backups: backups}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.doc = &models.ConfigDocument{}
		applySettingsDefaults(&s.doc.Settings)
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		slog.Info("created default dashboard document", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	doc, err := decodeConfigDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applySettingsDefaults(&doc.Settings)
	s.doc = doc
	return s, nil
}

// Get returns the full current document. Always the whole document; there
// are no partial reads.
func (s *ConfigStore) Get() *models.ConfigDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Replace validates and atomically persists a whole new document. The prior
// document stays authoritative on any failure.
func (s *ConfigStore) Replace(doc *models.ConfigDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(doc)
}

// ReplaceServices swaps only the service list, keeping settings and
// categories as they are.
func (s *ConfigStore) ReplaceServices(services []models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	next.Services = append([]models.Service(nil), services...)
	return s.replaceLocked(next)
}

// ReplaceSettings swaps only the settings block.
func (s *ConfigStore) ReplaceSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	next.Settings = settings
	return s.replaceLocked(next)
}

func (s *ConfigStore) replaceLocked(doc *models.ConfigDocument) error {
	next := doc.Clone()
	applySettingsDefaults(&next.Settings)

	if err := validateConfigDocument(next); err != nil {
		return err
	}
	if err := s.backupLocked(); err != nil {
		return err
	}

	prev := s.doc
	s.doc = next
	if err := s.persistLocked(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// ProjectCSV renders the port-proxy export: one row per local service,
// ports ascending, ties broken by service name. The header text and column
// order are a compatibility contract with the external consumer, which
// matches columns by position.
func (s *ConfigStore) ProjectCSV() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var local []models.Service
	for _, svc := range s.doc.Services {
		if svc.Local {
			local = append(local, svc)
		}
	}
	sort.Slice(local, func(i, j int) bool {
		if local[i].Port != local[j].Port {
			return local[i].Port < local[j].Port
		}
		return local[i].Name < local[j].Name
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Port", "Service", "Description"})
	for _, svc := range local {
		w.Write([]string{strconv.Itoa(svc.Port), svc.Name, svc.Description})
	}
	w.Flush()
	return buf.String()
}

// WriteCSV writes the projection to the export path from settings and drops
// a timestamped copy in the backup store and, when configured, the CSV
// backup directory. The export path is where the port-proxy script reads.
func (s *ConfigStore) WriteCSV() error {
	content := []byte(s.ProjectCSV())

	s.mu.RLock()
	settings := s.doc.Settings
	s.mu.RUnlock()

	if settings.CSVPath == "" {
		return fmt.Errorf("%w: csv_path is not configured in settings", ErrValidation)
	}
	if err := writeFileAtomic(settings.CSVPath, content, 0o644); err != nil {
		return err
	}

	stamp := time.Now().Format("20060102-150405")
	if s.backups != nil {
		if err := s.backups.SaveCSVCopy("port-mappings-"+stamp+".csv", content); err != nil {
			return err
		}
	}
	if settings.CSVBackupDir != "" {
		if err := os.MkdirAll(settings.CSVBackupDir, 0o755); err != nil {
			return err
		}
		name := filepath.Join(settings.CSVBackupDir, "port-mappings-"+stamp+".csv")
		if err := os.WriteFile(name, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ListBackups returns the known backup ids, newest first.
func (s *ConfigStore) ListBackups() ([]string, error) {
	if s.backups == nil {
		return nil, nil
	}
	return s.backups.ListConfigBackups()
}

// Restore reinstates a saved backup as the current document. The incoming
// document is validated like any other replace, and the outgoing one is
// backed up first.
func (s *ConfigStore) Restore(id string) error {
	if s.backups == nil {
		return ErrNotFound
	}

	data, err := s.backups.GetConfigBackup(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}

	doc, err := decodeConfigDocument(data)
	if err != nil {
		return fmt.Errorf("%w: backup %s: %v", ErrValidation, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(doc)
}

func (s *ConfigStore) backupLocked() error {
	if s.backups == nil {
		return nil
	}

	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return err
	}
	// Nanosecond stamp keeps the lexical order chronological even for
	// back-to-back writes.
	id := time.Now().Format("20060102-150405.000000000") + "-" + uuid.NewString()[:8]
	return s.backups.SaveConfigBackup(id, data)
}

func (s *ConfigStore) persistLocked() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o644)
}

func decodeConfigDocument(data []byte) (*models.ConfigDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	doc := &models.ConfigDocument{}
	if err := dec.Decode(doc); err != nil && err != io.EOF {
		return nil, err
	}
	return doc, nil
}

func validateConfigDocument(doc *models.ConfigDocument) error {
	seenCategories := make(map[string]bool, len(doc.Categories))
	for _, c := range doc.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: category with empty name", ErrValidation)
		}
		if seenCategories[c.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrValidation, c.Name)
		}
		seenCategories[c.Name] = true
	}

	seenServices := make(map[string]bool, len(doc.Services))
	for _, svc := range doc.Services {
		if svc.Name == "" {
			return fmt.Errorf("%w: service with empty name", ErrValidation)
		}
		key := svc.Category + "\x00" + svc.Name
		if seenServices[key] {
			return fmt.Errorf("%w: duplicate service %q in category %q", ErrValidation, svc.Name, svc.Category)
		}
		seenServices[key] = true
		if svc.Port < 0 || svc.Port > 65535 {
			return fmt.Errorf("%w: service %q: port %d out of range", ErrValidation, svc.Name, svc.Port)
		}
	}

	if doc.Settings.RefreshInterval < 0 {
		return fmt.Errorf("%w: refresh_interval must not be negative", ErrValidation)
	}
	if doc.Settings.GridColumns < 0 {
		return fmt.Errorf("%w: grid_columns must not be negative", ErrValidation)
	}
	return nil
}

func applySettingsDefaults(s *models.Settings) {
	if s.Title == "" {
		s.Title = "Dashboard"
	}
	if s.GridColumns == 0 {
		s.GridColumns = 3
	}
}

// writeFileAtomic writes via a temp file in the target directory and
// renames it into place, so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
