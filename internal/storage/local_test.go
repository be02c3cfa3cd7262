package storage

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	if err := p.Put("config/a.yaml", bytes.NewReader([]byte("first"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := p.Put("config/b.yaml", bytes.NewReader([]byte("second"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := p.Put("csv/c.csv", bytes.NewReader([]byte("Port,Service,Description\n"))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	body, err := p.Get("config/a.yaml")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "first" {
		t.Errorf("Get() = %q, want %q", data, "first")
	}

	keys, err := p.List("config/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("List(config/) = %v, want 2 keys", keys)
	}

	if err := p.Delete("config/a.yaml"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := p.Get("config/a.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Get() after delete error = %v, want fs.ErrNotExist", err)
	}
}

func TestLocalProviderListEmptyRoot(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	keys, err := p.List("config/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() = %v, want empty", keys)
	}
}

func TestClientBackupNaming(t *testing.T) {
	c := NewWithProvider(NewLocalProvider(t.TempDir()))

	if err := c.SaveConfigBackup("20240101-120000.000000000-aabbccdd", []byte("doc")); err != nil {
		t.Fatalf("SaveConfigBackup() error = %v", err)
	}
	if err := c.SaveConfigBackup("20240102-120000.000000000-eeff0011", []byte("doc2")); err != nil {
		t.Fatalf("SaveConfigBackup() error = %v", err)
	}

	ids, err := c.ListConfigBackups()
	if err != nil {
		t.Fatalf("ListConfigBackups() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "20240102-120000.000000000-eeff0011" {
		t.Errorf("ListConfigBackups() = %v, want newest first", ids)
	}

	data, err := c.GetConfigBackup(ids[1])
	if err != nil {
		t.Fatalf("GetConfigBackup() error = %v", err)
	}
	if string(data) != "doc" {
		t.Errorf("GetConfigBackup() = %q, want %q", data, "doc")
	}
}
