package storage

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"launchdeck/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

const (
	configBackupPrefix = "config/"
	csvBackupPrefix    = "csv/"
)

// Client namespaces backup artifacts on top of a Provider: config-document
// backups under config/, CSV export copies under csv/.
type Client struct {
	backend Provider
}

func New(cfg *config.Config) *Client {
	var backend Provider

	if cfg.Storage.Provider == "s3" {
		s3Config := &aws.Config{
			Credentials:      credentials.NewStaticCredentials(cfg.Storage.KeyID, cfg.Storage.AppKey, ""),
			Endpoint:         aws.String(cfg.Storage.Endpoint),
			Region:           aws.String(cfg.Storage.Region),
			S3ForcePathStyle: aws.Bool(true),
		}
		sess := session.Must(session.NewSession(s3Config))
		backend = NewS3Provider(sess, cfg.Storage.Bucket)
	} else {
		backend = NewLocalProvider(cfg.Files.BackupDir)
	}

	return &Client{backend: backend}
}

// NewWithProvider wires an explicit backend; used by tests.
func NewWithProvider(p Provider) *Client {
	return &Client{backend: p}
}

func (c *Client) SaveConfigBackup(id string, data []byte) error {
	return c.backend.Put(configBackupPrefix+id+".yaml", bytes.NewReader(data))
}

func (c *Client) GetConfigBackup(id string) ([]byte, error) {
	body, err := c.backend.Get(configBackupPrefix + id + ".yaml")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// ListConfigBackups returns backup ids, newest first. Ids are timestamped
// so the lexical order is the chronological order.
func (c *Client) ListConfigBackups() ([]string, error) {
	keys, err := c.backend.List(configBackupPrefix)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, key := range keys {
		id := strings.TrimPrefix(key, configBackupPrefix)
		id = strings.TrimSuffix(id, ".yaml")
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (c *Client) SaveCSVCopy(name string, data []byte) error {
	return c.backend.Put(csvBackupPrefix+name, bytes.NewReader(data))
}
