package models

// Settings is the singleton block of the dashboard document. A missing or
// partial settings block is filled with defaults when the document loads.
type Settings struct {
	Hostname        string `yaml:"hostname" json:"hostname"`
	Title           string `yaml:"title" json:"title"`
	Subtitle        string `yaml:"subtitle" json:"subtitle"`
	RefreshInterval int    `yaml:"refresh_interval" json:"refresh_interval"` // seconds, 0 = off
	GridColumns     int    `yaml:"grid_columns" json:"grid_columns"`
	CSVPath         string `yaml:"csv_path" json:"csv_path"`
	CSVBackupDir    string `yaml:"csv_backup_dir" json:"csv_backup_dir"`
}

// Category groups services and is the unit of role-based visibility.
type Category struct {
	Name        string `yaml:"name" json:"name"`
	Icon        string `yaml:"icon" json:"icon"`
	Description string `yaml:"description" json:"description"`
	Order       int    `yaml:"order" json:"order"`
}

// Service is a single tile on the dashboard. Category is a reference by
// name; a dangling reference leaves the service visible to admins only.
type Service struct {
	Category    string `yaml:"category" json:"category"`
	Name        string `yaml:"name" json:"name"`
	Icon        string `yaml:"icon" json:"icon"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description" json:"description"`
	Port        int    `yaml:"port" json:"port"`
	Local       bool   `yaml:"local" json:"local"` // eligible for the port CSV export
	Status      string `yaml:"status" json:"status"`
	Order       int    `yaml:"order" json:"order"`
}

// ConfigDocument is the full dashboard document as persisted in config.yaml.
// The file is meant to stay hand-editable, so field names match the YAML
// keys operators see.
type ConfigDocument struct {
	Settings   Settings   `yaml:"settings" json:"settings"`
	Categories []Category `yaml:"categories" json:"categories"`
	Services   []Service  `yaml:"services" json:"services"`
}

// Clone returns a deep copy so callers can never mutate store state through
// a returned document.
func (d *ConfigDocument) Clone() *ConfigDocument {
	out := &ConfigDocument{Settings: d.Settings}
	out.Categories = append([]Category(nil), d.Categories...)
	out.Services = append([]Service(nil), d.Services...)
	return out
}
