package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// FirebaseConfig is the Firebase web config of the realtime backend.
// CredentialsFile is a service account key for the Firestore client; empty
// means application default credentials.
type FirebaseConfig struct {
	APIKey            string `yaml:"apiKey"`
	AuthDomain        string `yaml:"authDomain"`
	ProjectID         string `yaml:"projectId"`
	StorageBucket     string `yaml:"storageBucket"`
	MessagingSenderID string `yaml:"messagingSenderId"`
	AppID             string `yaml:"appId"`
	CredentialsFile   string `yaml:"credentialsFile"`
	EmulatorHost      string `yaml:"emulatorHost"`
}

// LoadSyncConfig reads a YAML or JSON SyncConfig file.
func LoadSyncConfig(path string) (domain.SyncConfig, error) {
	var cfg domain.SyncConfig
	if err := loadFile(path, &cfg); err != nil {
		return domain.SyncConfig{}, fmt.Errorf("failed to load sync config: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return domain.SyncConfig{}, err
	}
	return cfg, nil
}

// LoadFirebaseConfig reads a YAML or JSON Firebase web config file.
func LoadFirebaseConfig(path string) (FirebaseConfig, error) {
	var cfg FirebaseConfig
	if err := loadFile(path, &cfg); err != nil {
		return FirebaseConfig{}, fmt.Errorf("failed to load firebase config: %w", err)
	}
	if cfg.ProjectID == "" {
		return FirebaseConfig{}, fmt.Errorf("firebase config %s: projectId is required", path)
	}
	return cfg, nil
}

// loadFile decodes path into out. ${VAR} references are replaced by the
// environment so tokens can stay out of the file.
func loadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = expandVariables(data)
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandVariables replaces ${NAME} with the value of NAME, empty when unset.
func expandVariables(data []byte) []byte {
	return variablePattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := variablePattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
