package e2etest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cryptoview/pricewatch/config"
)

// createTestConfig writes a test configuration and returns the path to the file
func createTestConfig(mockURL, port string) (string, error) {
	tempDir, err := os.MkdirTemp("", "pricewatch-test")
	if err != nil {
		return "", err
	}

	configContent := `
coingecko:
  override_public_url: "%s"  # mock upstream
  key_file: "%s"
  request_timeout: 2s
  lock_duration: 60s
  call_window: 60s

storage:
  driver: badger
  path: "%s"

search:
  min_interval: 100ms        # short spacing for tests

server:
  port: "%s"

logging:
  level: debug

default_settings:
  selected_coins: [BTC, ETH]
  refresh_interval: 3600     # one watch-list fetch at start
  currency: USD

coin_ids:
  BTC: bitcoin
  ETH: ethereum
`

	// demo key file
	keyFilePath := filepath.Join(tempDir, "api_key.json")
	if err := os.WriteFile(keyFilePath, []byte(`{"api_key": "test-demo-key", "key_type": "demo"}`), 0644); err != nil {
		os.RemoveAll(tempDir)
		return "", err
	}

	configContent = fmt.Sprintf(configContent, mockURL, keyFilePath, filepath.Join(tempDir, "data"), port)

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		os.RemoveAll(tempDir)
		return "", err
	}

	return configPath, nil
}

// loadTestConfig creates and loads test configuration
func loadTestConfig(mockURL, port string) (*config.Config, string, error) {
	configPath, err := createTestConfig(mockURL, port)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		os.RemoveAll(filepath.Dir(configPath))
		return nil, "", err
	}

	return cfg, configPath, nil
}

// cleanupTestConfig removes the temporary directory with configuration
func cleanupTestConfig(configPath string) {
	os.RemoveAll(filepath.Dir(configPath))
}
