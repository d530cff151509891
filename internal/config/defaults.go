package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 16
	}
	if cfg.OCR.BaseURL == "" {
		cfg.OCR.BaseURL = "https://api.mistral.ai"
	}
	if cfg.OCR.Model == "" {
		cfg.OCR.Model = "mistral-ocr-latest"
	}
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = 120 * time.Second
	}
	if cfg.OCR.SignedURLExpiry == 0 {
		cfg.OCR.SignedURLExpiry = 60
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ocrdown/results.db"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "ocrdown:result:"
	}
	if cfg.Upload.ImageExtensions == nil {
		cfg.Upload.ImageExtensions = []string{"png", "jpg", "jpeg", "webp", "gif"}
	}
	if cfg.Upload.DocumentExtensions == nil {
		cfg.Upload.DocumentExtensions = []string{"pdf"}
	}
	if cfg.Inbox.OutputDir == "" {
		cfg.Inbox.OutputDir = "/usr/local/var/ocrdown/out"
	}
}
