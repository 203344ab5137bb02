package config

type UploadConfig struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	MaxFiles         int
	PathPrefix       string
}

var UploadContexts = map[string]UploadConfig{
	"job_photo": {
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp", "image/heic"},
		MaxSizeMB:        10,
		MaxFiles:         10,
		PathPrefix:       "jobs",
	},
}
