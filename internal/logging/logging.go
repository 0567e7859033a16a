package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New builds a sugared zap logger. mode "prod"/"production" selects the JSON
// production config; anything else gets the development console config.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
