package main

import (
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
