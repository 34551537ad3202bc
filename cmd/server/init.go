package main

import (
	"context"
	"time"

	"cdr_api/config"
	cdrsvc "cdr_api/internal/api/cdr/service"
	"cdr_api/internal/blob"
	"cdr_api/internal/cache"
	"cdr_api/internal/global"

	"github.com/sirupsen/logrus"
)

// InitGlobal loads configuration and opens the store and its collaborators.
func InitGlobal() {
	initValidator()
	initConfig()
	initStore()
	initService()
}

func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

func initConfig() {
	global.ServerConfig = config.NewConfig()
	if global.ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil")
	}
	logrus.Info("Initialized server config")
}

func initStore() {
	cfg := global.ServerConfig
	factory, err := global.StoreDrivers.MustGet(cfg.StoreDriver)
	if err != nil {
		logrus.Fatalf("Unknown store driver %q: %v", cfg.StoreDriver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	global.CdrStore, err = factory(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	logrus.Infof("Opened %s store", cfg.StoreDriver)
}

func initService() {
	cfg := global.ServerConfig
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svcCfg := cdrsvc.Config{}

	recordCache, err := cache.Open(ctx, cfg)
	if err != nil {
		logrus.Warnf("Redis cache disabled: %v", err)
	} else if recordCache != nil {
		svcCfg.Cache = recordCache
		logrus.Info("Redis cache enabled")
	}

	archive, err := blob.Open(ctx, cfg)
	if err != nil {
		logrus.Warnf("Upload archive disabled: %v", err)
	} else if archive != nil {
		svcCfg.Archive = archive
		logrus.Infof("Archiving uploads to s3://%s/%s", cfg.S3_Bucket, cfg.S3_Prefix)
	}

	global.CdrService = cdrsvc.NewCdrService(global.CdrStore, svcCfg)
	logrus.Info("Initialized CDR service")
}
