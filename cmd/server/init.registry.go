package main

import (
	"cdr_api/internal/api/cdr/store"
	"cdr_api/internal/global"

	"github.com/sirupsen/logrus"
)

// InitRegistry registers the store drivers selectable through STORE_DRIVER.
func InitRegistry() {
	drivers := map[string]store.Factory{
		"mongo":    store.OpenMongo,
		"postgres": store.OpenPostgres,
		"sqlite":   store.OpenSQLite,
	}
	for name, factory := range drivers {
		if _, err := global.StoreDrivers.Register(name, factory); err != nil {
			logrus.Fatalf("Failed to register store driver %s: %v", name, err)
		}
	}
	logrus.Infof("Registered store drivers: %v", global.StoreDrivers.Names())
}
