package global

import (
	"cdr_api/config"
	cdrsvc "cdr_api/internal/api/cdr/service"
	"cdr_api/internal/api/cdr/store"
	"cdr_api/internal/registry"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate       // request validator with the custom rules registered
var ServerConfig *config.Configuration // loaded configuration
var CdrStore store.Store               // store selected by STORE_DRIVER
var CdrService *cdrsvc.CdrService      // record service over CdrStore

// StoreDrivers maps STORE_DRIVER names to store factories.
var StoreDrivers = registry.NewRegistry[store.Factory]()
