// Package orders реализует оформление, просмотр и смену статуса заказов.
package orders

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/metrics"
	"github.com/vladislavdragonenkov/pharmacy/internal/prescription"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/events"
)

// PrescriptionFolder - каталог файлового хранилища для рецептов.
const PrescriptionFolder = "prescriptions"

// Dependencies - зависимости сервиса заказов. Files, Timeline, Recorder и
// Metrics необязательны.
type Dependencies struct {
	Orders    domain.OrderRepository
	Products  domain.ProductRepository
	Users     domain.UserRepository
	Inventory domain.InventoryService
	Files     domain.FileStore
	Timeline  domain.TimelineRepository
	Validator *prescription.Validator
	Recorder  *events.Recorder
	Metrics   *metrics.OrderMetrics
}

// Service - сервис заказов.
type Service struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	users     domain.UserRepository
	inventory domain.InventoryService
	files     domain.FileStore
	timeline  domain.TimelineRepository
	validator *prescription.Validator
	recorder  *events.Recorder
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис заказов.
func NewService(deps Dependencies, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	validator := deps.Validator
	if validator == nil {
		validator = prescription.NewValidator(nil, logger)
	}
	return &Service{
		orders:    deps.Orders,
		products:  deps.Products,
		users:     deps.Users,
		inventory: deps.Inventory,
		files:     deps.Files,
		timeline:  deps.Timeline,
		validator: validator,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		logger:    logger.WithField("component", "order-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}
