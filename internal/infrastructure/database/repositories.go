package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/repository"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/repository/memory"
	domainRepo "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Payment         domainRepo.PaymentRepository
	Order           domainRepo.OrderRepository
	GatewayEvent    domainRepo.GatewayEventRepository
	CustomerMapping domainRepo.CustomerMappingRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Payment:         repository.NewPaymentRepository(db, logger),
		Order:           repository.NewOrderRepository(db, logger),
		GatewayEvent:    repository.NewGatewayEventRepository(db, logger),
		CustomerMapping: repository.NewCustomerMappingRepository(db, logger),
	}
}

// NewMemoryRepositories backs every repository with one in-process store.
// Orders must be seeded through the returned store.
func NewMemoryRepositories() (*Repositories, *memory.Store) {
	store := memory.NewStore()
	return &Repositories{
		Payment:         store.Payments(),
		Order:           store.Orders(),
		GatewayEvent:    store.GatewayEvents(),
		CustomerMapping: store.CustomerMappings(),
	}, store
}
