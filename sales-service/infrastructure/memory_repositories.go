package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

var (
	_ domain.BuyerRepository   = (*MemoryBuyerRepository)(nil)
	_ domain.VehicleRepository = (*MemoryVehicleRepository)(nil)
	_ domain.SaleRepository    = (*MemorySaleRepository)(nil)
	_ domain.SagaRepository    = (*MemorySagaRepository)(nil)
)

// MemoryBuyerRepository keeps buyers in process memory
type MemoryBuyerRepository struct {
	mu     sync.RWMutex
	buyers map[models.ID]domain.Buyer
}

func NewMemoryBuyerRepository(buyers ...domain.Buyer) *MemoryBuyerRepository {
	r := &MemoryBuyerRepository{buyers: make(map[models.ID]domain.Buyer)}
	for _, b := range buyers {
		r.buyers[b.ID] = b
	}
	return r
}

func (r *MemoryBuyerRepository) Save(_ context.Context, buyer *domain.Buyer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *buyer
	stored.Documents = append([]domain.Document(nil), buyer.Documents...)
	r.buyers[buyer.ID] = stored
	return nil
}

func (r *MemoryBuyerRepository) FindByID(_ context.Context, id models.ID) (*domain.Buyer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	buyer, ok := r.buyers[id]
	if !ok {
		return nil, nil
	}
	buyer.Documents = append([]domain.Document(nil), buyer.Documents...)
	return &buyer, nil
}

// MemoryVehicleRepository keeps vehicles in process memory. Update is a
// compare-and-set under the repository mutex.
type MemoryVehicleRepository struct {
	mu       sync.Mutex
	vehicles map[models.ID]domain.Vehicle
}

func NewMemoryVehicleRepository(vehicles ...domain.Vehicle) *MemoryVehicleRepository {
	r := &MemoryVehicleRepository{vehicles: make(map[models.ID]domain.Vehicle)}
	for _, v := range vehicles {
		r.vehicles[v.ID] = v
	}
	return r
}

func (r *MemoryVehicleRepository) Save(_ context.Context, vehicle *domain.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (r *MemoryVehicleRepository) FindByID(_ context.Context, id models.ID) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vehicle, ok := r.vehicles[id]
	if !ok {
		return nil, nil
	}
	return &vehicle, nil
}

func (r *MemoryVehicleRepository) Update(_ context.Context, vehicle *domain.Vehicle, expected domain.VehicleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.vehicles[vehicle.ID]
	if !ok || current.Status != expected {
		return domain.ErrReservationConflict
	}
	r.vehicles[vehicle.ID] = *vehicle
	return nil
}

// MemorySaleRepository keeps sales in process memory
type MemorySaleRepository struct {
	mu            sync.RWMutex
	sales         map[models.ID]*domain.Sale
	byTransaction map[string]models.ID
}

func NewMemorySaleRepository() *MemorySaleRepository {
	return &MemorySaleRepository{
		sales:         make(map[models.ID]*domain.Sale),
		byTransaction: make(map[string]models.ID),
	}
}

func (r *MemorySaleRepository) Save(_ context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sales[sale.ID]; exists {
		return errors.Errorf("sale %s already exists", sale.ID)
	}
	r.store(sale)
	return nil
}

func (r *MemorySaleRepository) Update(_ context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sales[sale.ID]; !exists {
		return domain.ErrSaleNotFound
	}
	r.store(sale)
	return nil
}

func (r *MemorySaleRepository) store(sale *domain.Sale) {
	r.sales[sale.ID] = sale.Clone()
	if sale.Payment.TransactionID != "" {
		r.byTransaction[sale.Payment.TransactionID] = sale.ID
	}
}

func (r *MemorySaleRepository) FindByID(_ context.Context, id models.ID) (*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sales[id].Clone(), nil
}

func (r *MemorySaleRepository) FindByTransactionID(_ context.Context, transactionID string) (*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTransaction[transactionID]
	if !ok {
		return nil, nil
	}
	return r.sales[id].Clone(), nil
}

// MemorySagaRepository keeps saga snapshots and their audit log in process memory
type MemorySagaRepository struct {
	mu     sync.RWMutex
	sagas  map[models.ID]domain.SagaInstance
	events map[models.ID][]domain.SagaEvent
}

func NewMemorySagaRepository() *MemorySagaRepository {
	return &MemorySagaRepository{
		sagas:  make(map[models.ID]domain.SagaInstance),
		events: make(map[models.ID][]domain.SagaEvent),
	}
}

func (r *MemorySagaRepository) Save(_ context.Context, s *domain.SagaInstance) error {
	if err := s.Validate(); err != nil {
		return errors.Wrap(err, "invalid saga")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sagas[s.ID] = s.Clone()
	return nil
}

func (r *MemorySagaRepository) FindByID(_ context.Context, id models.ID) (*domain.SagaInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sagas[id]
	if !ok {
		return nil, nil
	}
	found := s.Clone()
	return &found, nil
}

func (r *MemorySagaRepository) FindBySaleID(_ context.Context, saleID models.ID) (*domain.SagaInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sagas {
		if s.SaleID == saleID {
			found := s.Clone()
			return &found, nil
		}
	}
	return nil, nil
}

func (r *MemorySagaRepository) FindActive(_ context.Context) ([]*domain.SagaInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.SagaInstance, 0)
	for _, s := range r.sagas {
		for _, status := range saga.ActiveStatuses() {
			if s.Status == status {
				found := s.Clone()
				active = append(active, &found)
				break
			}
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Timestamps.CreatedAt.Before(active[j].Timestamps.CreatedAt)
	})
	return active, nil
}

func (r *MemorySagaRepository) AddEvent(_ context.Context, event domain.SagaEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.SagaID] = append(r.events[event.SagaID], event)
	return nil
}

// Events returns the audit log of a saga
func (r *MemorySagaRepository) Events(sagaID models.ID) []domain.SagaEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.SagaEvent(nil), r.events[sagaID]...)
}
