package domain

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/shared/models"
)

// VehicleStatus represents the availability of a vehicle
type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "available"
	VehicleStatusReserved  VehicleStatus = "reserved"
	VehicleStatusSold      VehicleStatus = "sold"
)

var allVehicleStatuses = map[string]VehicleStatus{
	VehicleStatusAvailable.String(): VehicleStatusAvailable,
	VehicleStatusReserved.String():  VehicleStatusReserved,
	VehicleStatusSold.String():      VehicleStatusSold,
}

func NewVehicleStatus(value string) (VehicleStatus, error) {
	if status, ok := allVehicleStatuses[strings.ToLower(value)]; ok {
		return status, nil
	}
	return "", errors.Errorf("unknown vehicle status: %s", value)
}

func (s VehicleStatus) String() string {
	return string(s)
}

// Vehicle is the item being sold
type Vehicle struct {
	ID         models.ID         `json:"id"`
	Brand      string            `json:"brand"`
	Model      string            `json:"model"`
	Year       int               `json:"year"`
	Color      string            `json:"color"`
	Price      models.Money      `json:"price"`
	Status     VehicleStatus     `json:"status"`
	Timestamps models.Timestamps `json:"timestamps"`
}

func (v Vehicle) IsAvailable() bool {
	return v.Status == VehicleStatusAvailable
}

// WithStatus returns a copy of the vehicle moved to status
func (v Vehicle) WithStatus(status VehicleStatus, now time.Time) Vehicle {
	v.Status = status
	v.Timestamps = v.Timestamps.Touch(now)
	return v
}

// VehicleRepository interface
type VehicleRepository interface {
	FindByID(ctx context.Context, id models.ID) (*Vehicle, error)
	// Update stores vehicle only if the stored status is still expected,
	// otherwise it returns ErrReservationConflict
	Update(ctx context.Context, vehicle *Vehicle, expected VehicleStatus) error
}
