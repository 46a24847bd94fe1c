package domain

import "time"

// DriverStatus represents a driver's availability for new offers.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

// VehicleClass represents the class of vehicle a driver offers.
type VehicleClass string

const (
	VehicleClassBike VehicleClass = "bike"
	VehicleClassAuto VehicleClass = "auto"
	VehicleClassCar  VehicleClass = "car"
)

// VehicleClasses lists every known class, useful for iteration and validation.
var VehicleClasses = []VehicleClass{VehicleClassBike, VehicleClassAuto, VehicleClassCar}

// Valid reports whether the class is one of the known vehicle classes.
func (v VehicleClass) Valid() bool {
	for _, c := range VehicleClasses {
		if v == c {
			return true
		}
	}
	return false
}

// Driver represents a driver in the system.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	VehicleClass VehicleClass
	Status       DriverStatus
	CreatedAt    time.Time
}
