package model

import (
	"database/sql/driver"
	"time"
)

const TablePaymentConnection = "payment_connections"

// CREATE TYPE payment_method AS ENUM ('STRIPE', 'TREASURY');
type PaymentMethod string

const (
	PaymentMethodStripe   PaymentMethod = "STRIPE"
	PaymentMethodTreasury PaymentMethod = "TREASURY"
)

func (self *PaymentMethod) Scan(value interface{}) error {
	*self = PaymentMethod(scanString(value))
	return nil
}

func (self PaymentMethod) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE connection_status AS ENUM ('CONNECTED', 'REVOKED');
type ConnectionStatus string

const (
	ConnectionStatusConnected ConnectionStatus = "CONNECTED"
	ConnectionStatusRevoked   ConnectionStatus = "REVOKED"
)

func (self *ConnectionStatus) Scan(value interface{}) error {
	*self = ConnectionStatus(scanString(value))
	return nil
}

func (self ConnectionStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// Where a user receives money. Settlement of a deal needs the counterpart to
// have a CONNECTED row for the funding method.
type PaymentConnection struct {
	ID     int64  `gorm:"primaryKey"`
	UserID string `gorm:"not null; index:idx_payment_connections_user_method"`

	Method      PaymentMethod    `gorm:"not null; type:payment_method; index:idx_payment_connections_user_method"`
	Destination string           `gorm:"not null; comment:Account or address at the payment backend"`
	Status      ConnectionStatus `gorm:"not null; type:connection_status"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PaymentConnection) TableName() string {
	return TablePaymentConnection
}
