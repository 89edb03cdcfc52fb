package database

import (
	"github.com/itsivali/virtual-butler/models"
)

// Migrate runs AutoMigrate for every table the service owns. Index
// definitions live on the model structs.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(
		&models.GuestRequest{},
		&models.WorkOrder{},
		&models.Notification{},
		&models.AuditLogEntry{},
		&models.StaffUser{},
		&models.Guest{},
	)
}
