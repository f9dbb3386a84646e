package models

import (
	"log"

	"github.com/payplanner/payplanner_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := Migrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Act{},
		&Client{}, &ClientCase{}, &ClientCompany{}, &Company{}, &Contract{}, &ContractClient{},
		&DealType{}, &Document{},
		&IncomeType{}, &Invoice{},
		&Payment{}, &PaymentEvent{}, &PaymentSource{}, &PaymentStatusEntity{},
		&Role{}, &RolePermission{},
		&User{}, &UserActivityLog{},
	)
}
