package models

import (
	"log"

	"bitbucket.org/mmdatafocus/budget_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Budget{},
		&GrowthEntry{},
		&CapacityEntry{}, &CapacityHire{},
		&CollectionEntry{}, &CollectionPattern{},
		&ResultEntry{},
		&PersonnelEntry{},
		&ExpenseEntry{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
