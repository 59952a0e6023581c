package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories procurement repositories
type Repositories struct {
	MachinePurchase *MachinePurchaseRepository
	SparePart       *SparePartRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		MachinePurchase: NewMachinePurchaseRepository(db),
		SparePart:       NewSparePartRepository(db),
	}
}

// Models every table owned by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&entity.MachinePurchase{},
		&entity.SparePartGroup{},
		&entity.SparePartItem{},
	}
}

// AutoMigrate creates or updates the procurement tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// storeNow lets the database stamp last_updated.
var storeNow = clause.Expr{SQL: "CURRENT_TIMESTAMP"}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
