package services

import (
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/golmok/internal/models"
)

var testZone = time.FixedZone("KST", 9*3600)

// newTestDB opens an isolated in-memory database per test. The pool
// is capped at one connection so concurrent test goroutines serialize
// at the pool instead of tripping sqlite busy errors; the conditional
// updates under test stay atomic either way.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared&_busy_timeout=5000"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	migrations := []interface{}{
		&models.Survey{},
		&models.Coupon{},
		&models.Store{},
		&models.Settlement{},
		&models.RaffleEntry{},
		&models.DrawResult{},
		&models.Setting{},
	}
	for _, migration := range migrations {
		if err := db.AutoMigrate(migration); err != nil {
			t.Fatalf("migrate %T: %v", migration, err)
		}
	}

	return db
}

func createSurvey(t *testing.T, db *gorm.DB, deviceID string, stage int) *models.Survey {
	t.Helper()

	survey := models.Survey{
		DeviceID:       deviceID,
		Region:         "중앙시장",
		AgeGroup:       "30s",
		Gender:         "F",
		StageCompleted: stage,
	}
	if err := db.Create(&survey).Error; err != nil {
		t.Fatalf("create survey: %v", err)
	}
	return &survey
}

func createStore(t *testing.T, db *gorm.DB, code string, active bool) *models.Store {
	t.Helper()

	store := models.Store{
		Code:     code,
		Name:     "가게 " + code,
		IsActive: active,
	}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return &store
}

func serviceCode(t *testing.T, err error) ErrorCode {
	t.Helper()

	svcErr, ok := err.(*ServiceError)
	if !ok {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	return svcErr.Code
}
