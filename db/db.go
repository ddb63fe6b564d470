package db

import (
	"fmt"
	"log"

	"github.com/techagentng/clubhub/config"
	"github.com/techagentng/clubhub/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	DB *gorm.DB
}

func GetDB(c *config.Config) *GormDB {
	gormDB := &GormDB{}
	gormDB.Init(c)
	return gormDB
}

// NewGormDB wraps an already opened connection and runs the migrations.
func NewGormDB(db *gorm.DB) (*GormDB, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &GormDB{DB: db}, nil
}

func (g *GormDB) Init(c *config.Config) {
	g.DB = getPostgresDB(c)

	if err := Migrate(g.DB); err != nil {
		log.Fatalf("unable to run migrations: %v", err)
	}
}

func getPostgresDB(c *config.Config) *gorm.DB {
	log.Printf("Connecting to postgres: host=%s db=%s user=%s", c.PostgresHost, c.PostgresDB, c.PostgresUser)
	postgresDSN := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresTimeZone)

	gormConfig := &gorm.Config{}
	if !c.IsProduction() {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN: postgresDSN,
	}), gormConfig)
	if err != nil {
		log.Fatal(err)
	}

	return gormDB
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Club{},
		&models.Category{},
		&models.Team{},
		&models.User{},
		&models.Message{},
		&models.ReadMarker{},
		&models.DeviceToken{},
	)
	if err != nil {
		return fmt.Errorf("migrations error: %v", err)
	}
	return nil
}
