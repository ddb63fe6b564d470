// Package dbtest opens throwaway SQLite databases seeded with a small club
// for repository, service and handler tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// Open returns a migrated, empty in-memory database private to t.
func Open(t testing.TB) *db.GormDB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	g, err := db.NewGormDB(gdb)
	require.NoError(t, err)
	return g
}

// Club is the seeded fixture:
//
//	U13 (category)  team U13-A: Sam, Sara      coach Carla (category U13)
//	U15 (category)  team U15-A: Paul           coach Cedric (team U15-A)
//	                no team:    Pia
//	Ada (admin), Alan (admin)
//
// plus an unrelated club with its own admin and category.
type Club struct {
	Club          models.Club
	U13, U15      models.Category
	U13A, U15A    models.Team
	Ada, Alan     *models.User
	Carla, Cedric *models.User
	Sam, Sara     *models.User
	Paul, Pia     *models.User
	OtherClub     models.Club
	OtherCategory models.Category
	OtherAdmin    *models.User
}

func Seed(t testing.TB, g *db.GormDB) *Club {
	t.Helper()
	tx := g.DB
	f := &Club{}

	f.Club = models.Club{Name: "AS Clubhub"}
	require.NoError(t, tx.Create(&f.Club).Error)
	f.OtherClub = models.Club{Name: "FC Elsewhere"}
	require.NoError(t, tx.Create(&f.OtherClub).Error)

	f.U13 = models.Category{ClubID: f.Club.ID, Name: "U13"}
	f.U15 = models.Category{ClubID: f.Club.ID, Name: "U15"}
	f.OtherCategory = models.Category{ClubID: f.OtherClub.ID, Name: "Seniors"}
	require.NoError(t, tx.Create(&f.U13).Error)
	require.NoError(t, tx.Create(&f.U15).Error)
	require.NoError(t, tx.Create(&f.OtherCategory).Error)

	f.U13A = models.Team{ClubID: f.Club.ID, CategoryID: f.U13.ID, Name: "U13-A"}
	f.U15A = models.Team{ClubID: f.Club.ID, CategoryID: f.U15.ID, Name: "U15-A"}
	require.NoError(t, tx.Omit("Category").Create(&f.U13A).Error)
	require.NoError(t, tx.Omit("Category").Create(&f.U15A).Error)

	user := func(name string, role models.Role, clubID uint, category, team *uint) *models.User {
		u := &models.User{
			ClubID:     clubID,
			Fullname:   name,
			Email:      strings.ToLower(name) + "@clubhub.test",
			Role:       role,
			CategoryID: category,
			TeamID:     team,
		}
		require.NoError(t, tx.Create(u).Error)
		return u
	}
	f.Ada = user("Ada", models.RoleAdmin, f.Club.ID, nil, nil)
	f.Alan = user("Alan", models.RoleAdmin, f.Club.ID, nil, nil)
	f.Carla = user("Carla", models.RoleCoach, f.Club.ID, nil, nil)
	f.Cedric = user("Cedric", models.RoleCoach, f.Club.ID, nil, nil)
	f.Sam = user("Sam", models.RoleSportif, f.Club.ID, &f.U13.ID, &f.U13A.ID)
	f.Sara = user("Sara", models.RoleSportif, f.Club.ID, &f.U13.ID, &f.U13A.ID)
	f.Paul = user("Paul", models.RoleSportif, f.Club.ID, &f.U15.ID, &f.U15A.ID)
	f.Pia = user("Pia", models.RoleSportif, f.Club.ID, &f.U15.ID, nil)
	f.OtherAdmin = user("Otto", models.RoleAdmin, f.OtherClub.ID, nil, nil)

	require.NoError(t, tx.Model(f.Carla).Association("CoachedCategories").Append(&f.U13))
	require.NoError(t, tx.Model(f.Cedric).Association("CoachedTeams").Append(&f.U15A))
	f.Carla.CoachedCategories = []models.Category{f.U13}
	f.Cedric.CoachedTeams = []models.Team{f.U15A}
	return f
}
