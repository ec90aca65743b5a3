package tests

import (
	"context"
	"devcamp/auth"
	"devcamp/geocode"
	"devcamp/schema"
	"devcamp/services"
	"devcamp/storage"
	"fmt"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	devcamp  services.Devcamp
	api      chi.Router
	storage  storage.Storage
	geocoder *geocoderStub
	db       *gorm.DB
}

const (
	adminName     = "admin123"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"

	// Small limit so the oversize upload case is easy to trigger.
	maxUploadBytes = 1024
)

// geocoderStub resolves queries from a fixed table instead of calling the
// real provider. Unknown queries behave like an empty provider response.
type geocoderStub struct {
	locations map[string]geocode.Location
}

func (g *geocoderStub) Geocode(ctx context.Context, query string) ([]geocode.Location, error) {
	if loc, ok := g.locations[query]; ok {
		return []geocode.Location{loc}, nil
	}
	return nil, geocode.ErrNoResults
}

func (g *geocoderStub) addLocation(query string, lat, lng float64) {
	g.locations[query] = geocode.Location{Latitude: lat, Longitude: lng}
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(&schema.User{}, &schema.Bootcamp{}, &schema.Course{}, &schema.Review{})
	if err != nil {
		t.Fatal(err)
	}

	store := storage.NewLocalDisk(t.TempDir())

	geocoder := &geocoderStub{locations: make(map[string]geocode.Location)}
	geocoder.addLocation("233 Bay State Rd, Boston MA", 42.3503, -71.1004)
	geocoder.addLocation("45 Upper College Rd, Kingston RI", 41.4807, -71.5258)
	geocoder.addLocation("220 E 23rd St, New York NY", 40.7385, -73.9822)
	geocoder.addLocation("02118", 42.3388, -71.0765)

	userAuth, err := auth.NewBasicIdentityProvider(db, auth.BasicProviderArgs{
		Secret:        []byte("290zcv02ai249"),
		AdminName:     adminName,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
	if err != nil {
		t.Fatal(err)
	}

	devcamp := services.NewDevcamp(db, store, geocoder, userAuth, maxUploadBytes)

	return &testEnv{
		devcamp:  devcamp,
		api:      devcamp.Routes(),
		storage:  store,
		geocoder: geocoder,
		db:       db,
	}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

// newUser registers a user with the given role and logs them in.
func (t *testEnv) newUser(name, role string) (client, error) {
	c := t.newClient()
	login, err := c.register(name, name+"@mail.com", name+"_password", role)
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}

// newBootcampParams produces a valid create body with a unique name and an
// address the stub geocoder knows.
func newBootcampParams(name, address string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": fmt.Sprintf("%v description", name),
		"address":     address,
		"careers":     []string{"Web Development", "Data Science"},
		"housing":     true,
	}
}

func newCourseParams(title string, tuition float64) map[string]interface{} {
	return map[string]interface{}{
		"title":        title,
		"description":  fmt.Sprintf("%v description", title),
		"weeks":        8,
		"tuition":      tuition,
		"minimumSkill": schema.SkillBeginner,
	}
}
