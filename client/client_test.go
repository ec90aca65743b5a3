package client_test

import (
	"context"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"devcamp/auth"
	"devcamp/client"
	"devcamp/geocode"
	"devcamp/schema"
	"devcamp/services"
	"devcamp/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fixedGeocoder resolves every address to a single Boston location so the
// tests need no network access.
type fixedGeocoder struct{}

func (fixedGeocoder) Geocode(ctx context.Context, query string) ([]geocode.Location, error) {
	return []geocode.Location{{Latitude: 42.3503, Longitude: -71.1004}}, nil
}

func startTestServer(t *testing.T) *httptest.Server {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(&schema.User{}, &schema.Bootcamp{}, &schema.Course{}, &schema.Review{})
	if err != nil {
		t.Fatal(err)
	}

	userAuth, err := auth.NewBasicIdentityProvider(db, auth.BasicProviderArgs{
		Secret:        []byte("1029348374abcdef"),
		AdminName:     "admin",
		AdminEmail:    "admin@mail.com",
		AdminPassword: "admin_password",
	})
	if err != nil {
		t.Fatal(err)
	}

	devcamp := services.NewDevcamp(db, storage.NewLocalDisk(t.TempDir()), fixedGeocoder{}, userAuth, 1024*1024)

	r := chi.NewRouter()
	r.Mount("/api/v1", devcamp.Routes())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server
}

func TestClientBootcampLifecycle(t *testing.T) {
	server := startTestServer(t)

	c := client.New(server.URL)
	if err := c.Register("pub", "pub@mail.com", "password123", schema.RolePublisher); err != nil {
		t.Fatal(err)
	}
	if err := c.Login("pub@mail.com", "password123"); err != nil {
		t.Fatal(err)
	}

	me, err := c.Me()
	if err != nil {
		t.Fatal(err)
	}
	if me.Email != "pub@mail.com" || me.Role != schema.RolePublisher {
		t.Fatalf("unexpected account info: %+v", me)
	}
	if c.UserId() != me.Id.String() {
		t.Fatalf("login should record the user id, got %v", c.UserId())
	}

	bootcamp, err := c.CreateBootcamp(client.BootcampParams{
		Name:        "Devworks",
		Description: "full stack training",
		Address:     "233 Bay State Rd, Boston MA",
		Careers:     []string{"Web Development"},
		Housing:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(bootcamp.Latitude-42.3503) > 1e-6 {
		t.Fatalf("bootcamp should carry the geocoded location: %+v", bootcamp)
	}

	fetched, err := c.GetBootcamp(bootcamp.Id)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Name != "Devworks" {
		t.Fatalf("unexpected bootcamp: %+v", fetched)
	}

	listed, err := c.ListBootcamps(map[string]string{"housing": "true"})
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].Id != bootcamp.Id {
		t.Fatalf("expected the created bootcamp in the listing: %v", listed)
	}

	inRadius, err := c.BootcampsInRadius("02118", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(inRadius) != 1 {
		t.Fatalf("expected 1 bootcamp in radius, got %v", inRadius)
	}

	updated, err := c.UpdateBootcamp(bootcamp.Id, map[string]interface{}{"description": "revised"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description != "revised" {
		t.Fatalf("update not applied: %+v", updated)
	}

	course, err := c.CreateCourse(bootcamp.Id, client.CourseParams{
		Title:        "Frontend Basics",
		Description:  "html css js",
		Weeks:        8,
		Tuition:      8000,
		MinimumSkill: schema.SkillBeginner,
	})
	if err != nil {
		t.Fatal(err)
	}

	courses, err := c.ListBootcampCourses(bootcamp.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 1 || courses[0].Id != course.Id {
		t.Fatalf("expected the created course in the listing: %v", courses)
	}

	if err := c.DeleteCourse(course.Id); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteBootcamp(bootcamp.Id); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetBootcamp(bootcamp.Id); err == nil {
		t.Fatal("deleted bootcamp should not be fetchable")
	}
}

func TestClientPhotoUpload(t *testing.T) {
	server := startTestServer(t)

	c := client.New(server.URL)
	if err := c.Register("pub", "pub@mail.com", "password123", schema.RolePublisher); err != nil {
		t.Fatal(err)
	}
	if err := c.Login("pub@mail.com", "password123"); err != nil {
		t.Fatal(err)
	}

	bootcamp, err := c.CreateBootcamp(client.BootcampParams{
		Name:        "Photogenic",
		Description: "has a picture",
		Address:     "233 Bay State Rd, Boston MA",
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "campus.jpg")
	if err := os.WriteFile(path, []byte("jpegbytes"), 0644); err != nil {
		t.Fatal(err)
	}

	filename, err := c.UploadPhoto(bootcamp.Id, path, "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if filename == "" {
		t.Fatal("upload should return the stored filename")
	}

	fetched, err := c.GetBootcamp(bootcamp.Id)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Photo != filename {
		t.Fatalf("expected photo %v on the bootcamp, got %v", filename, fetched.Photo)
	}
}

func TestClientReviews(t *testing.T) {
	server := startTestServer(t)

	pub := client.New(server.URL)
	if err := pub.Register("pub", "pub@mail.com", "password123", schema.RolePublisher); err != nil {
		t.Fatal(err)
	}
	if err := pub.Login("pub@mail.com", "password123"); err != nil {
		t.Fatal(err)
	}

	bootcamp, err := pub.CreateBootcamp(client.BootcampParams{
		Name:        "Reviewed",
		Description: "gets reviews",
		Address:     "233 Bay State Rd, Boston MA",
	})
	if err != nil {
		t.Fatal(err)
	}

	reviewer := client.New(server.URL)
	if err := reviewer.Register("rev", "rev@mail.com", "password123", schema.RoleUser); err != nil {
		t.Fatal(err)
	}
	if err := reviewer.Login("rev@mail.com", "password123"); err != nil {
		t.Fatal(err)
	}

	review, err := reviewer.CreateReview(bootcamp.Id, "solid", "learned a lot", 8)
	if err != nil {
		t.Fatal(err)
	}

	reviews, err := reviewer.ListBootcampReviews(bootcamp.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 1 || reviews[0].Id != review.Id {
		t.Fatalf("expected the created review in the listing: %v", reviews)
	}

	fetched, err := pub.GetBootcamp(bootcamp.Id)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.AverageRating == nil || *fetched.AverageRating != 8 {
		t.Fatalf("expected average rating 8, got %+v", fetched.AverageRating)
	}

	if err := reviewer.DeleteReview(review.Id); err != nil {
		t.Fatal(err)
	}
}
