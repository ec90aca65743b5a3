package services

import (
	"devcamp/auth"
	"devcamp/geocode"
	"devcamp/storage"
	"devcamp/utils"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	bootcampCreateMetric = promauto.NewSummary(prometheus.SummaryOpts{Name: "bootcamp_create", Help: "Bootcamp creations"})
	radiusSearchMetric   = promauto.NewSummary(prometheus.SummaryOpts{Name: "bootcamp_radius_search", Help: "Bootcamp radius searches"})
	photoUploadMetric    = promauto.NewSummary(prometheus.SummaryOpts{Name: "bootcamp_photo_upload", Help: "Bootcamp photo uploads"})
)

type Devcamp struct {
	bootcamp BootcampService
	course   CourseService
	review   ReviewService
	user     UserService

	db *gorm.DB
}

func NewDevcamp(
	db *gorm.DB, store storage.Storage, geocoder geocode.Geocoder, userAuth auth.IdentityProvider, maxUploadBytes int64,
) Devcamp {
	return Devcamp{
		bootcamp: BootcampService{
			db:             db,
			storage:        store,
			geocoder:       geocoder,
			userAuth:       userAuth,
			maxUploadBytes: maxUploadBytes,
		},
		course: CourseService{db: db, userAuth: userAuth},
		review: ReviewService{db: db, userAuth: userAuth},
		user:   UserService{db: db, userAuth: userAuth},
		db:     db,
	}
}

func (m *Devcamp) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/bootcamps", m.bootcamp.Routes(m.course.NestedRoutes(), m.review.NestedRoutes()))
	r.Mount("/courses", m.course.Routes())
	r.Mount("/reviews", m.review.Routes())
	r.Mount("/users", m.user.Routes())
	r.Mount("/auth", m.user.AuthRoutes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}
