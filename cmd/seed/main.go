package main

import (
	"devcamp/schema"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Loads (or wipes) development seed data. Records reference each other by
// user email and bootcamp name since the seed files cannot know generated ids.

type seedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type seedBootcamp struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Website     string   `json:"website"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Address     string   `json:"address"`
	Careers     []string `json:"careers"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Housing       bool `json:"housing"`
	JobAssistance bool `json:"jobAssistance"`
	JobGuarantee  bool `json:"jobGuarantee"`
	AcceptGiBill  bool `json:"acceptGiBill"`

	OwnerEmail string `json:"ownerEmail"`
}

type seedCourse struct {
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	Weeks                int     `json:"weeks"`
	Tuition              float64 `json:"tuition"`
	MinimumSkill         string  `json:"minimumSkill"`
	ScholarshipAvailable bool    `json:"scholarshipAvailable"`

	BootcampName string `json:"bootcampName"`
}

type seedReview struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`

	BootcampName string `json:"bootcampName"`
	UserEmail    string `json:"userEmail"`
}

func readSeedFile(dir, name string, dest interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("error reading seed file %v: %w", name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("error parsing seed file %v: %w", name, err)
	}
	return nil
}

func seed(db *gorm.DB, dir string) error {
	var users []seedUser
	var bootcamps []seedBootcamp
	var courses []seedCourse
	var reviews []seedReview

	if err := readSeedFile(dir, "users.json", &users); err != nil {
		return err
	}
	if err := readSeedFile(dir, "bootcamps.json", &bootcamps); err != nil {
		return err
	}
	if err := readSeedFile(dir, "courses.json", &courses); err != nil {
		return err
	}
	if err := readSeedFile(dir, "reviews.json", &reviews); err != nil {
		return err
	}

	return db.Transaction(func(txn *gorm.DB) error {
		userIds := make(map[string]uuid.UUID)
		for _, user := range users {
			if err := schema.CheckValidRole(user.Role); err != nil {
				return err
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), 10)
			if err != nil {
				return fmt.Errorf("error encrypting password for user %v: %w", user.Email, err)
			}
			row := schema.User{
				Id: uuid.New(), Name: user.Name, Email: user.Email,
				Password: hashed, Role: user.Role, CreatedAt: time.Now().UTC(),
			}
			if result := txn.Create(&row); result.Error != nil {
				return fmt.Errorf("error creating user %v: %w", user.Email, result.Error)
			}
			userIds[user.Email] = row.Id
		}

		bootcampIds := make(map[string]uuid.UUID)
		for _, bootcamp := range bootcamps {
			ownerId, ok := userIds[bootcamp.OwnerEmail]
			if !ok {
				return fmt.Errorf("bootcamp %v references unknown owner %v", bootcamp.Name, bootcamp.OwnerEmail)
			}
			row := schema.Bootcamp{
				Id:            uuid.New(),
				Name:          bootcamp.Name,
				Description:   bootcamp.Description,
				Website:       bootcamp.Website,
				Phone:         bootcamp.Phone,
				Email:         bootcamp.Email,
				Address:       bootcamp.Address,
				Careers:       bootcamp.Careers,
				Latitude:      bootcamp.Latitude,
				Longitude:     bootcamp.Longitude,
				Housing:       bootcamp.Housing,
				JobAssistance: bootcamp.JobAssistance,
				JobGuarantee:  bootcamp.JobGuarantee,
				AcceptGiBill:  bootcamp.AcceptGiBill,
				CreatedAt:     time.Now().UTC(),
				UserId:        ownerId,
			}
			if result := txn.Create(&row); result.Error != nil {
				return fmt.Errorf("error creating bootcamp %v: %w", bootcamp.Name, result.Error)
			}
			bootcampIds[bootcamp.Name] = row.Id
		}

		for _, course := range courses {
			bootcampId, ok := bootcampIds[course.BootcampName]
			if !ok {
				return fmt.Errorf("course %v references unknown bootcamp %v", course.Title, course.BootcampName)
			}
			var bootcamp schema.Bootcamp
			if result := txn.First(&bootcamp, "id = ?", bootcampId); result.Error != nil {
				return result.Error
			}
			row := schema.Course{
				Id:                   uuid.New(),
				Title:                course.Title,
				Description:          course.Description,
				Weeks:                course.Weeks,
				Tuition:              course.Tuition,
				MinimumSkill:         course.MinimumSkill,
				ScholarshipAvailable: course.ScholarshipAvailable,
				CreatedAt:            time.Now().UTC(),
				BootcampId:           bootcampId,
				UserId:               bootcamp.UserId,
			}
			if result := txn.Create(&row); result.Error != nil {
				return fmt.Errorf("error creating course %v: %w", course.Title, result.Error)
			}
		}

		for _, review := range reviews {
			bootcampId, ok := bootcampIds[review.BootcampName]
			if !ok {
				return fmt.Errorf("review %v references unknown bootcamp %v", review.Title, review.BootcampName)
			}
			userId, ok := userIds[review.UserEmail]
			if !ok {
				return fmt.Errorf("review %v references unknown user %v", review.Title, review.UserEmail)
			}
			row := schema.Review{
				Id:         uuid.New(),
				Title:      review.Title,
				Text:       review.Text,
				Rating:     review.Rating,
				CreatedAt:  time.Now().UTC(),
				BootcampId: bootcampId,
				UserId:     userId,
			}
			if result := txn.Create(&row); result.Error != nil {
				return fmt.Errorf("error creating review %v: %w", review.Title, result.Error)
			}
		}

		// Denormalized aggregates on the bootcamps.
		for _, bootcampId := range bootcampIds {
			var avgCost *float64
			if result := txn.Model(&schema.Course{}).Where("bootcamp_id = ?", bootcampId).Select("AVG(tuition)").Scan(&avgCost); result.Error != nil {
				return result.Error
			}
			var avgRating *float64
			if result := txn.Model(&schema.Review{}).Where("bootcamp_id = ?", bootcampId).Select("AVG(rating)").Scan(&avgRating); result.Error != nil {
				return result.Error
			}
			updates := map[string]interface{}{"average_cost": avgCost, "average_rating": avgRating}
			if result := txn.Model(&schema.Bootcamp{Id: bootcampId}).Updates(updates); result.Error != nil {
				return result.Error
			}
		}

		return nil
	})
}

func destroy(db *gorm.DB) error {
	return db.Transaction(func(txn *gorm.DB) error {
		for _, model := range []interface{}{&schema.Review{}, &schema.Course{}, &schema.Bootcamp{}, &schema.User{}} {
			if result := txn.Where("1 = 1").Delete(model); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}

func postgresDsn(databaseUri string) string {
	parts, err := url.Parse(databaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from.")
	dataDir := flag.String("data", "_data", "Directory containing the json seed files.")
	wipe := flag.Bool("destroy", false, "Delete all seeded data instead of importing.")

	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	databaseUri := os.Getenv("DATABASE_URI")
	if databaseUri == "" {
		log.Fatal("DATABASE_URI env var must be specified")
	}

	db, err := gorm.Open(postgres.Open(postgresDsn(databaseUri)), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	if *wipe {
		if err := destroy(db); err != nil {
			log.Fatalf("error destroying seed data: %v", err)
		}
		slog.Info("seed data destroyed")
		return
	}

	if err := seed(db, *dataDir); err != nil {
		log.Fatalf("error importing seed data: %v", err)
	}
	slog.Info("seed data imported", "dir", *dataDir)
}
