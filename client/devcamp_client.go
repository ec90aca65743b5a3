package client

import (
	"devcamp/services"
	"fmt"

	"github.com/google/uuid"
)

// DevcampClient is a typed client for the devcamp api. Mutating calls
// require Login (or Register followed by Login) first.
type DevcampClient struct {
	BaseClient
	userId string
}

func New(baseUrl string) *DevcampClient {
	return &DevcampClient{BaseClient: BaseClient{baseUrl: baseUrl}}
}

func (c *DevcampClient) Register(name, email, password, role string) error {
	body := map[string]string{
		"name": name, "email": email, "password": password, "role": role,
	}

	return c.Post("/api/v1/auth/register").Json(body).Do(nil)
}

func (c *DevcampClient) Login(email, password string) error {
	var data map[string]string
	err := c.Get("/api/v1/auth/login").Login(email, password).Do(&data)
	if err != nil {
		return err
	}

	c.authToken = data["accessToken"]
	c.userId = data["userId"]

	return nil
}

func (c *DevcampClient) UserId() string {
	return c.userId
}

func (c *DevcampClient) Me() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/api/v1/auth/me").Do(&res)
	return res, err
}

type BootcampParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Website     string   `json:"website,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Address     string   `json:"address"`
	Careers     []string `json:"careers,omitempty"`

	Housing       bool `json:"housing"`
	JobAssistance bool `json:"jobAssistance"`
	JobGuarantee  bool `json:"jobGuarantee"`
	AcceptGiBill  bool `json:"acceptGiBill"`
}

func (c *DevcampClient) CreateBootcamp(params BootcampParams) (services.BootcampInfo, error) {
	var res services.BootcampInfo
	err := c.Post("/api/v1/bootcamps").Json(params).Do(&res)
	return res, err
}

func (c *DevcampClient) GetBootcamp(bootcampId uuid.UUID) (services.BootcampInfo, error) {
	var res services.BootcampInfo
	err := c.Get(fmt.Sprintf("/api/v1/bootcamps/%v", bootcampId)).Do(&res)
	return res, err
}

// ListBootcamps accepts the standard list query params, e.g.
// {"sort": "-averageCost", "limit": "10", "housing": "true"}.
func (c *DevcampClient) ListBootcamps(query map[string]string) ([]services.BootcampInfo, error) {
	req := c.Get("/api/v1/bootcamps")
	for k, v := range query {
		req = req.Param(k, v)
	}

	var res []services.BootcampInfo
	err := req.Do(&res)
	return res, err
}

func (c *DevcampClient) BootcampsInRadius(zipcode string, distanceMiles float64) ([]services.BootcampInfo, error) {
	var res []services.BootcampInfo
	err := c.Get(fmt.Sprintf("/api/v1/bootcamps/radius/%v/%v", zipcode, distanceMiles)).Do(&res)
	return res, err
}

// UpdateBootcamp sends a partial update, only the fields present in params
// are modified.
func (c *DevcampClient) UpdateBootcamp(bootcampId uuid.UUID, params map[string]interface{}) (services.BootcampInfo, error) {
	var res services.BootcampInfo
	err := c.Put(fmt.Sprintf("/api/v1/bootcamps/%v", bootcampId)).Json(params).Do(&res)
	return res, err
}

func (c *DevcampClient) DeleteBootcamp(bootcampId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/v1/bootcamps/%v", bootcampId)).Do(nil)
}

// UploadPhoto uploads the image at the given path and returns the stored
// filename.
func (c *DevcampClient) UploadPhoto(bootcampId uuid.UUID, path, contentType string) (string, error) {
	body, formContentType, err := fileMultipart(path, contentType)
	if err != nil {
		return "", err
	}

	var filename string
	err = c.Put(fmt.Sprintf("/api/v1/bootcamps/%v/photo", bootcampId)).
		Header("Content-Type", formContentType).
		Body(body).
		Do(&filename)
	return filename, err
}

type CourseParams struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Weeks       int     `json:"weeks"`
	Tuition     float64 `json:"tuition"`

	MinimumSkill         string `json:"minimumSkill"`
	ScholarshipAvailable bool   `json:"scholarshipAvailable"`
}

func (c *DevcampClient) CreateCourse(bootcampId uuid.UUID, params CourseParams) (services.CourseInfo, error) {
	var res services.CourseInfo
	err := c.Post(fmt.Sprintf("/api/v1/bootcamps/%v/courses", bootcampId)).Json(params).Do(&res)
	return res, err
}

func (c *DevcampClient) GetCourse(courseId uuid.UUID) (services.CourseInfo, error) {
	var res services.CourseInfo
	err := c.Get(fmt.Sprintf("/api/v1/courses/%v", courseId)).Do(&res)
	return res, err
}

func (c *DevcampClient) ListBootcampCourses(bootcampId uuid.UUID) ([]services.CourseInfo, error) {
	var res []services.CourseInfo
	err := c.Get(fmt.Sprintf("/api/v1/bootcamps/%v/courses", bootcampId)).Do(&res)
	return res, err
}

func (c *DevcampClient) UpdateCourse(courseId uuid.UUID, params map[string]interface{}) (services.CourseInfo, error) {
	var res services.CourseInfo
	err := c.Put(fmt.Sprintf("/api/v1/courses/%v", courseId)).Json(params).Do(&res)
	return res, err
}

func (c *DevcampClient) DeleteCourse(courseId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/v1/courses/%v", courseId)).Do(nil)
}

func (c *DevcampClient) CreateReview(bootcampId uuid.UUID, title, text string, rating int) (services.ReviewInfo, error) {
	body := map[string]interface{}{
		"title": title, "text": text, "rating": rating,
	}

	var res services.ReviewInfo
	err := c.Post(fmt.Sprintf("/api/v1/bootcamps/%v/reviews", bootcampId)).Json(body).Do(&res)
	return res, err
}

func (c *DevcampClient) GetReview(reviewId uuid.UUID) (services.ReviewInfo, error) {
	var res services.ReviewInfo
	err := c.Get(fmt.Sprintf("/api/v1/reviews/%v", reviewId)).Do(&res)
	return res, err
}

func (c *DevcampClient) ListBootcampReviews(bootcampId uuid.UUID) ([]services.ReviewInfo, error) {
	var res []services.ReviewInfo
	err := c.Get(fmt.Sprintf("/api/v1/bootcamps/%v/reviews", bootcampId)).Do(&res)
	return res, err
}

func (c *DevcampClient) UpdateReview(reviewId uuid.UUID, params map[string]interface{}) (services.ReviewInfo, error) {
	var res services.ReviewInfo
	err := c.Put(fmt.Sprintf("/api/v1/reviews/%v", reviewId)).Json(params).Do(&res)
	return res, err
}

func (c *DevcampClient) DeleteReview(reviewId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/v1/reviews/%v", reviewId)).Do(nil)
}

// User management endpoints, admin only.

func (c *DevcampClient) ListUsers() ([]services.UserInfo, error) {
	var res []services.UserInfo
	err := c.Get("/api/v1/users").Do(&res)
	return res, err
}

func (c *DevcampClient) GetUser(userId uuid.UUID) (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get(fmt.Sprintf("/api/v1/users/%v", userId)).Do(&res)
	return res, err
}

func (c *DevcampClient) UpdateUser(userId uuid.UUID, params map[string]interface{}) (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Put(fmt.Sprintf("/api/v1/users/%v", userId)).Json(params).Do(&res)
	return res, err
}

func (c *DevcampClient) DeleteUser(userId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/v1/users/%v", userId)).Do(nil)
}
