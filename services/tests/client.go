package tests

import (
	"bytes"
	"devcamp/services"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"

	"github.com/go-chi/chi/v5"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

// every endpoint responds with the same envelope
type pageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type pagination struct {
	Next *pageRef `json:"next"`
	Prev *pageRef `json:"prev"`
}

type responseEnvelope struct {
	Success    bool            `json:"success"`
	Count      *int            `json:"count"`
	Pagination *pagination     `json:"pagination"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

// Do sends the request and parses the envelope's data field into result,
// passing nil indicates that no result is expected. The returned error wraps
// ErrUnauthorized, ErrForbidden, or ErrNotFound for those statuses so tests
// can tell the denials apart.
func (r *httpTestRequest) Do(result interface{}) error {
	_, err := r.doEnvelope(result)
	return err
}

func (r *httpTestRequest) doWithCount(result interface{}) (int, error) {
	envelope, err := r.doEnvelope(result)
	if err != nil || envelope.Count == nil {
		return 0, err
	}
	return *envelope.Count, nil
}

func (r *httpTestRequest) doEnvelope(result interface{}) (responseEnvelope, error) {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return responseEnvelope{}, fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	var envelope responseEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return responseEnvelope{}, fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		var sentinel error
		switch res.StatusCode {
		case http.StatusUnauthorized:
			sentinel = ErrUnauthorized
		case http.StatusForbidden:
			sentinel = ErrForbidden
		case http.StatusNotFound:
			sentinel = ErrNotFound
		}
		if sentinel != nil {
			return responseEnvelope{}, fmt.Errorf("%w: %v request to endpoint %v: '%v'", sentinel, r.method, r.endpoint, envelope.Error)
		}
		return responseEnvelope{}, fmt.Errorf("%v request to endpoint %v returned status %d, error '%v'", r.method, r.endpoint, res.StatusCode, envelope.Error)
	}

	if !envelope.Success {
		return responseEnvelope{}, fmt.Errorf("%v response from endpoint %v has success=false", r.method, r.endpoint)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return responseEnvelope{}, fmt.Errorf("error parsing %v response data from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return envelope, nil
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Put(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "PUT", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) register(name, email, password, role string) (loginInfo, error) {
	body := map[string]string{
		"name": name, "email": email, "password": password, "role": role,
	}

	err := c.Post("/auth/register").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/auth/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["accessToken"]
	c.userId = res["userId"]

	return nil
}

func (c *client) me() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/auth/me").Do(&res)
	return res, err
}

func (c *client) createBootcamp(params map[string]interface{}) (services.BootcampInfo, error) {
	var res services.BootcampInfo
	err := c.Post("/bootcamps").Json(params).Do(&res)
	return res, err
}

func (c *client) getBootcamp(bootcampId string) (services.BootcampInfo, error) {
	var res services.BootcampInfo
	err := c.Get(fmt.Sprintf("/bootcamps/%v", bootcampId)).Do(&res)
	return res, err
}

func (c *client) listBootcamps(query string) ([]services.BootcampInfo, int, error) {
	endpoint := "/bootcamps"
	if query != "" {
		endpoint += "?" + query
	}
	var res []services.BootcampInfo
	count, err := c.Get(endpoint).doWithCount(&res)
	return res, count, err
}

func (c *client) listBootcampsPage(query string) ([]services.BootcampInfo, *pagination, error) {
	var res []services.BootcampInfo
	envelope, err := c.Get("/bootcamps?" + query).doEnvelope(&res)
	return res, envelope.Pagination, err
}

func (c *client) updateBootcamp(bootcampId string, params map[string]interface{}) (services.BootcampInfo, error) {
	var res services.BootcampInfo
	err := c.Put(fmt.Sprintf("/bootcamps/%v", bootcampId)).Json(params).Do(&res)
	return res, err
}

func (c *client) deleteBootcamp(bootcampId string) error {
	return c.Delete(fmt.Sprintf("/bootcamps/%v", bootcampId)).Do(nil)
}

func (c *client) bootcampsInRadius(zipcode string, distance string) ([]services.BootcampInfo, error) {
	var res []services.BootcampInfo
	err := c.Get(fmt.Sprintf("/bootcamps/radius/%v/%v", zipcode, distance)).Do(&res)
	return res, err
}

func (c *client) uploadPhoto(bootcampId, filename, contentType string, content []byte) (string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%v"`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	var res string
	err = c.Put(fmt.Sprintf("/bootcamps/%v/photo", bootcampId)).
		Header("Content-Type", writer.FormDataContentType()).
		Body(body).
		Do(&res)
	return res, err
}

func (c *client) createCourse(bootcampId string, params map[string]interface{}) (services.CourseInfo, error) {
	var res services.CourseInfo
	err := c.Post(fmt.Sprintf("/bootcamps/%v/courses", bootcampId)).Json(params).Do(&res)
	return res, err
}

func (c *client) getCourse(courseId string) (services.CourseInfo, error) {
	var res services.CourseInfo
	err := c.Get(fmt.Sprintf("/courses/%v", courseId)).Do(&res)
	return res, err
}

func (c *client) listBootcampCourses(bootcampId string) ([]services.CourseInfo, error) {
	var res []services.CourseInfo
	err := c.Get(fmt.Sprintf("/bootcamps/%v/courses", bootcampId)).Do(&res)
	return res, err
}

func (c *client) updateCourse(courseId string, params map[string]interface{}) (services.CourseInfo, error) {
	var res services.CourseInfo
	err := c.Put(fmt.Sprintf("/courses/%v", courseId)).Json(params).Do(&res)
	return res, err
}

func (c *client) deleteCourse(courseId string) error {
	return c.Delete(fmt.Sprintf("/courses/%v", courseId)).Do(nil)
}

func (c *client) createReview(bootcampId string, title string, rating int) (services.ReviewInfo, error) {
	body := map[string]interface{}{
		"title": title, "text": title + " text", "rating": rating,
	}
	var res services.ReviewInfo
	err := c.Post(fmt.Sprintf("/bootcamps/%v/reviews", bootcampId)).Json(body).Do(&res)
	return res, err
}

func (c *client) getReview(reviewId string) (services.ReviewInfo, error) {
	var res services.ReviewInfo
	err := c.Get(fmt.Sprintf("/reviews/%v", reviewId)).Do(&res)
	return res, err
}

func (c *client) listBootcampReviews(bootcampId string) ([]services.ReviewInfo, error) {
	var res []services.ReviewInfo
	err := c.Get(fmt.Sprintf("/bootcamps/%v/reviews", bootcampId)).Do(&res)
	return res, err
}

func (c *client) updateReview(reviewId string, params map[string]interface{}) (services.ReviewInfo, error) {
	var res services.ReviewInfo
	err := c.Put(fmt.Sprintf("/reviews/%v", reviewId)).Json(params).Do(&res)
	return res, err
}

func (c *client) deleteReview(reviewId string) error {
	return c.Delete(fmt.Sprintf("/reviews/%v", reviewId)).Do(nil)
}

func (c *client) listUsers() ([]services.UserInfo, error) {
	var res []services.UserInfo
	err := c.Get("/users").Do(&res)
	return res, err
}

func (c *client) getUser(userId string) (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get(fmt.Sprintf("/users/%v", userId)).Do(&res)
	return res, err
}

func (c *client) addUser(name, email, password, role string) (string, error) {
	body := map[string]string{
		"name": name, "email": email, "password": password, "role": role,
	}
	var res map[string]string
	err := c.Post("/users").Json(body).Do(&res)
	return res["userId"], err
}

func (c *client) updateUser(userId string, params map[string]interface{}) (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Put(fmt.Sprintf("/users/%v", userId)).Json(params).Do(&res)
	return res, err
}

func (c *client) deleteUser(userId string) error {
	return c.Delete(fmt.Sprintf("/users/%v", userId)).Do(nil)
}
