package tests

import (
	"devcamp/schema"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		client := env.newClient()
		login, err := client.register(name, email, password, schema.RoleUser)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.register(name, email, password, schema.RoleUser)
		if err == nil || !strings.Contains(err.Error(), "already in use") {
			t.Fatalf("duplicate registration should fail: %v", err)
		}

		err = client.login(loginInfo{Email: "unknown@mail.com", Password: password})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("login should fail with wrong email: %v", err)
		}

		err = client.login(loginInfo{Email: email, Password: "wrong_password"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login should fail with wrong password: %v", err)
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}

		info, err := client.me()
		if err != nil {
			t.Fatal(err)
		}
		if info.Name != name || info.Email != email || info.Id.String() != client.userId || info.Role != schema.RoleUser {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestRegisterRoles(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()

	// Registering defaults to the user role when none is given.
	login, err := client.register("noRole", "norole@mail.com", "password", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := client.login(login); err != nil {
		t.Fatal(err)
	}
	info, err := client.me()
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != schema.RoleUser {
		t.Fatalf("expected default role user, got %v", info.Role)
	}

	if _, err := env.newUser("pub", schema.RolePublisher); err != nil {
		t.Fatal(err)
	}

	sneaky := env.newClient()
	_, err = sneaky.register("sneaky", "sneaky@mail.com", "password", schema.RoleAdmin)
	if err == nil || !strings.Contains(err.Error(), "admin") {
		t.Fatalf("registering as admin should fail: %v", err)
	}

	bad := env.newClient()
	_, err = bad.register("bad", "bad@mail.com", "password", "superuser")
	if err == nil || !strings.Contains(err.Error(), "invalid role") {
		t.Fatalf("registering with unknown role should fail: %v", err)
	}
}

func TestUserManagement(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	regular, err := env.newUser("regular", schema.RoleUser)
	if err != nil {
		t.Fatal(err)
	}

	_, err = regular.listUsers()
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non admin user listing should be forbidden: %v", err)
	}

	_, err = regular.addUser("xyz", "xyz@mail.com", "password", schema.RoleUser)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non admin user creation should be forbidden: %v", err)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected admin and regular user, got %v", users)
	}

	newUserId, err := admin.addUser("xyz", "xyz@mail.com", "password", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}

	fetched, err := admin.getUser(newUserId)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Name != "xyz" || fetched.Role != schema.RolePublisher {
		t.Fatalf("invalid user info %v", fetched)
	}

	updated, err := admin.updateUser(newUserId, map[string]interface{}{"role": schema.RoleUser, "name": "xyz2"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Role != schema.RoleUser || updated.Name != "xyz2" {
		t.Fatalf("user update was not applied: %v", updated)
	}

	_, err = admin.updateUser(newUserId, map[string]interface{}{"role": "superuser"})
	if err == nil || !strings.Contains(err.Error(), "invalid role") {
		t.Fatalf("update with unknown role should fail: %v", err)
	}

	// The sole admin cannot demote themselves.
	_, err = admin.updateUser(admin.userId, map[string]interface{}{"role": schema.RoleUser})
	if err == nil || !strings.Contains(err.Error(), "no admins left") {
		t.Fatalf("demoting the last admin should fail: %v", err)
	}

	// With a second admin the demotion goes through.
	if _, err := admin.updateUser(newUserId, map[string]interface{}{"role": schema.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	if _, err := admin.updateUser(newUserId, map[string]interface{}{"role": schema.RoleUser}); err != nil {
		t.Fatal(err)
	}

	if err := admin.deleteUser(newUserId); err != nil {
		t.Fatal(err)
	}
	_, err = admin.getUser(newUserId)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted user should not be found: %v", err)
	}

	missingId := "d9428888-122b-11e1-b85c-61cd3cbb3210"
	err = admin.deleteUser(missingId)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete of missing user should be not found: %v", err)
	}

	// The sole admin cannot delete their own account either.
	err = admin.deleteUser(admin.userId)
	if err == nil || !strings.Contains(err.Error(), "no admins left") {
		t.Fatalf("deleting the last admin should fail: %v", err)
	}
}

func TestDeleteUserReassignsListings(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	publisher, err := env.newUser("pub1", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}
	reviewer, err := env.newUser("rev1", schema.RoleUser)
	if err != nil {
		t.Fatal(err)
	}

	bootcamp, err := publisher.createBootcamp(newBootcampParams("Devworks", "233 Bay State Rd, Boston MA"))
	if err != nil {
		t.Fatal(err)
	}
	course, err := publisher.createCourse(bootcamp.Id.String(), newCourseParams("Frontend", 8000))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reviewer.createReview(bootcamp.Id.String(), "Great course", 8); err != nil {
		t.Fatal(err)
	}

	// Deleting the publisher hands their listings to an admin instead of
	// orphaning them.
	if err := admin.deleteUser(publisher.userId); err != nil {
		t.Fatal(err)
	}

	fetched, err := admin.getBootcamp(bootcamp.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	if fetched.UserId.String() != admin.userId {
		t.Fatalf("bootcamp should be reassigned to the admin, got owner %v", fetched.UserId)
	}

	fetchedCourse, err := admin.getCourse(course.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	if fetchedCourse.UserId.String() != admin.userId {
		t.Fatalf("course should be reassigned to the admin, got owner %v", fetchedCourse.UserId)
	}

	// Deleting a reviewer removes their reviews and recomputes the average.
	if err := admin.deleteUser(reviewer.userId); err != nil {
		t.Fatal(err)
	}

	reviews, err := admin.listBootcampReviews(bootcamp.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 0 {
		t.Fatalf("reviews of deleted user should be removed, got %v", reviews)
	}

	fetched, err = admin.getBootcamp(bootcamp.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	if fetched.AverageRating != nil {
		t.Fatalf("average rating should be cleared, got %v", *fetched.AverageRating)
	}
}
