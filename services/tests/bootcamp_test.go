package tests

import (
	"devcamp/schema"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestBootcampCrud(t *testing.T) {
	env := setupTestEnv(t)

	publisher, err := env.newUser("pub1", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}

	created, err := publisher.createBootcamp(newBootcampParams("Devworks", "233 Bay State Rd, Boston MA"))
	if err != nil {
		t.Fatal(err)
	}
	if created.Name != "Devworks" || created.UserId.String() != publisher.userId {
		t.Fatalf("invalid created bootcamp %v", created)
	}
	if created.Latitude != 42.3503 || created.Longitude != -71.1004 {
		t.Fatalf("address was not geocoded: %v", created)
	}

	fetched, err := publisher.getBootcamp(created.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Id != created.Id || fetched.Name != created.Name || len(fetched.Careers) != 2 {
		t.Fatalf("fetched bootcamp %v does not match created %v", fetched, created)
	}

	bootcamps, count, err := publisher.listBootcamps("")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || len(bootcamps) != 1 || bootcamps[0].Id != created.Id {
		t.Fatalf("invalid list result count=%d %v", count, bootcamps)
	}

	updated, err := publisher.updateBootcamp(created.Id.String(), map[string]interface{}{"name": "Devworks II", "housing": false})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Devworks II" || updated.Housing {
		t.Fatalf("update was not applied: %v", updated)
	}
	if updated.Description != created.Description || updated.Address != created.Address {
		t.Fatalf("update changed fields that were not specified: %v", updated)
	}

	// An empty update body changes nothing.
	unchanged, err := publisher.updateBootcamp(created.Id.String(), map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if unchanged.Name != updated.Name || unchanged.Housing != updated.Housing {
		t.Fatalf("empty update modified the bootcamp: %v", unchanged)
	}

	err = publisher.deleteBootcamp(created.Id.String())
	if err != nil {
		t.Fatal(err)
	}

	_, err = publisher.getBootcamp(created.Id.String())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted bootcamp should not be found, got %v", err)
	}
}

func TestBootcampCreateValidation(t *testing.T) {
	env := setupTestEnv(t)

	publisher, err := env.newUser("pub1", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}

	_, err = publisher.createBootcamp(map[string]interface{}{"description": "d", "address": "233 Bay State Rd, Boston MA"})
	if err == nil || !strings.Contains(err.Error(), "name must be specified") {
		t.Fatalf("create without name should fail: %v", err)
	}

	_, err = publisher.createBootcamp(map[string]interface{}{"name": "Devworks", "address": "233 Bay State Rd, Boston MA"})
	if err == nil || !strings.Contains(err.Error(), "description must be specified") {
		t.Fatalf("create without description should fail: %v", err)
	}

	_, err = publisher.createBootcamp(newBootcampParams("Devworks", "some address the geocoder cannot resolve"))
	if err == nil || !strings.Contains(err.Error(), "unable to geocode") {
		t.Fatalf("create with unresolvable address should fail: %v", err)
	}
}

func TestBootcampSingleton(t *testing.T) {
	env := setupTestEnv(t)

	publisher, err := env.newUser("pub1", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}

	first, err := publisher.createBootcamp(newBootcampParams("Devworks", "233 Bay State Rd, Boston MA"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = publisher.createBootcamp(newBootcampParams("Codemasters", "45 Upper College Rd, Kingston RI"))
	if err == nil || !strings.Contains(err.Error(), "already published a bootcamp") {
		t.Fatalf("second create by the same publisher should fail: %v", err)
	}
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound) {
		t.Fatalf("second create should be a validation failure, got %v", err)
	}

	// Admins are not limited to one bootcamp.
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.createBootcamp(newBootcampParams("Admin Camp 1", "233 Bay State Rd, Boston MA")); err != nil {
		t.Fatal(err)
	}
	if _, err := admin.createBootcamp(newBootcampParams("Admin Camp 2", "45 Upper College Rd, Kingston RI")); err != nil {
		t.Fatal(err)
	}

	// Deleting the bootcamp frees the publisher to create another.
	if err := publisher.deleteBootcamp(first.Id.String()); err != nil {
		t.Fatal(err)
	}
	if _, err := publisher.createBootcamp(newBootcampParams("Codemasters", "45 Upper College Rd, Kingston RI")); err != nil {
		t.Fatal(err)
	}
}

func TestBootcampAccessControl(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newUser("other", schema.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}
	regular, err := env.newUser("regular", schema.RoleUser)
	if err != nil {
		t.Fatal(err)
	}

	bootcamp, err := owner.createBootcamp(newBootcampParams("Devworks", "233 Bay State Rd, Boston MA"))
	if err != nil {
		t.Fatal(err)
	}

	anon := env.newClient()
	_, err = anon.createBootcamp(newBootcampParams("Anon Camp", "233 Bay State Rd, Boston MA"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthenticated create should be unauthorized: %v", err)
	}

	_, err = regular.createBootcamp(newBootcampParams("User Camp", "233 Bay State Rd, Boston MA"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non publisher create should be forbidden: %v", err)
	}

	// The bootcamp exists and the caller is known, so the denial is
	// forbidden, not not-found.
	_, err = other.updateBootcamp(bootcamp.Id.String(), map[string]interface{}{"name": "Hijacked"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non owner update should be forbidden: %v", err)
	}

	err = other.deleteBootcamp(bootcamp.Id.String())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non owner delete should be forbidden: %v", err)
	}

	// An unresolvable address must not preempt the ownership denial.
	_, err = other.updateBootcamp(bootcamp.Id.String(), map[string]interface{}{"address": "1 Nowhere Ln"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non owner update with a new address should be forbidden: %v", err)
	}

	missingId := "d9428888-122b-11e1-b85c-61cd3cbb3210"
	_, err = other.updateBootcamp(missingId, map[string]interface{}{"name": "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing bootcamp should be not found: %v", err)
	}

	// Likewise a bad address on a missing bootcamp reports not found.
	_, err = other.updateBootcamp(missingId, map[string]interface{}{"address": "1 Nowhere Ln"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing bootcamp with a new address should be not found: %v", err)
	}

	err = other.deleteBootcamp(missingId)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete of missing bootcamp should be not found: %v", err)
	}

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	updated, err := admin.updateBootcamp(bootcamp.Id.String(), map[string]interface{}{"name": "Renamed By Admin"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed By Admin" || updated.UserId != bootcamp.UserId {
		t.Fatalf("admin update should not change ownership: %v", updated)
	}

	if err := admin.deleteBootcamp(bootcamp.Id.String()); err != nil {
		t.Fatal(err)
	}
}

func TestBootcampRadiusSearch(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	boston, err := admin.createBootcamp(newBootcampParams("Boston Camp", "233 Bay State Rd, Boston MA"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.createBootcamp(newBootcampParams("New York Camp", "220 E 23rd St, New York NY")); err != nil {
		t.Fatal(err)
	}

	client := env.newClient()

	near, err := client.bootcampsInRadius("02118", "10")
	if err != nil {
		t.Fatal(err)
	}
	if len(near) != 1 || near[0].Id != boston.Id {
		t.Fatalf("expected only the boston bootcamp within 10 miles, got %v", near)
	}

	far, err := client.bootcampsInRadius("02118", "250")
	if err != nil {
		t.Fatal(err)
	}
	if len(far) != 2 {
		t.Fatalf("expected both bootcamps within 250 miles, got %v", far)
	}

	_, err = client.bootcampsInRadius("99999", "10")
	if !errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "99999") {
		t.Fatalf("unknown zipcode should be not found and name the zipcode: %v", err)
	}

	_, err = client.bootcampsInRadius("02118", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid distance") {
		t.Fatalf("non numeric distance should fail: %v", err)
	}

	_, err = client.bootcampsInRadius("02118", "-5")
	if err == nil || !strings.Contains(err.Error(), "invalid distance") {
		t.Fatalf("negative distance should fail: %v", err)
	}
}

func TestBootcampListQueries(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		params := newBootcampParams(fmt.Sprintf("Camp %d", i), "233 Bay State Rd, Boston MA")
		params["housing"] = i%2 == 0
		if _, err := admin.createBootcamp(params); err != nil {
			t.Fatal(err)
		}
	}

	client := env.newClient()

	withHousing, count, err := client.listBootcamps("housing=true")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || len(withHousing) != 2 {
		t.Fatalf("expected 2 bootcamps with housing, got %v", withHousing)
	}

	sorted, _, err := client.listBootcamps("sort=-name")
	if err != nil {
		t.Fatal(err)
	}
	if len(sorted) != 4 || sorted[0].Name != "Camp 3" || sorted[3].Name != "Camp 0" {
		t.Fatalf("invalid sort order: %v", sorted)
	}

	page, count, err := client.listBootcamps("sort=name&page=2&limit=3")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || len(page) != 1 || page[0].Name != "Camp 3" {
		t.Fatalf("invalid pagination result count=%d %v", count, page)
	}

	_, pages, err := client.listBootcampsPage("sort=name&page=1&limit=3")
	if err != nil {
		t.Fatal(err)
	}
	if pages == nil || pages.Prev != nil || pages.Next == nil || pages.Next.Page != 2 || pages.Next.Limit != 3 {
		t.Fatalf("first page should only reference a next page: %+v", pages)
	}

	_, pages, err = client.listBootcampsPage("sort=name&page=2&limit=3")
	if err != nil {
		t.Fatal(err)
	}
	if pages == nil || pages.Next != nil || pages.Prev == nil || pages.Prev.Page != 1 || pages.Prev.Limit != 3 {
		t.Fatalf("last page should only reference a previous page: %+v", pages)
	}

	_, _, err = client.listBootcamps("tuition[gt]=100")
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("filtering on unknown field should fail: %v", err)
	}

	_, _, err = client.listBootcamps("housing=banana")
	if err == nil || !strings.Contains(err.Error(), "invalid boolean") {
		t.Fatalf("non boolean housing filter should fail: %v", err)
	}
}
