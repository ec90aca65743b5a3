package auth

import (
	"devcamp/schema"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCanMutate(t *testing.T) {
	ownerId := uuid.New()

	owner := schema.User{Id: ownerId, Role: schema.RolePublisher}
	other := schema.User{Id: uuid.New(), Role: schema.RolePublisher}
	admin := schema.User{Id: uuid.New(), Role: schema.RoleAdmin}

	assert.True(t, CanMutate(ownerId, owner))
	assert.False(t, CanMutate(ownerId, other))
	assert.True(t, CanMutate(ownerId, admin))

	// An admin who owns the resource is still allowed.
	ownerAdmin := schema.User{Id: ownerId, Role: schema.RoleAdmin}
	assert.True(t, CanMutate(ownerId, ownerAdmin))
}

func TestCanCreateBootcamp(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&schema.User{}, &schema.Bootcamp{}))

	publisher := schema.User{Id: uuid.New(), Name: "pub", Email: "pub@mail.com", Role: schema.RolePublisher}
	admin := schema.User{Id: uuid.New(), Name: "adm", Email: "adm@mail.com", Role: schema.RoleAdmin}
	require.NoError(t, db.Create(&publisher).Error)
	require.NoError(t, db.Create(&admin).Error)

	allowed, err := CanCreateBootcamp(publisher, db)
	require.NoError(t, err)
	assert.True(t, allowed)

	bootcamp := schema.Bootcamp{
		Id: uuid.New(), Name: "Devworks", Description: "d", Address: "a", UserId: publisher.Id,
	}
	require.NoError(t, db.Create(&bootcamp).Error)

	allowed, err = CanCreateBootcamp(publisher, db)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Admins can always create more.
	adminCamp := schema.Bootcamp{
		Id: uuid.New(), Name: "Admin Camp", Description: "d", Address: "a", UserId: admin.Id,
	}
	require.NoError(t, db.Create(&adminCamp).Error)

	allowed, err = CanCreateBootcamp(admin, db)
	require.NoError(t, err)
	assert.True(t, allowed)
}
