package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// commandTargets drains the recorded commands as "name collection" pairs.
func commandTargets(mt *mtest.T) []string {
	var out []string
	for e := mt.GetStartedEvent(); e != nil; e = mt.GetStartedEvent() {
		coll, _ := e.Command.Lookup(e.CommandName).StringValueOK()
		out = append(out, e.CommandName+" "+coll)
	}
	return out
}

func TestMongo_CreateUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("stores user and links", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		u := pgSampleUser()
		require.NoError(mt, repo.CreateUser(ctx, u, models.UserRole{ID: "l-1", UserID: u.ID, RoleID: "r-1"}))
		assert.Equal(mt, []string{"insert users", "insert user_roles"}, commandTargets(mt))
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}))
		err := repo.CreateUser(ctx, pgSampleUser(), models.UserRole{ID: "l-1", UserID: "u-1", RoleID: "r-1"})
		require.ErrorIs(mt, err, ErrDuplicateEmail)
		// nothing was written, so nothing is undone
		assert.Equal(mt, []string{"insert users"}, commandTargets(mt))
	})

	mt.Run("failed link removes the user", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 121, Message: "document failed validation"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		u := pgSampleUser()
		err := repo.CreateUser(ctx, u, models.UserRole{ID: "l-1", UserID: u.ID, RoleID: "r-1"})
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrDuplicateEmail)
		assert.Equal(mt, []string{"insert users", "insert user_roles", "delete user_roles", "delete users"}, commandTargets(mt))
	})
}

func TestMongo_AddUserRoleTwiceIsNoop(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate link", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}))
		require.NoError(mt, repo.AddUserRole(context.Background(), &models.UserRole{ID: "l-2", UserID: "u-1", RoleID: "r-1"}))
	})
}

func TestMongo_FindByEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u-1"},
			{Key: "email", Value: "alice@example.com"},
			{Key: "isActive", Value: true},
		}))
		u, err := repo.FindByEmail(ctx, "alice@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, "u-1", u.ID)
		assert.True(mt, u.IsActive)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		require.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongo_UserRoles(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("resolves linked roles", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.user_roles", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "l-1"}, {Key: "userId", Value: "u-1"}, {Key: "roleId", Value: "r-2"}},
				bson.D{{Key: "_id", Value: "l-2"}, {Key: "userId", Value: "u-1"}, {Key: "roleId", Value: "r-1"}},
			),
			mtest.CreateCursorResponse(0, "test.roles", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "r-2"}, {Key: "name", Value: "subscriber"}},
				bson.D{{Key: "_id", Value: "r-1"}, {Key: "name", Value: "user"}},
			),
		)
		roles, err := repo.UserRoles(ctx, "u-1")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"subscriber", "user"}, models.RoleNames(roles))

		assert.Equal(mt, "find", mt.GetStartedEvent().CommandName)
		rolesFind := mt.GetStartedEvent()
		require.NotNil(mt, rolesFind)
		ids := rolesFind.Command.Lookup("filter", "_id", "$in").Array()
		values, err := ids.Values()
		require.NoError(mt, err)
		require.Len(mt, values, 2)
		assert.Equal(mt, "r-2", values[0].StringValue())
		assert.Equal(mt, "r-1", values[1].StringValue())
	})

	mt.Run("no links", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.user_roles", mtest.FirstBatch))
		roles, err := repo.UserRoles(ctx, "u-2")
		require.NoError(mt, err)
		assert.NotNil(mt, roles)
		assert.Empty(mt, roles)
		// the roles collection is never queried
		assert.Equal(mt, []string{"find user_roles"}, commandTargets(mt))
	})
}

func TestMongo_SetAdminUnknownUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no match", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		require.ErrorIs(mt, repo.SetAdmin(context.Background(), "ghost", true), ErrNotFound)
	})
}
