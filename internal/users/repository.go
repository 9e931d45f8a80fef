package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrDuplicateRole  = errors.New("duplicate role")
)

// Repository defines persistence operations for users and roles. Email and
// role-name uniqueness is enforced by the backend, never by a prior lookup.
type Repository interface {
	// CreateUser stores u together with its role links. Either everything is
	// stored or nothing is.
	CreateUser(ctx context.Context, u *models.User, links ...models.UserRole) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetAdmin(ctx context.Context, id string, admin bool) error
	CreateRole(ctx context.Context, r *models.Role) error
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	// AddUserRole links a user to a role; linking twice is a no-op.
	AddUserRole(ctx context.Context, link *models.UserRole) error
	UserRoles(ctx context.Context, userID string) ([]models.Role, error)
	Ping(ctx context.Context) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	db        *mongo.Database
	users     *mongo.Collection
	roles     *mongo.Collection
	userRoles *mongo.Collection
}

// NewMongoRepository uses the users, roles and user_roles collections of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		db:        db,
		users:     db.Collection("users"),
		roles:     db.Collection("roles"),
		userRoles: db.Collection("user_roles"),
	}
}

// EnsureIndexes creates the unique indexes the repository depends on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	if _, err := r.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("roles name index: %w", err)
	}
	if _, err := r.userRoles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "roleId", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("user_roles index: %w", err)
	}
	return nil
}

// CreateUser inserts the user, then its links. A failed link removes the
// user and any links already written; standalone servers have no
// multi-document transactions.
func (r *MongoRepository) CreateUser(ctx context.Context, u *models.User, links ...models.UserRole) error {
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	for i := range links {
		if err := r.AddUserRole(ctx, &links[i]); err != nil {
			r.undoCreate(u.ID)
			return err
		}
	}
	return nil
}

// undoCreate runs on a fresh context so a cancelled request still cleans up.
func (r *MongoRepository) undoCreate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.userRoles.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		logger.Errorf("undo create: delete role links of %s: %v", userID, err)
	}
	if _, err := r.users.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		logger.Errorf("undo create: delete user %s: %v", userID, err)
	}
}

func (r *MongoRepository) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isAdmin": admin}, "$currentDate": bson.M{"updatedAt": true}})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) CreateRole(ctx context.Context, role *models.Role) error {
	if _, err := r.roles.InsertOne(ctx, role); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRole
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.roles.FindOne(ctx, bson.M{"name": name}).Decode(&role); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *MongoRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	cur, err := r.roles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Role{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) AddUserRole(ctx context.Context, link *models.UserRole) error {
	if _, err := r.userRoles.InsertOne(ctx, link); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert user role: %w", err)
	}
	return nil
}

func (r *MongoRepository) UserRoles(ctx context.Context, userID string) ([]models.Role, error) {
	cur, err := r.userRoles.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	var links []models.UserRole
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []models.Role{}, nil
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.RoleID)
	}
	rc, err := r.roles.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Role{}
	if err := rc.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}
