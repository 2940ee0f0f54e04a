package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/spillit/spillit/internal/ierr"
	"github.com/spillit/spillit/internal/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type account struct {
	Id           bson.ObjectID `bson:"_id"`
	Username     string        `bson:"username"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"passwordHash"`
	CreateTime   time.Time     `bson:"createTime"`
}

type roomInfo struct {
	Id          bson.ObjectID `bson:"_id"`
	Name        string        `bson:"name"`
	Description string        `bson:"description"`
}

type Store struct {
	accounts *mongo.Collection
	rooms    *mongo.Collection
}

func NewStore(client *mongo.Client) *Store {
	database := client.Database("spillit")

	return &Store{
		accounts: database.Collection("accounts"),
		rooms:    database.Collection("rooms"),
	}
}

func (s *Store) Setup(ctx context.Context) error {
	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := s.accounts.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return err
	}

	roomNameIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err = s.rooms.Indexes().CreateOne(ctx, roomNameIndexModel)

	return err
}

func (s *Store) CreateAccount(ctx context.Context, request persistence.CreateAccountRequest) (persistence.Account, error) {
	createTime := time.Now()
	id := bson.NewObjectID()

	_, err := s.accounts.InsertOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "username", Value: request.Username},
		{Key: "email", Value: request.Email},
		{Key: "passwordHash", Value: request.PasswordHash},
		{Key: "createTime", Value: createTime},
	})
	if mongo.IsDuplicateKeyError(err) {
		return persistence.Account{}, ierr.New(ierr.ErrorCodeAlreadyExists,
			errors.New("an account with this email already exists"))
	}
	if err != nil {
		return persistence.Account{}, err
	}

	return persistence.Account{
		Id:           id.Hex(),
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: request.PasswordHash,
		CreateTime:   createTime,
	}, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	var found account

	err := s.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return persistence.Account{}, ierr.New(ierr.ErrorCodeNotFound,
			errors.New("account not found"))
	}
	if err != nil {
		return persistence.Account{}, err
	}

	return persistence.Account{
		Id:           found.Id.Hex(),
		Username:     found.Username,
		Email:        found.Email,
		PasswordHash: found.PasswordHash,
		CreateTime:   found.CreateTime,
	}, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]persistence.RoomInfo, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}})

	result, err := s.rooms.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	var mongoRooms []roomInfo
	err = result.All(ctx, &mongoRooms)
	if err != nil {
		return nil, err
	}

	rooms := make([]persistence.RoomInfo, len(mongoRooms))
	for i, r := range mongoRooms {
		rooms[i] = persistence.RoomInfo{
			Id:          r.Id.Hex(),
			Name:        r.Name,
			Description: r.Description,
		}
	}

	return rooms, nil
}
