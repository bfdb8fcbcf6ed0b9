package profile

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopkeep-go/internal/sk"
)

// document is the Firestore representation of a profile.
type document struct {
	Email       string `firestore:"email"`
	Name        string `firestore:"name"`
	ShopName    string `firestore:"shopName"`
	PhoneNumber string `firestore:"phoneNumber"`
	Address     string `firestore:"address"`
	RegDate     int64  `firestore:"regDate"`
	UserType    string `firestore:"userType"`
	Status      string `firestore:"status"`
	NextPayDate int64  `firestore:"nextPayDate"`
	DriveEmail  string `firestore:"driveEmail,omitempty"`
}

func toDocument(p sk.UserProfile) document {
	return document(p)
}

func (d document) profile() *sk.UserProfile {
	p := sk.UserProfile(d)
	return &p
}

// FirestoreStore keeps one document per account in a collection, with the
// email as document ID.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ sk.ProfileStore = (*FirestoreStore)(nil)

// NewFirestoreStore wraps an existing client.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

// OpenFirestoreStore connects to project. When FIRESTORE_EMULATOR_HOST is
// set the client talks to the emulator instead.
func OpenFirestoreStore(ctx context.Context, project, collection string, opts ...option.ClientOption) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return NewFirestoreStore(client, collection), nil
}

func (s *FirestoreStore) doc(email string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(email)
}

func (s *FirestoreStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	p, err := s.Get(ctx, email)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

func (s *FirestoreStore) Register(ctx context.Context, p sk.UserProfile) error {
	if _, err := s.doc(p.Email).Set(ctx, toDocument(p)); err != nil {
		return fmt.Errorf("writing profile %s: %w", p.Email, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, email string) (*sk.UserProfile, error) {
	snap, err := s.doc(email).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", email, err)
	}

	var d document
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", email, err)
	}
	return d.profile(), nil
}

func (s *FirestoreStore) UpdateDriveEmail(ctx context.Context, email, driveEmail string) error {
	_, err := s.doc(email).Update(ctx, []firestore.Update{{Path: "driveEmail", Value: driveEmail}})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, email)
	}
	if err != nil {
		return fmt.Errorf("updating profile %s: %w", email, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
