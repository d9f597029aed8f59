package authmw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nerzal/gocloak/v13"
)

var ErrUserNotFound = errors.New("user not found")

// Service talks to the Keycloak admin API with a confidential client.
type Service struct {
	Client       *gocloak.GoCloak
	Realm        string
	clientID     string
	clientSecret string
}

// NewService logs the client in once and checks it may read the realm.
func NewService(baseURL, realm, clientID, clientSecret string) (*Service, error) {
	s := &Service{
		Client:       gocloak.NewClient("http://" + baseURL),
		Realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
	}

	if err := s.selfTest(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) selfTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jwt, err := s.LoginAdmin(ctx)
	if err != nil {
		return fmt.Errorf("keycloak auth failed: %w", err)
	}

	_, err = s.Client.GetRealm(ctx, jwt.AccessToken, s.Realm)
	if err != nil {
		return fmt.Errorf("keycloak permission check failed: %w", err)
	}

	return nil
}

func (s *Service) LoginAdmin(ctx context.Context) (*gocloak.JWT, error) {
	return s.Client.LoginClient(
		ctx,
		s.clientID,
		s.clientSecret,
		s.Realm,
	)
}

func (s *Service) GetUserByUsername(ctx context.Context, token, username string) (*gocloak.User, error) {
	users, err := s.Client.GetUsers(ctx, token, s.Realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(username),
		Exact:    gocloak.BoolP(true),
		Max:      gocloak.IntP(2),
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	if len(users) > 1 {
		return nil, fmt.Errorf("multiple users matched username %q", username)
	}
	return users[0], nil
}

// UserExists reports whether the realm knows username.
func (s *Service) UserExists(ctx context.Context, username string) (bool, error) {
	jwt, err := s.LoginAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("keycloak login: %w", err)
	}
	_, err = s.GetUserByUsername(ctx, jwt.AccessToken, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
