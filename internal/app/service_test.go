package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/domain"
	"github.com/hernan-erasmo/stackup/internal/store"
)

type directoryRepoStub struct {
	store.Repository
	users         map[uuid.UUID]*domain.User
	createdUsers  []*domain.User
	createUserErr error
	wallets       []*domain.Wallet
}

func (s *directoryRepoStub) CreateUser(_ context.Context, user *domain.User) error {
	if s.createUserErr != nil {
		return s.createUserErr
	}
	s.createdUsers = append(s.createdUsers, user)
	return nil
}

func (s *directoryRepoStub) FindUserByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *directoryRepoStub) CreateWallet(_ context.Context, wallet *domain.Wallet) error {
	s.wallets = append(s.wallets, wallet)
	return nil
}

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"lowercases", "Alice", "alice", false},
		{"trims whitespace", "  bob  ", "bob", false},
		{"digits and separators", "carol_99.dev", "carol_99.dev", false},
		{"empty", "", "", true},
		{"only spaces", "   ", "", true},
		{"hyphen rejected", "sign-up", "", true},
		{"space inside", "a b", "", true},
		{"unicode rejected", "ünie", "", true},
		{"leading underscore", "_sneaky", "", true},
		{"trailing dot", "dot.", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeUsername(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidUsername) {
					t.Errorf("expected ErrInvalidUsername, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeUsername(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("NormalizeUsername(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCreateUserNormalizesAndStores(t *testing.T) {
	repo := &directoryRepoStub{}
	service := NewService(repo)

	user, err := service.CreateUser(context.Background(), domain.CreateUserRequest{Username: "  Alice  "})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("stored username = %q, want normalized %q", user.Username, "alice")
	}
	if user.ID == uuid.Nil {
		t.Error("expected a generated user id")
	}
	if len(repo.createdUsers) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.createdUsers))
	}
}

func TestCreateUserBlacklist(t *testing.T) {
	repo := &directoryRepoStub{}
	service := NewService(repo)

	// Blacklist applies after normalization, so casing cannot dodge it.
	for _, raw := range []string{"admin", "Admin", "  STACKUP "} {
		if _, err := service.CreateUser(context.Background(), domain.CreateUserRequest{Username: raw}); !errors.Is(err, ErrUsernameBlacklisted) {
			t.Errorf("CreateUser(%q): expected ErrUsernameBlacklisted, got %v", raw, err)
		}
	}
	if len(repo.createdUsers) != 0 {
		t.Errorf("blacklisted names must never reach the store, saw %d inserts", len(repo.createdUsers))
	}
}

func TestCreateUserConflictPassesThrough(t *testing.T) {
	repo := &directoryRepoStub{createUserErr: store.ErrUsernameTaken}
	service := NewService(repo)

	if _, err := service.CreateUser(context.Background(), domain.CreateUserRequest{Username: "alice"}); !errors.Is(err, store.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateWalletValidatesBeforeInsert(t *testing.T) {
	userID := uuid.New()
	repo := &directoryRepoStub{users: map[uuid.UUID]*domain.User{
		userID: {ID: userID, Username: "alice"},
	}}
	service := NewService(repo)

	valid := domain.CreateWalletRequest{
		WalletAddress:      "0x1c2E5a1Fa2E3F3a6c4D5E6f708192a3B4c5D6e7F",
		InitImplementation: "0x02f939e7F2B25aF3B3f5b2a2C3d4E5F6a7B8C9d0",
		InitEntryPoint:     "0x78981922613B2AfB6f1226f0dc558a1c8a80008E",
		InitOwner:          "0x3aB1c2D3e4F5061728394A5b6C7d8E9f0A1b2C3d",
		InitGuardians:      []string{" 0x4bC1d2E3f40516273849Ab5c6D7e8F9a0B1c2D3e "},
		EncryptedSigner:    "c29tZS1lbmNyeXB0ZWQtYmxvYg==",
	}

	wallet, err := service.CreateWallet(context.Background(), userID, valid)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if wallet.UserID != userID {
		t.Errorf("wallet.UserID = %s, want %s", wallet.UserID, userID)
	}
	if wallet.InitGuardians[0] != "0x4bC1d2E3f40516273849Ab5c6D7e8F9a0B1c2D3e" {
		t.Errorf("guardian not trimmed: %q", wallet.InitGuardians[0])
	}

	bad := valid
	bad.InitOwner = "not-an-address"
	if _, err := service.CreateWallet(context.Background(), userID, bad); !errors.Is(err, store.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	if len(repo.wallets) != 1 {
		t.Errorf("invalid wallet must not be inserted, store saw %d inserts", len(repo.wallets))
	}

	if _, err := service.CreateWallet(context.Background(), uuid.New(), valid); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for unknown user, got %v", err)
	}
}

func TestSearchByWalletAddressesBounds(t *testing.T) {
	service := NewService(&directoryRepoStub{})

	owners, err := service.SearchByWalletAddresses(context.Background(), nil, false)
	if err != nil || owners != nil {
		t.Errorf("empty query should be a cheap no-op, got (%v, %v)", owners, err)
	}

	tooMany := make([]string, 101)
	if _, err := service.SearchByWalletAddresses(context.Background(), tooMany, false); err == nil {
		t.Error("expected an error for more than 100 addresses")
	}
}

func TestIsBlacklistedUsername(t *testing.T) {
	for _, name := range []string{"admin", "Root", " support ", "sign-up"} {
		if !IsBlacklistedUsername(name) {
			t.Errorf("IsBlacklistedUsername(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"alice", "admin2", ""} {
		if IsBlacklistedUsername(name) {
			t.Errorf("IsBlacklistedUsername(%q) = true, want false", name)
		}
	}
}
