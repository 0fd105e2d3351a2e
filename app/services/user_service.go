package services

import (
	"errors"
	"fmt"

	"inkpost/app/apperrors"
	"inkpost/app/config"
	"inkpost/app/models"
	"inkpost/app/repositories"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserDirectory resolves the author of a post or comment for visibility decisions.
type UserDirectory interface {
	ResolveByID(id int) (models.Author, error)
}

// UserService manages accounts: claimed accounts with passwords and unclaimed
// dummy accounts created for first-time commenters.
type UserService struct {
	users repositories.UserRepository
	cfg   config.UsersConfig
	cost  int
}

var _ UserDirectory = (*UserService)(nil)

// NewUserService creates a UserService
func NewUserService(users repositories.UserRepository, cfg config.UsersConfig) *UserService {
	return &UserService{users: users, cfg: cfg, cost: bcrypt.DefaultCost}
}

func (s *UserService) lookupFailed(err error, userMessage, detail string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info().Str("detail", detail).Msg("User lookup found nothing")
		return apperrors.Wrap(apperrors.NotFound, err, userMessage, detail)
	}
	log.Error().Err(err).Str("detail", detail).Msg("User lookup failed")
	return apperrors.Wrap(apperrors.StorageIOError, err, "", detail)
}

// ResolveByID returns the moderation view of a user.
func (s *UserService) ResolveByID(id int) (models.Author, error) {
	user, err := s.GetUserWithID(id)
	if err != nil {
		return models.Author{}, err
	}
	return user.Author(), nil
}

// GetUserWithID retrieves a user by id
func (s *UserService) GetUserWithID(id int) (*models.User, error) {
	user, err := s.users.FindByID(id)
	if err != nil {
		return nil, s.lookupFailed(err, "No user with that id exists.", fmt.Sprintf("user id %d does not exist", id))
	}
	return user, nil
}

// GetManyUsersWithIDs returns the users that exist among ids. Unknown ids are left out.
func (s *UserService) GetManyUsersWithIDs(ids []int) ([]*models.User, error) {
	users, err := s.users.FindByIDs(ids)
	if err != nil {
		log.Error().Err(err).Ints("ids", ids).Msg("Failed to load users")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to load users")
	}
	return users, nil
}

// GetUserWithName retrieves a user by name
func (s *UserService) GetUserWithName(name string) (*models.User, error) {
	user, err := s.users.FindByName(name)
	if err != nil {
		return nil, s.lookupFailed(err, "No user with that name exists.", fmt.Sprintf("username %q does not exist", name))
	}
	return user, nil
}

// GetUserWithEmail retrieves a user by email
func (s *UserService) GetUserWithEmail(email string) (*models.User, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, s.lookupFailed(err, "No account exists with the given email.", fmt.Sprintf("email %q does not exist", email))
	}
	return user, nil
}

// GetUserWithNameAndPassword authenticates a claimed account.
func (s *UserService) GetUserWithNameAndPassword(name, password string) (*models.User, error) {
	user, err := s.GetUserWithName(name)
	if err != nil {
		return nil, err
	}
	if user.UnclaimedAccount {
		log.Info().Str("username", name).Msg("Login attempted on unclaimed account")
		return nil, apperrors.New(apperrors.Forbidden,
			"Your account has not yet been claimed. Please head to the register page to claim your account.",
			"user has not claimed their account")
	}
	if user.PasswordHash == "" {
		log.Info().Str("username", name).Msg("Login attempted on account without password")
		return nil, apperrors.New(apperrors.Forbidden,
			"Your password has not been set up yet. Please reset your password.", "user's password is not set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Info().Str("username", name).Msg("Login attempted with incorrect password")
		return nil, apperrors.New(apperrors.Forbidden, "Incorrect password.", "incorrect password")
	}
	return user, nil
}

// RegisterDummyUser creates an unclaimed account that can comment but cannot log in.
func (s *UserService) RegisterDummyUser(name, email, ip string) (*models.User, error) {
	if !s.cfg.DummyRegistrationsEnabled {
		return nil, apperrors.New(apperrors.Forbidden,
			"Failed to create account because registrations are closed at this time", "dummy registrations disabled")
	}
	user := &models.User{
		Name:             name,
		Email:            email,
		LastIP:           ip,
		UnclaimedAccount: true,
	}
	user.AddRoles(models.DefaultUserRoles...)
	if err := s.create(user); err != nil {
		return nil, err
	}
	log.Info().Int("userId", user.ID).Str("username", name).Msg("Created new dummy user")
	return user, nil
}

// RegisterUser creates a claimed account with a bcrypt hashed password.
func (s *UserService) RegisterUser(name, email, password string, roles ...string) (*models.User, error) {
	if !s.cfg.RegistrationsEnabled {
		return nil, apperrors.New(apperrors.Forbidden,
			"Failed to create account because registrations are closed at this time", "registrations disabled")
	}
	if password == "" {
		return nil, apperrors.New(apperrors.InvalidArgument, "Please choose a password.", "empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidArgument, err, "That password cannot be used.", "failed to hash password")
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	user.AddRoles(roles...)
	user.AddRoles(models.DefaultUserRoles...)
	if err := s.create(user); err != nil {
		return nil, err
	}
	log.Info().Int("userId", user.ID).Str("username", name).Msg("Registered new user")
	return user, nil
}

func (s *UserService) create(user *models.User) error {
	if err := user.Validate(); err != nil {
		log.Warn().Err(err).Str("username", user.Name).Msg("Rejected account with invalid name or email")
		return apperrors.Wrap(apperrors.InvalidArgument, err,
			"Username contained invalid characters or the email is malformed. "+
				"Please only use latin letters a-Z, numbers, underscores(_), and dashes(-)",
			"user failed validation")
	}

	err := s.users.Create(user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNameTaken):
		log.Warn().Str("username", user.Name).Msg("Could not create user because the name is taken")
		return apperrors.Wrap(apperrors.Conflict, err, "Username is already taken", "duplicate username")
	case errors.Is(err, repositories.ErrEmailTaken):
		log.Warn().Str("email", user.Email).Msg("Could not create user because the email is registered")
		return apperrors.Wrap(apperrors.Conflict, err, "Email is already registered", "duplicate email")
	default:
		log.Error().Err(err).Str("username", user.Name).Msg("Failed to save user")
		return apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to save user")
	}
}

// SetShadowBanned hides or reveals everything the user has written.
func (s *UserService) SetShadowBanned(id int, banned bool) (*models.User, error) {
	return s.moderate(id, func(u *models.User) { u.ShadowBanned = banned })
}

// SetAccountDisabled blocks or unblocks the user from posting.
func (s *UserService) SetAccountDisabled(id int, disabled bool) (*models.User, error) {
	return s.moderate(id, func(u *models.User) { u.AccountDisabled = disabled })
}

func (s *UserService) moderate(id int, change func(*models.User)) (*models.User, error) {
	user, err := s.GetUserWithID(id)
	if err != nil {
		return nil, err
	}
	change(user)
	if err := s.users.Save(user); err != nil {
		log.Error().Err(err).Int("userId", id).Msg("Failed to save moderation change")
		return nil, apperrors.Wrap(apperrors.StorageIOError, err, "", "failed to save user")
	}
	log.Info().Int("userId", id).Bool("shadowBanned", user.ShadowBanned).Bool("accountDisabled", user.AccountDisabled).
		Msg("Updated user moderation flags")
	return user, nil
}
