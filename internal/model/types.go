package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthProvider tags how an account was originally created.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// Account represents a user account
type Account struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     *string
	IsVerified       bool
	IsActive         bool
	AuthProvider     AuthProvider
	IsGoogleLinked   bool
	FirstName        *string
	LastName         *string
	RefreshTokenHash *string
	CreatedAt        time.Time
}

// HasPassword reports whether a local password has been set.
func (a Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// NewAccount carries the fields needed to insert an account.
type NewAccount struct {
	Email          string
	PasswordHash   *string
	IsVerified     bool
	AuthProvider   AuthProvider
	IsGoogleLinked bool
	FirstName      *string
	LastName       *string
}

// AccountPatch is a partial update of profile fields. Nil means unchanged.
type AccountPatch struct {
	FirstName *string
	LastName  *string
}

// TokenPurpose distinguishes what a one-time token proves.
type TokenPurpose string

const (
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// OneTimeToken is a single-use proof of email control. Only the hash is stored.
type OneTimeToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   TokenPurpose
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// TokenPair is what a successful login, refresh or link returns.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Conversation groups chat messages for one account
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Summary   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a stored chat message; Ciphertext is never plaintext.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Sender         Sender
	Ciphertext     string
	CreatedAt      time.Time
}

// ChatLine is a decrypted message as returned to the owner.
type ChatLine struct {
	ID        uuid.UUID
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// MoodLog is a single mood rating between MinMood and MaxMood.
type MoodLog struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Mood      int
	CreatedAt time.Time
}

const (
	MinMood = 1
	MaxMood = 5
)

// JournalEntry is a free-form journal note with optional mood and tags.
type JournalEntry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Mood        *int
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JournalPatch is a partial update of a journal entry. Nil means unchanged.
type JournalPatch struct {
	Title       *string
	Description *string
	Mood        *int
	Tags        *[]string
}
