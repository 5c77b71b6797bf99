package model

import (
	"fmt"
	"strings"
	"time"
)

type View string

const (
	ViewLanding     View = "LANDING"
	ViewLogin       View = "LOGIN"
	ViewMenu        View = "MENU"
	ViewChat        View = "CHAT"
	ViewAdmin       View = "ADMIN"
	ViewPlaceholder View = "PLACEHOLDER"
)

func ParseView(value string) (View, bool) {
	switch View(strings.ToUpper(strings.TrimSpace(value))) {
	case ViewLanding:
		return ViewLanding, true
	case ViewLogin:
		return ViewLogin, true
	case ViewMenu:
		return ViewMenu, true
	case ViewChat:
		return ViewChat, true
	case ViewAdmin:
		return ViewAdmin, true
	case ViewPlaceholder:
		return ViewPlaceholder, true
	default:
		return "", false
	}
}

type Session struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RawRole       string `json:"role"`
	Role          Role   `json:"roleClass"`
	Authenticated bool   `json:"authenticated"`
}

// NewSession classifies the raw role once so gates never re-parse it.
func NewSession(id, name, rawRole string) Session {
	if rawRole == "" {
		rawRole = "Student"
	}
	return Session{
		ID:            id,
		Name:          name,
		RawRole:       rawRole,
		Role:          ClassifyRole(rawRole),
		Authenticated: true,
	}
}

type User struct {
	DocID        string    `json:"docId"`
	StudentID    string    `json:"studentId"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.StudentID
}

type NewUser struct {
	StudentID string `json:"studentId" validate:"required,max=128"`
	Name      string `json:"name" validate:"required,max=200"`
	Role      string `json:"role" validate:"omitempty,max=32"`
	Password  string `json:"password" validate:"omitempty,min=4,max=128"`
}

type ReportStatus string

const (
	ReportNew           ReportStatus = "Baru"
	ReportInvestigating ReportStatus = "Siasatan"
	ReportResolved      ReportStatus = "Selesai"
)

func ParseReportStatus(value string) (ReportStatus, error) {
	switch ReportStatus(strings.TrimSpace(value)) {
	case ReportNew:
		return ReportNew, nil
	case ReportInvestigating:
		return ReportInvestigating, nil
	case ReportResolved:
		return ReportResolved, nil
	default:
		return "", fmt.Errorf("invalid report status %q", value)
	}
}

type Report struct {
	ID        string       `json:"id"`
	Student   string       `json:"student"`
	Class     string       `json:"class"`
	Issue     string       `json:"issue"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"date"`
}

type NewReport struct {
	Student string `json:"student" validate:"required,max=200"`
	Class   string `json:"class" validate:"max=64"`
	Issue   string `json:"issue" validate:"required,max=4000"`
}

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatMessage struct {
	ID        string   `json:"id"`
	Role      ChatRole `json:"role"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}

type Language string

const (
	LanguageMalay   Language = "ms"
	LanguageEnglish Language = "en"
)

// ParseLanguage falls back to Malay, the application's default language.
func ParseLanguage(value string) Language {
	if Language(strings.ToLower(strings.TrimSpace(value))) == LanguageEnglish {
		return LanguageEnglish
	}
	return LanguageMalay
}

type Story struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	Moral              string `json:"moral"`
	IllustrationPrompt string `json:"visualPrompt"`
}

// FeatureUsageCounter is the analytics counter incremented on every feature click.
const FeatureUsageCounter = "feature_usage"
