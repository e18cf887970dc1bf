// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/appointment"
	"github.com/trezcool/teleapo/core/lead"
	"github.com/trezcool/teleapo/core/project"
	"github.com/trezcool/teleapo/core/user"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		AppName:          "Teleapo",
		AppID:            "teleapo-test",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@teleapo.test",
		Session: core.SessionConfig{
			Secret: "test-session-secret",
			MaxAge: 365 * 24 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
	}
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidatorWithTranslator()
	return validate
}

// NewValidatorWithTranslator also returns the translator the validation messages are registered on.
func NewValidatorWithTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lead.InitValidators(validate, translator)
	appointment.InitValidators(validate, translator)
	project.InitValidators(validate, translator)
	return validate, translator
}

// LogEntry is one message recorded by LoggerMock.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// LoggerMock records the logged messages instead of printing them.
type LoggerMock struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*LoggerMock)(nil)

func NewLoggerMock() *LoggerMock {
	return &LoggerMock{}
}

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Count returns the number of messages logged at level.
func (l *LoggerMock) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// CreateUser inserts a user with the given role. name is also used to derive the OpenID and email.
func CreateUser(t *testing.T, repo user.Repository, name, role string) user.User {
	t.Helper()
	email := name + "@teleapo.test"
	usr, err := repo.UpsertUser(context.Background(), user.UpsertUser{
		OpenID:       "open-" + name,
		Name:         &name,
		Email:        &email,
		Role:         &role,
		LastSignedIn: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateLead inserts an unreached lead, owned by ownerID when not 0.
func CreateLead(t *testing.T, repo lead.Repository, name string, ownerID int, createdAt ...time.Time) lead.Lead {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	l, err := repo.CreateLead(context.Background(), lead.Lead{
		Name:      name,
		Company:   null.StringFrom(name + " Inc."),
		Phone:     "tel-" + name,
		Status:    lead.StatusUnreached,
		OwnerID:   null.NewInt(ownerID, ownerID != 0),
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateLead() failed: %v", err)
	}
	return l
}
