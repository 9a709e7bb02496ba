package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/validation"
)

const (
	// SuccessMessage is shown after the update and refresh both succeed.
	SuccessMessage = "Profile updated successfully! Your changes have been saved."
	// FallbackMessage is shown when a failure carries no message.
	FallbackMessage = "Failed to update profile"

	loadFallbackMessage = "Failed to load profile"
	formName            = "profile"
)

var (
	// ErrNoUserService is returned by Mount when no UserService was supplied.
	ErrNoUserService = errors.New("profile: missing user service")
	// ErrReadOnlyField is returned when Set targets a field owned by the account.
	ErrReadOnlyField = errors.New("profile: read-only field")
)

// Controller drives the profile edit form.
type Controller struct {
	users      UserService
	countrySvc CountryService
	guard      *session.Guard
	onComplete submit.CompletionFunc
	logger     *zap.Logger
	recorder   submit.Recorder
	seed       *User

	store     *form.Store
	validator validation.Validator
	submitter *submit.Submitter

	mu             sync.RWMutex
	user           User
	countryList    []countries.Country
	countriesReady bool
}

// New builds a controller. Call Mount to load the user and country list.
func New(users UserService, opts ...Option) *Controller {
	c := &Controller{
		users:  users,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.Named(formName)

	c.store = form.NewStore(Schema(), nil)
	if c.seed != nil {
		c.user = *c.seed
		c.store.Reset(c.user.values())
	}

	c.validator = validation.New(
		validation.Required(FieldFirstName, "First name is required"),
		validation.Required(FieldLastName, "Last name is required"),
		validation.RequiredEmail(FieldEmail, "Email is required", "Invalid email format"),
		validation.Required(FieldCountry, "Country is required"),
		validation.LockedWhen(FieldExternalAuth, FieldEmail, c.accountEmail,
			"Email cannot be changed for externally authenticated accounts"),
	)

	c.submitter = submit.New(formName, c.store, c.update,
		submit.WithRefresh(c.refresh),
		submit.WithCompletion(c.onComplete),
		submit.WithSessionGuard(c.guard),
		submit.WithFallbackMessage(FallbackMessage),
		submit.WithSuccessMessage(SuccessMessage),
		submit.WithLogger(c.logger),
		submit.WithRecorder(c.recorder),
	)
	return c
}

// Mount loads the current user and the country list concurrently. A country
// failure only leaves the selector empty; a user failure is rendered and
// returned.
func (c *Controller) Mount(ctx context.Context) error {
	if c.users == nil {
		return ErrNoUserService
	}

	var (
		g    errgroup.Group
		user User
	)
	g.Go(func() error {
		u, err := c.users.FetchCurrentUser(ctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if c.countrySvc != nil {
		g.Go(func() error {
			list, err := c.countrySvc.ListCountries(ctx)
			if err != nil {
				c.logger.Warn("country list unavailable", zap.Error(err))
				return nil
			}
			c.setCountries(list)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		hint := ""
		if faults.IsSession(err) {
			hint = submit.DefaultSessionHint
		}
		c.store.SetErrors(hint, faults.MessageOf(err, loadFallbackMessage))
		c.guard.OnFailure(err)
		return fmt.Errorf("profile: mount: %w", err)
	}

	c.EntityChanged(user)
	return nil
}

// EntityChanged replaces the form with the authoritative user. It is called
// after a refresh and whenever the caller learns of a newer user record.
func (c *Controller) EntityChanged(user User) {
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()

	values := user.values()
	values[FieldCountry] = c.canonicalCountry(user.Country)
	c.store.Reset(values)
}

// Set records one edit. Any displayed banner is cleared and a finished
// submission returns to Idle.
func (c *Controller) Set(field string, value any) error {
	if field == FieldExternalAuth {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}
	if err := c.store.Set(field, value); err != nil {
		return err
	}
	c.submitter.Touch()
	return nil
}

// Validate runs the profile rules against the current values.
func (c *Controller) Validate() validation.Result {
	return c.validator.Validate(c.store.Snapshot())
}

// Submit validates and, when valid, sends the update. Validation failures are
// rendered and returned as a field validation fault without reaching the
// UserService. Remote failures are reported through the Outcome only.
func (c *Controller) Submit(ctx context.Context) (submit.Outcome, error) {
	if c.submitter.InFlight() {
		return submit.Outcome{State: submit.InFlight, Skipped: true}, nil
	}
	if c.store.Closed() {
		return submit.Outcome{State: c.submitter.State(), Discarded: true}, form.ErrClosed
	}

	snapshot := c.store.Snapshot()
	result := c.validator.Validate(snapshot)
	if !result.Valid {
		c.store.SetErrors("", result.Messages()...)
		return submit.Outcome{State: c.submitter.State(), Kind: faults.KindFieldValidation}, validationFault(result)
	}
	return c.submitter.Submit(ctx, snapshot), nil
}

// Close tears the controller down. Results of a pending submission are
// discarded.
func (c *Controller) Close() {
	c.submitter.Detach()
	c.store.Close()
}

// User returns the authoritative user last loaded.
func (c *Controller) User() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// EmailLocked reports whether the email field is read-only for this account.
func (c *Controller) EmailLocked() bool {
	return c.User().ExternalAuth
}

// Snapshot returns the current form values.
func (c *Controller) Snapshot() form.Snapshot { return c.store.Snapshot() }

// Feedback returns the banner state.
func (c *Controller) Feedback() form.Feedback { return c.store.Feedback() }

// State returns the submission state.
func (c *Controller) State() submit.State { return c.submitter.State() }

// Subscribe registers fn for form changes.
func (c *Controller) Subscribe(fn form.Listener) func() { return c.store.Subscribe(fn) }

// Countries returns the loaded country options.
func (c *Controller) Countries() []countries.Country {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]countries.Country(nil), c.countryList...)
}

// CountriesReady reports whether the country list has arrived. The selector is
// disabled until then.
func (c *Controller) CountriesReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.countriesReady
}

func (c *Controller) update(ctx context.Context, snapshot form.Snapshot) (any, error) {
	patch := NewPatch(snapshot)
	if err := c.users.UpdateUser(ctx, patch); err != nil {
		return nil, err
	}
	return patch, nil
}

func (c *Controller) refresh(ctx context.Context) error {
	user, err := c.users.FetchCurrentUser(ctx)
	if err != nil {
		return err
	}
	c.EntityChanged(user)
	return nil
}

func (c *Controller) accountEmail() string {
	return c.User().Email
}

func (c *Controller) setCountries(list []countries.Country) {
	c.mu.Lock()
	c.countryList = append([]countries.Country(nil), list...)
	c.countriesReady = true
	c.mu.Unlock()

	current := c.store.Snapshot().Trimmed(FieldCountry)
	if canonical := c.canonicalCountry(current); canonical != current {
		_ = c.store.Assign(map[string]any{FieldCountry: canonical})
	}
}

// canonicalCountry maps a stored country name or lower-case code onto the
// option code, leaving unknown values as they are.
func (c *Controller) canonicalCountry(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if country, ok := countries.Resolve(c.countryList, trimmed); ok {
		return country.Code
	}
	return value
}

func validationFault(result validation.Result) error {
	messages := result.Messages()
	fault := faults.New(faults.KindFieldValidation, messages[0])
	fault.Fields = make(map[string][]string)
	for _, issue := range result.Issues {
		fault.Fields[issue.Field] = append(fault.Fields[issue.Field], issue.Message)
	}
	return fault
}
