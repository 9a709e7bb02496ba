package profile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeUsers struct {
	mu        sync.Mutex
	user      User
	fetchErr  error
	updateErr error
	updates   []Patch
	fetches   int32
	block     chan struct{}
	started   chan struct{}
}

func (f *fakeUsers) FetchCurrentUser(context.Context) (User, error) {
	atomic.AddInt32(&f.fetches, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return User{}, f.fetchErr
	}
	return f.user, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, patch Patch) error {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, patch)
	if f.updateErr != nil {
		return f.updateErr
	}
	f.user.FirstName = patch.FirstName
	f.user.LastName = patch.LastName
	if patch.Email != "" {
		f.user.Email = patch.Email
	}
	f.user.About = patch.About
	f.user.Country = patch.Country
	return nil
}

func (f *fakeUsers) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func doe() User {
	return User{ID: "u1", FirstName: "Jane", LastName: "Doe", Email: "a@b.com", Country: "US"}
}

func mounted(t *testing.T, users *fakeUsers, opts ...Option) *Controller {
	t.Helper()
	c := New(users, opts...)
	require.NoError(t, c.Mount(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func TestMountSeedsFormAndCountries(t *testing.T) {
	user := doe()
	user.Country = "france"
	users := &fakeUsers{user: user}
	list := []countries.Country{{Code: "FR", Name: "France"}, {Code: "US", Name: "United States"}}

	c := New(users, WithCountryService(CountryServiceFunc(func(context.Context) ([]countries.Country, error) {
		return list, nil
	})))
	assert.False(t, c.CountriesReady())
	require.NoError(t, c.Mount(context.Background()))
	defer c.Close()

	assert.True(t, c.CountriesReady())
	assert.Equal(t, list, c.Countries())
	snap := c.Snapshot()
	assert.Equal(t, "Jane", snap.String(FieldFirstName))
	assert.Equal(t, "FR", snap.String(FieldCountry), "country names are normalised to option codes")
	assert.Equal(t, AccountLocal, c.User().AccountType())
}

func TestMountCountryFailureIsNotFatal(t *testing.T) {
	users := &fakeUsers{user: doe()}
	c := New(users, WithCountryService(CountryServiceFunc(func(context.Context) ([]countries.Country, error) {
		return nil, errors.New("offline")
	})))
	require.NoError(t, c.Mount(context.Background()))
	defer c.Close()

	assert.False(t, c.CountriesReady())
	assert.Empty(t, c.Countries())
	assert.True(t, c.Feedback().Empty())
}

func TestMountSessionFaultLogsOut(t *testing.T) {
	var logouts int32
	guard := session.NewGuard(func() { atomic.AddInt32(&logouts, 1) })
	users := &fakeUsers{fetchErr: faults.Session(faults.KindExpiredToken, "Token expired")}

	c := New(users, WithSessionGuard(guard))
	defer c.Close()
	err := c.Mount(context.Background())

	require.Error(t, err)
	assert.True(t, faults.IsSession(err))
	assert.Equal(t, "Token expired Please log in again.", c.Feedback().Text())
	assert.EqualValues(t, 1, atomic.LoadInt32(&logouts))
}

func TestMountWithoutUserService(t *testing.T) {
	c := New(nil)
	defer c.Close()
	assert.ErrorIs(t, c.Mount(context.Background()), ErrNoUserService)
}

func TestMissingFieldNeverReachesService(t *testing.T) {
	cases := []struct {
		field string
		want  string
	}{
		{FieldFirstName, "First name is required"},
		{FieldLastName, "Last name is required"},
		{FieldEmail, "Email is required"},
		{FieldCountry, "Country is required"},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			users := &fakeUsers{user: doe()}
			c := mounted(t, users)
			require.NoError(t, c.Set(tc.field, ""))

			out, err := c.Submit(context.Background())
			require.Error(t, err)
			assert.Equal(t, faults.KindFieldValidation, faults.KindOf(err))
			assert.Equal(t, faults.KindFieldValidation, out.Kind)
			assert.Equal(t, []string{tc.want}, c.Feedback().Errors)
			assert.Zero(t, users.updateCount())
			assert.Equal(t, submit.Idle, c.State())
		})
	}
}

func TestInvalidEmailFlaggedIndependently(t *testing.T) {
	for _, email := range []string{"plainaddress", "user@domain", "user.domain.com"} {
		users := &fakeUsers{user: doe()}
		c := mounted(t, users)
		require.NoError(t, c.Set(FieldEmail, email))
		require.NoError(t, c.Set(FieldFirstName, ""))

		res := c.Validate()
		assert.Equal(t, []string{"First name is required", "Invalid email format"}, res.Messages(), email)
		assert.Equal(t, []string{"Invalid email format"}, res.For(FieldEmail))
	}
}

func TestFixingFieldClearsValidation(t *testing.T) {
	u := doe()
	u.FirstName = ""
	c := mounted(t, &fakeUsers{user: u})

	assert.Equal(t, []string{"First name is required"}, c.Validate().Messages())
	require.NoError(t, c.Set(FieldFirstName, "Ann"))
	assert.Empty(t, c.Validate().Messages())
	assert.True(t, c.Validate().Valid)
}

func TestSubmitSuccessRefreshesAndCompletes(t *testing.T) {
	users := &fakeUsers{user: doe()}
	var completions int32
	var states []submit.State
	c := mounted(t, users, WithCompletion(func() { atomic.AddInt32(&completions, 1) }))

	require.NoError(t, c.Set(FieldFirstName, "Ann"))
	require.NoError(t, c.Set(FieldAbout, "<b>Hello</b> & welcome"))
	states = append(states, c.State())

	before := atomic.LoadInt32(&users.fetches)
	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	states = append(states, out.State)

	assert.Equal(t, []submit.State{submit.Idle, submit.Succeeded}, states)
	assert.EqualValues(t, 1, atomic.LoadInt32(&users.fetches)-before, "refresh fires once")
	assert.EqualValues(t, 1, atomic.LoadInt32(&completions))
	assert.Equal(t, SuccessMessage, c.Feedback().Success)
	assert.Equal(t, "Ann", c.User().FirstName)
	assert.Equal(t, "Hello & welcome", c.Snapshot().String(FieldAbout))
	require.Len(t, users.updates, 1)
	assert.Equal(t, "a@b.com", users.updates[0].Email)

	require.NoError(t, c.Set(FieldLastName, "Roe"))
	assert.Equal(t, submit.Idle, c.State())
	assert.True(t, c.Feedback().Empty(), "editing clears the success banner")
}

func TestRapidSubmitsCallServiceOnce(t *testing.T) {
	users := &fakeUsers{user: doe(), block: make(chan struct{}), started: make(chan struct{})}
	c := mounted(t, users)

	done := make(chan submit.Outcome, 1)
	go func() {
		out, _ := c.Submit(context.Background())
		done <- out
	}()
	<-users.started

	second, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	require.NoError(t, c.Set(FieldFirstName, "Mid"))
	assert.Equal(t, submit.InFlight, c.State(), "edits while in flight keep the state")

	close(users.block)
	first := <-done
	assert.Equal(t, submit.Succeeded, first.State)
	assert.Equal(t, 1, users.updateCount())
}

func TestSessionFaultLogsOutOnceAndRendersMessage(t *testing.T) {
	for _, msg := range []string{"Token expired", "Unauthorized"} {
		t.Run(msg, func(t *testing.T) {
			kind := faults.KindUnauthorized
			if msg == "Token expired" {
				kind = faults.KindExpiredToken
			}
			var logouts int32
			guard := session.NewGuard(func() { atomic.AddInt32(&logouts, 1) })
			users := &fakeUsers{user: doe(), updateErr: faults.Session(kind, msg)}
			c := mounted(t, users, WithSessionGuard(guard))

			out, err := c.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, submit.Failed, out.State)
			assert.Equal(t, msg+" Please log in again.", c.Feedback().Text())

			_, _ = c.Submit(context.Background())
			assert.EqualValues(t, 1, atomic.LoadInt32(&logouts))
		})
	}
}

func TestSubmitFailureUsesFallback(t *testing.T) {
	users := &fakeUsers{user: doe(), updateErr: errors.New("connection reset")}
	var completions int32
	c := mounted(t, users, WithCompletion(func() { atomic.AddInt32(&completions, 1) }))

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, submit.Failed, out.State)
	assert.Equal(t, []string{FallbackMessage}, c.Feedback().Errors)
	assert.Zero(t, atomic.LoadInt32(&completions))
}

func TestValidationAndSessionFaultNeverCombine(t *testing.T) {
	var logouts int32
	guard := session.NewGuard(func() { atomic.AddInt32(&logouts, 1) })
	users := &fakeUsers{user: doe(), updateErr: faults.Session(faults.KindUnauthorized, "Unauthorized")}
	c := mounted(t, users, WithSessionGuard(guard))
	require.NoError(t, c.Set(FieldEmail, "broken"))

	out, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindFieldValidation, faults.KindOf(err))
	assert.False(t, faults.IsSession(err))
	assert.Empty(t, out.Hint)
	assert.Zero(t, users.updateCount())
	assert.Zero(t, atomic.LoadInt32(&logouts))
	assert.False(t, guard.Terminated())
}

func TestExternalAccountEmailLocked(t *testing.T) {
	u := doe()
	u.ExternalAuth = true
	users := &fakeUsers{user: u}
	c := mounted(t, users)

	assert.True(t, c.EmailLocked())
	assert.Equal(t, AccountExternal, c.User().AccountType())
	assert.ErrorIs(t, c.Set(FieldExternalAuth, false), ErrReadOnlyField)

	require.NoError(t, c.Set(FieldEmail, "other@b.com"))
	assert.Equal(t, []string{"Email cannot be changed for externally authenticated accounts"}, c.Validate().Messages())

	require.NoError(t, c.Set(FieldEmail, "A@B.com"))
	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, submit.Succeeded, out.State)
	require.Len(t, users.updates, 1)
	assert.Empty(t, users.updates[0].Email, "email is omitted for external accounts")
}

func TestCloseDiscardsPendingResult(t *testing.T) {
	users := &fakeUsers{user: doe(), block: make(chan struct{}), started: make(chan struct{})}
	var completions int32
	c := New(users, WithCompletion(func() { atomic.AddInt32(&completions, 1) }))
	require.NoError(t, c.Mount(context.Background()))

	done := make(chan submit.Outcome, 1)
	go func() {
		out, _ := c.Submit(context.Background())
		done <- out
	}()
	<-users.started
	c.Close()
	close(users.block)

	out := <-done
	assert.True(t, out.Discarded)
	assert.Zero(t, atomic.LoadInt32(&completions))
	assert.True(t, c.Feedback().Empty())

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, form.ErrClosed)
}

func TestWithUserSeedsBeforeMount(t *testing.T) {
	c := New(&fakeUsers{}, WithUser(doe()))
	defer c.Close()
	assert.Equal(t, "Jane", c.Snapshot().String(FieldFirstName))
	assert.True(t, c.Validate().Valid)
}
