package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/astro"
	"github.com/goliatone/go-formflow/pkg/contract"
	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/location"
	"github.com/goliatone/go-formflow/pkg/profile"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func defaultContract(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.Default()
	require.NoError(t, err)
	return c
}

func TestUserClientRoundTrip(t *testing.T) {
	var (
		mu      sync.Mutex
		patched map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/me", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"user":{"id":"u1","firstName":"Jane","lastName":"Doe","email":"a@b.com","country":"US","isGoogleUser":true}}`)
		case http.MethodPatch:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := NewUserClient(srv.URL+"/v1/", WithToken("secret"), WithContract(defaultContract(t)))

	user, err := c.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.FirstName)
	assert.True(t, user.ExternalAuth)

	err = c.UpdateUser(context.Background(), profile.Patch{FirstName: "Ann", LastName: "Doe", Country: "US"})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	inner, ok := patched["user"].(map[string]any)
	require.True(t, ok, "body is wrapped in a user envelope")
	assert.Equal(t, "Ann", inner["firstName"])
	_, hasEmail := inner["email"]
	assert.False(t, hasEmail)
}

func TestUserClientContractRejectsBadPatch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := NewUserClient(srv.URL, WithContract(defaultContract(t)))
	err := c.UpdateUser(context.Background(), profile.Patch{FirstName: "Ann", LastName: "Doe", Country: "USA"})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrViolation)
	assert.Zero(t, atomic.LoadInt32(&hits), "invalid payloads are not sent")
}

func TestClassifyResponses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    faults.Kind
		message string
		fields  map[string][]string
	}{
		{name: "legacy expired on 401", status: 401, body: `{"message":"Token expired"}`, kind: faults.KindExpiredToken, message: "Token expired"},
		{name: "legacy expired plain text", status: 403, body: `Token expired`, kind: faults.KindExpiredToken, message: "Token expired"},
		{name: "legacy unauthorized json string", status: 500, body: `"Unauthorized"`, kind: faults.KindUnauthorized, message: "Unauthorized"},
		{name: "differently cased expiry on 500", status: 500, body: `{"message":"token EXPIRED"}`, kind: faults.KindTransport, message: "token EXPIRED"},
		{name: "lowercase unauthorized on 500", status: 500, body: `{"message":"unauthorized"}`, kind: faults.KindTransport, message: "unauthorized"},
		{name: "lowercase expiry on 401 keeps server text", status: 401, body: `{"message":"token expired"}`, kind: faults.KindUnauthorized, message: "token expired"},
		{name: "bare 401", status: 401, body: ``, kind: faults.KindUnauthorized, message: "Unauthorized"},
		{name: "server error with message", status: 503, body: `{"error":"Service unavailable"}`, kind: faults.KindTransport, message: "Service unavailable"},
		{name: "html error page", status: 502, body: `<html>bad gateway</html>`, kind: faults.KindTransport, message: ""},
		{name: "gateway timeout", status: 504, body: ``, kind: faults.KindTimeout, message: ""},
		{
			name:    "validation map",
			status:  422,
			body:    `{"message":"Invalid input","errors":{"/user/email":["Email already taken"],"#/body/user/firstName":"Too long","base":["Try again"]}}`,
			kind:    faults.KindServerValidation,
			message: "Invalid input",
			fields: map[string][]string{
				"email":      {"Email already taken"},
				"firstName":  {"Too long"},
				formLevelKey: {"Try again"},
			},
		},
		{
			name:    "validation list",
			status:  400,
			body:    `{"errors":[{"field":"user.country","message":"Unknown country"},{"path":"about[0]","message":"Too long"}]}`,
			kind:    faults.KindServerValidation,
			message: "",
			fields: map[string][]string{
				"country": {"Unknown country"},
				"about":   {"Too long"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.status, []byte(tc.body))
			assert.Equal(t, tc.kind, faults.KindOf(err))
			assert.Equal(t, tc.message, faults.MessageOf(err, ""))
			assert.Equal(t, tc.fields, faults.FieldMessages(err))
			assert.Equal(t, tc.status, statusOf(err))
		})
	}
}

func TestClassifyOnlyExactLegacyTokensOutside401(t *testing.T) {
	for _, message := range []string{"token expired", "TOKEN EXPIRED", "unauthorized", "Token expired.", " Unauthorized!"} {
		err := classify(http.StatusInternalServerError, []byte(`{"message":"`+message+`"}`))
		assert.False(t, faults.IsSession(err), "message %q must not end the session", message)
	}
	assert.True(t, faults.IsSession(classify(http.StatusInternalServerError, []byte(`{"message":"Token expired"}`))))
	assert.True(t, faults.IsSession(classify(http.StatusInternalServerError, []byte(`{"error":"Unauthorized"}`))))
}

func TestClassifyValidationFixture(t *testing.T) {
	body := testsupport.MustReadFixture(t, "testdata/validation_error.json")
	want := testsupport.MustDecodeJSON[map[string][]string](t, "testdata/validation_error.fields.json")

	err := classify(http.StatusUnprocessableEntity, body)
	assert.Equal(t, faults.KindServerValidation, faults.KindOf(err))
	assert.Equal(t, "Profile could not be saved", faults.MessageOf(err, ""))
	if diff := testsupport.CompareGolden(want, faults.FieldMessages(err)); diff != "" {
		t.Fatalf("field messages mismatch (-want +got):\n%s", diff)
	}
}

func TestChartClientUsesModeEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/astro/zodiac", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1990-08-15", body["dateOfBirth"])
		_, hasMode := body["mode"]
		assert.False(t, hasMode)
		_, _ = io.WriteString(w, `{"data":{"sign":"Leo","element":"Fire"}}`)
	}))
	defer srv.Close()

	c := NewChartClient(srv.URL, WithContract(defaultContract(t)))
	lat, lng := 12.97, 77.59
	chart, err := c.ComputeChart(context.Background(), astro.BirthDetails{
		DateOfBirth: "1990-08-15",
		Latitude:    &lat,
		Longitude:   &lng,
		Mode:        astro.ModeZodiac,
	})
	require.NoError(t, err)
	assert.Equal(t, "Leo", chart.Sign)
	assert.Equal(t, astro.ModeZodiac, chart.Mode)
}

func TestChartClientRejectsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"element":"Fire"}}`)
	}))
	defer srv.Close()

	c := NewChartClient(srv.URL, WithContract(defaultContract(t)))
	_, err := c.ComputeChart(context.Background(), astro.BirthDetails{DateOfBirth: "1990-08-15"})
	require.Error(t, err)
	assert.Equal(t, faults.KindTransport, faults.KindOf(err))
	assert.ErrorIs(t, err, contract.ErrViolation)
}

func TestCountryClientSharesAndCachesLoads(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = io.WriteString(w, `{"data":[{"code":"FR","name":"France","flag":"javascript:alert(1)"},{"code":"US","name":"United States","flag":"https://flagcdn.com/us.svg"}]}`)
	}))
	defer srv.Close()

	c := NewCountryClient(srv.URL+"/api/countries", WithContract(defaultContract(t)))

	var wg sync.WaitGroup
	results := make([][]countries.Country, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list, err := c.ListCountries(context.Background())
			assert.NoError(t, err)
			results[i] = list
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, list := range results {
		require.Len(t, list, 2)
		assert.Empty(t, list[0].Flag, "unsafe flag URLs are dropped")
		assert.Equal(t, "https://flagcdn.com/us.svg", list[1].Flag)
	}

	_, err := c.ListCountries(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&hits), int32(4))
	before := atomic.LoadInt32(&hits)
	_, _ = c.ListCountries(context.Background())
	assert.Equal(t, before, atomic.LoadInt32(&hits), "cached lists are not refetched")

	c.Invalidate()
	_, err = c.ListCountries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before+1, atomic.LoadInt32(&hits))
}

func TestCountryClientServesComponent(t *testing.T) {
	mux := http.NewServeMux()
	pattern, err := countries.RegisterRoutes(mux, "/", countries.WithCountries([]countries.Country{{Code: "AT", Name: "Austria"}}))
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	list, err := NewCountryClient(srv.URL+pattern, WithContract(defaultContract(t))).ListCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://flagcdn.com/at.svg", list[0].Flag)
}

func TestIPLocator(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    location.Coordinate
		kind    faults.Kind
		message string
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"success","lat":51.5,"lon":-0.12}`)
			},
			want: location.Coordinate{Lat: 51.5, Lng: -0.12},
		},
		{
			name: "lookup failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"fail","message":"private range"}`)
			},
			kind:    faults.KindUnavailable,
			message: location.MessageUnavailable,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			kind:    faults.KindPermissionDenied,
			message: location.MessagePermissionDenied,
		},
		{
			name: "slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			kind:    faults.KindTimeout,
			message: location.MessageTimeout,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			loc := NewIPLocator(srv.URL, 50*time.Millisecond)
			coord, err := loc.CurrentPosition(context.Background())
			if tc.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, coord)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.kind, faults.KindOf(err))
			assert.Equal(t, tc.message, location.GeoMessage(err))
		})
	}
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewUserClient(url).FetchCurrentUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindTransport, faults.KindOf(err))
	assert.False(t, faults.IsSession(err))
	assert.False(t, errors.Is(err, contract.ErrViolation))
}
