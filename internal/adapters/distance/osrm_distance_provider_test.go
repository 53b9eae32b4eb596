package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"collection-route-service/internal/domain"
	"collection-route-service/internal/geo"
	"collection-route-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	notreDame = domain.Coordinates{Lat: 48.8530, Lon: 2.3499}
	louvre    = domain.Coordinates{Lat: 48.8606, Lon: 2.3376}
)

func newTestProvider(t *testing.T, url string) *OSRMDistanceProvider {
	t.Helper()
	p, err := NewOSRMDistanceProvider(OSRMOptions{BaseURL: url, MaxPlausibleMeters: DefaultMaxPlausibleMeters})
	require.NoError(t, err)
	p.retryBackoff = time.Millisecond
	return p
}

func TestOSRMGetDistanceSuccess(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":1834.2,"duration":301.5}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	res, err := p.GetDistance(context.Background(), notreDame, louvre)
	require.NoError(t, err)

	assert.Equal(t, 1834.2, res.DistanceMeters)
	assert.Equal(t, 301.5, res.DurationSeconds)
	assert.Equal(t, "/route/v1/driving/2.349900,48.853000;2.337600,48.860600", gotPath)
	assert.Contains(t, gotQuery, "overview=false")
}

func TestOSRMGetDistanceRejectsBadAnswers(t *testing.T) {
	cases := map[string]string{
		"non ok code":   `{"code":"NoRoute","message":"Impossible route"}`,
		"no routes":     `{"code":"Ok","routes":[]}`,
		"negative":      `{"code":"Ok","routes":[{"distance":-1,"duration":10}]}`,
		"too long":      `{"code":"Ok","routes":[{"distance":50000,"duration":3000}]}`,
		"malformed":     `{"code":`,
		"missing value": `{"code":"Ok","routes":[{"duration":10}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			_, err := newTestProvider(t, srv.URL).GetDistance(context.Background(), notreDame, louvre)
			assert.Error(t, err)
		})
	}
}

func TestOSRMImplausibleIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":12001,"duration":900}]}`)
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL).GetDistance(context.Background(), notreDame, louvre)
	assert.True(t, errors.Is(err, ErrImplausibleDistance))
}

func TestOSRMCeilingDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":50000,"duration":3000}]}`)
	}))
	defer srv.Close()

	p, err := NewOSRMDistanceProvider(OSRMOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := p.GetDistance(context.Background(), notreDame, louvre)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, res.DistanceMeters)
}

func TestOSRMRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":100,"duration":20}]}`)
	}))
	defer srv.Close()

	res, err := newTestProvider(t, srv.URL).GetDistance(context.Background(), notreDame, louvre)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.DistanceMeters)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOSRMDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL).GetDistance(context.Background(), notreDame, louvre)

	var he *httpStatusError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOSRMTableKeepsAsymmetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/table/v1/driving/"))
		assert.Equal(t, "distance,duration", r.URL.Query().Get("annotations"))
		fmt.Fprint(w, `{"code":"Ok","distances":[[0,1500],[2100,0]],"durations":[[0,200],[260,0]]}`)
	}))
	defer srv.Close()

	p, err := NewOSRMTableProvider(OSRMOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	fwd, rev, err := p.GetDistancePair(context.Background(), notreDame, louvre)
	require.NoError(t, err)

	assert.Equal(t, ports.DistanceResult{DistanceMeters: 1500, DurationSeconds: 200}, fwd)
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 2100, DurationSeconds: 260}, rev)
}

func TestRoutingClientUnreachableEqualsEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewRoutingClient(newTestProvider(t, url))

	acq := client.Fetch(context.Background(), notreDame, louvre, time.Second)

	wantMeters, wantSeconds := geo.Estimate(notreDame, louvre)
	assert.Equal(t, ports.QualityFallback, acq.Quality)
	assert.Equal(t, wantMeters, acq.Forward.DistanceMeters)
	assert.Equal(t, wantSeconds, acq.Forward.DurationSeconds)
	assert.Nil(t, acq.Reverse)
}

func TestRoutingClientTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewRoutingClient(newTestProvider(t, srv.URL))

	start := time.Now()
	acq := client.Fetch(context.Background(), notreDame, louvre, 50*time.Millisecond)

	assert.Equal(t, ports.QualityFallback, acq.Quality)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRoutingClientProviderValue(t *testing.T) {
	mock := NewMockDistanceProvider([]MockPair{{From: notreDame, To: louvre, Meters: 1700, Seconds: 280}})
	client := NewRoutingClient(mock)

	acq := client.Fetch(context.Background(), notreDame, louvre, time.Second)
	assert.Equal(t, ports.QualityProvider, acq.Quality)
	assert.Equal(t, 1700.0, acq.Forward.DistanceMeters)
	assert.Equal(t, 1, mock.Calls())

	acq = client.Fetch(context.Background(), louvre, notreDame, time.Second)
	assert.Equal(t, ports.QualityFallback, acq.Quality)
}

func TestRoutingClientNilProvider(t *testing.T) {
	acq := NewRoutingClient(nil).Fetch(context.Background(), notreDame, louvre, 0)
	assert.Equal(t, ports.QualityFallback, acq.Quality)
}
