package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/harvestbridge/harvest-bridge/internal/http/v1/farms"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/posts"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/profile"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/users"
	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
	farmsvc "github.com/harvestbridge/harvest-bridge/internal/service/farm"
	postsvc "github.com/harvestbridge/harvest-bridge/internal/service/post"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
	"github.com/harvestbridge/harvest-bridge/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func greenAcres() *schema.FarmProfile {
	return &schema.FarmProfile{
		FarmName:        "Green Acres",
		FarmLocation:    "12 Rural Rd, County",
		FarmSize:        ptr(10.0),
		ProductionScale: schema.ScaleSmall,
		OwnershipStatus: schema.OwnershipOwned,
		FullName:        "Jane Doe",
		ContactPhone:    "1234567890",
		Gender:          schema.GenderFemale,
		FarmType:        schema.FarmMixed,
	}
}

func maize() *schema.Post {
	return &schema.Post{
		Product: schema.Product{Item: "Maize", Quantity: ptr(50.0), Price: ptr(120.0), Unit: "bag"},
	}
}

// newAPI serves the real handlers over memory stores.
func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	farmStore := farmsvc.NewMemoryStore()
	profiles := profilesvc.NewMemoryStore()
	offloader := media.NewOffloader(media.NewMemory("http://media.test/"))
	router := testutil.Router(testutil.Verifier(), func(api huma.API) {
		farms.Register(api, farmStore, offloader)
		posts.Register(api, postsvc.NewMemoryStore(), farmStore, offloader)
		profile.Register(api, profiles, offloader)
		users.Register(api, profiles)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(serverURL, token string) *Client {
	return New(nil, WithBaseURL(serverURL), WithToken(token))
}

func TestFarmLifecycle(t *testing.T) {
	srv := newAPI(t)
	c := newTestClient(srv.URL, testutil.TokenU1)
	ctx := context.Background()

	created, err := c.CreateFarm(ctx, greenAcres())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.UserID != "U1" || created.FarmName != "Green Acres" {
		t.Fatalf("unexpected farm %+v", created)
	}

	page, err := c.ListFarms(ctx, FarmQuery{Mine: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.FarmData[0].ID != created.ID {
		t.Fatalf("unexpected page %+v", page)
	}

	in := greenAcres()
	in.FarmName = "Green Acres East"
	replaced, err := c.ReplaceFarm(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.FarmName != "Green Acres East" {
		t.Errorf("expected new name, got %q", replaced.FarmName)
	}

	if err := c.DeleteFarm(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetFarm(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidatesBeforeSending(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	in := greenAcres()
	in.FarmName = ""
	_, err := newTestClient(srv.URL, testutil.TokenU1).CreateFarm(context.Background(), in)

	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Issues[0].Path != "farmName" {
		t.Errorf("expected farmName issue, got %+v", verr.Issues)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no request, got %d", hits.Load())
	}
}

func TestPostFlagsAndFilters(t *testing.T) {
	srv := newAPI(t)
	c := newTestClient(srv.URL, testutil.TokenU1)
	ctx := context.Background()

	first, err := c.CreatePost(ctx, maize())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.CreatePost(ctx, maize()); err != nil {
		t.Fatalf("create: %v", err)
	}

	toggled, err := c.TogglePostFlag(ctx, first.ID, schema.FlagPinned)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Flag(schema.FlagPinned) {
		t.Fatal("expected pinned after toggle")
	}

	pinned, err := c.ListPosts(ctx, PostQuery{UserID: "U1", Pinned: ptr(true)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if pinned.Total != 1 || pinned.PostData[0].ID != first.ID {
		t.Fatalf("unexpected pinned page %+v", pinned)
	}

	other := newTestClient(srv.URL, testutil.TokenU2)
	if _, err := other.TogglePostFlag(ctx, first.ID, schema.FlagPinned); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a foreign post, got %v", err)
	}
	if err := other.DeletePost(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a foreign delete, got %v", err)
	}
}

func TestCreatePostRequiresToken(t *testing.T) {
	srv := newAPI(t)
	_, err := New(nil, WithBaseURL(srv.URL)).CreatePost(context.Background(), maize())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestProfilesPageAndRate(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	u1 := newTestClient(srv.URL, testutil.TokenU1)
	u2 := newTestClient(srv.URL, testutil.TokenU2)

	for _, tc := range []struct {
		c    *Client
		name string
	}{{u1, "alice"}, {u2, "bob"}} {
		_, err := tc.c.CreateProfile(ctx, &schema.UserProfile{
			Email:    tc.name + "@example.com",
			Username: tc.name,
			FullName: tc.name + " Farmer",
			Role:     schema.RoleFarmer,
		})
		if err != nil {
			t.Fatalf("create %s: %v", tc.name, err)
		}
	}

	first, err := u1.ListProfiles(ctx, ProfileQuery{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Profiles) != 1 || first.NextCursor == "" {
		t.Fatalf("expected one profile and a cursor, got %+v", first)
	}
	second, err := u1.ListProfiles(ctx, ProfileQuery{Limit: 1, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("list next: %v", err)
	}
	got := []string{first.Profiles[0].UserID, second.Profiles[0].UserID}
	if diff := cmp.Diff([]string{"U1", "U2"}, got); diff != "" {
		t.Errorf("profiles mismatch (-want +got):\n%s", diff)
	}

	rated, err := u2.RateProfile(ctx, "U1", &schema.Rating{FarmerRating: ptr(4.0), Review: "fresh"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.RatingCount != 1 || rated.AverageRating != 4 {
		t.Errorf("unexpected rating summary %d/%v", rated.RatingCount, rated.AverageRating)
	}

	_, err = u1.CreateProfile(ctx, &schema.UserProfile{
		Email: "bob@example.com", Username: "alice2", FullName: "Dup", Role: schema.RoleBuyer,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	page, err := u1.Users(ctx, 1, 10)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if page.Total != 2 || len(page.Users) != 2 {
		t.Errorf("unexpected users page %+v", page)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","status":400,"traceId":"t-1",` +
			`"details":[{"path":"farmId","message":"unknown farm"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, testutil.TokenU1).GetPost(context.Background(), "p1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("expected ErrInvalid")
	}
	if apiErr.TraceID != "t-1" || apiErr.Message != "validation failed" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if diff := cmp.Diff([]string{"farmId"}, apiErr.Paths()); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").ListFarms(context.Background(), FarmQuery{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrServer) {
		t.Fatalf("expected server APIError, got %v", err)
	}
	if apiErr.RetryAfter != "5" || apiErr.Message != "Service Unavailable" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestTokenSourceFailure(t *testing.T) {
	boom := errors.New("token expired")
	c := New(nil, WithBaseURL("http://unused.test"), WithTokenSource(func(context.Context) (string, error) {
		return "", boom
	}))
	if _, err := c.GetFarm(context.Background(), "f1"); !errors.Is(err, boom) {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestQueryEncoding(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"postData":[],"total":0}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").ListPosts(context.Background(), PostQuery{
		UserID: "U1", Status: schema.StatusSold, Pinned: ptr(false), Limit: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "limit=5&pinned=false&status=sold&userId=U1"; got != want {
		t.Errorf("expected query %q, got %q", want, got)
	}
}

func TestParseLinkHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`</api/profileApi?cursor=abc&limit=1>; rel="next"`, "abc"},
		{`</api/profileApi?cursor=p>; rel="prev", </api/profileApi?cursor=n>; rel="next"`, "n"},
		{`</api/profileApi?limit=1>; rel="next"`, ""},
		{`garbage; rel="next"`, ""},
	}
	for _, tt := range tests {
		if got := parseLinkHeader(tt.header); got != tt.want {
			t.Errorf("parseLinkHeader(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
